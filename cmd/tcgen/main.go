// Command tcgen imports student lists and prints transfer certificates
// without starting the web server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/JonMunkholm/tcgen/internal/app"
	"github.com/JonMunkholm/tcgen/internal/config"
	"github.com/JonMunkholm/tcgen/internal/core"
	"github.com/JonMunkholm/tcgen/internal/datewords"
	"github.com/JonMunkholm/tcgen/internal/logging"
	"github.com/JonMunkholm/tcgen/internal/render"
	"github.com/joho/godotenv"
)

const usage = `usage: tcgen <command> [flags]

commands:
  import <file|dir>...     import student rows from spreadsheets
  batch [-all|-ids 1,2]    write one certificate per record
  certificate -id N        write the certificate for one record
  report                   write the all-records report
  export -o FILE           export records to a workbook
  template -o FILE         write an empty import workbook
  dobwords DD-MM-YYYY      print a date of birth in words
`

func main() {
	// A missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	slog.SetDefault(logging.New(stderr, cfg.Logging.Level, cfg.Logging.Format))

	cmd, rest := args[0], args[1:]
	if cmd == "dobwords" {
		return dobWords(rest, stdout, stderr)
	}

	a, err := app.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, "open record store:", err)
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}()

	switch cmd {
	case "import":
		err = importCmd(ctx, a, rest, stdout)
	case "batch":
		err = batchCmd(ctx, a, rest, stdout)
	case "certificate":
		err = certificateCmd(ctx, a, rest, stdout)
	case "report":
		err = reportCmd(ctx, a, rest, stdout)
	case "export":
		err = exportCmd(ctx, a, rest, stdout)
	case "template":
		err = templateCmd(a, rest, stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	if err != nil {
		var flagErr flagError
		if errors.As(err, &flagErr) {
			fmt.Fprintln(stderr, err)
			return 2
		}
		msg := core.MapError(err)
		fmt.Fprintf(stderr, "%s: %s (%s)\n", msg.Code, msg.Message, err)
		return 1
	}
	return 0
}

type flagError struct{ msg string }

func (e flagError) Error() string { return e.msg }

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return flagError{msg: fs.Name() + ": " + err.Error()}
	}
	return nil
}

func importCmd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return flagError{msg: "import: no files given"}
	}
	results, err := a.ImportPaths(ctx, args)
	if err != nil {
		return err
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "%s: %s\n", r.Path, core.FormatUserError(r.Err))
			continue
		}
		fmt.Fprintf(out, "%s: imported %d, skipped %d, failed %d\n",
			r.Path, r.Result.Imported, r.Result.Skipped, len(r.Result.Failed))
		for _, f := range r.Result.Failed {
			fmt.Fprintf(out, "  row %d: %s\n", f.Row, f.Reason)
		}
	}
	if failed > 0 {
		return &core.ImportError{Err: fmt.Errorf("%d of %d files could not be read", failed, len(results))}
	}
	return nil
}

func batchCmd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlagSet("batch")
	all := fs.Bool("all", false, "print every stored record")
	idList := fs.String("ids", "", "comma separated record ids")
	dir := fs.String("dir", "", "output directory")
	if err := parse(fs, args); err != nil {
		return err
	}

	var ids []int64
	switch {
	case *all:
		records, err := a.Service.ListRecords(ctx)
		if err != nil {
			return err
		}
		for _, r := range records {
			ids = append(ids, r.ID)
		}
	case *idList != "":
		var err error
		if ids, err = parseIDs(*idList); err != nil {
			return err
		}
	default:
		return flagError{msg: "batch: pass -all or -ids"}
	}

	target := *dir
	if target == "" {
		target = a.Service.BatchDir()
	}
	sum := a.Service.GenerateBatch(ctx, ids, target, func(done, total int) {
		slog.Debug("batch progress", "done", done, "total", total)
	})

	fmt.Fprintf(out, "wrote %d of %d certificates to %s\n", sum.Succeeded, sum.Total, target)
	for _, f := range sum.Failed {
		fmt.Fprintf(out, "  record %d: %s\n", f.ID, f.Reason)
	}
	if sum.Cancelled {
		return core.ErrCancelled
	}
	return nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w %q", core.ErrInvalidRecordID, part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, flagError{msg: "batch: -ids is empty"}
	}
	return ids, nil
}

func certificateCmd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlagSet("certificate")
	id := fs.Int64("id", 0, "record id")
	dest := fs.String("o", "", "output file")
	if err := parse(fs, args); err != nil {
		return err
	}

	rec, err := a.Service.GetRecord(ctx, *id)
	if err != nil {
		return err
	}
	res, err := a.Service.GenerateDocument(ctx, rec.Record, *dest)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Path)
	return nil
}

func reportCmd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlagSet("report")
	dest := fs.String("o", "", "output file")
	if err := parse(fs, args); err != nil {
		return err
	}

	res, err := a.Service.ExportReport(ctx, nil, *dest)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (%d pages)\n", res.Path, res.Pages)
	return nil
}

func exportCmd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlagSet("export")
	dest := fs.String("o", "", "output workbook")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *dest == "" {
		*dest = filepath.Join(a.Service.OutputDir(),
			"transfer_certificates_"+time.Now().Format("20060102_150405")+".xlsx")
	}

	var n int
	err := writeFile(*dest, func(w io.Writer) error {
		var err error
		n, err = a.Service.ExportWorkbook(ctx, w)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "exported %d records to %s\n", n, *dest)
	return nil
}

func templateCmd(a *app.App, args []string, out io.Writer) error {
	fs := newFlagSet("template")
	dest := fs.String("o", "transfer_certificate_template.xlsx", "output workbook")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := writeFile(*dest, a.Service.WriteTemplate); err != nil {
		return err
	}
	fmt.Fprintln(out, *dest)
	return nil
}

func dobWords(args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "dobwords: pass one date as DD-MM-YYYY")
		return 2
	}
	fmt.Fprintln(out, datewords.ToWords(args[0]))
	return 0
}

// writeFile writes through fn and removes the file if fn fails.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return &render.RenderError{Path: path, Err: err}
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return &render.RenderError{Path: path, Err: err}
	}
	return nil
}
