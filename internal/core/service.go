package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/tcgen/internal/datewords"
	"github.com/JonMunkholm/tcgen/internal/logging"
	"github.com/JonMunkholm/tcgen/internal/render"
	"github.com/JonMunkholm/tcgen/internal/schema"
	"github.com/JonMunkholm/tcgen/internal/store"
)

// Service provides every record operation: import, save, lookup, search,
// certificate generation and export.
type Service struct {
	store    store.Store
	importer *Importer
	renderer *render.Renderer
	runner   BatchRunner
	opts     Options
	now      func() time.Time

	importLimiter *Limiter
	jobLimiter    *Limiter

	mu   sync.RWMutex
	jobs map[string]*activeBatch
}

// NewService creates a Service over st that renders with r.
func NewService(st store.Store, r *render.Renderer, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		store:         st,
		importer:      NewImporter(st, opts.MaxFileSize),
		renderer:      r,
		runner:        BatchRunner{Workers: opts.Workers},
		opts:          opts,
		now:           time.Now,
		importLimiter: NewLimiter(opts.MaxImports, opts.MaxWait, ErrTooManyImports),
		jobLimiter:    NewLimiter(opts.MaxJobs, opts.MaxWait, ErrTooManyJobs),
		jobs:          make(map[string]*activeBatch),
	}
}

// Renderer returns the renderer used for documents.
func (s *Service) Renderer() *render.Renderer { return s.renderer }

// ImportLimiter returns the limiter bounding concurrent imports.
func (s *Service) ImportLimiter() *Limiter { return s.importLimiter }

// JobLimiter returns the limiter bounding concurrent batch jobs.
func (s *Service) JobLimiter() *Limiter { return s.jobLimiter }

// OutputDir is where single certificates and reports are written by default.
func (s *Service) OutputDir() string { return s.opts.OutputDir }

// BatchDir is where batch jobs write by default.
func (s *Service) BatchDir() string {
	if filepath.IsAbs(s.opts.BatchDir) {
		return s.opts.BatchDir
	}
	return filepath.Join(s.opts.OutputDir, s.opts.BatchDir)
}

// Ping checks the store connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ImportSpreadsheet reads the named spreadsheet and inserts every data row.
// Unreadable files fail with *ImportError before any row is inserted; row
// failures are reported in the result.
//
// Returns ErrTooManyImports if no import slot frees up within the wait time.
func (s *Service) ImportSpreadsheet(ctx context.Context, name string, r io.Reader) (ImportResult, error) {
	if err := s.importLimiter.Acquire(ctx); err != nil {
		return ImportResult{FileName: name}, err
	}
	defer s.importLimiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.opts.ImportTimeout)
	defer cancel()

	res, err := s.importer.Import(ctx, name, r)
	if err != nil {
		return res, err
	}
	logging.FromContext(ctx).Info("spreadsheet imported",
		append([]any{"file", name, "imported", res.Imported, "failed", len(res.Failed)}, changeFields(ctx)...)...)
	return res, nil
}

// ImportFile imports a spreadsheet from disk.
func (s *Service) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{FileName: filepath.Base(path)}, &ImportError{File: filepath.Base(path), Err: err}
	}
	defer f.Close()
	return s.ImportSpreadsheet(ctx, filepath.Base(path), f)
}

// SaveRecord appends rec as a new record. A blank dobWords is derived from
// dob. Saving never updates an existing record.
func (s *Service) SaveRecord(ctx context.Context, rec schema.Record) (schema.StoredRecord, error) {
	rec = trimRecord(rec)
	if rec.DobWords == "" {
		rec.DobWords = datewords.Derive(rec.Dob)
	}

	stored, err := s.store.Insert(ctx, rec)
	if err != nil {
		return schema.StoredRecord{}, err
	}
	logging.FromContext(ctx).Info("record saved",
		append([]any{"id", stored.ID, "student", stored.StudentName}, changeFields(ctx)...)...)
	return stored, nil
}

// LoadLatest returns the most recently saved record for a student name.
func (s *Service) LoadLatest(ctx context.Context, name string) (schema.StoredRecord, bool, error) {
	return s.store.FindLatestByName(ctx, strings.TrimSpace(name))
}

// GetRecord returns the record with the given id or ErrRecordNotFound.
func (s *Service) GetRecord(ctx context.Context, id int64) (schema.StoredRecord, error) {
	if id <= 0 {
		return schema.StoredRecord{}, fmt.Errorf("%w %d", ErrInvalidRecordID, id)
	}
	rec, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return schema.StoredRecord{}, err
	}
	if !ok {
		return schema.StoredRecord{}, fmt.Errorf("%w: %d", ErrRecordNotFound, id)
	}
	return rec, nil
}

// ListNames returns the distinct student names in ascending order.
func (s *Service) ListNames(ctx context.Context) ([]string, error) {
	return s.store.ListDistinctNames(ctx)
}

// ListRecords returns every record, newest first.
func (s *Service) ListRecords(ctx context.Context) ([]schema.StoredRecord, error) {
	return s.store.List(ctx)
}

// DeleteRecord removes a record and reports whether it existed.
func (s *Service) DeleteRecord(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("%w %d", ErrInvalidRecordID, id)
	}
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		logging.FromContext(ctx).Info("record deleted", append([]any{"id", id}, changeFields(ctx)...)...)
	}
	return ok, nil
}

// Search returns records whose student name, register number or father name
// contains query, ignoring case, ordered by student name.
func (s *Service) Search(ctx context.Context, query string) ([]schema.StoredRecord, error) {
	return s.store.Search(ctx, strings.TrimSpace(query))
}

// FilterRecords applies a row filter to the newest-first record list. See
// ApplyFilter for how query and previous interact.
func (s *Service) FilterRecords(ctx context.Context, query string, previous Filter) ([]schema.StoredRecord, Filter, error) {
	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, previous, err
	}
	f := ApplyFilter(query, previous)
	return f.Select(rows), f, nil
}

// DobWords returns the words form of a date of birth.
func (s *Service) DobWords(dob string) string {
	return datewords.Derive(dob)
}

// GenerateDocument writes the certificate for rec to dest. An empty dest
// writes <name>_TC.pdf under the output directory.
func (s *Service) GenerateDocument(ctx context.Context, rec schema.Record, dest string) (render.RenderResult, error) {
	rec, err := prepareDocument(rec)
	if err != nil {
		return render.RenderResult{}, err
	}
	if dest == "" {
		dest = filepath.Join(s.opts.OutputDir, render.FileName(rec.StudentName))
	}

	res, err := s.renderer.RenderFile(ctx, dest, rec)
	if err != nil {
		logging.FromContext(ctx).Error("certificate failed", "student", rec.StudentName, "error", err)
		return render.RenderResult{}, err
	}
	logging.FromContext(ctx).Info("certificate generated", "student", rec.StudentName, "path", res.Path)
	return res, nil
}

// WriteDocument streams the certificate for rec to w.
func (s *Service) WriteDocument(ctx context.Context, w io.Writer, rec schema.Record) (render.RenderResult, error) {
	rec, err := prepareDocument(rec)
	if err != nil {
		return render.RenderResult{}, err
	}
	return s.renderer.Render(ctx, w, rec)
}

func prepareDocument(rec schema.Record) (schema.Record, error) {
	rec = trimRecord(rec)
	if rec.StudentName == "" {
		return rec, &store.ValidationError{Field: schema.KeyStudentName}
	}
	if rec.DobWords == "" {
		rec.DobWords = datewords.Derive(rec.Dob)
	}
	return rec, nil
}

// GenerateBatch renders the certificate of every id into dir, continuing
// past failures. An empty dir uses the batch directory. Records that share a
// student name write the same file; the later id wins.
func (s *Service) GenerateBatch(ctx context.Context, ids []int64, dir string, onProgress ProgressFunc) BatchSummary {
	if dir == "" {
		dir = s.BatchDir()
	}
	logger := logging.WithFields(ctx, "dir", dir)

	unit := func(ctx context.Context, id int64) error {
		rec, err := s.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		_, err = s.renderer.RenderFile(ctx, filepath.Join(dir, render.FileName(rec.StudentName)), rec.Record)
		return err
	}

	sum := s.runner.Run(ctx, ids, unit, onProgress)
	for _, f := range sum.Failed {
		logger.Error("batch unit failed", "id", f.ID, "code", f.Code, "error", f.Err)
	}
	logger.Info("batch finished",
		"total", sum.Total,
		"succeeded", sum.Succeeded,
		"failed", len(sum.Failed),
		"cancelled", sum.Cancelled,
		"duration", sum.Duration,
	)
	return sum
}

// ExportReport writes the summary report of records to dest. Nil records
// reports every record, newest first. An empty dest writes a timestamped
// file under the output directory.
func (s *Service) ExportReport(ctx context.Context, records []schema.StoredRecord, dest string) (render.RenderResult, error) {
	if records == nil {
		all, err := s.store.List(ctx)
		if err != nil {
			return render.RenderResult{}, err
		}
		records = all
	}
	if dest == "" {
		dest = filepath.Join(s.opts.OutputDir, render.ReportFileName(s.now()))
	}

	res, err := s.renderer.RenderReportFile(ctx, dest, records)
	if err != nil {
		return render.RenderResult{}, err
	}
	logging.FromContext(ctx).Info("report exported", "records", len(records), "path", res.Path)
	return res, nil
}

// WriteReport streams the summary report of every record to w.
func (s *Service) WriteReport(ctx context.Context, w io.Writer) (render.RenderResult, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return render.RenderResult{}, err
	}
	return s.renderer.RenderReport(ctx, w, records, s.now())
}

// ExportWorkbook writes every record to w as an .xlsx workbook ordered by
// student name.
func (s *Service) ExportWorkbook(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.store.Search(ctx, "")
	if err != nil {
		return 0, err
	}
	if err := render.WriteWorkbook(w, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// WriteTemplate writes an empty import workbook to w.
func (s *Service) WriteTemplate(w io.Writer) error {
	return render.WriteTemplate(w)
}

// Shutdown cancels running batch jobs and waits for imports and jobs to
// release their slots.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	for _, job := range s.jobs {
		job.Cancel()
	}
	s.mu.RUnlock()

	if err := s.jobLimiter.WaitForDrain(ctx); err != nil {
		return fmt.Errorf("wait for batch jobs: %w", err)
	}
	if err := s.importLimiter.WaitForDrain(ctx); err != nil {
		return fmt.Errorf("wait for imports: %w", err)
	}
	return nil
}

func trimRecord(rec schema.Record) schema.Record {
	values := rec.Values()
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}
	return schema.FromValues(values)
}
