package core

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/tcgen/internal/datewords"
	"github.com/JonMunkholm/tcgen/internal/logging"
	"github.com/JonMunkholm/tcgen/internal/schema"
	"github.com/JonMunkholm/tcgen/internal/store"
	"github.com/google/uuid"
)

// FailedRow describes a data row that could not be inserted.
type FailedRow struct {
	Row    int      `json:"row"` // 1-based position in the worksheet
	Reason string   `json:"reason"`
	Code   string   `json:"code"`
	Data   []string `json:"data"`
	Err    error    `json:"-"`
}

// ImportResult summarizes one import.
type ImportResult struct {
	ImportID  string        `json:"importId"`
	FileName  string        `json:"fileName,omitempty"`
	TotalRows int           `json:"totalRows"`
	Imported  int           `json:"imported"`
	Skipped   int           `json:"skipped"`
	Failed    []FailedRow   `json:"failed"`
	Header    bool          `json:"header"` // First row was detected as a header and skipped
	Cancelled bool          `json:"cancelled"`
	Duration  time.Duration `json:"duration"`
}

// Importer inserts spreadsheet rows into a store.
type Importer struct {
	store       store.Store
	maxFileSize int64
}

// NewImporter creates an importer writing to st. maxFileSize <= 0 uses
// DefaultMaxFileSize.
func NewImporter(st store.Store, maxFileSize int64) *Importer {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Importer{store: st, maxFileSize: maxFileSize}
}

// Import reads the named spreadsheet and inserts its rows. An unreadable or
// unsupported file returns an *ImportError and inserts nothing.
func (im *Importer) Import(ctx context.Context, name string, r io.Reader) (ImportResult, error) {
	rows, err := ReadSpreadsheet(name, r, im.maxFileSize)
	if err != nil {
		logging.FromContext(ctx).Warn("import rejected", "file", name, "error", err)
		return ImportResult{FileName: name}, err
	}
	res := im.importRows(ctx, name, rows)
	return res, nil
}

// ImportRows inserts rows positionally using the field schema.
//
// The first row is treated as a header and skipped when its first cell is
// text that mentions "student" or contains no digit. Wholly blank rows are
// skipped. A row whose insert fails is recorded in Failed and the remaining
// rows are still processed. Cancelling ctx stops between rows.
func (im *Importer) ImportRows(ctx context.Context, rows []TaggedRow) ImportResult {
	return im.importRows(ctx, "", rows)
}

func (im *Importer) importRows(ctx context.Context, name string, rows []TaggedRow) ImportResult {
	start := time.Now()
	res := ImportResult{
		ImportID:  uuid.New().String(),
		FileName:  name,
		TotalRows: len(rows),
		Failed:    make([]FailedRow, 0),
	}
	logger := logging.WithFields(ctx, "import_id", res.ImportID, "file", name)

	first := 0
	if len(rows) > 0 && isHeaderRow(rows[0]) {
		res.Header = true
		first = 1
	}

	for i := first; i < len(rows); i++ {
		if ctx.Err() != nil {
			res.Cancelled = true
			logger.Warn("import cancelled", "row", i+1, "imported", res.Imported)
			break
		}

		values := rows[i].Texts(schema.FieldCount)
		if allBlank(values) {
			res.Skipped++
			continue
		}

		rec := schema.FromValues(values)
		if rec.DobWords == "" {
			rec.DobWords = datewords.Derive(rec.Dob)
		}

		if _, err := im.store.Insert(ctx, rec); err != nil {
			logger.Warn("row insert failed", "row", i+1, "error", err)
			res.Failed = append(res.Failed, FailedRow{
				Row:    i + 1,
				Reason: err.Error(),
				Code:   MapError(err).Code,
				Data:   values,
				Err:    err,
			})
			continue
		}
		res.Imported++
	}

	res.Duration = time.Since(start)
	logger.Info("import completed",
		"rows", res.TotalRows,
		"imported", res.Imported,
		"skipped", res.Skipped,
		"failed", len(res.Failed),
		"duration", res.Duration,
	)
	return res
}

// isHeaderRow applies the header heuristic to the first row.
func isHeaderRow(row TaggedRow) bool {
	if len(row) == 0 || row[0].Kind != CellText {
		return false
	}
	v := strings.ToLower(row[0].Str)
	return strings.Contains(v, "student") || !strings.ContainsAny(v, "0123456789")
}

func allBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
