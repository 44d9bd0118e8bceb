package core

// readers.go turns an uploaded spreadsheet into tagged rows.
//
// Supported inputs:
//   - .xlsx / .xlsm: typed cells via excelize, including cached formula
//     results and date-formatted numbers
//   - .xls: legacy BIFF workbooks via extrame/xls (text cells)
//   - .csv: UTF-8 with optional BOM, falling back to Windows-1252 when the
//     bytes are not valid UTF-8
//
// Only the first worksheet is read. Any failure here is an *ImportError and
// no rows are returned.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// DefaultMaxFileSize is the import size limit used when none is configured (20MB).
const DefaultMaxFileSize int64 = 20 * 1024 * 1024

// maxXLSRows bounds how many rows are read from a legacy workbook.
const maxXLSRows = 100000

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadSpreadsheet reads the first worksheet of the named file. The format is
// chosen by extension. maxSize <= 0 uses DefaultMaxFileSize.
func ReadSpreadsheet(name string, r io.Reader, maxSize int64) ([]TaggedRow, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !SupportedFile(name) {
		return nil, &ImportError{File: name, Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)}
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, &ImportError{File: name, Err: fmt.Errorf("read file: %w", err)}
	}
	if int64(len(data)) > maxSize {
		return nil, &ImportError{File: name, Err: fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxSize)}
	}
	if len(data) == 0 {
		return nil, &ImportError{File: name, Err: ErrEmptyFile}
	}

	var rows []TaggedRow
	switch ext {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(data)
	case ".xls":
		rows, err = readXLS(data)
	case ".csv":
		rows, err = readCSV(data)
	}
	if err != nil {
		return nil, &ImportError{File: name, Err: err}
	}
	return rows, nil
}

// SupportedFile reports whether name has an extension ReadSpreadsheet reads.
func SupportedFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls", ".csv":
		return true
	}
	return false
}

func readXLSX(data []byte) ([]TaggedRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoWorksheet
	}

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", sheet, err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	xr := &xlsxCellReader{f: f, sheet: sheet, date1904: date1904, dateStyles: make(map[int]bool)}
	rows := make([]TaggedRow, 0, len(raw))
	for r, values := range raw {
		row := make(TaggedRow, len(values))
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			row[c] = xr.cell(cell, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// xlsxCellReader classifies raw excelize cell values into tagged cells.
type xlsxCellReader struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

func (x *xlsxCellReader) cell(ref, raw string) Cell {
	if formula, err := x.f.GetCellFormula(x.sheet, ref); err == nil && formula != "" {
		if raw != "" {
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				return EvaluatedFormulaCell(formula, n)
			}
			return FormulaCell(raw)
		}
		return FormulaCell("=" + formula)
	}

	if raw == "" {
		return EmptyCell()
	}

	typ, err := x.f.GetCellType(x.sheet, ref)
	if err != nil {
		return TextCell(raw)
	}

	switch typ {
	case excelize.CellTypeBool:
		return BoolCell(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return DateCell(t)
			}
		}
		return TextCell(raw)
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return TextCell(raw)
		}
		if x.isDateStyled(ref) {
			if t, err := excelize.ExcelDateToTime(n, x.date1904); err == nil {
				return DateCell(t)
			}
		}
		return NumberCell(n)
	default:
		return TextCell(raw)
	}
}

// isDateStyled reports whether the cell's number format displays a date.
func (x *xlsxCellReader) isDateStyled(ref string) bool {
	idx, err := x.f.GetCellStyle(x.sheet, ref)
	if err != nil || idx == 0 {
		return false
	}
	if v, ok := x.dateStyles[idx]; ok {
		return v
	}

	isDate := false
	if style, err := x.f.GetStyle(idx); err == nil && style != nil {
		isDate = isDateNumFmt(style.NumFmt)
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	x.dateStyles[idx] = isDate
	return isDate
}

// isDateNumFmt reports whether a built-in number format id is a date or time format.
func isDateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom format code contains date tokens
// outside quoted literals and bracketed sections.
func isDateFormatCode(code string) bool {
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case r == 'd' || r == 'y' || r == 'm':
			return true
		}
	}
	return false
}

func readXLS(data []byte) ([]TaggedRow, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrNoWorksheet
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrNoWorksheet
	}

	rows := make([]TaggedRow, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow) && i < maxXLSRows; i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		values := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			values[j] = row.Col(j)
		}
		rows = append(rows, TextRow(values))
	}
	return rows, nil
}

func readCSV(data []byte) ([]TaggedRow, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("encoding error: %w", err)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}

	rows := make([]TaggedRow, len(records))
	for i, rec := range records {
		rows[i] = TextRow(rec)
	}
	return rows, nil
}
