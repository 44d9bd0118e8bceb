package core

// cells.go defines the tagged cell value produced by spreadsheet readers and
// the single coercion from a cell to the canonical text stored in a record.
//
// Readers never hand the importer raw interface{} values. Every cell is one of
// the CellKind variants and Text() is total over all of them:
//
//	Text     -> the string as read
//	Number   -> "42" for whole values, "3.75" otherwise
//	Boolean  -> "true" / "false"
//	Formula  -> the evaluated number if the reader had one, else the formula text
//	Date     -> dd-MM-yyyy
//	Empty    -> ""

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// CellKind identifies which variant a Cell holds.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellBoolean
	CellFormula
	CellDate
)

func (k CellKind) String() string {
	switch k {
	case CellText:
		return "text"
	case CellNumber:
		return "number"
	case CellBoolean:
		return "boolean"
	case CellFormula:
		return "formula"
	case CellDate:
		return "date"
	default:
		return "empty"
	}
}

// DateLayout is the canonical text form of Date cells.
const DateLayout = "02-01-2006"

// Cell is one spreadsheet cell value.
type Cell struct {
	Kind CellKind
	Str  string    // Text value, or the formula expression
	Num  float64   // Number value, or the formula's evaluated result
	Bool bool      // Boolean value
	Time time.Time // Date value

	// Evaluated is set on Formula cells whose cached numeric result is known.
	Evaluated bool
}

// TaggedRow is one spreadsheet row of up to 24 cells.
type TaggedRow []Cell

func TextCell(s string) Cell { return Cell{Kind: CellText, Str: s} }
func NumberCell(f float64) Cell { return Cell{Kind: CellNumber, Num: f} }
func BoolCell(b bool) Cell { return Cell{Kind: CellBoolean, Bool: b} }
func DateCell(t time.Time) Cell { return Cell{Kind: CellDate, Time: t} }
func EmptyCell() Cell { return Cell{} }
func FormulaCell(expr string) Cell { return Cell{Kind: CellFormula, Str: expr} }

// EvaluatedFormulaCell is a formula whose numeric result is known.
func EvaluatedFormulaCell(expr string, value float64) Cell {
	return Cell{Kind: CellFormula, Str: expr, Num: value, Evaluated: true}
}

// Text coerces the cell to its canonical text.
func (c Cell) Text() string {
	switch c.Kind {
	case CellText:
		return c.Str
	case CellNumber:
		return formatNumber(c.Num)
	case CellBoolean:
		return strconv.FormatBool(c.Bool)
	case CellFormula:
		if c.Evaluated {
			return formatNumber(c.Num)
		}
		return c.Str
	case CellDate:
		if c.Time.IsZero() {
			return ""
		}
		return c.Time.Format(DateLayout)
	default:
		return ""
	}
}

// IsBlank reports whether the cell coerces to whitespace only.
func (c Cell) IsBlank() bool {
	return strings.TrimSpace(c.Text()) == ""
}

// formatNumber renders whole values without a decimal point and fractional
// values in their shortest exact decimal form.
func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Texts coerces every cell in the row and pads the result to n values.
// Cells beyond n are dropped.
func (r TaggedRow) Texts(n int) []string {
	out := make([]string, n)
	for i := 0; i < n && i < len(r); i++ {
		out[i] = r[i].Text()
	}
	return out
}

// CleanCell normalizes a raw text cell: trims whitespace and strips the
// ="..." wrapper spreadsheet exports use to force text.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	return s
}

// TextRow builds a TaggedRow from plain strings. Blank values become Empty
// cells; everything else is Text.
func TextRow(values []string) TaggedRow {
	row := make(TaggedRow, len(values))
	for i, v := range values {
		v = CleanCell(v)
		if v == "" {
			row[i] = EmptyCell()
			continue
		}
		row[i] = TextCell(v)
	}
	return row
}
