package render

import (
	"github.com/go-pdf/fpdf"
)

// rowStyle controls how drawRow lays out one table row.
type rowStyle struct {
	lineH     float64
	padBottom float64
	border    bool
	fill      bool
}

// scaleWidths distributes total across columns in proportion to weights.
func scaleWidths(weights []float64, total float64) []float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = total * w / sum
	}
	return out
}

// cellLines wraps text to the usable width of a column in the current font.
func cellLines(pdf *fpdf.Fpdf, width float64, text string) []string {
	usable := width - 2*cellPadLeft
	if usable <= 0 || text == "" {
		return []string{text}
	}
	var out []string
	for _, line := range pdf.SplitLines([]byte(text), usable) {
		out = append(out, string(line))
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// rowHeight returns the height needed to print cells in the current font.
func rowHeight(pdf *fpdf.Fpdf, widths []float64, cells []string, st rowStyle) float64 {
	maxLines := 1
	for i, text := range cells {
		if n := len(cellLines(pdf, widths[i], text)); n > maxLines {
			maxLines = n
		}
	}
	return float64(maxLines)*st.lineH + st.padBottom
}

// pageBottom is the lowest y coordinate content may reach.
func pageBottom(pdf *fpdf.Fpdf) float64 {
	_, pageH := pdf.GetPageSize()
	return pageH - pageMargin
}

// ensureSpace starts a new page when h would cross the bottom margin.
func ensureSpace(pdf *fpdf.Fpdf, h float64) {
	if pdf.GetY()+h > pageBottom(pdf) {
		pdf.AddPage()
	}
}

// drawRow prints one row of wrapped cells. A row that does not fit below the
// cursor moves to a new page; a row taller than a whole page is split across
// pages line by line. It returns true if a page break happened.
func drawRow(pdf *fpdf.Fpdf, widths []float64, cells []string, aligns []string, st rowStyle) bool {
	lines := make([][]string, len(cells))
	maxLines := 1
	for i, text := range cells {
		lines[i] = cellLines(pdf, widths[i], text)
		if len(lines[i]) > maxLines {
			maxLines = len(lines[i])
		}
	}
	h := float64(maxLines)*st.lineH + st.padBottom

	bottom := pageBottom(pdf)
	broke := false
	if pdf.GetY()+h > bottom && h <= bottom-pageMargin {
		pdf.AddPage()
		broke = true
	}

	x0 := pdf.GetX()
	for start := 0; start < maxLines; {
		y0 := pdf.GetY()
		fit := int((bottom - y0 - st.padBottom) / st.lineH)
		if fit < 1 {
			pdf.AddPage()
			broke = true
			continue
		}
		end := min(start+fit, maxLines)
		drawChunk(pdf, x0, y0, widths, lines, aligns, start, end, st)
		start = end
		if start < maxLines {
			pdf.AddPage()
			broke = true
		}
	}
	return broke
}

// drawChunk prints lines [start, end) of every cell in one band and leaves
// the cursor below it.
func drawChunk(pdf *fpdf.Fpdf, x0, y0 float64, widths []float64, lines [][]string, aligns []string, start, end int, st rowStyle) {
	h := float64(end-start)*st.lineH + st.padBottom
	x := x0
	for i, cell := range lines {
		if st.border || st.fill {
			style := "D"
			switch {
			case st.border && st.fill:
				style = "FD"
			case st.fill:
				style = "F"
			}
			pdf.Rect(x, y0, widths[i], h, style)
		}
		align := "L"
		if i < len(aligns) {
			align = aligns[i]
		}
		for j := start; j < end && j < len(cell); j++ {
			pdf.SetXY(x, y0+float64(j-start)*st.lineH)
			pdf.CellFormat(widths[i], st.lineH, cell[j], "", 0, align, false, 0, "")
		}
		x += widths[i]
	}
	pdf.SetXY(x0, y0+h)
}
