package render

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/JonMunkholm/tcgen/internal/logging"
	"github.com/JonMunkholm/tcgen/internal/schema"
	"github.com/go-pdf/fpdf"
)

// ReportTitle heads the summary report.
const ReportTitle = "TRANSFER CERTIFICATES - COMPLETE REPORT"

// reportColumn is one column of the summary report.
type reportColumn struct {
	header string
	weight float64
	value  func(schema.StoredRecord) string
}

var reportColumns = []reportColumn{
	{"ID", 8, func(r schema.StoredRecord) string { return strconv.FormatInt(r.ID, 10) }},
	{"Student Name", 15, func(r schema.StoredRecord) string { return r.StudentName }},
	{"Father Name", 15, func(r schema.StoredRecord) string { return r.FatherName }},
	{"Course", 12, func(r schema.StoredRecord) string { return r.Course }},
	{"Admission Date", 12, func(r schema.StoredRecord) string { return r.AdmissionDate }},
	{"Leaving Date", 12, func(r schema.StoredRecord) string { return r.LeavingDate }},
	{"Issue Date", 12, func(r schema.StoredRecord) string { return r.IssueDate }},
	{"Reason", 14, func(r schema.StoredRecord) string { return r.Reason }},
}

// ReportHeaders returns the report's column headings.
func ReportHeaders() []string {
	out := make([]string, len(reportColumns))
	for i, c := range reportColumns {
		out[i] = c.header
	}
	return out
}

// ReportRow returns the report cells for one record.
func ReportRow(rec schema.StoredRecord) []string {
	out := make([]string, len(reportColumns))
	for i, c := range reportColumns {
		out[i] = c.value(rec)
	}
	return out
}

// RenderReport writes a landscape table of records followed by a summary.
// The header row is repeated on every page.
func (r *Renderer) RenderReport(ctx context.Context, w io.Writer, records []schema.StoredRecord, generatedAt time.Time) (RenderResult, error) {
	pdf := newDocument("L")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(ReportTitle, true)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*pageMargin

	if r.assets.Institution != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(contentW, 16, tr(r.assets.Institution), "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", titleFontSize)
	pdf.CellFormat(contentW, 20, tr(ReportTitle), "", 1, "C", false, 0, "")
	pdf.Ln(20)

	weights := make([]float64, len(reportColumns))
	for i, c := range reportColumns {
		weights[i] = c.weight
	}
	widths := scaleWidths(weights, contentW)

	headerStyle := rowStyle{lineH: 12, padBottom: 8, border: true, fill: true}
	bodyStyle := rowStyle{lineH: 10, padBottom: 4, border: true}

	headers := ReportHeaders()
	for i := range headers {
		headers[i] = tr(headers[i])
	}
	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		drawRow(pdf, widths, headers, nil, headerStyle)
	}
	drawHeader()

	for _, rec := range records {
		pdf.SetFont("Helvetica", "", 8)
		cells := ReportRow(rec)
		for i := range cells {
			cells[i] = tr(cells[i])
		}
		if needsBreak(pdf, widths, cells, bodyStyle) {
			pdf.AddPage()
			drawHeader()
			pdf.SetFont("Helvetica", "", 8)
		}
		drawRow(pdf, widths, cells, nil, bodyStyle)
	}

	ensureSpace(pdf, 24+14+2*12)
	pdf.Ln(24)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 14, "Summary:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 12, "Total Records: "+strconv.Itoa(len(records)), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 12, "Report Generated: "+generatedAt.Format("02/01/2006 15:04:05"), "", 1, "L", false, 0, "")

	res, err := finish(pdf, w, false)
	if err != nil {
		return RenderResult{}, err
	}
	logging.FromContext(ctx).Info("report rendered", "records", len(records), "pages", res.Pages)
	return res, nil
}

func needsBreak(pdf *fpdf.Fpdf, widths []float64, cells []string, st rowStyle) bool {
	return pdf.GetY()+rowHeight(pdf, widths, cells, st) > pageBottom(pdf)
}
