package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"strings"

	"github.com/JonMunkholm/tcgen/internal/logging"
	"github.com/JonMunkholm/tcgen/internal/schema"
	"github.com/go-pdf/fpdf"
)

// Page geometry in points. A4 with 40pt margins on every side.
const (
	pageMargin    = 40.0
	logoMaxWidth  = 500.0
	logoMaxHeight = 100.0
	bodyFontSize  = 10.0
	titleFontSize = 16.0
	bodyLineH     = 12.0
	rowPadBottom  = 6.0
	cellPadLeft   = 2.0
)

// certColumns are the relative widths of number, label, colon and value.
var certColumns = []float64{0.6, 5.5, 0.3, 5.0}

// logoImage is a decoded, validated logo ready to embed.
type logoImage struct {
	data   []byte
	typ    string
	width  float64
	height float64
}

// Render writes the certificate PDF for rec to w. A logo that cannot be read
// or decoded is logged and omitted.
func (r *Renderer) Render(ctx context.Context, w io.Writer, rec schema.Record) (RenderResult, error) {
	cert := r.Layout(rec)
	logo := r.resolveLogo(ctx)

	pdf := newDocument("P")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(cert.Title+" - "+rec.StudentName, true)
	if cert.Institution != "" {
		pdf.SetAuthor(cert.Institution, true)
	}
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*pageMargin

	if logo != nil {
		pdf.RegisterImageOptionsReader("logo", fpdf.ImageOptions{ImageType: logo.typ}, bytes.NewReader(logo.data))
		lw, lh := fitWithin(logo.width, logo.height, logoMaxWidth, logoMaxHeight)
		pdf.ImageOptions("logo", (pageW-lw)/2, pdf.GetY(), lw, lh, true, fpdf.ImageOptions{ImageType: logo.typ}, 0, "")
		pdf.Ln(bodyLineH / 2)
	}

	if cert.Institution != "" {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(contentW, 18, tr(cert.Institution), "", 1, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", titleFontSize)
	pdf.CellFormat(contentW, 20, tr(cert.Title), "", 1, "C", false, 0, "")
	pdf.Ln(bodyLineH)

	pdf.SetFont("Helvetica", "B", bodyFontSize)
	writeHeader(pdf, tr, cert.Header, contentW)
	pdf.Ln(bodyLineH + 10)

	pdf.SetFont("Helvetica", "", bodyFontSize)
	widths := scaleWidths(certColumns, contentW)
	aligns := []string{"L", "L", "C", "L"}
	for _, line := range cert.Lines {
		colon := ""
		if line.Colon {
			colon = ":"
		}
		cells := []string{line.NumberText(), line.Label, colon, line.Value}
		for i := range cells {
			cells[i] = tr(cells[i])
		}
		drawRow(pdf, widths, cells, aligns, rowStyle{lineH: bodyLineH, padBottom: rowPadBottom})
	}

	ensureSpace(pdf, 4*bodyLineH)
	pdf.Ln(3 * bodyLineH)
	pdf.SetFont("Helvetica", "B", bodyFontSize)
	pdf.CellFormat(contentW, bodyLineH, tr(cert.Signatory), "", 1, "R", false, 0, "")

	return finish(pdf, w, logo != nil)
}

// resolveLogo loads the configured logo. Every failure is a warning: the
// certificate is rendered without it.
func (r *Renderer) resolveLogo(ctx context.Context) *logoImage {
	if r.assets.LogoPath == "" {
		return nil
	}
	logo, err := loadLogo(r.assets.LogoPath)
	if err != nil {
		logging.FromContext(ctx).Warn("logo unavailable, rendering without it", "path", r.assets.LogoPath, "error", err)
		return nil
	}
	return logo
}

func loadLogo(path string) (*logoImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, errors.New("image has no size")
	}

	var typ string
	switch format {
	case "png":
		typ = "PNG"
	case "jpeg":
		typ = "JPG"
	case "gif":
		typ = "GIF"
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}

	// fpdf errors are sticky for the whole document, so check the image on a
	// scratch document first.
	check := fpdf.New("P", "pt", "A4", "")
	check.RegisterImageOptionsReader("logo-check", fpdf.ImageOptions{ImageType: typ}, bytes.NewReader(data))
	if err := check.Error(); err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}

	return &logoImage{data: data, typ: typ, width: float64(cfg.Width), height: float64(cfg.Height)}, nil
}

// fitWithin scales w×h to fit inside maxW×maxH, preserving aspect ratio.
func fitWithin(w, h, maxW, maxH float64) (float64, float64) {
	scale := math.Min(maxW/w, maxH/h)
	return w * scale, h * scale
}

func newDocument(orientation string) *fpdf.Fpdf {
	pdf := fpdf.New(orientation, "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetCreator("tcgen", false)
	pdf.SetCellMargin(cellPadLeft)
	return pdf
}

// writeHeader prints the first header item left-aligned and the rest
// right-aligned on the same line.
func writeHeader(pdf *fpdf.Fpdf, tr func(string) string, items []HeaderItem, width float64) {
	if len(items) == 0 {
		return
	}
	if len(items) == 1 {
		pdf.CellFormat(width, bodyLineH, tr(items[0].Text()), "", 1, "L", false, 0, "")
		return
	}
	right := make([]string, 0, len(items)-1)
	for _, it := range items[1:] {
		right = append(right, it.Text())
	}
	pdf.CellFormat(width/2, bodyLineH, tr(items[0].Text()), "", 0, "L", false, 0, "")
	pdf.CellFormat(width/2, bodyLineH, tr(strings.Join(right, "   ")), "", 1, "R", false, 0, "")
}

func finish(pdf *fpdf.Fpdf, w io.Writer, logoUsed bool) (RenderResult, error) {
	if err := pdf.Error(); err != nil {
		return RenderResult{}, err
	}
	pages := pdf.PageCount()
	cw := &countingWriter{w: w}
	if err := pdf.Output(cw); err != nil {
		return RenderResult{}, err
	}
	return RenderResult{Bytes: cw.n, Pages: pages, LogoUsed: logoUsed}, nil
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
