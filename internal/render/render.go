// Package render turns records into documents: the single-page transfer
// certificate PDF, the landscape summary report and Excel workbooks.
//
// A Renderer holds only immutable configuration. The logo is resolved from
// disk on every render, so a missing or broken logo file degrades that one
// document instead of failing it.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/tcgen/internal/logging"
	"github.com/JonMunkholm/tcgen/internal/schema"
)

// Assets are the external resources a certificate may use.
type Assets struct {
	LogoPath    string // Optional image printed centred above the title
	Institution string // Optional heading printed when set
	Signatory   string // Signature caption; defaults to DefaultSignatory
}

func (a Assets) signatory() string {
	if a.Signatory == "" {
		return DefaultSignatory
	}
	return a.Signatory
}

// RenderResult describes a written document.
type RenderResult struct {
	Path     string `json:"path,omitempty"`
	Bytes    int    `json:"bytes"`
	Pages    int    `json:"pages"`
	LogoUsed bool   `json:"logoUsed"`
}

// RenderError reports a document that could not be written to its destination.
type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Renderer produces certificate and report documents.
type Renderer struct {
	assets Assets
	now    func() time.Time
}

// New creates a renderer using assets.
func New(assets Assets) *Renderer {
	return &Renderer{assets: assets, now: time.Now}
}

// Assets returns the renderer's configuration.
func (r *Renderer) Assets() Assets {
	return r.assets
}

// Layout resolves rec using the renderer's assets.
func (r *Renderer) Layout(rec schema.Record) Certificate {
	return Layout(rec, r.assets)
}

// RenderFile writes the certificate for rec to path, creating the parent
// directory if needed. Any failure to write is a *RenderError.
func (r *Renderer) RenderFile(ctx context.Context, path string, rec schema.Record) (RenderResult, error) {
	var buf bytes.Buffer
	res, err := r.Render(ctx, &buf, rec)
	if err != nil {
		return RenderResult{}, &RenderError{Path: path, Err: err}
	}
	if err := writeFile(path, buf.Bytes()); err != nil {
		return RenderResult{}, err
	}
	res.Path = path
	logging.FromContext(ctx).Debug("certificate written", "path", path, "bytes", res.Bytes)
	return res, nil
}

// RenderReportFile writes the summary report for records to path.
func (r *Renderer) RenderReportFile(ctx context.Context, path string, records []schema.StoredRecord) (RenderResult, error) {
	var buf bytes.Buffer
	res, err := r.RenderReport(ctx, &buf, records, r.now())
	if err != nil {
		return RenderResult{}, &RenderError{Path: path, Err: err}
	}
	if err := writeFile(path, buf.Bytes()); err != nil {
		return RenderResult{}, err
	}
	res.Path = path
	return res, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &RenderError{Path: path, Err: err}
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &RenderError{Path: path, Err: err}
	}
	return nil
}

// FileName returns the certificate file name for a student:
// non-alphanumeric characters become '_' and "_TC.pdf" is appended.
func FileName(studentName string) string {
	return schema.SanitizeName(studentName) + "_TC.pdf"
}

// ReportFileName returns the summary report file name for time t.
func ReportFileName(t time.Time) string {
	return "All_Transfer_Certificates_" + t.Format("20060102_150405") + ".pdf"
}
