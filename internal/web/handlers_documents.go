package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/tcgen/internal/render"
	"github.com/JonMunkholm/tcgen/internal/schema"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GenerateRequest names either a stored record or an unsaved one.
type GenerateRequest struct {
	ID     int64          `json:"id,omitempty"`
	Record *schema.Record `json:"record,omitempty"`
}

// handleRecordCertificate downloads the certificate of a stored record.
func (s *Server) handleRecordCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	rec, err := s.service.GetRecord(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	s.sendPDF(w, r, render.FileName(rec.StudentName), func(buf *bytes.Buffer) error {
		_, err := s.service.WriteDocument(r.Context(), buf, rec.Record)
		return err
	})
}

// handlePreviewCertificate renders an unsaved record from a JSON body.
func (s *Server) handlePreviewCertificate(w http.ResponseWriter, r *http.Request) {
	var rec schema.Record
	if err := decodeJSON(w, r, &rec); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	s.sendPDF(w, r, render.FileName(rec.StudentName), func(buf *bytes.Buffer) error {
		_, err := s.service.WriteDocument(r.Context(), buf, rec)
		return err
	})
}

// handleGenerateCertificate writes a certificate into the output directory.
func (s *Server) handleGenerateCertificate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	var rec schema.Record
	switch {
	case req.Record != nil:
		rec = *req.Record
	case req.ID != 0:
		stored, err := s.service.GetRecord(r.Context(), req.ID)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		rec = stored.Record
	default:
		s.respondError(w, r, fmt.Errorf("%w: id or record is required", errBadRequest), 0)
		return
	}

	res, err := s.service.GenerateDocument(r.Context(), rec, "")
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleReport downloads the summary report of every record.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.sendPDF(w, r, render.ReportFileName(time.Now()), func(buf *bytes.Buffer) error {
		_, err := s.service.WriteReport(r.Context(), buf)
		return err
	})
}

// handleExportReport writes the summary report into the output directory.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.ExportReport(r.Context(), nil, "")
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleExportWorkbook downloads every record as an .xlsx workbook that can
// be imported again.
func (s *Server) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := s.service.ExportWorkbook(r.Context(), &buf)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	filename := fmt.Sprintf("transfer_certificates_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("X-Record-Count", strconv.Itoa(n))
	sendFile(w, xlsxContentType, filename, false, &buf)
}

// handleDownloadTemplate returns an empty workbook with the import headers.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.WriteTemplate(&buf); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	sendFile(w, xlsxContentType, "transfer_certificate_template.xlsx", false, &buf)
}
