package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/tcgen/internal/core"
	"github.com/JonMunkholm/tcgen/internal/schema"
	"github.com/JonMunkholm/tcgen/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// maxJSONBody bounds request bodies other than imports.
const maxJSONBody = 1 << 20

// errBadRequest marks malformed input. Its message matches the REQ003 pattern.
var errBadRequest = errors.New("invalid request")

// FieldResponse describes one record field for form builders.
type FieldResponse struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Column   string `json:"column"`
	Required bool   `json:"required"`
}

// RecordsResponse is the record list with the filter that produced it.
type RecordsResponse struct {
	Records []schema.StoredRecord `json:"records"`
	Count   int                   `json:"count"`
	Filter  string                `json:"filter"`
}

// HealthResponse reports store connectivity and slot usage.
type HealthResponse struct {
	Status  string             `json:"status"`
	Imports core.LimiterStatus `json:"imports"`
	Batches core.LimiterStatus `json:"batches"`
	Error   string             `json:"error,omitempty"`
}

// handleHealth reports 503 when the store is unreachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Imports: s.service.ImportLimiter().Status(),
		Batches: s.service.JobLimiter().Status(),
	}
	status := http.StatusOK
	if err := s.service.Ping(r.Context()); err != nil {
		resp.Status = "unavailable"
		resp.Error = core.MapError(err).Message
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleDashboard renders the main page, filtered by the q parameter.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	all, err := s.service.ListRecords(ctx)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	f := core.ApplyFilter(r.URL.Query().Get("q"), core.Filter{})

	params := templates.DashboardParams{
		Institution: s.cfg.Render.Institution,
		Query:       f.Query(),
		Records:     f.Select(all),
		Total:       len(all),
		Jobs:        s.service.ActiveJobs(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.Dashboard(params).Render(ctx, w)
}

// handleListFields returns the record fields in canonical order.
func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	fields := schema.Fields()
	out := make([]FieldResponse, len(fields))
	for i, f := range fields {
		out[i] = FieldResponse{Key: f.Key, Label: f.Label, Column: f.Column, Required: f.Required}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDobWords previews the words form of a date of birth.
func (s *Server) handleDobWords(w http.ResponseWriter, r *http.Request) {
	dob := r.URL.Query().Get("dob")
	writeJSON(w, http.StatusOK, map[string]string{
		"dob":      dob,
		"dobWords": s.service.DobWords(dob),
	})
}

// handleListRecords lists records. search narrows by substring in the store;
// filter applies a regular expression to every displayed column. An invalid
// filter falls back to previous.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		records []schema.StoredRecord
		err     error
	)
	if search := q.Get("search"); search != "" {
		records, err = s.service.Search(ctx, search)
	} else {
		records, err = s.service.ListRecords(ctx)
	}
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	prev := core.ApplyFilter(q.Get("previous"), core.Filter{})
	f := core.ApplyFilter(q.Get("filter"), prev)
	records = f.Select(records)

	writeJSON(w, http.StatusOK, RecordsResponse{Records: records, Count: len(records), Filter: f.Query()})
}

// handleSaveRecord appends a record from a JSON body.
func (s *Server) handleSaveRecord(w http.ResponseWriter, r *http.Request) {
	var rec schema.Record
	if err := decodeJSON(w, r, &rec); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	stored, err := s.service.SaveRecord(r.Context(), rec)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// handleListNames returns the distinct student names.
func (s *Server) handleListNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.service.ListNames(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// handleLoadLatest returns the newest record for the name parameter.
func (s *Server) handleLoadLatest(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		s.respondError(w, r, fmt.Errorf("%w: missing name", errBadRequest), 0)
		return
	}

	rec, ok, err := s.service.LoadLatest(r.Context(), name)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %q", core.ErrRecordNotFound, name), 0)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleGetRecord returns one record by id.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, rec)
}

// handleDeleteRecord removes one record by id.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	ok, err := s.service.DeleteRecord(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %d", core.ErrRecordNotFound, id), 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

// parseID reads the {id} URL parameter.
func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q", core.ErrInvalidRecordID, raw)
	}
	return id, nil
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// sendFile writes a fully rendered document as a download.
func sendFile(w http.ResponseWriter, contentType, filename string, inline bool, body *bytes.Buffer) {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, filename))
	w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
	w.WriteHeader(http.StatusOK)
	body.WriteTo(w)
}

// sendPDF renders a PDF through fn and sends it. Rendering completes before
// any header is written so failures still get an error response.
func (s *Server) sendPDF(w http.ResponseWriter, r *http.Request, filename string, fn func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	sendFile(w, "application/pdf", filename, r.URL.Query().Get("inline") == "1", &buf)
}
