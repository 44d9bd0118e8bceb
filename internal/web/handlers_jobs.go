package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/tcgen/internal/core"
	"github.com/JonMunkholm/tcgen/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is allowed on top of the file size limit for form fields
// and part headers.
const multipartOverhead = 1 << 20

// BatchRequest starts a batch. All selects every stored record; Subdir names
// a folder under the batch directory.
type BatchRequest struct {
	IDs    []int64 `json:"ids"`
	All    bool    `json:"all,omitempty"`
	Subdir string  `json:"subdir,omitempty"`
}

// BatchStarted is returned when a batch job is accepted.
type BatchStarted struct {
	JobID string `json:"jobId"`
	Total int    `json:"total"`
	Dir   string `json:"dir"`
}

// handleImport imports an uploaded spreadsheet synchronously.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, &core.ImportError{Err: core.ErrFileTooLarge}, 0)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), 0)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: no file provided", errBadRequest), 0)
		return
	}
	defer file.Close()

	res, err := s.service.ImportSpreadsheet(r.Context(), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.ImportSummary(res).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleStartBatch starts an asynchronous batch and returns its job id.
func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	ids := req.IDs
	if req.All {
		all, err := s.service.ListRecords(r.Context())
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		ids = make([]int64, len(all))
		for i, rec := range all {
			ids[i] = rec.ID
		}
	}
	if len(ids) == 0 {
		s.respondError(w, r, fmt.Errorf("%w: no records selected", errBadRequest), 0)
		return
	}

	dir := s.service.BatchDir()
	if req.Subdir != "" {
		sub, err := cleanSubdir(req.Subdir)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		dir = filepath.Join(dir, sub)
	}

	jobID, err := s.service.StartBatch(r.Context(), ids, dir)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusAccepted, BatchStarted{JobID: jobID, Total: len(ids), Dir: dir})
}

// cleanSubdir accepts a single relative folder name.
func cleanSubdir(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: subdir must be a folder name", errBadRequest)
	}
	return name, nil
}

// handleListBatches returns every tracked batch job.
func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ActiveJobs())
}

// handleBatchStatus returns a job's current progress.
func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.GetBatchProgress(chi.URLParam(r, "jobID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleBatchResult returns the final result, or 202 with the current
// progress while the job is running.
func (s *Server) handleBatchResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	p, err := s.service.GetBatchProgress(jobID)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if !p.Finished() {
		writeJSON(w, http.StatusAccepted, p)
		return
	}

	res, err := s.service.BatchResult(r.Context(), jobID)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCancelBatch cancels a running job. Units already rendering finish.
func (s *Server) handleCancelBatch(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelBatch(chi.URLParam(r, "jobID")); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

// handleBatchProgress streams batch progress via Server-Sent Events.
// Supports resumption via the Last-Event-ID header that EventSource sends on
// reconnect, or the lastEventId query parameter.
func (s *Server) handleBatchProgress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	lastEventID := resumeFrom(r)

	progressCh, err := s.service.SubscribeBatch(jobID)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				fmt.Fprint(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			// The event id is the done count, so a reconnecting client skips
			// what it already saw. Terminal states are always sent.
			if progress.Done <= lastEventID && !progress.Finished() {
				continue
			}
			lastEventID = progress.Done

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", progress.Done, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// resumeFrom returns the last event id the client saw, or -1.
func resumeFrom(r *http.Request) int {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("lastEventId")
	}
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return n
	}
	return -1
}
