// Package web provides the HTTP server for the transfer certificate UI and API.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/tcgen/internal/config"
	"github.com/JonMunkholm/tcgen/internal/core"
	mw "github.com/JonMunkholm/tcgen/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP server for the application.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	limiters []*mw.RateLimiter
}

// NewServer creates a Server with its middleware and routes installed.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.ClientIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.cfg.Rate.RequestsPerMinute))
	}
}

// setupRoutes configures all HTTP routes. Progress streams are registered
// outside the request timeout.
func (s *Server) setupRoutes() {
	timeout := func(next http.Handler) http.Handler { return next }
	if d := s.cfg.Server.RequestTimeout; d > 0 {
		timeout = middleware.Timeout(d)
	}

	s.router.Get("/healthz", s.handleHealth)

	// Pages
	s.router.With(timeout).Get("/", s.handleDashboard)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/batch/{jobID}/progress", s.handleBatchProgress)

		r.Group(func(r chi.Router) {
			r.Use(timeout)

			r.Get("/fields", s.handleListFields)
			r.Get("/dob-words", s.handleDobWords)

			// Records
			r.Get("/records", s.handleListRecords)
			r.Post("/records", s.handleSaveRecord)
			r.Get("/records/names", s.handleListNames)
			r.Get("/records/latest", s.handleLoadLatest)
			r.Get("/records/{id}", s.handleGetRecord)
			r.Delete("/records/{id}", s.handleDeleteRecord)

			// Documents
			r.Get("/records/{id}/certificate", s.handleRecordCertificate)
			r.Post("/certificate", s.handlePreviewCertificate)
			r.Post("/certificate/generate", s.handleGenerateCertificate)
			r.Get("/report", s.handleReport)
			r.Post("/report", s.handleExportReport)
			r.Get("/export", s.handleExportWorkbook)
			r.Get("/template", s.handleDownloadTemplate)

			// Batch jobs
			r.Get("/batch", s.handleListBatches)
			r.Get("/batch/{jobID}", s.handleBatchStatus)
			r.Get("/batch/{jobID}/result", s.handleBatchResult)
			r.Post("/batch/{jobID}/cancel", s.handleCancelBatch)

			// Import and batch start share a tighter budget
			r.Group(func(r chi.Router) {
				if s.cfg.Rate.Enabled {
					r.Use(s.rateLimit(s.cfg.Rate.ImportLimit))
				}
				r.Post("/import", s.handleImport)
				r.Post("/batch", s.handleStartBatch)
			})
		})
	})
}

func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	rl := mw.NewRateLimiter(perMinute)
	s.limiters = append(s.limiters, rl)
	return rl.Handler
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	sc := s.cfg.Server
	s.server = &http.Server{
		Addr:         sc.Addr(),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}

	slog.Info("starting server", "addr", sc.Addr())
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.Close()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
