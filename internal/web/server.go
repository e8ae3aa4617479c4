// Package web provides the HTTP API for the bulk import/export pipeline.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Hugoguevara91/eagl-backend/internal/bulk"
	"github.com/Hugoguevara91/eagl-backend/internal/config"
	"github.com/Hugoguevara91/eagl-backend/internal/web/middleware"
)

// Server is the HTTP server for the bulk API.
type Server struct {
	service *bulk.Service
	cfg     config.ServerConfig
	fileDir string
	router  *chi.Mux
	server  *http.Server
}

// NewServer wires the routes. fileDir is the blob root mounted read-only at
// /files so signed URLs resolve.
func NewServer(service *bulk.Service, cfg config.ServerConfig, fileDir string) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		fileDir: fileDir,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	// long enough for a synchronous export of ExportSyncLimit records
	s.router.Use(chimw.Timeout(60 * time.Second))
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// Generated files (uploads, reports, exports). Refs are unguessable only
	// by path; the tenant check happens when the URL is issued.
	s.router.Handle("/files/*", http.StripPrefix("/files/",
		http.FileServer(http.Dir(s.fileDir))))

	s.router.Route("/api/v1/bulk", func(r chi.Router) {
		r.Use(middleware.Tenant)

		r.Get("/entities", s.handleListEntities)
		r.Get("/template/{entity}", s.handleDownloadTemplate)

		r.Post("/import/{entity}", s.handleUpload)
		r.Get("/import/jobs", s.handleListImportJobs)
		r.Get("/import/jobs/{jobID}", s.handleGetImportJob)
		r.Post("/import/jobs/{jobID}/validate", s.handleRevalidate)
		r.Post("/import/jobs/{jobID}/confirm", s.handleConfirm)
		r.Get("/import/jobs/{jobID}/errors", s.handleListRowErrors)
		r.Get("/import/jobs/{jobID}/report", s.handleErrorReport)

		r.Get("/export/{entity}", s.handleExport)
		r.Get("/export/jobs", s.handleListExportJobs)
		r.Get("/export/jobs/{jobID}", s.handleGetExportJob)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// securityHeaders adds baseline hardening headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// background runs fn detached from the request with a generous deadline, for
// the validate/apply/export phases that outlive the HTTP call.
func background(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		fn(ctx)
	}()
}
