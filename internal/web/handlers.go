package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Hugoguevara91/eagl-backend/internal/bulk"
	"github.com/Hugoguevara91/eagl-backend/internal/logging"
	"github.com/Hugoguevara91/eagl-backend/internal/web/middleware"
)

// entityInfo is the discovery payload for one importable entity type.
type entityInfo struct {
	Entity          string       `json:"entity"`
	TemplateVersion string       `json:"template_version"`
	Composite       bool         `json:"composite"`
	Columns         []columnInfo `json:"columns"`
	UniqueKeys      [][]string   `json:"unique_keys"`
}

type columnInfo struct {
	Label       string `json:"label"`
	Key         string `json:"key"`
	Required    bool   `json:"required"`
	Instruction string `json:"instruction,omitempty"`
}

// handleListEntities lists the registered entity types and their schemas, so
// clients can build import UIs without hardcoding columns.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	var out []entityInfo
	for _, name := range bulk.Entities() {
		def, ok := bulk.Lookup(name)
		if !ok {
			continue
		}
		cfg := def.Config
		info := entityInfo{
			Entity:          cfg.Entity,
			TemplateVersion: cfg.TemplateVersion,
			Composite:       cfg.Composite,
			UniqueKeys:      cfg.UniqueKeyGroups,
		}
		for _, col := range cfg.Columns {
			info.Columns = append(info.Columns, columnInfo{
				Label:       col.Label,
				Key:         col.Key,
				Required:    col.Required,
				Instruction: col.Instruction,
			})
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDownloadTemplate serves the entity's import template workbook.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	content, name, err := bulk.BuildTemplate(entity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	serveWorkbook(w, name, content)
}

// handleUpload accepts a multipart file upload, creates the import job and
// starts validation in the background. The response carries the queued job;
// clients poll its status.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	tenantID := middleware.TenantID(r.Context())

	maxSize := s.service.MaxFileSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		respondError(w, r, bulk.ErrFileTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, fmt.Errorf("no file provided"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	mode := bulk.Mode(r.FormValue("mode"))
	if mode == "" {
		mode = bulk.ModeUpsert
	}

	job, err := s.service.RegisterUpload(r.Context(), tenantID, entity, mode,
		header.Filename, content, r.Header.Get("X-User-ID"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.validateAsync(job)
	writeJSON(w, http.StatusAccepted, job)
}

// handleRevalidate re-runs validation for a failed job, for operators who
// fixed reference data (not the file) and want a fresh verdict.
func (s *Server) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	job, err := s.fetchImportJob(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if job.Status != bulk.StatusQueued && job.Status != bulk.StatusFailed {
		respondError(w, r, &bulk.StateError{Op: "validate", Status: job.Status})
		return
	}

	s.validateAsync(job)
	writeJSON(w, http.StatusAccepted, job)
}

// handleConfirm moves a clean job into the apply phase, which runs in the
// background.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	job, err := s.fetchImportJob(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.service.Confirm(r.Context(), job); err != nil {
		respondError(w, r, err)
		return
	}

	s.runApplyAsync(job)
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetImportJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.fetchImportJob(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListImportJobs(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantID(r.Context())
	entity := r.URL.Query().Get("entity")
	status := bulk.Status(r.URL.Query().Get("status"))
	limit := queryInt(r, "limit", 50)

	jobs, err := s.service.Jobs().ListImportJobs(r.Context(), tenantID, entity, status, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []bulk.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleListRowErrors(w http.ResponseWriter, r *http.Request) {
	job, err := s.fetchImportJob(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	limit := queryInt(r, "limit", 500)

	errs, err := s.service.Jobs().ListRowErrors(r.Context(), job.ID, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if errs == nil {
		errs = []bulk.RowError{}
	}
	writeJSON(w, http.StatusOK, errs)
}

// handleErrorReport returns a download URL for the annotated error workbook.
func (s *Server) handleErrorReport(w http.ResponseWriter, r *http.Request) {
	job, err := s.fetchImportJob(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if job.ErrorReportRef == "" {
		respondError(w, r, fmt.Errorf("error report: %w", bulk.ErrJobNotFound))
		return
	}
	url, err := s.service.Blobs().SignedURL(r.Context(), job.ErrorReportRef)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// handleExport streams the workbook directly for small datasets and falls
// back to an async export job above the sync limit.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	tenantID := middleware.TenantID(r.Context())

	if _, ok := bulk.Lookup(entity); !ok {
		respondError(w, r, bulk.ErrUnknownEntity)
		return
	}

	count, err := s.service.CountRecords(r.Context(), tenantID, entity)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if count <= s.service.ExportSyncLimit() {
		content, name, _, err := s.service.BuildExport(r.Context(), tenantID, entity)
		if err != nil {
			respondError(w, r, err)
			return
		}
		serveWorkbook(w, name, content)
		return
	}

	job, err := s.service.CreateExportJob(r.Context(), tenantID, entity, r.Header.Get("X-User-ID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.runExportAsync(job)
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetExportJob(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantID(r.Context())
	job, err := s.service.Jobs().GetExportJob(r.Context(), tenantID, chi.URLParam(r, "jobID"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := struct {
		*bulk.ExportJob
		DownloadURL string `json:"download_url,omitempty"`
	}{ExportJob: job}
	if job.Status == bulk.StatusCompleted && job.FileRef != "" {
		if url, err := s.service.Blobs().SignedURL(r.Context(), job.FileRef); err == nil {
			resp.DownloadURL = url
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListExportJobs(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantID(r.Context())
	limit := queryInt(r, "limit", 50)

	jobs, err := s.service.Jobs().ListExportJobs(r.Context(), tenantID, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []bulk.ExportJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// fetchImportJob loads the job named in the route, scoped to the caller's
// tenant.
func (s *Server) fetchImportJob(r *http.Request) (*bulk.Job, error) {
	tenantID := middleware.TenantID(r.Context())
	return s.service.Jobs().GetImportJob(r.Context(), tenantID, chi.URLParam(r, "jobID"))
}

// validateAsync runs the validation phase detached from the request. A system
// error (not a row problem) moves the job to failed so it never sticks in
// validating.
//
// The goroutine gets its own copy of the job: phases mutate status, summary
// and preview while the handler is still encoding the response, so the two
// must never share the record. Phases assign fresh pointers rather than
// writing through existing ones, which makes a shallow copy sufficient.
func (s *Server) validateAsync(job *bulk.Job) {
	detached := *job
	background(func(ctx context.Context) {
		if _, err := s.service.Validate(ctx, &detached); err != nil {
			s.failJob(ctx, &detached, err)
		}
	})
}

// runApplyAsync runs the apply phase detached from the request, on its own
// copy of the job (see validateAsync).
func (s *Server) runApplyAsync(job *bulk.Job) {
	detached := *job
	background(func(ctx context.Context) {
		if _, err := s.service.Run(ctx, &detached); err != nil {
			s.failJob(ctx, &detached, err)
		}
	})
}

// runExportAsync runs an export detached from the request, on its own copy of
// the job (see validateAsync), marking it failed on error.
func (s *Server) runExportAsync(job *bulk.ExportJob) {
	detached := *job
	background(func(ctx context.Context) {
		if err := s.service.RunExport(ctx, &detached); err != nil {
			log := logging.WithJob(ctx, detached.ID, detached.TenantID, detached.Entity)
			log.Error("export failed", "error", err)
			detached.Status = bulk.StatusFailed
			if uerr := s.service.Jobs().UpdateExportJob(ctx, &detached); uerr != nil {
				log.Error("mark export failed", "error", uerr)
			}
		}
	})
}

// failJob marks a job failed after a phase error, unless the phase already
// recorded the failure itself. An I/O error mid-phase therefore lands on
// failed rather than the pre-phase status; that is a valid re-entry point,
// since revalidation accepts failed jobs.
func (s *Server) failJob(ctx context.Context, job *bulk.Job, cause error) {
	log := logging.WithJob(ctx, job.ID, job.TenantID, job.Entity)
	log.Error("job phase failed", "status", job.Status, "error", cause)

	if job.Status == bulk.StatusFailed {
		return
	}
	job.Status = bulk.StatusFailed
	if err := s.service.Jobs().UpdateImportJob(ctx, job); err != nil {
		log.Error("mark job failed", "error", err)
	}
}

func serveWorkbook(w http.ResponseWriter, name string, content []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Write(content)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
