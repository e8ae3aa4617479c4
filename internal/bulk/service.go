package bulk

// service.go is the job orchestrator: it creates jobs from accepted uploads,
// guards the state machine transitions and drives the validate, apply and
// export phases. Concurrency control is deliberately thin: the caller keeps
// at most one active job per (tenant, entity), and the (tenant, entity,
// file-hash) uniqueness is the idempotency guard against duplicate
// submissions.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Options tunes the pipeline. Zero values fall back to the defaults below.
type Options struct {
	// ChunkSize is the number of rows applied and committed per transaction.
	ChunkSize int
	// PreviewRows caps the parsed-row samples kept in the preview payload.
	PreviewRows int
	// MaxFileSize is the upload acceptance limit in bytes.
	MaxFileSize int64
	// ExportSyncLimit is the record count up to which exports run inline
	// instead of through an export job.
	ExportSyncLimit int
}

const (
	defaultChunkSize       = 500
	defaultPreviewRows     = 20
	defaultMaxFileSize     = 50 * 1024 * 1024
	defaultExportSyncLimit = 2000
)

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}
	if o.PreviewRows <= 0 {
		o.PreviewRows = defaultPreviewRows
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = defaultMaxFileSize
	}
	if o.ExportSyncLimit <= 0 {
		o.ExportSyncLimit = defaultExportSyncLimit
	}
	return o
}

// Service glues the pipeline together per import/export request.
type Service struct {
	store Store
	jobs  JobStore
	blobs Blob
	opts  Options
}

// NewService wires the orchestrator to its collaborators.
func NewService(store Store, jobs JobStore, blobs Blob, opts Options) *Service {
	return &Service{store: store, jobs: jobs, blobs: blobs, opts: opts.withDefaults()}
}

// Jobs exposes the job store for read-side callers (listings, status).
func (s *Service) Jobs() JobStore { return s.jobs }

// Blobs exposes the blob client for download-link callers.
func (s *Service) Blobs() Blob { return s.blobs }

// MaxFileSize returns the upload acceptance limit.
func (s *Service) MaxFileSize() int64 { return s.opts.MaxFileSize }

// ExportSyncLimit returns the threshold for inline exports.
func (s *Service) ExportSyncLimit() int { return s.opts.ExportSyncLimit }

// CountRecords reports the tenant's record count for an entity type.
func (s *Service) CountRecords(ctx context.Context, tenantID, entity string) (int, error) {
	return s.store.CountRecords(ctx, tenantID, entity)
}

// Upload acceptance errors surfaced to the API layer.
var (
	ErrEmptyFile          = errors.New("file is empty")
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrDuplicateFile      = errors.New("this file was already processed")
	ErrImportInFlight     = errors.New("an import for this file is already in progress")
	ErrEntityImportActive = errors.New("another import is already running for this entity")
)

// supportedExtensions accepted at upload time. Detection is by extension
// only.
var supportedExtensions = map[string]bool{".xlsx": true, ".xls": true, ".csv": true}

// RegisterUpload accepts an uploaded file, stores it and creates the import
// job in status queued. Byte-identical re-uploads for the same (tenant,
// entity) are rejected: completed files with ErrDuplicateFile, unfinished
// ones with ErrImportInFlight.
func (s *Service) RegisterUpload(ctx context.Context, tenantID, entity string, mode Mode, fileName string, content []byte, createdBy string) (*Job, error) {
	def, ok := Lookup(entity)
	if !ok {
		return nil, ErrUnknownEntity
	}
	if !ValidMode(mode) {
		return nil, fmt.Errorf("invalid import mode %q", mode)
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if !supportedExtensions[ext] {
		return nil, ErrUnsupportedFormat
	}
	if len(content) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(content)) > s.opts.MaxFileSize {
		return nil, ErrFileTooLarge
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.jobs.FindImportJobByHash(ctx, tenantID, entity, hash)
	if err != nil {
		return nil, fmt.Errorf("check duplicate upload: %w", err)
	}
	if existing != nil {
		switch existing.Status {
		case StatusCompleted:
			return nil, ErrDuplicateFile
		case StatusQueued, StatusValidating, StatusReadyToConfirm, StatusRunning:
			return nil, ErrImportInFlight
		}
		// A failed job for the same bytes would fail again identically;
		// reject it the same way as a completed one.
		return nil, ErrDuplicateFile
	}

	dest := fmt.Sprintf("bulk/imports/%s/%s/%s", tenantID, entity, fileName)
	ref, err := s.blobs.UploadBytes(ctx, content, dest, contentTypeFor(ext))
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	job := &Job{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		Entity:          entity,
		Mode:            mode,
		Status:          StatusQueued,
		FileRef:         ref,
		FileName:        fileName,
		FileSize:        int64(len(content)),
		FileHash:        hash,
		TemplateVersion: def.Config.TemplateVersion,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.jobs.CreateImportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}
	return job, nil
}

// Confirm moves a validated job back to queued for the apply phase. It is
// the boundary that enforces the apply precondition: only a job whose last
// validation produced zero errors (status ready_to_confirm) may proceed, and
// only while no other import is active for the same (tenant, entity).
func (s *Service) Confirm(ctx context.Context, job *Job) error {
	if job.Status != StatusReadyToConfirm {
		return &StateError{Op: "confirm", Status: job.Status}
	}
	active, err := s.jobs.HasActiveImport(ctx, job.TenantID, job.Entity, job.ID)
	if err != nil {
		return fmt.Errorf("check active imports: %w", err)
	}
	if active {
		return ErrEntityImportActive
	}
	job.Status = StatusQueued
	if err := s.jobs.UpdateImportJob(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// CreateExportJob queues an export of the tenant's records.
func (s *Service) CreateExportJob(ctx context.Context, tenantID, entity, createdBy string) (*ExportJob, error) {
	def, ok := Lookup(entity)
	if !ok {
		return nil, ErrUnknownEntity
	}
	job := &ExportJob{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		Entity:          entity,
		Status:          StatusQueued,
		TemplateVersion: def.Config.TemplateVersion,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.jobs.CreateExportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create export job: %w", err)
	}
	return job, nil
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".xlsx":
		return xlsxContentType
	case ".xls":
		return "application/vnd.ms-excel"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
