package bulk

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode controls how apply treats rows that match (or fail to match) an
// existing record.
type Mode string

const (
	ModeUpsert     Mode = "upsert"
	ModeCreateOnly Mode = "create_only"
	ModeUpdateOnly Mode = "update_only"
)

// ValidMode reports whether m is one of the supported import modes.
func ValidMode(m Mode) bool {
	switch m {
	case ModeUpsert, ModeCreateOnly, ModeUpdateOnly:
		return true
	}
	return false
}

// Status is the import/export job state machine.
//
// Import jobs move queued -> validating -> {ready_to_confirm | failed} ->
// running -> completed. A failed job may re-enter validating with a fresh
// validate call. Export jobs use queued -> running -> completed.
type Status string

const (
	StatusQueued         Status = "queued"
	StatusValidating     Status = "validating"
	StatusReadyToConfirm Status = "ready_to_confirm"
	StatusRunning        Status = "running"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
)

// Severity of a row error.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// IdentityField is the sentinel field key used for whole-row errors
// (unresolved or duplicated identity).
const IdentityField = "__identity__"

// Job is one import request for a single uploaded file.
// (tenant, entity, file hash) is unique: re-uploading byte-identical content
// is rejected at job creation.
type Job struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	Entity          string     `json:"entity"`
	Mode            Mode       `json:"mode"`
	Status          Status     `json:"status"`
	FileRef         string     `json:"file_ref"`
	FileName        string     `json:"file_name"`
	FileSize        int64      `json:"file_size"`
	FileHash        string     `json:"file_hash"`
	TemplateVersion string     `json:"template_version"`
	CreatedBy       string     `json:"created_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Summary         *Summary   `json:"summary,omitempty"`
	Preview         *Preview   `json:"preview,omitempty"`
	ErrorReportRef  string     `json:"error_report_ref,omitempty"`
}

// Summary holds the accumulated counters for a finished phase.
type Summary struct {
	Created       int `json:"created"`
	Updated       int `json:"updated"`
	Skipped       int `json:"skipped"`
	ErrorsCount   int `json:"errors_count"`
	WarningsCount int `json:"warnings_count"`
}

// Preview is the dry-run result of the validation phase.
type Preview struct {
	Created int   `json:"created"`
	Updated int   `json:"updated"`
	Skipped int   `json:"skipped"`
	Errors  int   `json:"errors"`
	Samples []Row `json:"samples"`
}

// RowError is one validation problem tied to a source row. Field is empty
// (or IdentityField) for whole-row errors. Row errors are owned by exactly
// one job and replaced wholesale when that job is re-validated.
type RowError struct {
	JobID     string `json:"-"`
	RowNumber int    `json:"row_number"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
}

// ExportJob is one export request for an entity type.
type ExportJob struct {
	ID              string         `json:"id"`
	TenantID        string         `json:"tenant_id"`
	Entity          string         `json:"entity"`
	Status          Status         `json:"status"`
	FileRef         string         `json:"file_ref,omitempty"`
	FileName        string         `json:"file_name,omitempty"`
	FileSize        int64          `json:"file_size,omitempty"`
	TemplateVersion string         `json:"template_version"`
	CreatedBy       string         `json:"created_by,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	FinishedAt      *time.Time     `json:"finished_at,omitempty"`
	Summary         *ExportSummary `json:"summary,omitempty"`
}

// ExportSummary is the counter payload of a completed export.
type ExportSummary struct {
	Exported int `json:"exported"`
}

// Row is one parsed data row keyed by canonical field key. Values carry the
// transformer output: string, bool, int, []string or time.Time.
type Row map[string]any

// Str returns the string value for key, or "" when absent or non-string.
func (r Row) Str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns the boolean value for key and whether it is present.
func (r Row) Bool(key string) (bool, bool) {
	v, ok := r[key].(bool)
	return v, ok
}

// Int returns the integer value for key, or def when absent.
func (r Row) Int(key string, def int) int {
	if v, ok := r[key].(int); ok {
		return v
	}
	return def
}

// List returns the string-list value for key, or nil when absent.
func (r Row) List(key string) []string {
	if v, ok := r[key].([]string); ok {
		return v
	}
	return nil
}

// ErrUnsupportedFormat is returned for file extensions the tabular reader
// does not understand. Format detection is by extension only, never by
// content sniffing.
var ErrUnsupportedFormat = errors.New("unsupported file format: use XLSX, XLS or CSV")

// ErrUnknownEntity is returned when a job references an entity type that is
// not registered.
var ErrUnknownEntity = errors.New("unsupported entity type")

// ErrJobNotFound is returned by job stores for an unknown or out-of-tenant
// job ID.
var ErrJobNotFound = errors.New("job not found")

// ShapeError reports required columns that are missing from the file header.
// It fails the whole job before any row is parsed, as opposed to row-level
// errors which are collected.
type ShapeError struct {
	Missing []string // display labels of the missing columns
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// StateError reports a job operation attempted in the wrong status.
type StateError struct {
	Op     string
	Status Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s job in status %q", e.Op, e.Status)
}
