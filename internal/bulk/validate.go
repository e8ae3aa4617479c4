package bulk

// validate.go is the dry-run pass: it maps raw rows to canonical field
// values, applies transformers and validators, resolves relationships,
// detects in-file duplicates and produces a preview plus persisted row
// errors, without touching any business record.
//
// Row and field problems are collected, never returned, so one pass always
// yields the exhaustive error list. Shape errors (missing required columns)
// and I/O errors abort immediately.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/Hugoguevara91/eagl-backend/internal/logging"
)

// Data rows are numbered from 3: row 1 is the header, row 2 the template's
// instruction row.
const firstDataRow = 3

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// taxIDKeys are the identifier fields validated as 14-digit tax ids. The
// three names belong to different entity types.
var taxIDKeys = []string{"tax_id", "account_tax_id", "client_tax_id"}

// Validate runs the validation phase for job and advances its status: to
// ready_to_confirm when the file is clean, to failed (with persisted row
// errors and an annotated report) otherwise. Allowed from queued and, for
// re-validation of a corrected job, from failed.
func (s *Service) Validate(ctx context.Context, job *Job) (*Preview, error) {
	def, ok := Lookup(job.Entity)
	if !ok {
		return nil, ErrUnknownEntity
	}
	if job.Status != StatusQueued && job.Status != StatusFailed && job.Status != StatusRunning {
		return nil, &StateError{Op: "validate", Status: job.Status}
	}

	start := time.Now()
	log := logging.WithJob(ctx, job.ID, job.TenantID, job.Entity)

	path, err := s.blobs.DownloadToLocal(ctx, job.FileRef)
	if err != nil {
		return nil, fmt.Errorf("download source file: %w", err)
	}
	header, rows, err := OpenTable(path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	job.Status = StatusValidating
	if err := s.jobs.UpdateImportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	cfg := def.Config
	canonical := mapHeader(header, BuildHeaderMap(cfg.Columns))

	// File-shape check: every required column must have a header. This fails
	// the whole job with no partial preview.
	if missing := missingRequired(cfg, canonical); len(missing) > 0 {
		shapeErr := &ShapeError{Missing: missing}
		job.Status = StatusFailed
		if err := s.jobs.UpdateImportJob(ctx, job); err != nil {
			return nil, fmt.Errorf("update job: %w", err)
		}
		log.Warn("validation rejected file shape", "missing_columns", missing)
		return nil, shapeErr
	}

	var errs []RowError
	addErr := func(rowNum int, field, msg string) {
		errs = append(errs, RowError{
			JobID:     job.ID,
			RowNumber: rowNum,
			Field:     field,
			Message:   msg,
			Severity:  SeverityError,
		})
	}

	preview := &Preview{Samples: []Row{}}
	seen := make(map[string]bool)

	rowNum := firstDataRow - 1
	for {
		cells, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rowNum++
		if isBlankRow(cells) {
			continue
		}
		errsBefore := len(errs)

		row := parseRow(cfg, canonical, cells, func(field, msg string) {
			addErr(rowNum, field, msg)
		})

		for _, key := range cfg.RequiredKeys() {
			if !present(row, key) {
				addErr(rowNum, key, fmt.Sprintf("required field %s is empty", cfg.LabelFor(key)))
			}
		}

		if v := row.Str("email"); v != "" && !emailPattern.MatchString(v) {
			addErr(rowNum, "email", "invalid email address")
		}
		for _, key := range taxIDKeys {
			if v := row.Str(key); v != "" && len(v) != 14 {
				addErr(rowNum, key, fmt.Sprintf("%s must have exactly 14 digits", cfg.LabelFor(key)))
			}
		}

		if def.Defaults != nil {
			def.Defaults(row)
		}

		identity, resolved := resolveIdentity(row, cfg.UniqueKeyGroups)
		switch {
		case !resolved:
			addErr(rowNum, IdentityField, "no unique key could be resolved for this row")
		case cfg.Composite:
			// Repeated identities are child rows of one parent, not
			// duplicates.
		case seen[identity]:
			addErr(rowNum, IdentityField, "duplicate unique key within the file")
		default:
			seen[identity] = true
		}

		if def.CheckRefs != nil {
			err := def.CheckRefs(ctx, s.store, job.TenantID, row, func(field, msg string) {
				addErr(rowNum, field, msg)
			})
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", rowNum, err)
			}
		}

		if len(errs) > errsBefore {
			continue
		}

		existingID := ""
		if def.Lookup != nil {
			existingID, err = def.Lookup(ctx, s.store, job.TenantID, row)
			if err != nil {
				return nil, fmt.Errorf("row %d: lookup existing record: %w", rowNum, err)
			}
		}
		switch {
		case shouldSkip(job.Mode, existingID != ""):
			preview.Skipped++
		case existingID != "":
			preview.Updated++
		default:
			preview.Created++
		}
		if len(preview.Samples) < s.opts.PreviewRows {
			preview.Samples = append(preview.Samples, row)
		}
	}
	preview.Errors = len(errs)

	// Replace any errors left by a previous validation of this job.
	if err := s.jobs.ReplaceRowErrors(ctx, job.ID, errs); err != nil {
		return nil, fmt.Errorf("persist row errors: %w", err)
	}

	job.Preview = preview
	job.Summary = &Summary{
		Created:     preview.Created,
		Updated:     preview.Updated,
		Skipped:     preview.Skipped,
		ErrorsCount: preview.Errors,
	}
	if preview.Errors == 0 {
		job.Status = StatusReadyToConfirm
	} else {
		job.Status = StatusFailed
	}
	if err := s.jobs.UpdateImportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	if len(errs) > 0 {
		ref, err := s.uploadErrorReport(ctx, job, path, header, errs)
		if err != nil {
			return nil, fmt.Errorf("generate error report: %w", err)
		}
		job.ErrorReportRef = ref
		if err := s.jobs.UpdateImportJob(ctx, job); err != nil {
			return nil, fmt.Errorf("update job: %w", err)
		}
	}

	log.Info("validation finished",
		"status", job.Status,
		"created", preview.Created,
		"updated", preview.Updated,
		"skipped", preview.Skipped,
		"errors", preview.Errors,
		"duration", time.Since(start),
	)
	return preview, nil
}

// parseRow maps raw cells through the canonical header and the configured
// transformers. A transformer failure is reported as a field error and
// leaves the field absent from the row.
func parseRow(cfg EntityConfig, canonical []string, cells []string, report ReportFunc) Row {
	row := make(Row)
	for i, key := range canonical {
		if key == "" || i >= len(cells) {
			continue
		}
		raw := strings.TrimSpace(cells[i])
		if raw == "" {
			continue
		}
		tr, ok := cfg.Transforms[key]
		if !ok {
			row[key] = raw
			continue
		}
		v, err := tr.Apply(raw)
		if err != nil {
			if report != nil {
				report(key, fmt.Sprintf("invalid value for %s", cfg.LabelFor(key)))
			}
			continue
		}
		row[key] = v
	}
	return row
}

// missingRequired returns the labels of required columns absent from the
// mapped header, in declaration order.
func missingRequired(cfg EntityConfig, canonical []string) []string {
	found := make(map[string]bool, len(canonical))
	for _, key := range canonical {
		if key != "" {
			found[key] = true
		}
	}
	var missing []string
	for _, col := range cfg.Columns {
		if col.Required && !found[col.Key] {
			missing = append(missing, col.Label)
		}
	}
	return missing
}

// resolveIdentity picks the first unique-key group whose fields are all
// present and non-empty, returning a stable composite key.
func resolveIdentity(row Row, groups [][]string) (string, bool) {
	for _, group := range groups {
		parts := make([]string, 0, len(group))
		complete := true
		for _, key := range group {
			v, ok := row[key]
			if !ok {
				complete = false
				break
			}
			part := strings.TrimSpace(fmt.Sprint(v))
			if part == "" {
				complete = false
				break
			}
			parts = append(parts, part)
		}
		if complete {
			return strings.Join(parts, "\x1f"), true
		}
	}
	return "", false
}

// present reports whether key holds a usable value in the row. Booleans and
// numbers count as present regardless of their value.
func present(row Row, key string) bool {
	v, ok := row[key]
	if !ok {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	if l, isList := v.([]string); isList {
		return len(l) > 0
	}
	return true
}

// shouldSkip applies the import mode to the existence of a matching record.
func shouldSkip(mode Mode, exists bool) bool {
	return (mode == ModeCreateOnly && exists) || (mode == ModeUpdateOnly && !exists)
}
