package store

// jobs.go persists import/export jobs and their row errors. Summary and
// preview payloads live in jsonb columns; pgx handles the (un)marshalling.

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Hugoguevara91/eagl-backend/internal/bulk"
)

const importJobColumns = `
	id, tenant_id, entity, mode, status, file_ref, file_name, file_size,
	file_hash, template_version, created_by, created_at, started_at,
	finished_at, summary, preview, error_report_ref`

func (s *Store) CreateImportJob(ctx context.Context, job *bulk.Job) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO import_jobs
			(id, tenant_id, entity, mode, status, file_ref, file_name,
			 file_size, file_hash, template_version, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		job.ID, job.TenantID, job.Entity, job.Mode, job.Status, job.FileRef,
		job.FileName, job.FileSize, job.FileHash, job.TemplateVersion,
		job.CreatedBy, job.CreatedAt)
	return err
}

func (s *Store) GetImportJob(ctx context.Context, tenantID, id string) (*bulk.Job, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+importJobColumns+`
		FROM import_jobs
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	job, err := scanImportJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, bulk.ErrJobNotFound
	}
	return job, err
}

func (s *Store) UpdateImportJob(ctx context.Context, job *bulk.Job) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE import_jobs SET
			status = $2,
			started_at = $3,
			finished_at = $4,
			summary = $5,
			preview = $6,
			error_report_ref = $7
		WHERE id = $1`,
		job.ID, job.Status, job.StartedAt, job.FinishedAt,
		job.Summary, job.Preview, job.ErrorReportRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("import job %s not found", job.ID)
	}
	return nil
}

func (s *Store) FindImportJobByHash(ctx context.Context, tenantID, entity, hash string) (*bulk.Job, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+importJobColumns+`
		FROM import_jobs
		WHERE tenant_id = $1 AND entity = $2 AND file_hash = $3
		ORDER BY created_at DESC
		LIMIT 1`,
		tenantID, entity, hash)
	job, err := scanImportJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

func (s *Store) ListImportJobs(ctx context.Context, tenantID, entity string, status bulk.Status, limit int) ([]bulk.Job, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+importJobColumns+`
		FROM import_jobs
		WHERE tenant_id = $1
		  AND ($2 = '' OR entity = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4`,
		tenantID, entity, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bulk.Job
	for rows.Next() {
		job, err := scanImportJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

func (s *Store) HasActiveImport(ctx context.Context, tenantID, entity, excludeJobID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM import_jobs
			WHERE tenant_id = $1 AND entity = $2 AND id <> $3
			  AND status IN ('queued', 'validating', 'ready_to_confirm', 'running')
		)`,
		tenantID, entity, excludeJobID).Scan(&exists)
	return exists, err
}

func scanImportJob(row pgx.Row) (*bulk.Job, error) {
	var job bulk.Job
	err := row.Scan(&job.ID, &job.TenantID, &job.Entity, &job.Mode,
		&job.Status, &job.FileRef, &job.FileName, &job.FileSize,
		&job.FileHash, &job.TemplateVersion, &job.CreatedBy, &job.CreatedAt,
		&job.StartedAt, &job.FinishedAt, &job.Summary, &job.Preview,
		&job.ErrorReportRef)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ---------------------------------------------------------------------------
// Row errors

func (s *Store) ReplaceRowErrors(ctx context.Context, jobID string, errs []bulk.RowError) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM import_row_errors WHERE job_id = $1`, jobID); err != nil {
		return err
	}
	if len(errs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, re := range errs {
		batch.Queue(`
			INSERT INTO import_row_errors (job_id, row_number, field, message, severity)
			VALUES ($1, $2, $3, $4, $5)`,
			jobID, re.RowNumber, re.Field, re.Message, re.Severity)
	}
	results := s.db.SendBatch(ctx, batch)
	defer results.Close()
	for range errs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert row error: %w", err)
		}
	}
	return nil
}

func (s *Store) ListRowErrors(ctx context.Context, jobID string, limit int) ([]bulk.RowError, error) {
	rows, err := s.db.Query(ctx, `
		SELECT job_id, row_number, field, message, severity
		FROM import_row_errors
		WHERE job_id = $1
		ORDER BY row_number ASC, field ASC
		LIMIT $2`,
		jobID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bulk.RowError
	for rows.Next() {
		var re bulk.RowError
		if err := rows.Scan(&re.JobID, &re.RowNumber, &re.Field, &re.Message,
			&re.Severity); err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Export jobs

const exportJobColumns = `
	id, tenant_id, entity, status, file_ref, file_name, file_size,
	template_version, created_by, created_at, started_at, finished_at, summary`

func (s *Store) CreateExportJob(ctx context.Context, job *bulk.ExportJob) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO export_jobs
			(id, tenant_id, entity, status, template_version, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.TenantID, job.Entity, job.Status, job.TemplateVersion,
		job.CreatedBy, job.CreatedAt)
	return err
}

func (s *Store) GetExportJob(ctx context.Context, tenantID, id string) (*bulk.ExportJob, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+exportJobColumns+`
		FROM export_jobs
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	job, err := scanExportJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, bulk.ErrJobNotFound
	}
	return job, err
}

func (s *Store) UpdateExportJob(ctx context.Context, job *bulk.ExportJob) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE export_jobs SET
			status = $2,
			file_ref = $3,
			file_name = $4,
			file_size = $5,
			started_at = $6,
			finished_at = $7,
			summary = $8
		WHERE id = $1`,
		job.ID, job.Status, job.FileRef, job.FileName, job.FileSize,
		job.StartedAt, job.FinishedAt, job.Summary)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("export job %s not found", job.ID)
	}
	return nil
}

func (s *Store) ListExportJobs(ctx context.Context, tenantID string, limit int) ([]bulk.ExportJob, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+exportJobColumns+`
		FROM export_jobs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bulk.ExportJob
	for rows.Next() {
		job, err := scanExportJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

func scanExportJob(row pgx.Row) (*bulk.ExportJob, error) {
	var job bulk.ExportJob
	err := row.Scan(&job.ID, &job.TenantID, &job.Entity, &job.Status,
		&job.FileRef, &job.FileName, &job.FileSize, &job.TemplateVersion,
		&job.CreatedBy, &job.CreatedAt, &job.StartedAt, &job.FinishedAt,
		&job.Summary)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
