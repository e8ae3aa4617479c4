package bulk

// export.go renders the template and export workbooks: the template carries
// the declared column labels plus a per-column instruction row, and the
// export carries the same header plus one display-formatted row per current
// record, so an export re-imports cleanly in upsert mode.

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Hugoguevara91/eagl-backend/internal/logging"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	templateSheet = "TEMPLATE"
	exportSheet   = "EXPORT"
	infoSheet     = "INFO"
)

// BuildTemplate produces the entity's import template workbook and its file
// name. The second row holds the per-column instructions the reader drops on
// import; the INFO sheet tags the template version so stale client templates
// can be detected.
func BuildTemplate(entity string) ([]byte, string, error) {
	def, ok := Lookup(entity)
	if !ok {
		return nil, "", ErrUnknownEntity
	}
	cfg := def.Config

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return nil, "", err
	}

	labels := make([]any, len(cfg.Columns))
	instructions := make([]any, len(cfg.Columns))
	for i, col := range cfg.Columns {
		labels[i] = col.Label
		instructions[i] = col.Instruction
	}
	if err := f.SetSheetRow(templateSheet, "A1", &labels); err != nil {
		return nil, "", err
	}
	if err := f.SetSheetRow(templateSheet, "A2", &instructions); err != nil {
		return nil, "", err
	}
	if err := sizeColumns(f, templateSheet, len(cfg.Columns)); err != nil {
		return nil, "", err
	}
	if err := f.SetPanes(templateSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      2,
		TopLeftCell: "A3",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, "", err
	}

	if _, err := f.NewSheet(infoSheet); err != nil {
		return nil, "", err
	}
	info := [][]any{
		{"Template", cfg.Entity},
		{"Version", cfg.TemplateVersion},
		{"Generated at", time.Now().UTC().Format(time.RFC3339)},
	}
	for i, pair := range info {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, "", err
		}
		if err := f.SetSheetRow(infoSheet, cell, &pair); err != nil {
			return nil, "", err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("template_%s_%s.xlsx", cfg.Entity, cfg.TemplateVersion)
	return buf.Bytes(), name, nil
}

// BuildExport renders the tenant's current records of an entity type into
// the template schema. Returns the workbook, its file name and the exported
// row count.
func (s *Service) BuildExport(ctx context.Context, tenantID, entity string) ([]byte, string, int, error) {
	def, ok := Lookup(entity)
	if !ok {
		return nil, "", 0, ErrUnknownEntity
	}
	cfg := def.Config

	records, err := def.ExportRows(ctx, s.store, tenantID)
	if err != nil {
		return nil, "", 0, fmt.Errorf("load records: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, "", 0, err
	}

	labels := make([]any, len(cfg.Columns))
	for i, col := range cfg.Columns {
		labels[i] = col.Label
	}
	if err := f.SetSheetRow(exportSheet, "A1", &labels); err != nil {
		return nil, "", 0, err
	}
	for i, record := range records {
		cells := make([]any, len(record))
		for j, v := range record {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", 0, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &cells); err != nil {
			return nil, "", 0, err
		}
	}
	if err := sizeColumns(f, exportSheet, len(cfg.Columns)); err != nil {
		return nil, "", 0, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", 0, err
	}
	name := fmt.Sprintf("export_%s_%s.xlsx", cfg.Entity, time.Now().UTC().Format("20060102150405"))
	return buf.Bytes(), name, len(records), nil
}

// RunExport executes a queued export job: queued -> running -> completed,
// with no validation phase since export has no untrusted input.
func (s *Service) RunExport(ctx context.Context, job *ExportJob) error {
	if job.Status != StatusQueued && job.Status != StatusRunning {
		return &StateError{Op: "export", Status: job.Status}
	}

	start := time.Now()
	job.Status = StatusRunning
	if job.StartedAt == nil {
		now := time.Now().UTC()
		job.StartedAt = &now
	}
	if err := s.jobs.UpdateExportJob(ctx, job); err != nil {
		return fmt.Errorf("update export job: %w", err)
	}

	content, name, exported, err := s.BuildExport(ctx, job.TenantID, job.Entity)
	if err != nil {
		return err
	}
	dest := fmt.Sprintf("bulk/exports/%s/%s/%s", job.TenantID, job.Entity, name)
	ref, err := s.blobs.UploadBytes(ctx, content, dest, xlsxContentType)
	if err != nil {
		return fmt.Errorf("upload export: %w", err)
	}

	now := time.Now().UTC()
	job.FileRef = ref
	job.FileName = name
	job.FileSize = int64(len(content))
	job.Status = StatusCompleted
	job.FinishedAt = &now
	job.Summary = &ExportSummary{Exported: exported}
	if err := s.jobs.UpdateExportJob(ctx, job); err != nil {
		return fmt.Errorf("update export job: %w", err)
	}

	logging.WithJob(ctx, job.ID, job.TenantID, job.Entity).Info("export finished",
		"exported", exported,
		"duration", time.Since(start),
	)
	return nil
}

func sizeColumns(f *excelize.File, sheet string, count int) error {
	if count == 0 {
		return nil
	}
	last, err := excelize.ColumnNumberToName(count)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 26)
}
