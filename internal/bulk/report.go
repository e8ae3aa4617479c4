package bulk

// report.go produces the annotated error report: a copy of the failed rows
// from the original file with three extra columns describing what went
// wrong. The source is re-opened from scratch, never a reused iterator, so
// it works regardless of how far the validation pass consumed its stream.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

const errorReportSheet = "ERRORS"

// Extra columns appended to every reported row.
var errorReportColumns = []string{"__status", "__error_fields", "__messages"}

// BuildErrorReport re-reads the original file and renders a workbook
// containing only the rows that have errors, each with its original cells
// plus a status marker, the distinct failing field keys and the joined
// messages.
func BuildErrorReport(path string, header []string, errs []RowError) ([]byte, error) {
	byRow := make(map[int][]RowError)
	for _, e := range errs {
		byRow[e.RowNumber] = append(byRow[e.RowNumber], e)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", errorReportSheet); err != nil {
		return nil, err
	}

	out := 1
	writeRow := func(cells []any) error {
		cell, err := excelize.CoordinatesToCellName(1, out)
		if err != nil {
			return err
		}
		out++
		return f.SetSheetRow(errorReportSheet, cell, &cells)
	}

	headerCells := make([]any, 0, len(header)+len(errorReportColumns))
	for _, h := range header {
		headerCells = append(headerCells, h)
	}
	for _, h := range errorReportColumns {
		headerCells = append(headerCells, h)
	}
	if err := writeRow(headerCells); err != nil {
		return nil, err
	}

	_, rows, err := OpenTable(path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
		rowErrs := byRow[rowNum]
		if len(rowErrs) == 0 {
			continue
		}

		fields := make(map[string]bool)
		messages := make([]string, 0, len(rowErrs))
		for _, e := range rowErrs {
			if e.Field != "" {
				fields[e.Field] = true
			}
			messages = append(messages, e.Message)
		}
		names := make([]string, 0, len(fields))
		for f := range fields {
			names = append(names, f)
		}
		sort.Strings(names)

		outCells := make([]any, 0, len(cells)+len(errorReportColumns))
		for _, c := range cells {
			outCells = append(outCells, c)
		}
		outCells = append(outCells,
			"ERROR",
			strings.Join(names, ";"),
			strings.Join(messages, ";"),
		)
		if err := writeRow(outCells); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// uploadErrorReport builds the report and persists it to blob storage,
// returning the file reference to attach to the job.
func (s *Service) uploadErrorReport(ctx context.Context, job *Job, path string, header []string, errs []RowError) (string, error) {
	content, err := BuildErrorReport(path, header, errs)
	if err != nil {
		return "", err
	}
	dest := fmt.Sprintf("bulk/errors/%s/%s.xlsx", job.TenantID, job.ID)
	return s.blobs.UploadBytes(ctx, content, dest, xlsxContentType)
}
