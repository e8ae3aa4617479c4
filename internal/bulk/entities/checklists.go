package entities

import (
	"context"
	"strconv"
	"strings"

	"github.com/Hugoguevara91/eagl-backend/internal/bulk"
)

// answerTypeOptions is the answer kind that requires a non-empty option
// list on the same row.
const answerTypeOptions = "OPTIONS"

// Checklists are the composite entity type: every file row is one question,
// and rows sharing (title, version) describe one checklist. Apply replaces
// each checklist's full question list with the file's rows in order.
func registerChecklists() {
	bulk.Register(bulk.EntityDefinition{
		Config: bulk.EntityConfig{
			Entity:          "checklists",
			TemplateVersion: "v1",
			Columns: []bulk.Column{
				{Label: "Checklist title", Key: "title", Instruction: "Required", Required: true},
				{Label: "Version", Key: "version", Instruction: "Optional (default 1)"},
				{Label: "Question", Key: "question", Instruction: "Required", Required: true},
				{Label: "Question required?", Key: "required", Instruction: "YES/NO"},
				{Label: "Answer type", Key: "answer_type", Instruction: "Required", Required: true},
				{Label: "Options", Key: "options", Instruction: "Separate with ;"},
			},
			UniqueKeyGroups: [][]string{{"title", "version"}},
			Transforms: map[string]bulk.Transform{
				"title":       bulk.TransformText,
				"version":     bulk.TransformInt,
				"question":    bulk.TransformText,
				"required":    bulk.TransformBool,
				"answer_type": bulk.TransformText,
				"options":     bulk.TransformList,
			},
			Composite: true,
		},
		Defaults: func(row bulk.Row) {
			if _, ok := row["version"]; !ok {
				row["version"] = 1
			}
		},
		Lookup: func(ctx context.Context, st bulk.Store, tenantID string, row bulk.Row) (string, error) {
			title := row.Str("title")
			if title == "" {
				return "", nil
			}
			return st.FindChecklistID(ctx, tenantID, title, row.Int("version", 1))
		},
		CheckRefs: func(ctx context.Context, st bulk.Store, tenantID string, row bulk.Row, report bulk.ReportFunc) error {
			if strings.EqualFold(row.Str("answer_type"), answerTypeOptions) && len(row.List("options")) == 0 {
				report("options", "options are required when answer type is OPTIONS")
			}
			return nil
		},
		ApplyGroup: func(ctx context.Context, st bulk.Store, tenantID, existingID string, rows []bulk.Row) error {
			first := rows[0]
			c := bulk.Checklist{
				ID:       existingID,
				TenantID: tenantID,
				Title:    first.Str("title"),
				Version:  first.Int("version", 1),
				Status:   "ACTIVE",
			}
			items := make([]bulk.ChecklistItem, 0, len(rows))
			for i, row := range rows {
				required, _ := row.Bool("required")
				items = append(items, bulk.ChecklistItem{
					Question:   row.Str("question"),
					Required:   required,
					AnswerType: row.Str("answer_type"),
					Options:    row.List("options"),
					Position:   i,
				})
			}
			return st.ReplaceChecklist(ctx, &c, items)
		},
		ExportRows: func(ctx context.Context, st bulk.Store, tenantID string) ([][]string, error) {
			items, err := st.ListChecklistRows(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			rows := make([][]string, 0, len(items))
			for _, r := range items {
				rows = append(rows, []string{
					r.Title,
					strconv.Itoa(r.Version),
					r.Question,
					yesNo(r.Required),
					r.AnswerType,
					strings.Join(r.Options, ";"),
				})
			}
			return rows, nil
		},
	})
}
