package entities

import (
	"context"
	"strings"

	"github.com/Hugoguevara91/eagl-backend/internal/bulk"
)

func registerEmployees() {
	bulk.Register(bulk.EntityDefinition{
		Config: bulk.EntityConfig{
			Entity:          "employees",
			TemplateVersion: "v1",
			Columns: []bulk.Column{
				{Label: "Name", Key: "name", Instruction: "Required", Required: true},
				{Label: "Role", Key: "role", Instruction: "Required", Required: true},
				{Label: "Email", Key: "email", Instruction: "Required", Required: true},
				{Label: "Phone", Key: "phone", Instruction: "Optional"},
				{Label: "Status", Key: "status", Instruction: "Optional (ACTIVE/INACTIVE)"},
				{Label: "Contract", Key: "contract", Instruction: "Optional"},
				{Label: "Unit", Key: "unit", Instruction: "Optional"},
				{Label: "Coordinator", Key: "coordinator", Instruction: "Optional"},
				{Label: "Supervisor", Key: "supervisor", Instruction: "Optional"},
				{Label: "Skills", Key: "skills", Instruction: "Separate with ;"},
				{Label: "Notes", Key: "notes", Instruction: "Optional"},
			},
			UniqueKeyGroups: [][]string{{"email"}},
			Transforms: map[string]bulk.Transform{
				"name":        bulk.TransformText,
				"role":        bulk.TransformText,
				"email":       bulk.TransformEmail,
				"phone":       bulk.TransformPhoneDigits,
				"status":      bulk.TransformText,
				"contract":    bulk.TransformText,
				"unit":        bulk.TransformText,
				"coordinator": bulk.TransformText,
				"supervisor":  bulk.TransformText,
				"skills":      bulk.TransformList,
				"notes":       bulk.TransformText,
			},
		},
		Lookup: func(ctx context.Context, st bulk.Store, tenantID string, row bulk.Row) (string, error) {
			email := row.Str("email")
			if email == "" {
				return "", nil
			}
			return st.FindEmployeeIDByEmail(ctx, tenantID, email)
		},
		Apply: func(ctx context.Context, st bulk.Store, tenantID, existingID string, row bulk.Row) error {
			e := bulk.Employee{
				ID:          existingID,
				TenantID:    tenantID,
				Name:        row.Str("name"),
				Role:        row.Str("role"),
				Email:       row.Str("email"),
				Phone:       strField(row, "phone"),
				Status:      strField(row, "status"),
				Contract:    strField(row, "contract"),
				Unit:        strField(row, "unit"),
				Coordinator: strField(row, "coordinator"),
				Supervisor:  strField(row, "supervisor"),
				Skills:      row.List("skills"),
				Notes:       strField(row, "notes"),
			}
			if existingID == "" {
				e.Status = orDefault(e.Status, "ACTIVE")
			}
			return st.SaveEmployee(ctx, &e)
		},
		ExportRows: func(ctx context.Context, st bulk.Store, tenantID string) ([][]string, error) {
			items, err := st.ListEmployees(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			rows := make([][]string, 0, len(items))
			for _, e := range items {
				rows = append(rows, []string{
					e.Name,
					e.Role,
					e.Email,
					deref(e.Phone),
					deref(e.Status),
					deref(e.Contract),
					deref(e.Unit),
					deref(e.Coordinator),
					deref(e.Supervisor),
					strings.Join(e.Skills, ";"),
					deref(e.Notes),
				})
			}
			return rows, nil
		},
	})
}
