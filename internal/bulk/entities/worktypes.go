package entities

import (
	"context"

	"github.com/Hugoguevara91/eagl-backend/internal/bulk"
)

func registerWorkOrderTypes() {
	bulk.Register(bulk.EntityDefinition{
		Config: bulk.EntityConfig{
			Entity:          "work_order_types",
			TemplateVersion: "v1",
			Columns: []bulk.Column{
				{Label: "Name", Key: "name", Instruction: "Required", Required: true},
				{Label: "Description", Key: "description", Instruction: "Optional"},
				{Label: "Client tax ID", Key: "client_tax_id", Instruction: "Optional"},
				{Label: "Client code", Key: "client_code", Instruction: "Optional"},
				{Label: "Active", Key: "active", Instruction: "Optional (YES/NO)"},
			},
			UniqueKeyGroups: [][]string{{"name", "client_tax_id"}, {"name"}},
			Transforms: map[string]bulk.Transform{
				"name":          bulk.TransformText,
				"description":   bulk.TransformText,
				"client_tax_id": bulk.TransformDigits,
				"client_code":   bulk.TransformText,
				"active":        bulk.TransformBool,
			},
		},
		Lookup: func(ctx context.Context, st bulk.Store, tenantID string, row bulk.Row) (string, error) {
			name := row.Str("name")
			if name == "" {
				return "", nil
			}
			clientID := ""
			if taxID, code := row.Str("client_tax_id"), row.Str("client_code"); taxID != "" || code != "" {
				id, err := st.FindClientID(ctx, tenantID, taxID, code)
				if err != nil {
					return "", err
				}
				clientID = id
			}
			return st.FindWorkOrderTypeID(ctx, tenantID, name, clientID)
		},
		CheckRefs: func(ctx context.Context, st bulk.Store, tenantID string, row bulk.Row, report bulk.ReportFunc) error {
			taxID, code := row.Str("client_tax_id"), row.Str("client_code")
			if taxID == "" && code == "" {
				return nil
			}
			clientID, err := st.FindClientID(ctx, tenantID, taxID, code)
			if err != nil {
				return err
			}
			if clientID == "" {
				report("client_tax_id", "client not found by tax id or code")
			}
			return nil
		},
		Apply: func(ctx context.Context, st bulk.Store, tenantID, existingID string, row bulk.Row) error {
			w := bulk.WorkOrderType{
				ID:          existingID,
				TenantID:    tenantID,
				Name:        row.Str("name"),
				Description: strField(row, "description"),
				Active:      boolField(row, "active"),
			}
			if taxID, code := row.Str("client_tax_id"), row.Str("client_code"); taxID != "" || code != "" {
				clientID, err := st.FindClientID(ctx, tenantID, taxID, code)
				if err != nil {
					return err
				}
				if clientID != "" {
					w.ClientID = &clientID
				}
			}
			if existingID == "" && w.Active == nil {
				active := true
				w.Active = &active
			}
			return st.SaveWorkOrderType(ctx, &w)
		},
		ExportRows: func(ctx context.Context, st bulk.Store, tenantID string) ([][]string, error) {
			items, err := st.ListWorkOrderTypes(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			rows := make([][]string, 0, len(items))
			for _, w := range items {
				active := true
				if w.Active != nil {
					active = *w.Active
				}
				rows = append(rows, []string{
					w.Name,
					deref(w.Description),
					deref(w.ClientTaxID),
					deref(w.ClientCode),
					yesNo(active),
				})
			}
			return rows, nil
		},
	})
}
