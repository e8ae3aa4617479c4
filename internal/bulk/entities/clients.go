package entities

import (
	"context"

	"github.com/Hugoguevara91/eagl-backend/internal/bulk"
)

func registerClients() {
	bulk.Register(bulk.EntityDefinition{
		Config: bulk.EntityConfig{
			Entity:          "clients",
			TemplateVersion: "v1",
			Columns: []bulk.Column{
				{Label: "Name", Key: "name", Instruction: "Required", Required: true},
				{Label: "Client code", Key: "client_code", Instruction: "Required when tax id is empty"},
				{Label: "Tax ID", Key: "tax_id", Instruction: "Required when client code is empty"},
				{Label: "Status", Key: "status", Instruction: "Optional (active/suspended)"},
				{Label: "Contract", Key: "contract", Instruction: "Optional"},
				{Label: "Address", Key: "address", Instruction: "Optional"},
			},
			UniqueKeyGroups: [][]string{{"tax_id"}, {"client_code"}},
			Transforms: map[string]bulk.Transform{
				"name":        bulk.TransformText,
				"client_code": bulk.TransformText,
				"tax_id":      bulk.TransformDigits,
				"status":      bulk.TransformText,
				"contract":    bulk.TransformText,
				"address":     bulk.TransformText,
			},
		},
		Lookup: func(ctx context.Context, st bulk.Store, tenantID string, row bulk.Row) (string, error) {
			if taxID := row.Str("tax_id"); taxID != "" {
				return st.FindClientID(ctx, tenantID, taxID, "")
			}
			if code := row.Str("client_code"); code != "" {
				return st.FindClientID(ctx, tenantID, "", code)
			}
			return "", nil
		},
		CheckRefs: func(ctx context.Context, st bulk.Store, tenantID string, row bulk.Row, report bulk.ReportFunc) error {
			if row.Str("tax_id") == "" && row.Str("client_code") == "" {
				report("tax_id", "provide a tax id or a client code")
			}
			return nil
		},
		Apply: func(ctx context.Context, st bulk.Store, tenantID, existingID string, row bulk.Row) error {
			c := bulk.Client{
				ID:       existingID,
				TenantID: tenantID,
				Name:     row.Str("name"),
				Code:     strField(row, "client_code"),
				TaxID:    strField(row, "tax_id"),
				Status:   strField(row, "status"),
				Contract: strField(row, "contract"),
				Address:  strField(row, "address"),
			}
			if existingID == "" {
				c.Status = orDefault(c.Status, "active")
			}
			return st.SaveClient(ctx, &c)
		},
		ExportRows: func(ctx context.Context, st bulk.Store, tenantID string) ([][]string, error) {
			items, err := st.ListClients(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			rows := make([][]string, 0, len(items))
			for _, c := range items {
				rows = append(rows, []string{
					c.Name,
					deref(c.Code),
					deref(c.TaxID),
					deref(c.Status),
					deref(c.Contract),
					deref(c.Address),
				})
			}
			return rows, nil
		},
	})
}
