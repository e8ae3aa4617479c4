package entities

import (
	"context"

	"github.com/Hugoguevara91/eagl-backend/internal/bulk"
)

func registerSites() {
	bulk.Register(bulk.EntityDefinition{
		Config: bulk.EntityConfig{
			Entity:          "sites",
			TemplateVersion: "v1",
			Columns: []bulk.Column{
				{Label: "Site code", Key: "site_code", Instruction: "Required", Required: true},
				{Label: "Name", Key: "name", Instruction: "Required", Required: true},
				{Label: "Account tax ID", Key: "account_tax_id", Instruction: "Required", Required: true},
				{Label: "Account name", Key: "account_name", Instruction: "Optional"},
				{Label: "Status", Key: "status", Instruction: "Optional (ACTIVE/INACTIVE)"},
				{Label: "Address", Key: "address", Instruction: "Optional"},
			},
			UniqueKeyGroups: [][]string{{"site_code", "account_tax_id"}, {"site_code"}},
			Transforms: map[string]bulk.Transform{
				"site_code":      bulk.TransformText,
				"name":           bulk.TransformText,
				"account_tax_id": bulk.TransformDigits,
				"account_name":   bulk.TransformText,
				"status":         bulk.TransformText,
				"address":        bulk.TransformText,
			},
		},
		Lookup: func(ctx context.Context, st bulk.Store, tenantID string, row bulk.Row) (string, error) {
			code := row.Str("site_code")
			if code == "" {
				return "", nil
			}
			return st.FindSiteIDByCode(ctx, tenantID, code)
		},
		CheckRefs: func(ctx context.Context, st bulk.Store, tenantID string, row bulk.Row, report bulk.ReportFunc) error {
			accountID, err := st.FindAccountID(ctx, tenantID, row.Str("account_tax_id"), row.Str("account_name"))
			if err != nil {
				return err
			}
			if accountID == "" {
				report("account_tax_id", "customer account not found by tax id")
			}
			return nil
		},
		Apply: func(ctx context.Context, st bulk.Store, tenantID, existingID string, row bulk.Row) error {
			accountID, err := st.FindAccountID(ctx, tenantID, row.Str("account_tax_id"), row.Str("account_name"))
			if err != nil {
				return err
			}
			s := bulk.Site{
				ID:       existingID,
				TenantID: tenantID,
				Code:     row.Str("site_code"),
				Name:     row.Str("name"),
				Status:   strField(row, "status"),
				Address:  strField(row, "address"),
			}
			if accountID != "" {
				s.AccountID = &accountID
			}
			if existingID == "" {
				s.Status = orDefault(s.Status, "ACTIVE")
			}
			return st.SaveSite(ctx, &s)
		},
		ExportRows: func(ctx context.Context, st bulk.Store, tenantID string) ([][]string, error) {
			items, err := st.ListSites(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			rows := make([][]string, 0, len(items))
			for _, s := range items {
				rows = append(rows, []string{
					s.Code,
					s.Name,
					deref(s.AccountTaxID),
					deref(s.AccountName),
					deref(s.Status),
					deref(s.Address),
				})
			}
			return rows, nil
		},
	})
}
