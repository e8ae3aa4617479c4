package entities

import (
	"context"

	"github.com/Hugoguevara91/eagl-backend/internal/bulk"
)

func registerAssets() {
	bulk.Register(bulk.EntityDefinition{
		Config: bulk.EntityConfig{
			Entity:          "assets",
			TemplateVersion: "v1",
			Columns: []bulk.Column{
				{Label: "Tag", Key: "tag", Instruction: "Required", Required: true},
				{Label: "Name", Key: "name", Instruction: "Required", Required: true},
				{Label: "Type", Key: "asset_type", Instruction: "Optional"},
				{Label: "Status", Key: "status", Instruction: "Optional"},
				{Label: "Client tax ID", Key: "client_tax_id", Instruction: "Optional"},
				{Label: "Client code", Key: "client_code", Instruction: "Optional"},
				{Label: "Site code", Key: "site_code", Instruction: "Optional"},
			},
			UniqueKeyGroups: [][]string{{"tag"}},
			Transforms: map[string]bulk.Transform{
				"tag":           bulk.TransformText,
				"name":          bulk.TransformText,
				"asset_type":    bulk.TransformText,
				"status":        bulk.TransformText,
				"client_tax_id": bulk.TransformDigits,
				"client_code":   bulk.TransformText,
				"site_code":     bulk.TransformText,
			},
		},
		Lookup: func(ctx context.Context, st bulk.Store, tenantID string, row bulk.Row) (string, error) {
			tag := row.Str("tag")
			if tag == "" {
				return "", nil
			}
			return st.FindAssetIDByTag(ctx, tenantID, tag)
		},
		CheckRefs: func(ctx context.Context, st bulk.Store, tenantID string, row bulk.Row, report bulk.ReportFunc) error {
			taxID, code := row.Str("client_tax_id"), row.Str("client_code")
			if taxID != "" || code != "" {
				clientID, err := st.FindClientID(ctx, tenantID, taxID, code)
				if err != nil {
					return err
				}
				if clientID == "" {
					report("client_tax_id", "client not found by tax id or code")
				}
			}
			if siteCode := row.Str("site_code"); siteCode != "" {
				siteID, err := st.FindSiteIDByCode(ctx, tenantID, siteCode)
				if err != nil {
					return err
				}
				if siteID == "" {
					report("site_code", "site not found by code")
				}
			}
			return nil
		},
		Apply: func(ctx context.Context, st bulk.Store, tenantID, existingID string, row bulk.Row) error {
			a := bulk.Asset{
				ID:       existingID,
				TenantID: tenantID,
				Tag:      row.Str("tag"),
				Name:     row.Str("name"),
				Type:     strField(row, "asset_type"),
				Status:   strField(row, "status"),
			}
			if taxID, code := row.Str("client_tax_id"), row.Str("client_code"); taxID != "" || code != "" {
				clientID, err := st.FindClientID(ctx, tenantID, taxID, code)
				if err != nil {
					return err
				}
				if clientID != "" {
					a.ClientID = &clientID
				}
			}
			if siteCode := row.Str("site_code"); siteCode != "" {
				siteID, err := st.FindSiteIDByCode(ctx, tenantID, siteCode)
				if err != nil {
					return err
				}
				if siteID != "" {
					a.SiteID = &siteID
				}
			}
			return st.SaveAsset(ctx, &a)
		},
		ExportRows: func(ctx context.Context, st bulk.Store, tenantID string) ([][]string, error) {
			items, err := st.ListAssets(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			rows := make([][]string, 0, len(items))
			for _, a := range items {
				rows = append(rows, []string{
					a.Tag,
					a.Name,
					deref(a.Type),
					deref(a.Status),
					deref(a.ClientTaxID),
					deref(a.ClientCode),
					deref(a.SiteCode),
				})
			}
			return rows, nil
		},
	})
}
