package store

// entities.go holds the lookups and writes for the importable entity tables.
// Save* methods insert when the record ID is empty and update otherwise;
// updates COALESCE nil optional fields so values absent from an import file
// keep their stored state.

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Hugoguevara91/eagl-backend/internal/bulk"
)

// ---------------------------------------------------------------------------
// Employees

func (s *Store) FindEmployeeIDByEmail(ctx context.Context, tenantID, email string) (string, error) {
	return s.findID(ctx,
		`SELECT id FROM employees WHERE tenant_id = $1 AND email = $2`,
		tenantID, email)
}

func (s *Store) SaveEmployee(ctx context.Context, e *bulk.Employee) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
		_, err := s.db.Exec(ctx, `
			INSERT INTO employees
				(id, tenant_id, name, role, email, phone, status, contract,
				 unit, coordinator, supervisor, skills, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			e.ID, e.TenantID, e.Name, e.Role, e.Email, e.Phone, e.Status,
			e.Contract, e.Unit, e.Coordinator, e.Supervisor, e.Skills, e.Notes)
		return err
	}
	_, err := s.db.Exec(ctx, `
		UPDATE employees SET
			name = $2,
			role = $3,
			email = $4,
			phone = COALESCE($5, phone),
			status = COALESCE($6, status),
			contract = COALESCE($7, contract),
			unit = COALESCE($8, unit),
			coordinator = COALESCE($9, coordinator),
			supervisor = COALESCE($10, supervisor),
			skills = COALESCE($11, skills),
			notes = COALESCE($12, notes),
			updated_at = now()
		WHERE id = $1`,
		e.ID, e.Name, e.Role, e.Email, e.Phone, e.Status, e.Contract,
		e.Unit, e.Coordinator, e.Supervisor, e.Skills, e.Notes)
	return err
}

func (s *Store) ListEmployees(ctx context.Context, tenantID string) ([]bulk.Employee, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, role, email, phone, status, contract, unit,
		       coordinator, supervisor, skills, notes
		FROM employees
		WHERE tenant_id = $1
		ORDER BY created_at DESC`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bulk.Employee
	for rows.Next() {
		e := bulk.Employee{TenantID: tenantID}
		if err := rows.Scan(&e.ID, &e.Name, &e.Role, &e.Email, &e.Phone,
			&e.Status, &e.Contract, &e.Unit, &e.Coordinator, &e.Supervisor,
			&e.Skills, &e.Notes); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Clients and customer accounts

func (s *Store) FindClientID(ctx context.Context, tenantID, taxID, code string) (string, error) {
	if taxID == "" && code == "" {
		return "", nil
	}
	return s.findID(ctx, `
		SELECT id FROM clients
		WHERE tenant_id = $1
		  AND ($2 = '' OR tax_id = $2)
		  AND ($3 = '' OR client_code = $3)
		LIMIT 1`,
		tenantID, taxID, code)
}

func (s *Store) SaveClient(ctx context.Context, c *bulk.Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
		_, err := s.db.Exec(ctx, `
			INSERT INTO clients
				(id, tenant_id, name, client_code, tax_id, status, contract, address)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.TenantID, c.Name, c.Code, c.TaxID, c.Status, c.Contract, c.Address)
		return err
	}
	_, err := s.db.Exec(ctx, `
		UPDATE clients SET
			name = $2,
			client_code = COALESCE($3, client_code),
			tax_id = COALESCE($4, tax_id),
			status = COALESCE($5, status),
			contract = COALESCE($6, contract),
			address = COALESCE($7, address),
			updated_at = now()
		WHERE id = $1`,
		c.ID, c.Name, c.Code, c.TaxID, c.Status, c.Contract, c.Address)
	return err
}

func (s *Store) ListClients(ctx context.Context, tenantID string) ([]bulk.Client, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, client_code, tax_id, status, contract, address
		FROM clients
		WHERE tenant_id = $1
		ORDER BY created_at DESC`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bulk.Client
	for rows.Next() {
		c := bulk.Client{TenantID: tenantID}
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.TaxID, &c.Status,
			&c.Contract, &c.Address); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) FindAccountID(ctx context.Context, tenantID, taxID, name string) (string, error) {
	if taxID == "" && name == "" {
		return "", nil
	}
	return s.findID(ctx, `
		SELECT id FROM customer_accounts
		WHERE tenant_id = $1
		  AND ($2 = '' OR tax_id = $2)
		  AND ($3 = '' OR name = $3)
		LIMIT 1`,
		tenantID, taxID, name)
}

// ---------------------------------------------------------------------------
// Sites

func (s *Store) FindSiteIDByCode(ctx context.Context, tenantID, code string) (string, error) {
	return s.findID(ctx,
		`SELECT id FROM sites WHERE tenant_id = $1 AND code = $2`,
		tenantID, code)
}

func (s *Store) SaveSite(ctx context.Context, site *bulk.Site) error {
	if site.ID == "" {
		site.ID = uuid.NewString()
		_, err := s.db.Exec(ctx, `
			INSERT INTO sites (id, tenant_id, code, name, status, address, account_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			site.ID, site.TenantID, site.Code, site.Name, site.Status,
			site.Address, site.AccountID)
		return err
	}
	_, err := s.db.Exec(ctx, `
		UPDATE sites SET
			name = $2,
			status = COALESCE($3, status),
			address = COALESCE($4, address),
			account_id = COALESCE($5, account_id),
			updated_at = now()
		WHERE id = $1`,
		site.ID, site.Name, site.Status, site.Address, site.AccountID)
	return err
}

func (s *Store) ListSites(ctx context.Context, tenantID string) ([]bulk.SiteExport, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.id, s.code, s.name, s.status, s.address, a.tax_id, a.name
		FROM sites s
		LEFT JOIN customer_accounts a ON a.id = s.account_id
		WHERE s.tenant_id = $1
		ORDER BY s.created_at DESC`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bulk.SiteExport
	for rows.Next() {
		se := bulk.SiteExport{Site: bulk.Site{TenantID: tenantID}}
		if err := rows.Scan(&se.ID, &se.Code, &se.Name, &se.Status,
			&se.Address, &se.AccountTaxID, &se.AccountName); err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Assets

func (s *Store) FindAssetIDByTag(ctx context.Context, tenantID, tag string) (string, error) {
	return s.findID(ctx,
		`SELECT id FROM assets WHERE tenant_id = $1 AND tag = $2`,
		tenantID, tag)
}

func (s *Store) SaveAsset(ctx context.Context, a *bulk.Asset) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
		_, err := s.db.Exec(ctx, `
			INSERT INTO assets
				(id, tenant_id, tag, name, asset_type, status, client_id, site_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.ID, a.TenantID, a.Tag, a.Name, a.Type, a.Status, a.ClientID, a.SiteID)
		return err
	}
	_, err := s.db.Exec(ctx, `
		UPDATE assets SET
			name = $2,
			asset_type = COALESCE($3, asset_type),
			status = COALESCE($4, status),
			client_id = COALESCE($5, client_id),
			site_id = COALESCE($6, site_id),
			updated_at = now()
		WHERE id = $1`,
		a.ID, a.Name, a.Type, a.Status, a.ClientID, a.SiteID)
	return err
}

func (s *Store) ListAssets(ctx context.Context, tenantID string) ([]bulk.AssetExport, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.tag, a.name, a.asset_type, a.status,
		       c.tax_id, c.client_code, st.code
		FROM assets a
		LEFT JOIN clients c ON c.id = a.client_id
		LEFT JOIN sites st ON st.id = a.site_id
		WHERE a.tenant_id = $1
		ORDER BY a.created_at DESC`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bulk.AssetExport
	for rows.Next() {
		ae := bulk.AssetExport{Asset: bulk.Asset{TenantID: tenantID}}
		if err := rows.Scan(&ae.ID, &ae.Tag, &ae.Name, &ae.Type, &ae.Status,
			&ae.ClientTaxID, &ae.ClientCode, &ae.SiteCode); err != nil {
			return nil, err
		}
		out = append(out, ae)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Work order types

func (s *Store) FindWorkOrderTypeID(ctx context.Context, tenantID, name, clientID string) (string, error) {
	if clientID != "" {
		return s.findID(ctx, `
			SELECT id FROM work_order_types
			WHERE tenant_id = $1 AND name = $2 AND client_id = $3
			LIMIT 1`,
			tenantID, name, clientID)
	}
	return s.findID(ctx, `
		SELECT id FROM work_order_types
		WHERE tenant_id = $1 AND name = $2
		LIMIT 1`,
		tenantID, name)
}

func (s *Store) SaveWorkOrderType(ctx context.Context, w *bulk.WorkOrderType) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
		_, err := s.db.Exec(ctx, `
			INSERT INTO work_order_types
				(id, tenant_id, name, description, is_active, client_id)
			VALUES ($1, $2, $3, $4, COALESCE($5, true), $6)`,
			w.ID, w.TenantID, w.Name, w.Description, w.Active, w.ClientID)
		return err
	}
	_, err := s.db.Exec(ctx, `
		UPDATE work_order_types SET
			description = COALESCE($2, description),
			is_active = COALESCE($3, is_active),
			client_id = COALESCE($4, client_id),
			updated_at = now()
		WHERE id = $1`,
		w.ID, w.Description, w.Active, w.ClientID)
	return err
}

func (s *Store) ListWorkOrderTypes(ctx context.Context, tenantID string) ([]bulk.WorkOrderTypeExport, error) {
	rows, err := s.db.Query(ctx, `
		SELECT w.id, w.name, w.description, w.is_active, c.tax_id, c.client_code
		FROM work_order_types w
		LEFT JOIN clients c ON c.id = w.client_id
		WHERE w.tenant_id = $1
		ORDER BY w.created_at DESC`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bulk.WorkOrderTypeExport
	for rows.Next() {
		we := bulk.WorkOrderTypeExport{WorkOrderType: bulk.WorkOrderType{TenantID: tenantID}}
		if err := rows.Scan(&we.ID, &we.Name, &we.Description, &we.Active,
			&we.ClientTaxID, &we.ClientCode); err != nil {
			return nil, err
		}
		out = append(out, we)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Checklists

func (s *Store) FindChecklistID(ctx context.Context, tenantID, title string, version int) (string, error) {
	return s.findID(ctx, `
		SELECT id FROM checklists
		WHERE tenant_id = $1 AND title = $2 AND version = $3`,
		tenantID, title, version)
}

// ReplaceChecklist upserts the parent and swaps its full item list in one
// pass. Item positions follow the order given.
func (s *Store) ReplaceChecklist(ctx context.Context, c *bulk.Checklist, items []bulk.ChecklistItem) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
		if _, err := s.db.Exec(ctx, `
			INSERT INTO checklists (id, tenant_id, title, version, status)
			VALUES ($1, $2, $3, $4, $5)`,
			c.ID, c.TenantID, c.Title, c.Version, c.Status); err != nil {
			return err
		}
	} else {
		if _, err := s.db.Exec(ctx, `
			UPDATE checklists SET title = $2, version = $3, status = $4, updated_at = now()
			WHERE id = $1`,
			c.ID, c.Title, c.Version, c.Status); err != nil {
			return err
		}
	}

	if _, err := s.db.Exec(ctx,
		`DELETE FROM checklist_items WHERE checklist_id = $1`, c.ID); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i := range items {
		item := &items[i]
		item.ID = uuid.NewString()
		item.ChecklistID = c.ID
		batch.Queue(`
			INSERT INTO checklist_items
				(id, checklist_id, question, required, answer_type, options, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, item.ChecklistID, item.Question, item.Required,
			item.AnswerType, item.Options, item.Position)
	}
	results := s.db.SendBatch(ctx, batch)
	defer results.Close()
	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert checklist item: %w", err)
		}
	}
	return nil
}

func (s *Store) ListChecklistRows(ctx context.Context, tenantID string) ([]bulk.ChecklistRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.title, c.version, i.question, i.required, i.answer_type, i.options
		FROM checklists c
		JOIN checklist_items i ON i.checklist_id = c.id
		WHERE c.tenant_id = $1
		ORDER BY c.created_at DESC, i.position ASC`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bulk.ChecklistRow
	for rows.Next() {
		var r bulk.ChecklistRow
		if err := rows.Scan(&r.Title, &r.Version, &r.Question, &r.Required,
			&r.AnswerType, &r.Options); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------

var entityTables = map[string]string{
	"employees":        "employees",
	"clients":          "clients",
	"sites":            "sites",
	"assets":           "assets",
	"work_order_types": "work_order_types",
	"checklists":       "checklists",
}

// CountRecords returns the tenant's record count for an entity type, in the
// unit an export emits: one row per record, and for the composite type one
// row per checklist item. The sync-vs-async export decision compares this
// count against the configured limit.
func (s *Store) CountRecords(ctx context.Context, tenantID, entity string) (int, error) {
	table, ok := entityTables[entity]
	if !ok {
		return 0, bulk.ErrUnknownEntity
	}
	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE tenant_id = $1`, table)
	if entity == "checklists" {
		query = `
		SELECT count(*)
		FROM checklists c
		JOIN checklist_items i ON i.checklist_id = c.id
		WHERE c.tenant_id = $1`
	}
	var n int
	err := s.db.QueryRow(ctx, query, tenantID).Scan(&n)
	return n, err
}
