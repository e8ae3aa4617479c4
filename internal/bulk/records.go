package bulk

// records.go declares the importable entity records as the pipeline sees
// them. Optional fields are pointers so an update can distinguish "not in the
// file" (keep the stored value) from an explicit value.

// Employee is a person record, identified by email within a tenant.
type Employee struct {
	ID          string
	TenantID    string
	Name        string
	Role        string
	Email       string
	Phone       *string
	Status      *string
	Contract    *string
	Unit        *string
	Coordinator *string
	Supervisor  *string
	Skills      []string
	Notes       *string
}

// Client is identified by its 14-digit tax id or, failing that, its code.
type Client struct {
	ID       string
	TenantID string
	Name     string
	Code     *string
	TaxID    *string
	Status   *string
	Contract *string
	Address  *string
}

// Site is a serviced location, identified by its code and tied to a customer
// account.
type Site struct {
	ID        string
	TenantID  string
	Code      string
	Name      string
	Status    *string
	Address   *string
	AccountID *string
}

// Asset is a piece of equipment identified by its tag.
type Asset struct {
	ID       string
	TenantID string
	Tag      string
	Name     string
	Type     *string
	Status   *string
	ClientID *string
	SiteID   *string
}

// WorkOrderType is a service-order category, optionally scoped to a client.
type WorkOrderType struct {
	ID          string
	TenantID    string
	Name        string
	Description *string
	Active      *bool
	ClientID    *string
}

// Checklist is the composite entity: one parent record whose children come
// from several file rows sharing the same (title, version).
type Checklist struct {
	ID       string
	TenantID string
	Title    string
	Version  int
	Status   string
}

// ChecklistItem is one question of a checklist, kept in file order.
type ChecklistItem struct {
	ID          string
	ChecklistID string
	Question    string
	Required    bool
	AnswerType  string
	Options     []string
	Position    int
}

// SiteExport is a site joined with its customer account for export.
type SiteExport struct {
	Site
	AccountTaxID *string
	AccountName  *string
}

// AssetExport is an asset joined with its client and site natural keys.
type AssetExport struct {
	Asset
	ClientTaxID *string
	ClientCode  *string
	SiteCode    *string
}

// WorkOrderTypeExport is a work order type joined with its client keys.
type WorkOrderTypeExport struct {
	WorkOrderType
	ClientTaxID *string
	ClientCode  *string
}

// ChecklistRow is one checklist item joined with its parent for export.
type ChecklistRow struct {
	Title      string
	Version    int
	Question   string
	Required   bool
	AnswerType string
	Options    []string
}
