package bulk

// ports.go is the boundary with the out-of-scope collaborators: the
// relational datastore (Store, JobStore) and blob storage (Blob). The pgx
// implementations live in internal/store and internal/blob.

import "context"

// Store is the entity-table boundary. Find* lookups return "" when no record
// matches; Save*/Replace* create when the record ID is empty and update
// otherwise, leaving nil optional fields untouched.
//
// InTx runs fn against a transactional view of the store with read-your-
// writes semantics; the apply engine commits one transaction per chunk.
type Store interface {
	InTx(ctx context.Context, fn func(Store) error) error

	FindEmployeeIDByEmail(ctx context.Context, tenantID, email string) (string, error)
	SaveEmployee(ctx context.Context, e *Employee) error
	ListEmployees(ctx context.Context, tenantID string) ([]Employee, error)

	// FindClientID matches on whichever of taxID and code are non-empty.
	FindClientID(ctx context.Context, tenantID, taxID, code string) (string, error)
	SaveClient(ctx context.Context, c *Client) error
	ListClients(ctx context.Context, tenantID string) ([]Client, error)

	// FindAccountID resolves a customer account by tax id and/or name.
	FindAccountID(ctx context.Context, tenantID, taxID, name string) (string, error)

	FindSiteIDByCode(ctx context.Context, tenantID, code string) (string, error)
	SaveSite(ctx context.Context, s *Site) error
	ListSites(ctx context.Context, tenantID string) ([]SiteExport, error)

	FindAssetIDByTag(ctx context.Context, tenantID, tag string) (string, error)
	SaveAsset(ctx context.Context, a *Asset) error
	ListAssets(ctx context.Context, tenantID string) ([]AssetExport, error)

	// FindWorkOrderTypeID scopes to clientID only when it is non-empty.
	FindWorkOrderTypeID(ctx context.Context, tenantID, name, clientID string) (string, error)
	SaveWorkOrderType(ctx context.Context, w *WorkOrderType) error
	ListWorkOrderTypes(ctx context.Context, tenantID string) ([]WorkOrderTypeExport, error)

	FindChecklistID(ctx context.Context, tenantID, title string, version int) (string, error)
	// ReplaceChecklist upserts the parent and swaps its full item list.
	ReplaceChecklist(ctx context.Context, c *Checklist, items []ChecklistItem) error
	ListChecklistRows(ctx context.Context, tenantID string) ([]ChecklistRow, error)

	// CountRecords returns how many records an export of entity would emit.
	CountRecords(ctx context.Context, tenantID, entity string) (int, error)
}

// JobStore persists import/export jobs and their row errors.
type JobStore interface {
	CreateImportJob(ctx context.Context, job *Job) error
	GetImportJob(ctx context.Context, tenantID, id string) (*Job, error)
	UpdateImportJob(ctx context.Context, job *Job) error
	// FindImportJobByHash implements the (tenant, entity, hash) idempotency
	// guard; returns nil when no job holds that content hash.
	FindImportJobByHash(ctx context.Context, tenantID, entity, hash string) (*Job, error)
	ListImportJobs(ctx context.Context, tenantID, entity string, status Status, limit int) ([]Job, error)
	// HasActiveImport reports whether another unfinished job exists for the
	// same (tenant, entity).
	HasActiveImport(ctx context.Context, tenantID, entity, excludeJobID string) (bool, error)

	// ReplaceRowErrors deletes the job's previous errors and inserts errs.
	ReplaceRowErrors(ctx context.Context, jobID string, errs []RowError) error
	ListRowErrors(ctx context.Context, jobID string, limit int) ([]RowError, error)

	CreateExportJob(ctx context.Context, job *ExportJob) error
	GetExportJob(ctx context.Context, tenantID, id string) (*ExportJob, error)
	UpdateExportJob(ctx context.Context, job *ExportJob) error
	ListExportJobs(ctx context.Context, tenantID string, limit int) ([]ExportJob, error)
}

// Blob is the blob-storage boundary. References are opaque strings prefixed
// by scheme (file:// for local storage).
type Blob interface {
	UploadBytes(ctx context.Context, content []byte, path, contentType string) (string, error)
	// DownloadToLocal makes the blob available as a local file and returns
	// its path.
	DownloadToLocal(ctx context.Context, ref string) (string, error)
	SignedURL(ctx context.Context, ref string) (string, error)
}
