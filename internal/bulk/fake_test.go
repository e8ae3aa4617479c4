package bulk

// fake_test.go holds in-memory fakes for the datastore and blob boundaries,
// plus a test entity registration helper, shared by the pipeline tests.

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// fakeStore implements Store and JobStore with maps. InTx runs the callback
// against the same store; chunk boundaries are observed through txCount.
type fakeStore struct {
	employees  map[string]*Employee
	checklists map[string]*Checklist
	items      map[string][]ChecklistItem

	importJobs map[string]*Job
	rowErrors  map[string][]RowError
	exportJobs map[string]*ExportJob

	nextID  int
	txCount int

	// replaceCalls records ReplaceChecklist item batches in call order.
	replaceCalls [][]ChecklistItem
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		employees:  make(map[string]*Employee),
		checklists: make(map[string]*Checklist),
		items:      make(map[string][]ChecklistItem),
		importJobs: make(map[string]*Job),
		rowErrors:  make(map[string][]RowError),
		exportJobs: make(map[string]*ExportJob),
	}
}

func (f *fakeStore) genID() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeStore) InTx(ctx context.Context, fn func(Store) error) error {
	f.txCount++
	return fn(f)
}

func (f *fakeStore) FindEmployeeIDByEmail(_ context.Context, tenantID, email string) (string, error) {
	for id, e := range f.employees {
		if e.TenantID == tenantID && e.Email == email {
			return id, nil
		}
	}
	return "", nil
}

func (f *fakeStore) SaveEmployee(_ context.Context, e *Employee) error {
	if e.ID == "" {
		e.ID = f.genID()
	}
	clone := *e
	f.employees[e.ID] = &clone
	return nil
}

func (f *fakeStore) ListEmployees(_ context.Context, tenantID string) ([]Employee, error) {
	var out []Employee
	for _, e := range f.employees {
		if e.TenantID == tenantID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeStore) FindClientID(context.Context, string, string, string) (string, error) {
	return "", nil
}
func (f *fakeStore) SaveClient(context.Context, *Client) error { return nil }
func (f *fakeStore) ListClients(context.Context, string) ([]Client, error) {
	return nil, nil
}
func (f *fakeStore) FindAccountID(context.Context, string, string, string) (string, error) {
	return "", nil
}
func (f *fakeStore) FindSiteIDByCode(context.Context, string, string) (string, error) {
	return "", nil
}
func (f *fakeStore) SaveSite(context.Context, *Site) error { return nil }
func (f *fakeStore) ListSites(context.Context, string) ([]SiteExport, error) {
	return nil, nil
}
func (f *fakeStore) FindAssetIDByTag(context.Context, string, string) (string, error) {
	return "", nil
}
func (f *fakeStore) SaveAsset(context.Context, *Asset) error { return nil }
func (f *fakeStore) ListAssets(context.Context, string) ([]AssetExport, error) {
	return nil, nil
}
func (f *fakeStore) FindWorkOrderTypeID(context.Context, string, string, string) (string, error) {
	return "", nil
}
func (f *fakeStore) SaveWorkOrderType(context.Context, *WorkOrderType) error { return nil }
func (f *fakeStore) ListWorkOrderTypes(context.Context, string) ([]WorkOrderTypeExport, error) {
	return nil, nil
}

func (f *fakeStore) FindChecklistID(_ context.Context, tenantID, title string, version int) (string, error) {
	for id, c := range f.checklists {
		if c.TenantID == tenantID && c.Title == title && c.Version == version {
			return id, nil
		}
	}
	return "", nil
}

func (f *fakeStore) ReplaceChecklist(_ context.Context, c *Checklist, items []ChecklistItem) error {
	if c.ID == "" {
		c.ID = f.genID()
	}
	clone := *c
	f.checklists[c.ID] = &clone
	f.items[c.ID] = append([]ChecklistItem(nil), items...)
	f.replaceCalls = append(f.replaceCalls, f.items[c.ID])
	return nil
}

func (f *fakeStore) ListChecklistRows(_ context.Context, tenantID string) ([]ChecklistRow, error) {
	var out []ChecklistRow
	for id, c := range f.checklists {
		if c.TenantID != tenantID {
			continue
		}
		for _, item := range f.items[id] {
			out = append(out, ChecklistRow{
				Title:      c.Title,
				Version:    c.Version,
				Question:   item.Question,
				Required:   item.Required,
				AnswerType: item.AnswerType,
				Options:    item.Options,
			})
		}
	}
	return out, nil
}

func (f *fakeStore) CountRecords(_ context.Context, tenantID, entity string) (int, error) {
	switch entity {
	case "crew":
		n := 0
		for _, e := range f.employees {
			if e.TenantID == tenantID {
				n++
			}
		}
		return n, nil
	case "inspections":
		// item rows, the unit an export emits for the composite type
		n := 0
		for id, c := range f.checklists {
			if c.TenantID == tenantID {
				n += len(f.items[id])
			}
		}
		return n, nil
	default:
		return 0, nil
	}
}

func (f *fakeStore) CreateImportJob(_ context.Context, job *Job) error {
	clone := *job
	f.importJobs[job.ID] = &clone
	return nil
}

func (f *fakeStore) GetImportJob(_ context.Context, tenantID, id string) (*Job, error) {
	job, ok := f.importJobs[id]
	if !ok || job.TenantID != tenantID {
		return nil, ErrJobNotFound
	}
	clone := *job
	return &clone, nil
}

func (f *fakeStore) UpdateImportJob(_ context.Context, job *Job) error {
	if _, ok := f.importJobs[job.ID]; !ok {
		return fmt.Errorf("import job %s not found", job.ID)
	}
	clone := *job
	f.importJobs[job.ID] = &clone
	return nil
}

func (f *fakeStore) FindImportJobByHash(_ context.Context, tenantID, entity, hash string) (*Job, error) {
	for _, job := range f.importJobs {
		if job.TenantID == tenantID && job.Entity == entity && job.FileHash == hash {
			clone := *job
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListImportJobs(_ context.Context, tenantID, entity string, status Status, limit int) ([]Job, error) {
	var out []Job
	for _, job := range f.importJobs {
		if job.TenantID != tenantID {
			continue
		}
		if entity != "" && job.Entity != entity {
			continue
		}
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, *job)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) HasActiveImport(_ context.Context, tenantID, entity, excludeJobID string) (bool, error) {
	for _, job := range f.importJobs {
		if job.TenantID != tenantID || job.Entity != entity || job.ID == excludeJobID {
			continue
		}
		switch job.Status {
		case StatusQueued, StatusValidating, StatusReadyToConfirm, StatusRunning:
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ReplaceRowErrors(_ context.Context, jobID string, errs []RowError) error {
	f.rowErrors[jobID] = append([]RowError(nil), errs...)
	return nil
}

func (f *fakeStore) ListRowErrors(_ context.Context, jobID string, limit int) ([]RowError, error) {
	errs := f.rowErrors[jobID]
	if len(errs) > limit {
		errs = errs[:limit]
	}
	return errs, nil
}

func (f *fakeStore) CreateExportJob(_ context.Context, job *ExportJob) error {
	clone := *job
	f.exportJobs[job.ID] = &clone
	return nil
}

func (f *fakeStore) GetExportJob(_ context.Context, tenantID, id string) (*ExportJob, error) {
	job, ok := f.exportJobs[id]
	if !ok || job.TenantID != tenantID {
		return nil, ErrJobNotFound
	}
	clone := *job
	return &clone, nil
}

func (f *fakeStore) UpdateExportJob(_ context.Context, job *ExportJob) error {
	clone := *job
	f.exportJobs[job.ID] = &clone
	return nil
}

func (f *fakeStore) ListExportJobs(_ context.Context, tenantID string, limit int) ([]ExportJob, error) {
	var out []ExportJob
	for _, job := range f.exportJobs {
		if job.TenantID == tenantID {
			out = append(out, *job)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// fakeBlob keeps blobs on disk under a temp dir so the pipeline's re-open of
// source files works against real paths.
type fakeBlob struct {
	dir string
}

func newFakeBlob(t *testing.T) *fakeBlob {
	t.Helper()
	return &fakeBlob{dir: t.TempDir()}
}

func (b *fakeBlob) UploadBytes(_ context.Context, content []byte, path, _ string) (string, error) {
	full := filepath.Join(b.dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return "", err
	}
	return "fake://" + path, nil
}

func (b *fakeBlob) DownloadToLocal(_ context.Context, ref string) (string, error) {
	path := strings.TrimPrefix(ref, "fake://")
	return filepath.Join(b.dir, filepath.FromSlash(path)), nil
}

func (b *fakeBlob) SignedURL(_ context.Context, ref string) (string, error) {
	return "https://files.test/" + strings.TrimPrefix(ref, "fake://"), nil
}

// registerCrewEntity registers a minimal person-like entity backed by the
// employee tables. Tests register into the clean test-binary registry and
// wipe it on cleanup.
func registerCrewEntity(t *testing.T) {
	t.Helper()
	Register(EntityDefinition{
		Config: EntityConfig{
			Entity:          "crew",
			TemplateVersion: "v1",
			Columns: []Column{
				{Label: "Name", Key: "name", Instruction: "Required", Required: true},
				{Label: "Email", Key: "email", Instruction: "Required", Required: true},
				{Label: "Tax ID", Key: "tax_id", Instruction: "Optional"},
				{Label: "Skills", Key: "skills", Instruction: "Separate with ;"},
			},
			UniqueKeyGroups: [][]string{{"email"}},
			Transforms: map[string]Transform{
				"name":   TransformText,
				"email":  TransformEmail,
				"tax_id": TransformDigits,
				"skills": TransformList,
			},
		},
		Lookup: func(ctx context.Context, st Store, tenantID string, row Row) (string, error) {
			return st.FindEmployeeIDByEmail(ctx, tenantID, row.Str("email"))
		},
		Apply: func(ctx context.Context, st Store, tenantID, existingID string, row Row) error {
			e := Employee{
				ID:       existingID,
				TenantID: tenantID,
				Name:     row.Str("name"),
				Email:    row.Str("email"),
				Skills:   row.List("skills"),
			}
			return st.SaveEmployee(ctx, &e)
		},
		ExportRows: func(ctx context.Context, st Store, tenantID string) ([][]string, error) {
			items, err := st.ListEmployees(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			rows := make([][]string, 0, len(items))
			for _, e := range items {
				rows = append(rows, []string{e.Name, e.Email, "", strings.Join(e.Skills, ";")})
			}
			return rows, nil
		},
	})
	t.Cleanup(ClearRegistry)
}

// registerInspectionEntity registers a composite checklist-like entity.
func registerInspectionEntity(t *testing.T) {
	t.Helper()
	Register(EntityDefinition{
		Config: EntityConfig{
			Entity:          "inspections",
			TemplateVersion: "v1",
			Columns: []Column{
				{Label: "Title", Key: "title", Instruction: "Required", Required: true},
				{Label: "Version", Key: "version", Instruction: "Optional (default 1)"},
				{Label: "Question", Key: "question", Instruction: "Required", Required: true},
			},
			UniqueKeyGroups: [][]string{{"title", "version"}},
			Transforms: map[string]Transform{
				"title":    TransformText,
				"version":  TransformInt,
				"question": TransformText,
			},
			Composite: true,
		},
		Defaults: func(row Row) {
			if _, ok := row["version"]; !ok {
				row["version"] = 1
			}
		},
		Lookup: func(ctx context.Context, st Store, tenantID string, row Row) (string, error) {
			return st.FindChecklistID(ctx, tenantID, row.Str("title"), row.Int("version", 1))
		},
		ApplyGroup: func(ctx context.Context, st Store, tenantID, existingID string, rows []Row) error {
			first := rows[0]
			c := Checklist{
				ID:       existingID,
				TenantID: tenantID,
				Title:    first.Str("title"),
				Version:  first.Int("version", 1),
				Status:   "ACTIVE",
			}
			items := make([]ChecklistItem, 0, len(rows))
			for i, row := range rows {
				items = append(items, ChecklistItem{Question: row.Str("question"), Position: i})
			}
			return st.ReplaceChecklist(ctx, &c, items)
		},
		ExportRows: func(ctx context.Context, st Store, tenantID string) ([][]string, error) {
			items, err := st.ListChecklistRows(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			rows := make([][]string, 0, len(items))
			for _, r := range items {
				rows = append(rows, []string{r.Title, strconv.Itoa(r.Version), r.Question})
			}
			return rows, nil
		},
	})
	t.Cleanup(ClearRegistry)
}

// newTestJob uploads content into the fake blob and returns a queued job
// wired to it.
func newTestJob(t *testing.T, blobs *fakeBlob, jobs JobStore, entity, fileName, content string, mode Mode) *Job {
	t.Helper()
	ctx := context.Background()
	ref, err := blobs.UploadBytes(ctx, []byte(content), "uploads/"+fileName, "text/csv")
	if err != nil {
		t.Fatal(err)
	}
	job := &Job{
		ID:       "job-" + fileName,
		TenantID: "tenant-1",
		Entity:   entity,
		Mode:     mode,
		Status:   StatusQueued,
		FileRef:  ref,
		FileName: fileName,
	}
	if err := jobs.CreateImportJob(ctx, job); err != nil {
		t.Fatal(err)
	}
	return job
}
