package bulk

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterUpload_Accepts(t *testing.T) {
	registerCrewEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := newTestService(store, blobs)

	job, err := svc.RegisterUpload(context.Background(), "tenant-1", "crew",
		ModeUpsert, "team.csv", []byte("Name,Email\nAna,ana@x.com\n"), "user-1")
	if err != nil {
		t.Fatalf("RegisterUpload() error = %v", err)
	}

	if job.Status != StatusQueued {
		t.Errorf("status = %s, want %s", job.Status, StatusQueued)
	}
	if job.FileHash == "" || job.FileRef == "" {
		t.Error("hash and file ref must be set")
	}
	if job.TemplateVersion != "v1" {
		t.Errorf("template version = %q, want v1", job.TemplateVersion)
	}
	if _, err := store.GetImportJob(context.Background(), "tenant-1", job.ID); err != nil {
		t.Errorf("job not persisted: %v", err)
	}
}

func TestRegisterUpload_Rejections(t *testing.T) {
	registerCrewEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := NewService(store, store, blobs, Options{MaxFileSize: 64})

	tests := []struct {
		name     string
		entity   string
		mode     Mode
		fileName string
		content  []byte
		wantErr  error
	}{
		{"unknown entity", "starships", ModeUpsert, "a.csv", []byte("x"), ErrUnknownEntity},
		{"unsupported extension", "crew", ModeUpsert, "a.pdf", []byte("x"), ErrUnsupportedFormat},
		{"empty file", "crew", ModeUpsert, "a.csv", nil, ErrEmptyFile},
		{"oversized file", "crew", ModeUpsert, "a.csv", make([]byte, 65), ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterUpload(context.Background(), "tenant-1", tt.entity,
				tt.mode, tt.fileName, tt.content, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("invalid mode", func(t *testing.T) {
		_, err := svc.RegisterUpload(context.Background(), "tenant-1", "crew",
			Mode("replace"), "a.csv", []byte("x"), "")
		if err == nil {
			t.Error("expected error for invalid mode")
		}
	})
}

func TestRegisterUpload_DuplicateHash(t *testing.T) {
	registerCrewEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := newTestService(store, blobs)

	content := []byte("Name,Email\nAna,ana@x.com\n")
	job, err := svc.RegisterUpload(context.Background(), "tenant-1", "crew",
		ModeUpsert, "one.csv", content, "")
	if err != nil {
		t.Fatal(err)
	}

	// Same bytes while the first job is still active.
	_, err = svc.RegisterUpload(context.Background(), "tenant-1", "crew",
		ModeUpsert, "two.csv", content, "")
	if !errors.Is(err, ErrImportInFlight) {
		t.Errorf("active duplicate: error = %v, want ErrImportInFlight", err)
	}

	job.Status = StatusCompleted
	if err := store.UpdateImportJob(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	_, err = svc.RegisterUpload(context.Background(), "tenant-1", "crew",
		ModeUpsert, "three.csv", content, "")
	if !errors.Is(err, ErrDuplicateFile) {
		t.Errorf("completed duplicate: error = %v, want ErrDuplicateFile", err)
	}

	// Different tenant, same bytes: accepted.
	if _, err := svc.RegisterUpload(context.Background(), "tenant-2", "crew",
		ModeUpsert, "four.csv", content, ""); err != nil {
		t.Errorf("other tenant rejected: %v", err)
	}
}

func TestConfirm(t *testing.T) {
	registerCrewEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := newTestService(store, blobs)

	job := newTestJob(t, blobs, store, "crew", "c1.csv", "Name,Email\nAna,ana@x.com\n", ModeUpsert)
	job.Status = StatusReadyToConfirm
	store.UpdateImportJob(context.Background(), job)

	if err := svc.Confirm(context.Background(), job); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if job.Status != StatusQueued {
		t.Errorf("status = %s, want %s", job.Status, StatusQueued)
	}
}

func TestConfirm_RequiresCleanValidation(t *testing.T) {
	registerCrewEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := newTestService(store, blobs)

	job := newTestJob(t, blobs, store, "crew", "c2.csv", "Name,Email\nAna,bad\n", ModeUpsert)
	job.Status = StatusFailed

	err := svc.Confirm(context.Background(), job)
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Confirm() error = %v, want StateError", err)
	}
}

func TestConfirm_BlockedByActiveImport(t *testing.T) {
	registerCrewEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := newTestService(store, blobs)

	other := newTestJob(t, blobs, store, "crew", "other.csv", "Name,Email\nX,x@x.com\n", ModeUpsert)
	other.Status = StatusRunning
	store.UpdateImportJob(context.Background(), other)

	job := newTestJob(t, blobs, store, "crew", "mine.csv", "Name,Email\nAna,ana@x.com\n", ModeUpsert)
	job.Status = StatusReadyToConfirm
	store.UpdateImportJob(context.Background(), job)

	if err := svc.Confirm(context.Background(), job); !errors.Is(err, ErrEntityImportActive) {
		t.Errorf("Confirm() error = %v, want ErrEntityImportActive", err)
	}
}

func TestCreateExportJob(t *testing.T) {
	registerCrewEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := newTestService(store, blobs)

	job, err := svc.CreateExportJob(context.Background(), "tenant-1", "crew", "user-1")
	if err != nil {
		t.Fatalf("CreateExportJob() error = %v", err)
	}
	if job.Status != StatusQueued || job.Entity != "crew" {
		t.Errorf("job = %+v, want queued crew export", job)
	}

	if _, err := svc.CreateExportJob(context.Background(), "tenant-1", "starships", ""); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("unknown entity: error = %v, want ErrUnknownEntity", err)
	}
}
