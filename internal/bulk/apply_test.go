package bulk

import (
	"context"
	"errors"
	"testing"
)

func TestRun_CreatesAndUpdates(t *testing.T) {
	registerCrewEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := newTestService(store, blobs)

	store.SaveEmployee(context.Background(), &Employee{
		TenantID: "tenant-1", Name: "Old Ana", Email: "ana@x.com",
	})

	content := "Name,Email\nAna,ana@x.com\nBeto,beto@x.com\nCaro,caro@x.com\n"
	job := newTestJob(t, blobs, store, "crew", "run.csv", content, ModeUpsert)

	summary, err := svc.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Created != 2 || summary.Updated != 1 || summary.Skipped != 0 {
		t.Errorf("summary = %+v, want created=2 updated=1 skipped=0", summary)
	}
	if job.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", job.Status, StatusCompleted)
	}
	if job.StartedAt == nil || job.FinishedAt == nil {
		t.Error("timestamps should be set")
	}
	if len(store.employees) != 3 {
		t.Errorf("employees = %d, want 3", len(store.employees))
	}
	id, _ := store.FindEmployeeIDByEmail(context.Background(), "tenant-1", "ana@x.com")
	if store.employees[id].Name != "Ana" {
		t.Errorf("updated name = %q, want %q", store.employees[id].Name, "Ana")
	}
}

func TestRun_ModeSkips(t *testing.T) {
	registerCrewEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := newTestService(store, blobs)

	store.SaveEmployee(context.Background(), &Employee{
		TenantID: "tenant-1", Name: "Old Ana", Email: "ana@x.com",
	})
	content := "Name,Email\nAna,ana@x.com\nBeto,beto@x.com\n"

	t.Run("create_only keeps existing untouched", func(t *testing.T) {
		job := newTestJob(t, blobs, store, "crew", "co.csv", content, ModeCreateOnly)
		summary, err := svc.Run(context.Background(), job)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if summary.Created != 1 || summary.Skipped != 1 {
			t.Errorf("summary = %+v, want created=1 skipped=1", summary)
		}
		id, _ := store.FindEmployeeIDByEmail(context.Background(), "tenant-1", "ana@x.com")
		if store.employees[id].Name != "Old Ana" {
			t.Errorf("existing record was modified: %q", store.employees[id].Name)
		}
	})

	t.Run("update_only ignores new rows", func(t *testing.T) {
		store := newFakeStore()
		store.SaveEmployee(context.Background(), &Employee{
			TenantID: "tenant-1", Name: "Old Ana", Email: "ana@x.com",
		})
		svc := newTestService(store, blobs)

		job := newTestJob(t, blobs, store, "crew", "uo.csv", content, ModeUpdateOnly)
		summary, err := svc.Run(context.Background(), job)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if summary.Updated != 1 || summary.Skipped != 1 {
			t.Errorf("summary = %+v, want updated=1 skipped=1", summary)
		}
		if len(store.employees) != 1 {
			t.Errorf("employees = %d, want 1 (no creates in update_only)", len(store.employees))
		}
	})
}

func TestRun_ChunksCommitSeparately(t *testing.T) {
	registerCrewEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := newTestService(store, blobs) // ChunkSize: 2

	content := "Name,Email\n" +
		"A,a@x.com\nB,b@x.com\nC,c@x.com\nD,d@x.com\nE,e@x.com\n"
	job := newTestJob(t, blobs, store, "crew", "chunks.csv", content, ModeUpsert)

	summary, err := svc.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Created != 5 {
		t.Errorf("created = %d, want 5", summary.Created)
	}
	// 5 rows at chunk size 2: two full chunks plus the remainder.
	if store.txCount != 3 {
		t.Errorf("transactions = %d, want 3", store.txCount)
	}
}

func TestRun_UpsertIsIdempotent(t *testing.T) {
	registerCrewEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := newTestService(store, blobs)

	content := "Name,Email\nAna,ana@x.com\nBeto,beto@x.com\nCaro,caro@x.com\n"
	job := newTestJob(t, blobs, store, "crew", "rerun.csv", content, ModeUpsert)

	if _, err := svc.Run(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	job.Status = StatusQueued
	summary, err := svc.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	// every row now matches a persisted record, so the re-run only updates
	if summary.Created != 0 || summary.Updated != 3 || summary.Skipped != 0 {
		t.Errorf("summary = %+v, want created=0 updated=3 skipped=0", summary)
	}
	if len(store.employees) != 3 {
		t.Errorf("employees = %d, want 3 (no duplicates on re-run)", len(store.employees))
	}
}

func TestRun_CompositeGroupsWholeFile(t *testing.T) {
	registerInspectionEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := newTestService(store, blobs) // ChunkSize 2 must not split groups

	content := "Title,Version,Question\n" +
		"Safety,1,Hardhat on?\n" +
		"Electrical,1,Breaker off?\n" +
		"Safety,1,Boots on?\n" +
		"Safety,1,Gloves on?\n"
	job := newTestJob(t, blobs, store, "inspections", "groups.csv", content, ModeUpsert)

	summary, err := svc.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Created != 2 {
		t.Errorf("created = %d, want 2 checklists", summary.Created)
	}
	if len(store.replaceCalls) != 2 {
		t.Fatalf("ReplaceChecklist calls = %d, want 2", len(store.replaceCalls))
	}
	// First-seen group order, rows in file order within the group.
	first := store.replaceCalls[0]
	if len(first) != 3 || first[0].Question != "Hardhat on?" || first[2].Question != "Gloves on?" {
		t.Errorf("first group items = %+v, want the three Safety questions in file order", first)
	}
	if len(store.replaceCalls[1]) != 1 {
		t.Errorf("second group items = %d, want 1", len(store.replaceCalls[1]))
	}
}

func TestRun_CompositeReplaceIsIdempotent(t *testing.T) {
	registerInspectionEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := newTestService(store, blobs)

	content := "Title,Version,Question\nSafety,1,Hardhat on?\nSafety,1,Boots on?\n"
	job := newTestJob(t, blobs, store, "inspections", "idem.csv", content, ModeUpsert)

	if _, err := svc.Run(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	job.Status = StatusQueued
	summary, err := svc.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if summary.Updated != 1 || summary.Created != 0 {
		t.Errorf("summary = %+v, want updated=1 on re-run", summary)
	}
	if len(store.checklists) != 1 {
		t.Errorf("checklists = %d, want 1", len(store.checklists))
	}
	for _, items := range store.items {
		if len(items) != 2 {
			t.Errorf("items = %d, want 2 (replace, not append)", len(items))
		}
	}
}

func TestRun_WrongState(t *testing.T) {
	registerCrewEntity(t)
	store := newFakeStore()
	blobs := newFakeBlob(t)
	svc := newTestService(store, blobs)

	job := newTestJob(t, blobs, store, "crew", "state.csv", "Name,Email\nAna,ana@x.com\n", ModeUpsert)
	job.Status = StatusReadyToConfirm

	_, err := svc.Run(context.Background(), job)
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Run() error = %v, want StateError", err)
	}
}
