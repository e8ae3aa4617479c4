package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(filepath.Join(t.TempDir(), "blobs"), "/files/")
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	ref, err := l.UploadBytes(ctx, []byte("hello"), "imports/t1/crew.csv", "text/csv")
	if err != nil {
		t.Fatal(err)
	}
	if ref != "file://imports/t1/crew.csv" {
		t.Fatalf("ref = %q", ref)
	}

	local, err := l.DownloadToLocal(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	content, err := os.ReadFile(local)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "hello" {
		t.Fatalf("content = %q", content)
	}
}

func TestUploadRejectsEscapingPath(t *testing.T) {
	l := newTestLocal(t)
	if _, err := l.UploadBytes(context.Background(), []byte("x"), "../outside.txt", ""); err == nil {
		t.Fatal("expected error for path escaping the root")
	}
}

func TestDownloadErrors(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	if _, err := l.DownloadToLocal(ctx, "s3://bucket/key"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("err = %v, want ErrUnsupportedScheme", err)
	}
	if _, err := l.DownloadToLocal(ctx, "file://missing.xlsx"); err == nil {
		t.Fatal("expected error for missing blob")
	}
	if _, err := l.DownloadToLocal(ctx, "file://../../etc/passwd"); err == nil {
		t.Fatal("expected error for escaping reference")
	}
}

func TestSignedURL(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	url, err := l.SignedURL(ctx, "file://exports/t1/export crew v1.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if url != "/files/exports/t1/export%20crew%20v1.xlsx" {
		t.Fatalf("url = %q", url)
	}
	if _, err := l.SignedURL(ctx, "gs://bucket/key"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("err = %v, want ErrUnsupportedScheme", err)
	}
}

func TestOpenStaysUnderRoot(t *testing.T) {
	l := newTestLocal(t)
	ref, err := l.UploadBytes(context.Background(), []byte("x"), "reports/errs.xlsx", "")
	if err != nil {
		t.Fatal(err)
	}
	full, err := l.Open(ref)
	if err != nil {
		t.Fatal(err)
	}
	rel, err := filepath.Rel(l.root, full)
	if err != nil || rel != filepath.FromSlash("reports/errs.xlsx") {
		t.Fatalf("rel = %q, %v", rel, err)
	}
}
