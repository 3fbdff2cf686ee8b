package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/radius-gateway/radius-gateway/internal/config"
)

func newLocalStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := New(&config.LocalStorageConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatal("New:", err)
	}
	return s
}

// put uploads content and fails the test on error.
func put(t *testing.T, s *LocalStorage, path, content string) {
	t.Helper()
	if _, err := s.Upload(context.Background(), path, strings.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("Upload(%s): %v", path, err)
	}
}

func TestNew_CreatesBasePath(t *testing.T) {
	base := filepath.Join(t.TempDir(), "artifacts", "batches")

	if _, err := New(&config.LocalStorageConfig{BasePath: base}); err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := os.Stat(base); err != nil {
		t.Errorf("base path was not created: %v", err)
	}
}

func TestUpload_ResultFields(t *testing.T) {
	s := newLocalStorage(t)

	const path = "batches/org-1/batch-1/credentials.csv"
	csv := "username,password\nuser-001,pw1\nuser-002,pw2\n"

	result, err := s.Upload(context.Background(), path, strings.NewReader(csv), int64(len(csv)))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if result.Path != path {
		t.Errorf("Path = %q, want %q", result.Path, path)
	}
	if result.Size != int64(len(csv)) {
		t.Errorf("Size = %d, want %d", result.Size, len(csv))
	}
	if len(result.Checksum) != 64 {
		t.Errorf("Checksum = %q, want 64 hex chars", result.Checksum)
	}
}

func TestUpload_CreatesIntermediateDirs(t *testing.T) {
	s := newLocalStorage(t)

	put(t, s, "batches/org-2/batch-9/sheet.pdf", "pdf bytes")

	onDisk := filepath.Join(s.basePath, "batches", "org-2", "batch-9", "sheet.pdf")
	if _, err := os.Stat(onDisk); err != nil {
		t.Errorf("file missing at nested path: %v", err)
	}
}

func TestUpload_ChecksumStableAcrossRewrites(t *testing.T) {
	s := newLocalStorage(t)
	ctx := context.Background()

	const body = "username,password\nuser-001,pw\n"
	r1, _ := s.Upload(ctx, "again.csv", strings.NewReader(body), int64(len(body)))
	if err := s.Delete(ctx, "again.csv"); err != nil {
		t.Fatal("Delete:", err)
	}
	r2, _ := s.Upload(ctx, "again.csv", strings.NewReader(body), int64(len(body)))

	if r1.Checksum != r2.Checksum {
		t.Errorf("checksums differ for identical content: %q vs %q", r1.Checksum, r2.Checksum)
	}
}

func TestDownload_RoundTrip(t *testing.T) {
	s := newLocalStorage(t)

	const want = "stored artifact"
	put(t, s, "rt.csv", want)

	rc, err := s.Download(context.Background(), "rt.csv")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	if string(got) != want {
		t.Errorf("Download = %q, want %q", got, want)
	}
}

func TestDownload_Missing(t *testing.T) {
	s := newLocalStorage(t)

	if _, err := s.Download(context.Background(), "never-uploaded.csv"); err == nil {
		t.Error("Download() = nil error for missing file")
	}
}

func TestDelete_RemovesFile(t *testing.T) {
	s := newLocalStorage(t)
	ctx := context.Background()

	put(t, s, "tmp.csv", "short lived")

	if err := s.Delete(ctx, "tmp.csv"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if ok, _ := s.Exists(ctx, "tmp.csv"); ok {
		t.Error("Exists = true after Delete")
	}
}

func TestDelete_MissingIsNoop(t *testing.T) {
	s := newLocalStorage(t)

	if err := s.Delete(context.Background(), "never-uploaded.csv"); err != nil {
		t.Errorf("Delete(missing) = %v, want nil", err)
	}
}

func TestDelete_PrunesEmptyParents(t *testing.T) {
	s := newLocalStorage(t)
	ctx := context.Background()

	put(t, s, "batches/org-3/only.csv", "x")

	if err := s.Delete(ctx, "batches/org-3/only.csv"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.basePath, "batches", "org-3")); !os.IsNotExist(err) {
		t.Error("empty parent directory was not pruned")
	}
}

func TestExists(t *testing.T) {
	s := newLocalStorage(t)
	ctx := context.Background()

	if ok, err := s.Exists(ctx, "ghost.csv"); err != nil || ok {
		t.Errorf("Exists(missing) = (%v, %v), want (false, nil)", ok, err)
	}

	put(t, s, "present.csv", "data")

	if ok, err := s.Exists(ctx, "present.csv"); err != nil || !ok {
		t.Errorf("Exists(present) = (%v, %v), want (true, nil)", ok, err)
	}
}
