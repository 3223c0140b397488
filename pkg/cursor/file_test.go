package cursor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_LoadAbsentReturnsZero(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "cursor.txt"))
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}

	value, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() on missing file failed: %v", err)
	}
	if value != 0 {
		t.Errorf("Load() = %d, want 0 for first run", value)
	}
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "cursor.txt"))
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, 28457823); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	value, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if value != 28457823 {
		t.Errorf("Load() = %d, want 28457823", value)
	}
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "cursor.txt"))
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, 100); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := store.Save(ctx, 200); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	value, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if value != 200 {
		t.Errorf("Load() = %d, want 200", value)
	}
}

func TestFileStore_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nested", "cursor.txt")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}

	if err := store.Save(context.Background(), 1); err != nil {
		t.Fatalf("Save() into fresh directory failed: %v", err)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.txt")
	if err := os.WriteFile(path, []byte("not a number"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}

	if _, err := store.Load(context.Background()); err == nil {
		t.Error("Load() on corrupt file should fail")
	}
}

func TestFileStore_TrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.txt")
	if err := os.WriteFile(path, []byte("  42\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}

	value, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if value != 42 {
		t.Errorf("Load() = %d, want 42", value)
	}
}

func TestNewFileStore_EmptyPath(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("Expected error for empty path")
	}
}
