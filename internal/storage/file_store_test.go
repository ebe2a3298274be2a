package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileStore(t *testing.T) {
	root := filepath.Join(t.TempDir(), "audio")
	if _, err := NewFileStore(root); err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		t.Fatalf("root not created: %v", err)
	}

	if _, err := NewFileStore("   "); err == nil {
		t.Fatalf("expected error for blank root")
	}
}

func TestSaveAndOpen(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	data := []byte("RIFF fake audio")

	path, size, err := store.Save(ctx, "Job-1.wav", data)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len(data)) {
		t.Fatalf("size = %d, want %d", size, len(data))
	}
	// Sharded by the lowercased first two characters of the name.
	wantDir := filepath.Join(store.Root, "jo")
	if filepath.Dir(path) != wantDir {
		t.Fatalf("path = %q, want dir %q", path, wantDir)
	}

	f, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	got, _ := io.ReadAll(f)
	if string(got) != string(data) {
		t.Fatalf("read back %q, want %q", got, data)
	}

	// No stray temp files.
	entries, _ := os.ReadDir(wantDir)
	if len(entries) != 1 {
		t.Fatalf("shard dir has %d entries, want 1", len(entries))
	}
}

func TestSave_Overwrite(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	if _, _, err := store.Save(ctx, "x.wav", []byte("one")); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	path, _, err := store.Save(ctx, "x.wav", []byte("two"))
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "two" {
		t.Fatalf("overwrite read back %q", got)
	}
}

func TestSave_RejectsBadNames(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	for _, name := range []string{"", "../escape.wav", "a/b.wav", `a\b.wav`} {
		if _, _, err := store.Save(ctx, name, []byte("x")); err == nil {
			t.Errorf("Save(%q) succeeded, want error", name)
		}
	}
}

func TestSave_CancelledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := store.Save(ctx, "x.wav", []byte("x")); err == nil {
		t.Fatalf("Save with cancelled context succeeded")
	}
}

func TestOpen_RejectsEscape(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	outside := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatalf("write outside file: %v", err)
	}

	if _, err := store.Open(outside); err == nil || !strings.Contains(err.Error(), "escapes") {
		t.Fatalf("Open outside root err = %v, want escape error", err)
	}
	if _, err := store.Open(filepath.Join(store.Root, "..", "secret.txt")); err == nil {
		t.Fatalf("Open with .. traversal succeeded")
	}
}

func TestRemove(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	path, _, err := store.Save(context.Background(), "x.wav", []byte("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := store.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("blob still present after Remove")
	}
	// Missing files are tolerated.
	if err := store.Remove(path); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}
