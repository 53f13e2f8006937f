package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	ctx := context.Background()

	s, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "webhook-security-violations", []byte("3")); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	reopened, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Get(ctx, "webhook-security-violations")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "3" {
		t.Errorf("Get() after reopen = %q, want %q", got, "3")
	}
}

func TestFileStore_CorruptedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore() on corrupted file error = %v, want nil", err)
	}
	got, err := s.Get(context.Background(), "anything")
	if err != nil || got != nil {
		t.Fatalf("Get() = %q, %v; want nil, nil", got, err)
	}

	// The next write replaces the corrupted document.
	if err := s.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	reopened, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := reopened.Get(context.Background(), "k"); string(v) != "v" {
		t.Errorf("Get() after repair = %q, want %q", v, "v")
	}
}

func TestFileStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "state.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		_ = s.Set(context.Background(), "k", []byte("v"))
	}
	_ = s.Delete(context.Background(), "k")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v, want only state.json", names)
	}
}

func TestFileStore_RequiresPath(t *testing.T) {
	if _, err := NewFileStore("", nil); err == nil {
		t.Error("empty path should be rejected")
	}
}
