package storage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"parchi/internal/log"
)

func backends(t *testing.T) map[string]BlobStore {
	t.Helper()
	dir := t.TempDir()

	fs, err := NewFileStore(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	db, err := NewSQLiteStore(filepath.Join(dir, "db", "test.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]BlobStore{
		"memory": NewMemoryStore(),
		"file":   fs,
		"sqlite": db,
	}
}

func TestBlobStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Load(ctx, "parchi_pro_v11"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Load on empty store = %v, want ErrNotFound", err)
			}

			first := []byte(`[{"id":"1"}]`)
			second := []byte(`[]`)
			if err := s.Save(ctx, "parchi_pro_v11", first); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if err := s.Save(ctx, "parchi_pro_v11", second); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := s.Load(ctx, "parchi_pro_v11")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !bytes.Equal(got, second) {
				t.Errorf("Load = %s, want %s", got, second)
			}

			if err := s.Save(ctx, "../escape", first); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Save with bad key = %v, want ErrInvalidKey", err)
			}
		})
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	data := []byte("abc")
	if err := s.Save(ctx, "k", data); err != nil {
		t.Fatal(err)
	}
	data[0] = 'z'
	got, _ := s.Load(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value changed with caller slice: %s", got)
	}
	if s.Saves() != 1 {
		t.Errorf("Saves() = %d", s.Saves())
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), "ledger", []byte("[]")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "ledger.json" {
		t.Errorf("unexpected files: %v", entries)
	}
}

func TestSQLiteStoreVersionsAndHistory(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "parchi.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if v, err := s.Version(ctx, "k"); err != nil || v != 0 {
		t.Fatalf("Version on empty = %d, %v", v, err)
	}
	if _, err := s.Previous(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Previous on empty = %v", err)
	}

	for i := 0; i < historyDepth+5; i++ {
		if err := s.Save(ctx, "k", []byte{byte('a' + i%26)}); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	v, err := s.Version(ctx, "k")
	if err != nil || v != historyDepth+5 {
		t.Fatalf("Version = %d, %v", v, err)
	}
	prev, err := s.Previous(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if want := byte('a' + (historyDepth+3)%26); len(prev) != 1 || prev[0] != want {
		t.Errorf("Previous = %q, want %q", prev, want)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_history WHERE key = ?`, "k").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != historyDepth {
		t.Errorf("history rows = %d, want %d", n, historyDepth)
	}

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	s, err := NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	v, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 2 || dirty {
		t.Errorf("SchemaVersion = %d dirty=%v, want 2 clean", v, dirty)
	}
	if err := RunMigrations(path); err != nil {
		t.Errorf("re-running migrations: %v", err)
	}
}

func TestSQLiteStoreLogsThroughInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewText(&buf, slog.LevelDebug, log.ComponentApp)
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "logged.db"), logger)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Save(context.Background(), "ledger", []byte("[]")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"component=storage", "storage_key=ledger", "bytes=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}
