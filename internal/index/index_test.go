package index_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aipowergrid/aipg-photo-gallery/internal/index"
)

// backends returns a fresh store per backend that runs without external services.
func backends(t *testing.T) map[string]func(t *testing.T) index.Store {
	t.Helper()
	return map[string]func(t *testing.T) index.Store{
		"memory": func(t *testing.T) index.Store {
			return index.NewMemory()
		},
		"badger": func(t *testing.T) index.Store {
			s, err := index.NewBadger(index.BadgerOptions{InMemory: true})
			if err != nil {
				t.Fatalf("NewBadger: %v", err)
			}
			return s
		},
		"file": func(t *testing.T) index.Store {
			s, err := index.NewFile(filepath.Join(t.TempDir(), "index.json"))
			if err != nil {
				t.Fatalf("NewFile: %v", err)
			}
			return s
		},
		"bolt": func(t *testing.T) index.Store {
			s, err := index.NewBolt(filepath.Join(t.TempDir(), "index.db"))
			if err != nil {
				t.Fatalf("NewBolt: %v", err)
			}
			return s
		},
		"pebble": func(t *testing.T) index.Store {
			s, err := index.NewPebble(filepath.Join(t.TempDir(), "pebble"))
			if err != nil {
				t.Fatalf("NewPebble: %v", err)
			}
			return s
		},
		"sqlite": func(t *testing.T) index.Store {
			s, err := index.OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			return s
		},
	}
}

func TestGetSet(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			t.Cleanup(func() { s.Close() })

			// Get non-existent key.
			if _, err := s.Get(ctx, "photos"); !errors.Is(err, index.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			if err := s.Set(ctx, "photos", []byte(`[{"filepath":"1.jpeg"}]`)); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := s.Get(ctx, "photos")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != `[{"filepath":"1.jpeg"}]` {
				t.Fatalf("Get = %q", got)
			}

			// Overwrite.
			if err := s.Set(ctx, "photos", []byte(`[]`)); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, err = s.Get(ctx, "photos")
			if err != nil {
				t.Fatalf("Get after overwrite: %v", err)
			}
			if string(got) != `[]` {
				t.Fatalf("Get = %q, want []", got)
			}

			// Other keys stay independent.
			if _, err := s.Get(ctx, "photo"); !errors.Is(err, index.ErrNotFound) {
				t.Fatalf("expected ErrNotFound for sibling key, got %v", err)
			}
		})
	}
}

func TestReopenPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		opts index.Options
	}{
		{"badger", index.Options{Backend: index.BackendBadger, Path: filepath.Join(dir, "badger")}},
		{"file", index.Options{Backend: index.BackendFile, Path: filepath.Join(dir, "index.json")}},
		{"bolt", index.Options{Backend: index.BackendBolt, Path: filepath.Join(dir, "index.db")}},
		{"pebble", index.Options{Backend: index.BackendPebble, Path: filepath.Join(dir, "pebble")}},
		{"sqlite", index.Options{Backend: index.BackendSQLite, Path: filepath.Join(dir, "index.sqlite")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := index.Open(tc.opts)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if err := s.Set(ctx, "photos", []byte("persisted")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			s, err = index.Open(tc.opts)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer s.Close()
			got, err := s.Get(ctx, "photos")
			if err != nil {
				t.Fatalf("Get after reopen: %v", err)
			}
			if string(got) != "persisted" {
				t.Fatalf("Get = %q, want %q", got, "persisted")
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := index.Open(index.Options{Backend: "etcd"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := index.NewMemory()
	if err := s.Set(ctx, "k", []byte("abc")); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, "k")
	got[0] = 'x'
	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated: %q", again)
	}
}

func TestFileRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := index.NewFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}
