package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File keeps every key in one JSON document on disk, rewritten on each Set.
// Suitable for small indexes and for inspecting the stored list by hand.
type File struct {
	mu       sync.RWMutex
	data     map[string][]byte
	filePath string
}

// NewFile opens the JSON document at path, starting empty if it does not
// exist yet.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("index: file backend needs a path")
	}
	f := &File{
		data:     make(map[string][]byte),
		filePath: path,
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	v, ok := f.data[key]
	f.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// Set updates memory only after the document has been written.
func (f *File) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make(map[string][]byte, len(f.data)+1)
	for k, v := range f.data {
		next[k] = v
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	next[key] = cp

	if err := f.save(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

func (f *File) Close() error {
	return nil
}

func (f *File) load() error {
	data, err := os.ReadFile(f.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &f.data); err != nil {
		return fmt.Errorf("failed to parse index file %s: %w", f.filePath, err)
	}
	return nil
}

// save writes through a temp file so a crash never leaves a torn document.
func (f *File) save(data map[string][]byte) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	dir := filepath.Dir(f.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".index-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.filePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

var _ Store = (*File)(nil)
