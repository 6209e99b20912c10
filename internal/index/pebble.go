package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

const pebblePrefix = "index:"

// Pebble is a Store backed by a Pebble LSM directory.
type Pebble struct {
	db *pebble.DB
}

// NewPebble opens (or creates) the Pebble database in dir.
func NewPebble(dir string) (*Pebble, error) {
	if dir == "" {
		return nil, fmt.Errorf("index: pebble directory is required")
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) key(key string) []byte {
	return []byte(pebblePrefix + key)
}

func (p *Pebble) Get(_ context.Context, key string) ([]byte, error) {
	data, closer, err := p.db.Get(p.key(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer closer.Close()

	// data is only valid until closer.Close().
	val := make([]byte, len(data))
	copy(val, data)
	return val, nil
}

func (p *Pebble) Set(_ context.Context, key string, value []byte) error {
	if err := p.db.Set(p.key(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (p *Pebble) Close() error {
	return p.db.Close()
}
