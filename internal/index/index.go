// Package index provides the durable key/value store that holds the
// serialized photo list. Only Get and Set are needed by the gallery; each
// backend stores opaque byte values under string keys.
//
// Backends: Memory (tests), File (one JSON document), Badger (default
// on-disk), Bolt, Pebble and SQL (postgres or sqlite through database/sql).
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key has never been set.
var ErrNotFound = errors.New("index: not found")

// Store is a minimal durable key/value store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases resources held by the store.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendBadger   = "badger"
	BackendBolt     = "bolt"
	BackendPebble   = "pebble"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Backends lists every backend name Open understands.
var Backends = []string{BackendMemory, BackendFile, BackendBadger, BackendBolt, BackendPebble, BackendPostgres, BackendSQLite}

// Options selects and configures a backend for Open.
type Options struct {
	Backend string
	// Path is the directory (badger, pebble) or file (file, bolt, sqlite).
	Path string
	// DSN is the postgres connection string.
	DSN string
}

// Open creates the Store described by opts.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendMemory:
		return NewMemory(), nil
	case BackendBadger, "":
		return NewBadger(BadgerOptions{Dir: opts.Path})
	case BackendFile:
		return NewFile(opts.Path)
	case BackendBolt:
		return NewBolt(opts.Path)
	case BackendPebble:
		return NewPebble(opts.Path)
	case BackendPostgres:
		return OpenPostgres(opts.DSN)
	case BackendSQLite:
		return OpenSQLite(opts.Path)
	default:
		return nil, fmt.Errorf("index: unknown backend %q", opts.Backend)
	}
}
