// Package blob stores photo payloads as named objects in one flat scope
// (a directory on disk, a bucket prefix in S3, or a map in tests).
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Read and Delete when the named object is absent.
	ErrNotFound = errors.New("blob: not found")

	// ErrInvalidName is returned for names that are empty or contain path separators.
	ErrInvalidName = errors.New("blob: invalid name")
)

// Store reads and writes named binary objects.
// Implementations must be safe for concurrent use.
type Store interface {
	// Write stores data under name, replacing any existing object, and
	// returns the storage URI of the object.
	Write(ctx context.Context, name string, data []byte) (string, error)

	// Read returns the object's bytes or an error wrapping ErrNotFound.
	Read(ctx context.Context, name string) ([]byte, error)

	// Delete removes the object or returns an error wrapping ErrNotFound.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored objects.
	List(ctx context.Context) ([]string, error)
}

// ValidateName rejects names that would escape the store's flat scope.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
