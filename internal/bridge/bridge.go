// Package bridge rewrites durable storage URIs into locators a client can
// render in-process.
package bridge

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Converter turns a storage URI returned by a blob store into a renderable URI.
type Converter interface {
	RenderableURI(ctx context.Context, storageURI string) (string, error)
}

// Func adapts a plain function to Converter.
type Func func(ctx context.Context, storageURI string) (string, error)

func (f Func) RenderableURI(ctx context.Context, storageURI string) (string, error) {
	return f(ctx, storageURI)
}

// FileServer maps file:// URIs under Root onto BaseURL + Prefix, matching the
// route the HTTP layer serves the blob directory from.
type FileServer struct {
	Root    string
	BaseURL string
	Prefix  string
}

func (f FileServer) RenderableURI(_ context.Context, storageURI string) (string, error) {
	u, err := url.Parse(storageURI)
	if err != nil {
		return "", fmt.Errorf("bridge: parse %q: %w", storageURI, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("bridge: unsupported scheme %q", u.Scheme)
	}
	root := filepath.ToSlash(f.Root)
	rel := strings.TrimPrefix(u.Path, strings.TrimSuffix(root, "/")+"/")
	if rel == u.Path {
		return "", fmt.Errorf("bridge: %s is outside %s", u.Path, root)
	}
	return strings.TrimSuffix(f.BaseURL, "/") + path.Join("/", f.Prefix, rel), nil
}
