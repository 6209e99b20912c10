package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aipowergrid/aipg-photo-gallery/internal/blob"
	"github.com/aipowergrid/aipg-photo-gallery/internal/bridge"
	"github.com/aipowergrid/aipg-photo-gallery/internal/capture"
	"github.com/aipowergrid/aipg-photo-gallery/internal/encoding"
)

// Platform classifies the host runtime. It is fixed for the life of a Manager.
type Platform string

const (
	// Native hosts have direct filesystem access; photos are stored as raw
	// bytes and rendered through a URI bridge.
	Native Platform = "native"
	// Browser hosts only see transient capture URIs; photos are stored as
	// base64 text and rendered as data URIs.
	Browser Platform = "browser"
)

// ParsePlatform parses "native" or "browser" (case-insensitive).
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case Native, Browser:
		return p, nil
	default:
		return "", fmt.Errorf("gallery: unknown platform %q", s)
	}
}

// DataURIFetcher resolves a transient URI into a base64 data URI.
type DataURIFetcher interface {
	DataURI(ctx context.Context, uri string) (string, error)
}

// strategy holds everything that differs between platforms.
type strategy interface {
	// payload returns the bytes to store for a capture.
	payload(ctx context.Context, res capture.Result) ([]byte, error)
	// record builds the in-memory record for a stored capture.
	record(ctx context.Context, name, storageURI string, res capture.Result) PhotoRecord
	// materialize rebuilds a record read back from the index.
	materialize(ctx context.Context, rec PhotoRecord) (PhotoRecord, error)
}

type nativeStrategy struct {
	converter bridge.Converter
	logger    *slog.Logger
}

func (s nativeStrategy) payload(_ context.Context, res capture.Result) ([]byte, error) {
	if res.Path == "" {
		return nil, errors.New("gallery: native capture returned no path")
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, ioError("read capture", err)
	}
	return data, nil
}

// record keeps the photo even if the bridge fails; the bytes are already durable.
func (s nativeStrategy) record(ctx context.Context, _, storageURI string, _ capture.Result) PhotoRecord {
	rec := PhotoRecord{Filepath: storageURI}
	display, err := s.converter.RenderableURI(ctx, storageURI)
	if err != nil {
		s.logger.Warn("no renderable URI for photo", "filepath", storageURI, "error", err)
		return rec
	}
	rec.DisplayPath = display
	return rec
}

func (s nativeStrategy) materialize(_ context.Context, rec PhotoRecord) (PhotoRecord, error) {
	return PhotoRecord{Filepath: rec.Filepath}, nil
}

type browserStrategy struct {
	fetcher DataURIFetcher
	blobs   blob.Store
}

func (s browserStrategy) payload(ctx context.Context, res capture.Result) ([]byte, error) {
	if res.TransientURI == "" {
		return nil, errors.New("gallery: browser capture returned no URI")
	}
	dataURI, err := s.fetcher.DataURI(ctx, res.TransientURI)
	if err != nil {
		if errors.Is(err, ErrDecode) {
			return nil, fmt.Errorf("gallery: encode capture: %w", err)
		}
		return nil, ioError("fetch capture", err)
	}
	_, b64, err := encoding.SplitDataURI(dataURI)
	if err != nil {
		return nil, fmt.Errorf("gallery: encode capture: %w", err)
	}
	return []byte(b64), nil
}

// record reuses the still-live transient URI instead of decoding again.
func (s browserStrategy) record(_ context.Context, name, _ string, res capture.Result) PhotoRecord {
	return PhotoRecord{Filepath: name, DisplayPath: res.TransientURI}
}

func (s browserStrategy) materialize(ctx context.Context, rec PhotoRecord) (PhotoRecord, error) {
	data, err := s.blobs.Read(ctx, rec.BlobName())
	if err != nil {
		return PhotoRecord{}, ioError("read "+rec.BlobName(), err)
	}
	return PhotoRecord{
		Filepath:    rec.Filepath,
		DisplayPath: encoding.JPEGDataURI(string(data)),
	}, nil
}
