// Package capture defines the camera capability the gallery calls to obtain a
// newly taken image, plus the adapters used by the server and CLI.
package capture

import (
	"context"
	"errors"
)

var (
	// ErrUserCancelled is returned when the user dismisses the capture.
	ErrUserCancelled = errors.New("capture: cancelled by user")

	// ErrPermissionDenied is returned when camera access is refused.
	ErrPermissionDenied = errors.New("capture: permission denied")
)

// ResultKind selects how the capture result is delivered.
type ResultKind string

const (
	ResultURI     ResultKind = "uri"
	ResultBase64  ResultKind = "base64"
	ResultDataURL ResultKind = "dataUrl"
)

// Source selects where the image comes from.
type Source string

const (
	SourceCamera Source = "camera"
	SourcePhotos Source = "photos"
)

// Options are passed to Camera.Capture.
type Options struct {
	Result  ResultKind
	Source  Source
	Quality int // 0-100
}

// Result describes one captured image. Native cameras set Path; browser
// cameras set TransientURI.
type Result struct {
	Path         string
	TransientURI string
	Format       string
}

// Camera produces one newly taken image per call.
type Camera interface {
	Capture(ctx context.Context, opts Options) (Result, error)
}

// Func adapts a plain function to Camera.
type Func func(ctx context.Context, opts Options) (Result, error)

func (f Func) Capture(ctx context.Context, opts Options) (Result, error) {
	return f(ctx, opts)
}
