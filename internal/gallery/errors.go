package gallery

import (
	"errors"
	"fmt"

	"github.com/aipowergrid/aipg-photo-gallery/internal/capture"
	"github.com/aipowergrid/aipg-photo-gallery/internal/encoding"
)

var (
	// ErrUserCancelled means the capture was dismissed; nothing changed.
	ErrUserCancelled = capture.ErrUserCancelled

	// ErrPermissionDenied means camera or storage access was refused.
	ErrPermissionDenied = capture.ErrPermissionDenied

	// ErrDecode means a capture or index value could not be decoded.
	ErrDecode = encoding.ErrDecode

	// ErrIO wraps every blob store, index store and fetch failure.
	ErrIO = errors.New("gallery: storage I/O failed")

	// ErrNotLoaded is returned by mutations issued before the first Load.
	ErrNotLoaded = errors.New("gallery: photos not loaded yet")
)

// ioError keeps both ErrIO and the underlying cause matchable with errors.Is.
func ioError(op string, err error) error {
	return fmt.Errorf("gallery: %s: %w: %w", op, ErrIO, err)
}
