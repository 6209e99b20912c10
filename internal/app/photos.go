package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aipowergrid/aipg-photo-gallery/internal/capture"
	"github.com/aipowergrid/aipg-photo-gallery/internal/gallery"
)

// maxUpload caps a browser capture body.
const maxUpload = 32 << 20

type PhotosView struct {
	Platform gallery.Platform      `json:"platform"`
	Photos   []gallery.PhotoRecord `json:"photos"`
}

type captureKey struct{}

// captureRequest carries per-request capture input through the manager to
// the camera.
type captureRequest struct {
	path      string // native: explicit file instead of the next spooled one
	transient string // browser: staged upload
}

func withCapture(ctx context.Context, req captureRequest) context.Context {
	return context.WithValue(ctx, captureKey{}, req)
}

// capture is the camera the manager sees. Native requests read a named file
// or the next spooled image; browser requests claim their staged upload.
func (a *App) capture(ctx context.Context, opts capture.Options) (capture.Result, error) {
	req, _ := ctx.Value(captureKey{}).(captureRequest)
	switch {
	case req.transient != "":
		return a.transient.Take(req.transient)
	case req.path != "":
		return capture.File(req.path).Capture(ctx, opts)
	case a.manager.Platform() == gallery.Browser:
		return a.transient.Capture(ctx, opts)
	default:
		return a.spool.Capture(ctx, opts)
	}
}

// CaptureFile saves the image at path as a new photo. Browser galleries
// stage the file's bytes as a transient capture first.
func (a *App) CaptureFile(ctx context.Context, path string) (*gallery.PhotoRecord, error) {
	var req captureRequest
	switch a.manager.Platform() {
	case gallery.Browser:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		req.transient = a.transient.Stage(data, "")
	default:
		req.path = path
	}
	return a.manager.CaptureAndSave(withCapture(ctx, req))
}

func (a *App) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	if !a.manager.Loaded() {
		writeGalleryError(w, gallery.ErrNotLoaded)
		return
	}
	writeJSON(w, http.StatusOK, PhotosView{
		Platform: a.manager.Platform(),
		Photos:   a.manager.Photos(),
	})
}

func (a *App) handleCapturePhoto(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req captureRequest
	switch a.manager.Platform() {
	case gallery.Browser:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpload))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
			return
		}
		req.transient = a.transient.Stage(body, r.Header.Get("Content-Type"))
	case gallery.Native:
		if name := r.URL.Query().Get("path"); name != "" {
			path, err := a.spool.Resolve(name)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			req.path = path
		}
	}

	rec, err := a.manager.CaptureAndSave(withCapture(ctx, req))
	if err != nil {
		if req.transient != "" {
			a.transient.Revoke(req.transient)
		}
		writeGalleryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *App) handleReloadPhotos(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := a.manager.Load(ctx); err != nil {
		writeGalleryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PhotosView{
		Platform: a.manager.Platform(),
		Photos:   a.manager.Photos(),
	})
}

func (a *App) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rec, ok := a.manager.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("photo %s not found", name))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := a.manager.Delete(ctx, rec); err != nil {
		writeGalleryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTransient renders a staged browser capture, the equivalent of
// resolving a blob URL in the page that created it.
func (a *App) handleTransient(w http.ResponseWriter, r *http.Request) {
	data, mediaType, ok := a.transient.Open(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("transient capture not found"))
		return
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
