package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aipowergrid/aipg-photo-gallery/internal/blob"
	"github.com/aipowergrid/aipg-photo-gallery/internal/bridge"
	"github.com/aipowergrid/aipg-photo-gallery/internal/capture"
	"github.com/aipowergrid/aipg-photo-gallery/internal/index"
)

// cleanupTimeout bounds the blob removal that undoes a failed save. It runs
// detached from the caller's context, which has often expired by then.
const cleanupTimeout = 10 * time.Second

// Config wires a Manager to its collaborators.
type Config struct {
	Platform Platform
	Camera   capture.Camera
	Blobs    blob.Store
	Index    index.Store

	// Fetcher is required on Browser.
	Fetcher DataURIFetcher
	// Converter is required on Native.
	Converter bridge.Converter

	Logger  *slog.Logger
	Metrics *Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager owns the ordered photo list and keeps it in step with the index
// and blob stores. Operations are serialised; readers get copies.
type Manager struct {
	platform Platform
	camera   capture.Camera
	blobs    blob.Store
	index    index.Store
	strategy strategy
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
	tracer   trace.Tracer

	// op serialises Load, Prune, CaptureAndSave and Delete.
	op     sync.Mutex
	names  nameAllocator
	loaded atomic.Bool

	mu     sync.RWMutex
	photos []PhotoRecord
	subs   map[int]func([]PhotoRecord)
	nextID int
}

// NewManager validates cfg and builds a Manager. The list stays empty and
// mutations are refused until Start or Load succeeds.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Camera == nil || cfg.Blobs == nil || cfg.Index == nil {
		return nil, errors.New("gallery: camera, blob store and index store are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	var s strategy
	switch cfg.Platform {
	case Native:
		if cfg.Converter == nil {
			return nil, errors.New("gallery: native platform needs a URI converter")
		}
		s = nativeStrategy{converter: cfg.Converter, logger: logger}
	case Browser:
		if cfg.Fetcher == nil {
			return nil, errors.New("gallery: browser platform needs a fetcher")
		}
		s = browserStrategy{fetcher: cfg.Fetcher, blobs: cfg.Blobs}
	default:
		return nil, fmt.Errorf("gallery: unknown platform %q", cfg.Platform)
	}

	return &Manager{
		platform: cfg.Platform,
		camera:   cfg.Camera,
		blobs:    cfg.Blobs,
		index:    cfg.Index,
		strategy: s,
		logger:   logger.With("component", "gallery", "platform", string(cfg.Platform)),
		metrics:  cfg.Metrics,
		now:      now,
		tracer:   otel.Tracer("github.com/aipowergrid/aipg-photo-gallery/internal/gallery"),
		photos:   make([]PhotoRecord, 0),
		subs:     make(map[int]func([]PhotoRecord)),
	}, nil
}

// Platform returns the platform the manager was built for.
func (m *Manager) Platform() Platform {
	return m.platform
}

// Photos returns a copy of the current list, newest first.
func (m *Manager) Photos() []PhotoRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PhotoRecord, len(m.photos))
	copy(out, m.photos)
	return out
}

// Lookup finds a record by its filepath or by its blob name.
func (m *Manager) Lookup(key string) (PhotoRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.photos {
		if p.Filepath == key || p.BlobName() == key {
			return p, true
		}
	}
	return PhotoRecord{}, false
}

// Loaded reports whether the initial load has completed. It does not wait
// for an operation in progress.
func (m *Manager) Loaded() bool {
	return m.loaded.Load()
}

// Subscribe registers fn to receive the list after every change. fn runs
// synchronously on the mutating goroutine and must not call back into the
// manager's mutating methods. The returned func unsubscribes.
func (m *Manager) Subscribe(fn func([]PhotoRecord)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// setPhotos replaces the list wholesale and notifies subscribers.
func (m *Manager) setPhotos(photos []PhotoRecord) {
	m.mu.Lock()
	m.photos = photos
	subs := make([]func([]PhotoRecord), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	m.metrics.setPhotos(len(photos))
	for _, fn := range subs {
		snapshot := make([]PhotoRecord, len(photos))
		copy(snapshot, photos)
		fn(snapshot)
	}
}

// Start performs the initial load if it has not happened yet.
func (m *Manager) Start(ctx context.Context) error {
	if m.Loaded() {
		return nil
	}
	return m.Load(ctx)
}

// Load replaces the list with the one persisted in the index store. On
// browser platforms every record's display path is rebuilt from its blob.
func (m *Manager) Load(ctx context.Context) (err error) {
	ctx, span := m.tracer.Start(ctx, "gallery.Load")
	start := time.Now()
	defer func() { m.finish(span, "load", start, err) }()

	m.op.Lock()
	defer m.op.Unlock()

	stored, err := m.readIndex(ctx)
	if err != nil {
		return err
	}
	n, err := m.install(ctx, stored)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("photos.count", n))
	m.logger.Info("loaded photos", "count", n)
	return nil
}

// Prune drops index entries whose blob no longer exists, rewrites the index
// if anything was dropped and then loads the remaining list. It works on a
// manager that has never loaded, which is the state a dangling entry leaves
// a browser gallery in. The dropped filepaths are returned.
func (m *Manager) Prune(ctx context.Context) (removed []string, err error) {
	ctx, span := m.tracer.Start(ctx, "gallery.Prune")
	start := time.Now()
	defer func() { m.finish(span, "prune", start, err) }()

	m.op.Lock()
	defer m.op.Unlock()

	stored, err := m.readIndex(ctx)
	if err != nil {
		return nil, err
	}
	names, err := m.blobs.List(ctx)
	if err != nil {
		return nil, ioError("list blobs", err)
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	kept := make([]PhotoRecord, 0, len(stored))
	for _, rec := range stored {
		if present[rec.BlobName()] {
			kept = append(kept, rec)
			continue
		}
		removed = append(removed, rec.Filepath)
	}
	if len(removed) > 0 {
		if err := m.persist(ctx, kept); err != nil {
			return nil, err
		}
		m.logger.Warn("pruned dangling index entries", "count", len(removed), "filepaths", removed)
	}

	n, err := m.install(ctx, kept)
	if err != nil {
		return removed, err
	}
	span.SetAttributes(attribute.Int("photos.pruned", len(removed)), attribute.Int("photos.count", n))
	return removed, nil
}

// readIndex returns the stored list; a missing key is an empty gallery.
func (m *Manager) readIndex(ctx context.Context) ([]PhotoRecord, error) {
	raw, err := m.index.Get(ctx, IndexKey)
	if errors.Is(err, index.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, ioError("read index", err)
	}
	return decodeIndex(raw)
}

// install materializes stored and makes it the current list. Nothing changes
// if any record fails.
func (m *Manager) install(ctx context.Context, stored []PhotoRecord) (int, error) {
	photos := make([]PhotoRecord, 0, len(stored))
	for _, rec := range stored {
		rec, err := m.strategy.materialize(ctx, rec)
		if err != nil {
			return 0, err
		}
		photos = append(photos, rec)
	}
	m.setPhotos(photos)
	m.loaded.Store(true)
	return len(photos), nil
}

// CaptureAndSave takes a photo, writes it to the blob store, prepends it to
// the list and persists the list. The list only changes once both writes
// have succeeded. A dismissed capture returns ErrUserCancelled.
func (m *Manager) CaptureAndSave(ctx context.Context) (_ *PhotoRecord, err error) {
	ctx, span := m.tracer.Start(ctx, "gallery.CaptureAndSave")
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrUserCancelled) {
			m.finish(span, "capture", start, nil)
			return
		}
		m.finish(span, "capture", start, err)
	}()

	m.op.Lock()
	defer m.op.Unlock()
	if !m.loaded.Load() {
		return nil, ErrNotLoaded
	}

	res, err := m.camera.Capture(ctx, capture.Options{
		Result:  capture.ResultURI,
		Source:  capture.SourceCamera,
		Quality: 100,
	})
	if err != nil {
		if errors.Is(err, ErrUserCancelled) {
			m.logger.Debug("capture dismissed")
			return nil, err
		}
		return nil, fmt.Errorf("gallery: capture: %w", err)
	}

	current := m.Photos()
	taken := make(map[string]bool, len(current))
	for _, p := range current {
		taken[p.BlobName()] = true
	}
	name := m.names.next(m.now(), func(n string) bool { return taken[n] })
	span.SetAttributes(attribute.String("photo.name", name))

	payload, err := m.strategy.payload(ctx, res)
	if err != nil {
		return nil, err
	}

	storageURI, err := m.blobs.Write(ctx, name, payload)
	if err != nil {
		return nil, ioError("write "+name, err)
	}

	rec := m.strategy.record(ctx, name, storageURI, res)
	next := make([]PhotoRecord, 0, len(current)+1)
	next = append(next, rec)
	next = append(next, current...)

	if err := m.persist(ctx, next); err != nil {
		// Keep the blob store in step with the unchanged index.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		derr := m.blobs.Delete(cleanupCtx, name)
		cancel()
		if derr != nil {
			m.logger.Warn("failed to remove unindexed blob", "name", name, "error", derr)
			m.metrics.blobOrphaned()
		}
		return nil, err
	}

	m.setPhotos(next)
	m.metrics.photoSaved()
	m.logger.Info("saved photo", "filepath", rec.Filepath, "bytes", len(payload))
	return &rec, nil
}

// Delete removes the record whose Filepath equals target.Filepath from the
// list, the index and the blob store. A failed blob delete leaves an orphan
// that is logged and otherwise ignored.
func (m *Manager) Delete(ctx context.Context, target PhotoRecord) (err error) {
	ctx, span := m.tracer.Start(ctx, "gallery.Delete",
		trace.WithAttributes(attribute.String("photo.filepath", target.Filepath)))
	start := time.Now()
	defer func() { m.finish(span, "delete", start, err) }()

	m.op.Lock()
	defer m.op.Unlock()
	if !m.loaded.Load() {
		return ErrNotLoaded
	}

	current := m.Photos()
	next := make([]PhotoRecord, 0, len(current))
	for _, p := range current {
		if p.Filepath != target.Filepath {
			next = append(next, p)
		}
	}

	if err := m.persist(ctx, next); err != nil {
		return err
	}

	name := BlobName(target.Filepath)
	if err := m.blobs.Delete(ctx, name); err != nil {
		m.logger.Warn("photo blob left orphaned", "name", name, "error", err)
		m.metrics.blobOrphaned()
	}

	m.setPhotos(next)
	if len(next) < len(current) {
		m.metrics.photoDeleted()
	}
	m.logger.Info("deleted photo", "filepath", target.Filepath)
	return nil
}

// Orphans lists blobs that no record in the current list refers to.
func (m *Manager) Orphans(ctx context.Context) ([]string, error) {
	names, err := m.blobs.List(ctx)
	if err != nil {
		return nil, ioError("list blobs", err)
	}
	known := make(map[string]bool)
	for _, p := range m.Photos() {
		known[p.BlobName()] = true
	}
	var orphans []string
	for _, n := range names {
		if !known[n] {
			orphans = append(orphans, n)
		}
	}
	return orphans, nil
}

func (m *Manager) persist(ctx context.Context, photos []PhotoRecord) error {
	data, err := encodeIndex(photos)
	if err != nil {
		return fmt.Errorf("gallery: encode index: %w", err)
	}
	if err := m.index.Set(ctx, IndexKey, data); err != nil {
		return ioError("write index", err)
	}
	return nil
}

func (m *Manager) finish(span trace.Span, op string, start time.Time, err error) {
	m.metrics.observe(op, time.Since(start).Seconds(), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
