package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aipowergrid/aipg-photo-gallery/internal/blob"
	"github.com/aipowergrid/aipg-photo-gallery/internal/bridge"
	"github.com/aipowergrid/aipg-photo-gallery/internal/capture"
	"github.com/aipowergrid/aipg-photo-gallery/internal/config"
	"github.com/aipowergrid/aipg-photo-gallery/internal/encoding"
	"github.com/aipowergrid/aipg-photo-gallery/internal/gallery"
	"github.com/aipowergrid/aipg-photo-gallery/internal/index"
)

// filesPrefix is the route the local blob directory is served from.
const filesPrefix = "files"

type App struct {
	cfg       config.Config
	manager   *gallery.Manager
	index     index.Store
	blobs     blob.Store
	localRoot string
	transient *capture.Transient
	spool     capture.Spool
	registry  *prometheus.Registry
	http      *httpMetrics
	tracing   *tracing
}

// New opens the index and blob stores described by cfg and wires a gallery
// manager on top of them. Call Start before serving.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	platform, err := gallery.ParsePlatform(cfg.Platform)
	if err != nil {
		return nil, err
	}

	tr := newTracing()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		cfg:       cfg,
		transient: capture.NewTransient(0),
		spool:     capture.Spool{Dir: cfg.SpoolDir},
		registry:  registry,
		http:      newHTTPMetrics(registry),
		tracing:   tr,
	}

	a.index, err = index.Open(index.Options{
		Backend: cfg.IndexBackend,
		Path:    cfg.IndexPath,
		DSN:     cfg.IndexDSN,
	})
	if err != nil {
		tr.shutdown(ctx)
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	converter, err := a.openBlobs(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.manager, err = gallery.NewManager(gallery.Config{
		Platform:  platform,
		Camera:    capture.Func(a.capture),
		Blobs:     a.blobs,
		Index:     a.index,
		Fetcher:   encoding.NewFetcher(cfg.FetchTimeout, map[string]http.RoundTripper{capture.TransientScheme: a.transient}),
		Converter: converter,
		Logger:    slog.Default(),
		Metrics:   gallery.NewMetrics(registry),
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) openBlobs(ctx context.Context) (bridge.Converter, error) {
	switch a.cfg.BlobBackend {
	case config.BlobS3:
		store, err := blob.NewS3FromConfig(ctx, blob.S3Config{
			Endpoint:        a.cfg.S3Endpoint,
			Region:          a.cfg.S3Region,
			Bucket:          a.cfg.S3Bucket,
			Prefix:          a.cfg.S3Prefix,
			AccessKeyID:     a.cfg.S3AccessKeyID,
			SecretAccessKey: a.cfg.S3SecretAccessKey,
			PresignTTL:      a.cfg.PresignTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 blob store: %w", err)
		}
		a.blobs = store
		return store, nil
	default:
		store, err := blob.NewLocal(a.cfg.BlobDir)
		if err != nil {
			return nil, err
		}
		a.blobs = store
		a.localRoot = store.Root()
		return bridge.FileServer{
			Root:    store.Root(),
			BaseURL: a.cfg.PublicURL,
			Prefix:  filesPrefix,
		}, nil
	}
}

// Manager exposes the gallery manager the app serves.
func (a *App) Manager() *gallery.Manager {
	return a.manager
}

// Start loads the persisted photo list.
func (a *App) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Close releases the index store and flushes tracing.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.index != nil {
		errs = append(errs, a.index.Close())
	}
	if a.tracing != nil {
		errs = append(errs, a.tracing.shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"platform": a.manager.Platform(),
			"loaded":   a.manager.Loaded(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/photos", a.http.instrument("list", a.handleListPhotos))
		api.Post("/photos", a.http.instrument("capture", a.handleCapturePhoto))
		api.Post("/photos/reload", a.http.instrument("reload", a.handleReloadPhotos))
		api.Delete("/photos/{name}", a.http.instrument("delete", a.handleDeletePhoto))
		api.Get("/transient/{id}", a.http.instrument("transient", a.handleTransient))
	})

	if a.localRoot != "" {
		files := http.StripPrefix("/"+filesPrefix+"/", http.FileServer(http.Dir(a.localRoot)))
		r.Handle("/"+filesPrefix+"/*", files)
	}

	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	r.Handle("/tracez", a.tracing.handler())

	return otelhttp.NewHandler(r, "gallery")
}

func (a *App) allowedOrigins() []string {
	if len(a.cfg.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return a.cfg.AllowedOrigins
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"error":  err.Error(),
		"status": status,
	})
}

// writeGalleryError maps gallery sentinels onto HTTP statuses. A dismissed
// capture is not an error for the client.
func writeGalleryError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	if status >= http.StatusInternalServerError {
		log.Printf("gallery request failed: %v", err)
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, gallery.ErrUserCancelled):
		return http.StatusNoContent
	case errors.Is(err, gallery.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, gallery.ErrDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gallery.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, gallery.ErrIO):
		return http.StatusInternalServerError
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// requestTimeout bounds a single gallery operation.
const requestTimeout = 30 * time.Second
