package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/aipowergrid/aipg-photo-gallery/internal/index"
)

// Blob backends.
const (
	BlobLocal = "local"
	BlobS3    = "s3"
)

type Config struct {
	Address        string   `env:"GALLERY_SERVER_ADDR" envDefault:":4000"`
	PublicURL      string   `env:"GALLERY_PUBLIC_URL" envDefault:"http://localhost:4000"`
	Platform       string   `env:"GALLERY_PLATFORM" envDefault:"native"`
	AllowedOrigins []string `env:"GALLERY_ALLOWED_ORIGINS" envSeparator:","`

	// Index store
	IndexBackend string `env:"GALLERY_INDEX_BACKEND" envDefault:"badger"`
	IndexPath    string `env:"GALLERY_INDEX_PATH" envDefault:"./data/index"`
	IndexDSN     string `env:"GALLERY_INDEX_DSN"`

	// Blob store
	BlobBackend string `env:"GALLERY_BLOB_BACKEND" envDefault:"local"`
	BlobDir     string `env:"GALLERY_BLOB_DIR" envDefault:"./data/photos"`
	SpoolDir    string `env:"GALLERY_SPOOL_DIR" envDefault:"./data/spool"`

	// S3-compatible storage (AWS, R2, MinIO)
	S3Endpoint        string        `env:"GALLERY_S3_ENDPOINT"`
	S3Region          string        `env:"GALLERY_S3_REGION" envDefault:"auto"`
	S3Bucket          string        `env:"GALLERY_S3_BUCKET"`
	S3Prefix          string        `env:"GALLERY_S3_PREFIX" envDefault:"photos"`
	S3AccessKeyID     string        `env:"GALLERY_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string        `env:"GALLERY_S3_SECRET_ACCESS_KEY"`
	PresignTTL        time.Duration `env:"GALLERY_PRESIGN_TTL" envDefault:"30m"`

	FetchTimeout time.Duration `env:"GALLERY_FETCH_TIMEOUT" envDefault:"15s"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse populates a Config from the process environment alone.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AllowedOrigins = splitAndClean(cfg.AllowedOrigins)
	cfg.Platform = strings.ToLower(strings.TrimSpace(cfg.Platform))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown backends and incomplete backend settings.
func (c Config) Validate() error {
	switch c.Platform {
	case "native", "browser":
	default:
		return fmt.Errorf("config: GALLERY_PLATFORM must be native or browser, got %q", c.Platform)
	}

	if !slices.Contains(index.Backends, c.IndexBackend) {
		return fmt.Errorf("config: unknown GALLERY_INDEX_BACKEND %q", c.IndexBackend)
	}
	if c.IndexBackend == index.BackendPostgres && c.IndexDSN == "" {
		return errors.New("config: GALLERY_INDEX_DSN is required for the postgres index")
	}

	switch c.BlobBackend {
	case BlobLocal:
		if c.BlobDir == "" {
			return errors.New("config: GALLERY_BLOB_DIR is required for the local blob store")
		}
	case BlobS3:
		if c.S3Bucket == "" {
			return errors.New("config: GALLERY_S3_BUCKET is required for the s3 blob store")
		}
	default:
		return fmt.Errorf("config: unknown GALLERY_BLOB_BACKEND %q", c.BlobBackend)
	}

	if c.FetchTimeout <= 0 {
		return errors.New("config: GALLERY_FETCH_TIMEOUT must be positive")
	}
	return nil
}

func splitAndClean(parts []string) []string {
	if len(parts) == 0 {
		return nil
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
