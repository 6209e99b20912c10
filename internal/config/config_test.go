package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Address != ":4000" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.Platform != "native" || cfg.IndexBackend != "badger" || cfg.BlobBackend != BlobLocal {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.PresignTTL != 30*time.Minute || cfg.FetchTimeout != 15*time.Second {
		t.Errorf("durations = %v, %v", cfg.PresignTTL, cfg.FetchTimeout)
	}
	if cfg.AllowedOrigins != nil {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("GALLERY_PLATFORM", " Browser ")
	t.Setenv("GALLERY_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("GALLERY_INDEX_BACKEND", "sqlite")
	t.Setenv("GALLERY_INDEX_PATH", "/tmp/gallery.db")
	t.Setenv("GALLERY_FETCH_TIMEOUT", "2s")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Platform != "browser" {
		t.Errorf("Platform = %q", cfg.Platform)
	}
	if got := strings.Join(cfg.AllowedOrigins, "|"); got != "http://a.test|http://b.test" {
		t.Errorf("AllowedOrigins = %q", got)
	}
	if cfg.IndexBackend != "sqlite" || cfg.IndexPath != "/tmp/gallery.db" {
		t.Errorf("index = %q %q", cfg.IndexBackend, cfg.IndexPath)
	}
	if cfg.FetchTimeout != 2*time.Second {
		t.Errorf("FetchTimeout = %v", cfg.FetchTimeout)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Platform:     "native",
			IndexBackend: "badger",
			BlobBackend:  BlobLocal,
			BlobDir:      "photos",
			FetchTimeout: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad platform", func(c *Config) { c.Platform = "tv" }, "GALLERY_PLATFORM"},
		{"bad index", func(c *Config) { c.IndexBackend = "redis" }, "GALLERY_INDEX_BACKEND"},
		{"postgres without dsn", func(c *Config) { c.IndexBackend = "postgres" }, "GALLERY_INDEX_DSN"},
		{"bad blob backend", func(c *Config) { c.BlobBackend = "ftp" }, "GALLERY_BLOB_BACKEND"},
		{"local without dir", func(c *Config) { c.BlobDir = "" }, "GALLERY_BLOB_DIR"},
		{"s3 without bucket", func(c *Config) { c.BlobBackend = BlobS3 }, "GALLERY_S3_BUCKET"},
		{"s3 with bucket", func(c *Config) { c.BlobBackend = BlobS3; c.S3Bucket = "photos" }, ""},
		{"zero timeout", func(c *Config) { c.FetchTimeout = 0 }, "GALLERY_FETCH_TIMEOUT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want mention of %s", err, tc.wantErr)
			}
		})
	}
}

func TestParseRejectsBadDuration(t *testing.T) {
	t.Setenv("GALLERY_PRESIGN_TTL", "soon")
	if _, err := Parse(); err == nil {
		t.Fatal("expected parse error")
	}
}
