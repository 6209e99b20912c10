package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aipowergrid/aipg-photo-gallery/internal/gallery"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GALLERY_PLATFORM", "native")
	t.Setenv("GALLERY_INDEX_BACKEND", "bolt")
	t.Setenv("GALLERY_INDEX_PATH", filepath.Join(dir, "index.db"))
	t.Setenv("GALLERY_BLOB_BACKEND", "local")
	t.Setenv("GALLERY_BLOB_DIR", filepath.Join(dir, "photos"))
	t.Setenv("GALLERY_SPOOL_DIR", filepath.Join(dir, "spool"))
	return dir
}

func execute(args ...string) (string, error) {
	platformFlag, outputJSON, captureFile = "", false, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(args...)
	if err != nil {
		t.Fatalf("galleryctl %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestCaptureListDelete(t *testing.T) {
	dir := setupEnv(t)
	img := filepath.Join(dir, "IMG_0001.jpg")
	if err := os.WriteFile(img, []byte{0xff, 0xd8, 0xff}, 0o644); err != nil {
		t.Fatal(err)
	}

	out := run(t, "capture", "--file", img, "--json")
	var rec gallery.PhotoRecord
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("capture output %q: %v", out, err)
	}
	if !strings.HasPrefix(rec.Filepath, "file://") {
		t.Fatalf("Filepath = %q", rec.Filepath)
	}

	var photos []gallery.PhotoRecord
	if err := json.Unmarshal([]byte(run(t, "list", "--json")), &photos); err != nil {
		t.Fatal(err)
	}
	if len(photos) != 1 || photos[0].Filepath != rec.Filepath {
		t.Fatalf("list = %+v", photos)
	}

	// A stray file in the blob dir shows up as an orphan.
	if err := os.WriteFile(filepath.Join(dir, "photos", "stray.jpeg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(run(t, "orphans")); got != "stray.jpeg" {
		t.Fatalf("orphans = %q", got)
	}

	if got := run(t, "delete", rec.BlobName()); !strings.Contains(got, "deleted") {
		t.Fatalf("delete output = %q", got)
	}
	if err := json.Unmarshal([]byte(run(t, "list", "--json")), &photos); err != nil {
		t.Fatal(err)
	}
	if len(photos) != 0 {
		t.Fatalf("list after delete = %+v", photos)
	}
}

func TestDeleteUnknownPhoto(t *testing.T) {
	setupEnv(t)
	if _, err := execute("delete", "nope.jpeg"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestPruneRecoversBrowserGallery(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("GALLERY_PLATFORM", "browser")
	img := filepath.Join(dir, "IMG_0001.jpg")
	if err := os.WriteFile(img, []byte{0xff, 0xd8, 0xff}, 0o644); err != nil {
		t.Fatal(err)
	}

	var kept, lost gallery.PhotoRecord
	for _, rec := range []*gallery.PhotoRecord{&lost, &kept} {
		if err := json.Unmarshal([]byte(run(t, "capture", "--file", img, "--json")), rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Remove(filepath.Join(dir, "photos", lost.BlobName())); err != nil {
		t.Fatal(err)
	}

	if _, err := execute("list"); err == nil || !strings.Contains(err.Error(), "prune") {
		t.Fatalf("list with a dangling entry: err = %v", err)
	}

	var removed []string
	if err := json.Unmarshal([]byte(run(t, "prune", "--json")), &removed); err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || removed[0] != lost.Filepath {
		t.Fatalf("removed = %v, want [%s]", removed, lost.Filepath)
	}

	var photos []gallery.PhotoRecord
	if err := json.Unmarshal([]byte(run(t, "list", "--json")), &photos); err != nil {
		t.Fatal(err)
	}
	if len(photos) != 1 || photos[0].Filepath != kept.Filepath {
		t.Fatalf("list after prune = %+v", photos)
	}

	if got := strings.TrimSpace(run(t, "prune")); got != "" {
		t.Fatalf("second prune output = %q", got)
	}
}
