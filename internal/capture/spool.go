package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// claimedDir is where Spool moves files it has handed out.
const claimedDir = ".captured"

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true}

// Spool is a native camera fed by a directory: every image dropped into Dir
// is one pending capture, handed out oldest first.
type Spool struct {
	Dir string
}

// Capture claims the oldest pending image by moving it under Dir/.captured and
// returns its path. An empty spool counts as a dismissed capture.
func (s Spool) Capture(_ context.Context, _ Options) (Result, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return Result{}, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return Result{}, fmt.Errorf("failed to read spool: %w", err)
	}

	type pending struct {
		name string
		mod  time.Time
	}
	var files []pending
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, pending{e.Name(), info.ModTime()})
	}
	if len(files) == 0 {
		return Result{}, ErrUserCancelled
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].mod.Equal(files[j].mod) {
			return files[i].name < files[j].name
		}
		return files[i].mod.Before(files[j].mod)
	})

	claimed := filepath.Join(s.Dir, claimedDir)
	if err := os.MkdirAll(claimed, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create claimed dir: %w", err)
	}
	src := filepath.Join(s.Dir, files[0].name)
	dst := filepath.Join(claimed, files[0].name)
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return Result{}, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return Result{}, fmt.Errorf("failed to claim %s: %w", src, err)
	}
	return Result{Path: dst, Format: formatOf(dst)}, nil
}

// ErrOutsideSpool is returned by Resolve for paths that do not lie inside the
// spool directory.
var ErrOutsideSpool = errors.New("capture: path is outside the spool")

// Resolve returns the real path of name, which must be a file inside Dir once
// symlinks are followed. Relative names are taken relative to Dir.
func (s Spool) Resolve(name string) (string, error) {
	root, err := realPath(s.Dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve spool: %w", err)
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(root, name)
	}
	p, err := realPath(name)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideSpool, name)
	}
	return p, nil
}

func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// File is a native camera that always returns the same existing file.
type File string

func (f File) Capture(_ context.Context, _ Options) (Result, error) {
	info, err := os.Stat(string(f))
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return Result{}, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return Result{}, err
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("capture: %s is a directory", f)
	}
	return Result{Path: string(f), Format: formatOf(string(f))}, nil
}

func formatOf(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "jpg" {
		return "jpeg"
	}
	return ext
}
