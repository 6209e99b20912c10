package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// TransientScheme is the URI scheme of in-process capture references.
const TransientScheme = "blob"

const transientHost = "gallery/"

type transientEntry struct {
	data      []byte
	mediaType string
}

// Transient holds browser-style captures that live only for this process.
// Staged images get a "blob:gallery/<id>" URI which resolves through
// RoundTrip until revoked or evicted. Oldest entries are evicted once more
// than max are held.
type Transient struct {
	mu      sync.Mutex
	entries map[string]transientEntry
	order   []string // insertion order, for eviction
	queue   []string // staged but not yet captured
	max     int
}

// NewTransient creates a registry holding at most max entries (0 means 64).
func NewTransient(max int) *Transient {
	if max <= 0 {
		max = 64
	}
	return &Transient{entries: make(map[string]transientEntry), max: max}
}

// Stage registers data as the next pending capture and returns its URI.
func (t *Transient) Stage(data []byte, mediaType string) string {
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	id := uuid.NewString()
	cp := make([]byte, len(data))
	copy(cp, data)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = transientEntry{data: cp, mediaType: mediaType}
	t.order = append(t.order, id)
	t.queue = append(t.queue, id)
	for len(t.order) > t.max {
		t.dropLocked(t.order[0])
	}
	return TransientScheme + ":" + transientHost + id
}

// Capture hands out the oldest staged image. An empty queue counts as a
// dismissed capture.
func (t *Transient) Capture(_ context.Context, _ Options) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.queue) == 0 {
		return Result{}, ErrUserCancelled
	}
	id := t.queue[0]
	t.queue = t.queue[1:]
	format := strings.TrimPrefix(t.entries[id].mediaType, "image/")
	return Result{TransientURI: TransientScheme + ":" + transientHost + id, Format: format}, nil
}

// Take claims the staged capture behind uri, removing it from the pending
// queue. Unknown or evicted URIs count as a dismissed capture.
func (t *Transient) Take(uri string) (Result, error) {
	id, ok := ID(uri)
	if !ok {
		return Result{}, ErrUserCancelled
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return Result{}, ErrUserCancelled
	}
	for i, v := range t.queue {
		if v == id {
			t.queue = append(t.queue[:i], t.queue[i+1:]...)
			break
		}
	}
	return Result{TransientURI: uri, Format: strings.TrimPrefix(e.mediaType, "image/")}, nil
}

// ID extracts the registry id from a transient URI.
func ID(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, TransientScheme+":"+transientHost)
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

// Open returns the bytes and media type registered under id.
func (t *Transient) Open(id string) ([]byte, string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return nil, "", false
	}
	return e.data, e.mediaType, true
}

// Revoke forgets a transient URI; later fetches fail.
func (t *Transient) Revoke(uri string) {
	id, ok := ID(uri)
	if !ok {
		return
	}
	t.mu.Lock()
	t.dropLocked(id)
	t.mu.Unlock()
}

func (t *Transient) dropLocked(id string) {
	delete(t.entries, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	for i, v := range t.queue {
		if v == id {
			t.queue = append(t.queue[:i], t.queue[i+1:]...)
			break
		}
	}
}

// RoundTrip serves "blob:" requests from the registry so an http.Client can
// fetch transient URIs.
func (t *Transient) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != TransientScheme {
		return nil, fmt.Errorf("capture: unsupported scheme %q", req.URL.Scheme)
	}
	id, ok := ID(req.URL.String())
	if !ok {
		return respond(req, http.StatusBadRequest, "text/plain", []byte("bad transient URI")), nil
	}
	data, mediaType, ok := t.Open(id)
	if !ok {
		return respond(req, http.StatusNotFound, "text/plain", []byte("transient capture not found")), nil
	}
	return respond(req, http.StatusOK, mediaType, data), nil
}

func respond(req *http.Request, code int, contentType string, body []byte) *http.Response {
	return &http.Response{
		Status:        strconv.Itoa(code) + " " + http.StatusText(code),
		StatusCode:    code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{contentType}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

var (
	_ Camera            = (*Transient)(nil)
	_ http.RoundTripper = (*Transient)(nil)
)
