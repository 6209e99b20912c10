package encoding

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"
)

var tenBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func TestFetcherDataURI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(tenBytes)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, nil)
	got, err := f.DataURI(context.Background(), srv.URL+"/photo")
	if err != nil {
		t.Fatal(err)
	}
	want := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(tenBytes)
	if got != want {
		t.Fatalf("DataURI = %q, want %q", got, want)
	}
}

func TestFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.Error(w, "gone", http.StatusNotFound)
		case "/empty":
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, nil)
	ctx := context.Background()

	if _, err := f.DataURI(ctx, srv.URL+"/missing"); err == nil || errors.Is(err, ErrDecode) {
		t.Fatalf("expected transport error for 404, got %v", err)
	}
	if _, err := f.DataURI(ctx, srv.URL+"/empty"); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for empty body, got %v", err)
	}
}

type staticRoundTripper []byte

func (s staticRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     http.Header{"Content-Type": []string{"image/png"}},
		Body:       io.NopCloser(bytes.NewReader(s)),
		Request:    r,
	}, nil
}

func TestFetcherCustomProtocol(t *testing.T) {
	f := NewFetcher(time.Second, map[string]http.RoundTripper{"blob": staticRoundTripper("png")})
	got, err := f.DataURI(context.Background(), "blob:gallery/abc")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Fatalf("DataURI = %q", got)
	}
}

type truncatedRoundTripper struct{}

func (truncatedRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     http.Header{"Content-Type": []string{"image/jpeg"}},
		Body:       io.NopCloser(io.MultiReader(bytes.NewReader(tenBytes[:4]), iotest.ErrReader(context.DeadlineExceeded))),
		Request:    r,
	}, nil
}

func TestFetcherBodyReadErrorIsNotDecodeError(t *testing.T) {
	f := NewFetcher(time.Second, map[string]http.RoundTripper{"blob": truncatedRoundTripper{}})
	_, _, err := f.Fetch(context.Background(), "blob:gallery/abc")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrDecode) {
		t.Fatalf("read failure classed as decode error: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want it to wrap the read error", err)
	}
}

func TestSplitAndDecodeDataURI(t *testing.T) {
	uri := DataURI("image/jpeg", tenBytes)

	mt, b64, err := SplitDataURI(uri)
	if err != nil {
		t.Fatal(err)
	}
	if mt != "image/jpeg" || b64 != base64.StdEncoding.EncodeToString(tenBytes) {
		t.Fatalf("SplitDataURI = %q, %q", mt, b64)
	}
	if JPEGDataURI(b64) != uri {
		t.Fatalf("JPEGDataURI mismatch")
	}

	data, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, tenBytes) {
		t.Fatalf("DecodeDataURI = %v", data)
	}

	for _, bad := range []string{"", "http://x", "data:image/jpeg,abc", "data:image/jpeg;base64,", "data:image/jpeg;base64"} {
		if _, _, err := SplitDataURI(bad); !errors.Is(err, ErrDecode) {
			t.Errorf("SplitDataURI(%q) = %v, want ErrDecode", bad, err)
		}
	}
	if _, err := DecodeDataURI("data:image/jpeg;base64,!!!"); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode for invalid base64, got %v", err)
	}
}

func TestMediaTypeOf(t *testing.T) {
	tests := map[string]string{
		"":                         "image/jpeg",
		"image/png":                "image/png",
		"image/webp; charset=utf8": "image/webp",
		"application/octet-stream": "image/jpeg",
		";;;":                      "image/jpeg",
	}
	for in, want := range tests {
		if got := mediaTypeOf(in); got != want {
			t.Errorf("mediaTypeOf(%q) = %q, want %q", in, got, want)
		}
	}
}
