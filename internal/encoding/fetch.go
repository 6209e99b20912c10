package encoding

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher downloads transient resources and re-encodes them as data URIs.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a Fetcher whose client gives up after timeout.
// Extra protocols (for example "blob") are registered on the transport so
// in-process transient URIs resolve without a network round trip.
func NewFetcher(timeout time.Duration, protocols map[string]http.RoundTripper) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	for scheme, rt := range protocols {
		transport.RegisterProtocol(scheme, rt)
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Fetch returns the body and media type of uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("fetch %s failed: %s: %s", uri, resp.Status, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", uri, err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: %s returned an empty body", ErrDecode, uri)
	}
	return data, mediaTypeOf(resp.Header.Get("Content-Type")), nil
}

// DataURI fetches uri and returns its body as a base64 data URI.
func (f *Fetcher) DataURI(ctx context.Context, uri string) (string, error) {
	data, mediaType, err := f.Fetch(ctx, uri)
	if err != nil {
		return "", err
	}
	return DataURI(mediaType, data), nil
}
