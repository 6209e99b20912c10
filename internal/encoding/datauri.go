// Package encoding converts transient resource URIs into portable base64
// data URIs and back.
package encoding

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"
)

// ErrDecode is returned when a resource cannot be turned into a data URI.
var ErrDecode = errors.New("encoding: decode failed")

// JPEGPrefix is the data URI header used for stored photos.
const JPEGPrefix = "data:image/jpeg;base64,"

// DataURI encodes data as a base64 data URI with the given media type.
func DataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// JPEGDataURI wraps already base64-encoded JPEG text in a data URI.
func JPEGDataURI(b64 string) string {
	return JPEGPrefix + b64
}

// SplitDataURI returns the media type and base64 body of a base64 data URI.
func SplitDataURI(uri string) (mediaType, b64 string, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", "", fmt.Errorf("%w: not a data URI", ErrDecode)
	}
	header, body, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", fmt.Errorf("%w: missing data URI body", ErrDecode)
	}
	header, ok = strings.CutSuffix(header, ";base64")
	if !ok {
		return "", "", fmt.Errorf("%w: data URI is not base64", ErrDecode)
	}
	if body == "" {
		return "", "", fmt.Errorf("%w: empty data URI body", ErrDecode)
	}
	return header, body, nil
}

// DecodeDataURI returns the raw bytes carried by a base64 data URI.
func DecodeDataURI(uri string) ([]byte, error) {
	_, b64, err := SplitDataURI(uri)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}

// mediaTypeOf returns the bare media type of a Content-Type header, falling
// back to image/jpeg when the header is missing or malformed.
func mediaTypeOf(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "" || mt == "application/octet-stream" {
		return "image/jpeg"
	}
	return mt
}
