package gallery

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IndexKey is the index store key holding the serialized photo list.
const IndexKey = "photos"

// PhotoRecord is one photo in the gallery.
type PhotoRecord struct {
	// Filepath is the durable identifier: the storage URI on native
	// platforms, the bare blob name on browser platforms.
	Filepath string `json:"filepath"`
	// DisplayPath is a locator the UI can render directly. Never persisted.
	DisplayPath string `json:"displayPath,omitempty"`
}

// BlobName returns the blob store object name for the record.
func (r PhotoRecord) BlobName() string {
	return BlobName(r.Filepath)
}

// BlobName returns the last path segment of filepath.
func BlobName(filepath string) string {
	if i := strings.LastIndexAny(filepath, `/\`); i >= 0 {
		return filepath[i+1:]
	}
	return filepath
}

// indexEntry is the persisted shape of a record. WebviewPath is read for
// compatibility with older lists and never written.
type indexEntry struct {
	Filepath    string `json:"filepath"`
	WebviewPath string `json:"webviewPath,omitempty"`
}

func encodeIndex(photos []PhotoRecord) ([]byte, error) {
	entries := make([]indexEntry, len(photos))
	for i, p := range photos {
		entries[i] = indexEntry{Filepath: p.Filepath}
	}
	return json.Marshal(entries)
}

// decodeIndex drops any persisted display path; it is never trusted. An
// entry without a filepath fails the whole list so memory never differs from
// what is stored.
func decodeIndex(data []byte) ([]PhotoRecord, error) {
	var entries []indexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: index value is not a photo list: %v", ErrDecode, err)
	}
	photos := make([]PhotoRecord, 0, len(entries))
	for i, e := range entries {
		if e.Filepath == "" {
			return nil, fmt.Errorf("%w: index entry %d has no filepath", ErrDecode, i)
		}
		photos = append(photos, PhotoRecord{Filepath: e.Filepath})
	}
	return photos, nil
}
