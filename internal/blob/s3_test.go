package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// apiError implements smithy.APIError for test assertions.
type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string                 { return e.msg }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.msg }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

var (
	errNoSuchKey = &apiError{code: "NoSuchKey", msg: "no such key"}
	errNotFound  = &apiError{code: "NotFound", msg: "not found"}
)

// mockS3 is a thread-safe in-memory S3 backend.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, errNoSuchKey
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*in.Key]; !ok {
		return nil, errNotFound
	}
	return &s3.HeadObjectOutput{}, nil
}

func (m *mockS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := ""
	if in.Prefix != nil {
		prefix = *in.Prefix
	}
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		k := k
		out.Contents = append(out.Contents, types.Object{Key: &k})
	}
	return out, nil
}

type mockPresigner struct {
	expires time.Duration
}

func (p *mockPresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	p.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + *in.Bucket + "/" + *in.Key}, nil
}

func TestS3WriteReadDelete(t *testing.T) {
	mock := newMockS3()
	s := NewS3(mock, nil, "photos-bucket", "gallery/", 0)
	ctx := context.Background()

	uri, err := s.Write(ctx, "1.jpeg", []byte("data"))
	if err != nil {
		t.Fatal(err)
	}
	if uri != "s3://photos-bucket/gallery/1.jpeg" {
		t.Fatalf("uri = %q", uri)
	}
	if _, ok := mock.objects["gallery/1.jpeg"]; !ok {
		t.Fatalf("object not stored under prefixed key: %v", mock.objects)
	}

	got, err := s.Read(ctx, "1.jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "data" {
		t.Fatalf("got %q", got)
	}

	if err := s.Delete(ctx, "1.jpeg"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read(ctx, "1.jpeg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "1.jpeg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on missing delete, got %v", err)
	}
}

func TestS3WriteError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("boom")
	s := NewS3(mock, nil, "b", "", 0)
	if _, err := s.Write(context.Background(), "1.jpeg", []byte("x")); err == nil {
		t.Fatal("expected error")
	}
}

func TestS3List(t *testing.T) {
	mock := newMockS3()
	mock.objects["gallery/a.jpeg"] = nil
	mock.objects["gallery/b.jpeg"] = nil
	mock.objects["gallery/nested/c.jpeg"] = nil
	mock.objects["other/d.jpeg"] = nil
	s := NewS3(mock, nil, "b", "gallery", 0)

	names, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(names, ",") != "a.jpeg,b.jpeg" {
		t.Fatalf("List = %v", names)
	}
}

func TestS3RenderableURI(t *testing.T) {
	presigner := &mockPresigner{}
	s := NewS3(newMockS3(), presigner, "photos-bucket", "", 10*time.Minute)

	got, err := s.RenderableURI(context.Background(), "s3://photos-bucket/gallery/1.jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://signed.example/photos-bucket/gallery/1.jpeg" {
		t.Fatalf("RenderableURI = %q", got)
	}
	if presigner.expires != 10*time.Minute {
		t.Fatalf("expires = %v", presigner.expires)
	}

	if _, err := s.RenderableURI(context.Background(), "file:///tmp/1.jpeg"); err == nil {
		t.Fatal("expected error for non-s3 URI")
	}
}
