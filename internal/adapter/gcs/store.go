package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// ErrNotFound marks a locator that points at no readable object.
var ErrNotFound = errors.New("object not found")

type Store struct {
	svc    *storage.Service
	bucket string
}

func NewStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*Store, error) {
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Store{svc: svc, bucket: bucket}, nil
}

// Fetch resolves a gs://bucket/object locator to the object's bytes.
func (s *Store) Fetch(ctx context.Context, locator string) ([]byte, error) {
	bucket, object, err := parseLocator(locator)
	if err != nil {
		return nil, err
	}

	res, err := s.svc.Objects.Get(bucket, object).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 404 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, locator)
		}
		return nil, err
	}
	defer res.Body.Close()

	return io.ReadAll(res.Body)
}

// Store writes data into the configured bucket and returns its locator.
func (s *Store) Store(ctx context.Context, object, contentType string, data []byte) (string, error) {
	obj := &storage.Object{Name: object, ContentType: contentType}
	_, err := s.svc.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, object), nil
}

func parseLocator(locator string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(locator, "gs://")
	if !ok {
		return "", "", fmt.Errorf("invalid blob locator %q: expected gs:// scheme", locator)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid blob locator %q: expected gs://bucket/object", locator)
	}
	return bucket, object, nil
}
