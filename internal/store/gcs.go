package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// GCSStore is the durable artifact store. Writes are conditional on the object
// not existing, so two runs racing on the same key cannot clobber each other;
// the loser of the race observes the 412 precondition failure and treats the
// artifact as already present.
type GCSStore struct {
	bucket  *storage.BucketHandle
	prefix  string
	timeout time.Duration
}

// NewGCSStore roots the store at prefix inside the bucket; keys stay relative
// to it, mirroring how LocalStore keys are relative to its directory.
func NewGCSStore(client *storage.Client, bucketName, prefix string) *GCSStore {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &GCSStore{
		bucket:  client.Bucket(bucketName),
		prefix:  prefix,
		timeout: 2 * time.Minute,
	}
}

func (s *GCSStore) object(key string) string {
	return s.prefix + key
}

func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.bucket.Object(s.object(key)).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("attrs for %s: %w", key, err)
}

func (s *GCSStore) Read(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	r, err := s.bucket.Object(s.object(key)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Write stores data at key only if the object does not already exist. An
// existing object is not a failure in an idempotent workflow.
func (s *GCSStore) Write(ctx context.Context, key string, data []byte, opts WriteOptions) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	w := s.bucket.Object(s.object(key)).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.CacheControl = opts.CacheControl

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "key", key)
			return nil
		}
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "key", key)
			return nil
		}
		return fmt.Errorf("failed to finalize write of %s: %w", key, err)
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var keys []string
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.object(prefix)})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		keys = append(keys, strings.TrimPrefix(attrs.Name, s.prefix))
	}
	return keys, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 412
}
