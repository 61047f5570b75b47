package blobstore

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob" // in-memory driver
	"gocloud.dev/gcerrors"
)

// MemStore keeps blobs in process memory. Test and scratch use only.
type MemStore struct {
	bucket *blob.Bucket
	prefix string
}

// NewMemStore creates a new in-memory store.
func NewMemStore(prefix string) (*MemStore, error) {
	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	if err != nil {
		return nil, fmt.Errorf("open mem bucket: %w", err)
	}
	return &MemStore{bucket: bucket, prefix: prefix}, nil
}

// Get reads the blob at key.
func (s *MemStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, s.prefix+key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Put fully overwrites the blob at key.
func (s *MemStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.bucket.WriteAll(ctx, s.prefix+key, data, nil); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Exists checks whether the key is present.
func (s *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.bucket.Exists(ctx, s.prefix+key)
}

// URI returns the canonical URI for the given key.
func (s *MemStore) URI(key string) string {
	return "mem://" + s.prefix + key
}

// Close releases the bucket.
func (s *MemStore) Close() error {
	return s.bucket.Close()
}
