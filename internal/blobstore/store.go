package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("blob not found")

// ErrVersionConflict is returned by PutVersioned when the blob changed
// since it was loaded.
var ErrVersionConflict = errors.New("blob version conflict")

// IsNotFound reports whether err means the blob does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store abstracts reading and writing opaque text blobs by key.
// Backends offer no locks, transactions, or compare-and-swap; callers
// that need read-modify-write semantics go through the versioned helpers
// below.
type Store interface {
	// Get reads the blob at key. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put fully overwrites the blob at key.
	Put(ctx context.Context, key string, data []byte) error

	// Exists checks whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// URI returns the canonical URI for the given key.
	// For local: file:///path, GCS: gs://bucket/path, S3: s3://bucket/path
	URI(key string) string

	// Close releases any resources.
	Close() error
}

// Version is an opaque token identifying the content of a blob at load time.
// The zero value means "blob did not exist".
type Version string

// NoVersion is the version token for a blob that was absent at load time.
const NoVersion Version = ""

// versionOf derives the content-hash version token for a blob.
func versionOf(data []byte) Version {
	sum := sha256.Sum256(data)
	return Version(hex.EncodeToString(sum[:]))
}

// GetVersioned reads a blob together with its version token.
// A missing blob yields (nil, NoVersion, nil) so callers can treat
// "not found" as an empty document.
func GetVersioned(ctx context.Context, s Store, key string) ([]byte, Version, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NoVersion, nil
		}
		return nil, NoVersion, err
	}
	return data, versionOf(data), nil
}

// PutVersioned overwrites key only if its current content still matches
// expect. Returns ErrVersionConflict when another writer got there first.
//
// This is optimistic concurrency layered over stores that have no CAS
// primitive: the check-then-write window is narrowed, not closed. It
// catches the common lost-update case without requiring a transactional
// backend.
func PutVersioned(ctx context.Context, s Store, key string, data []byte, expect Version) error {
	current, err := s.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		if expect != NoVersion {
			return fmt.Errorf("%w: %s was deleted since load", ErrVersionConflict, key)
		}
	case err != nil:
		return fmt.Errorf("version check %s: %w", key, err)
	default:
		if versionOf(current) != expect {
			return fmt.Errorf("%w: %s changed since load", ErrVersionConflict, key)
		}
	}

	if err := s.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Config configures the blob store backend.
type Config struct {
	Backend string // "local" | "s3" | "gcs" | "mem"

	// Local filesystem
	LocalDir string

	// GCS
	GCSBucket string

	// S3 (also works for B2, R2, MinIO)
	S3Bucket   string
	S3Endpoint string // custom endpoint for B2/MinIO/R2
	S3Region   string

	// Common
	Prefix string // path prefix within bucket or local dir
}

// New creates a blob store backend based on configuration.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "local":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("LocalDir required for local backend")
		}
		return NewLocalStore(cfg.LocalDir, cfg.Prefix)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3Bucket required for s3 backend")
		}
		return NewS3Store(cfg.S3Bucket, cfg.Prefix, cfg.S3Endpoint, cfg.S3Region)
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCSBucket required for gcs backend")
		}
		return NewGCSStore(cfg.GCSBucket, cfg.Prefix)
	case "mem":
		return NewMemStore(cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
