package dedup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/klauspost/compress/zstd"

	"github.com/openretail/pos-reconciler/internal/blobstore"
	"github.com/openretail/pos-reconciler/internal/ingest"
)

// setFileName is the fingerprint-set blob within a scope.
const setFileName = "record_hashes.json"

// Config configures the dedup filter.
type Config struct {
	HashPrefix      string // key prefix of fingerprint-set blobs
	ProcessedPrefix string // key prefix of audit artifacts
	FailOpen        bool   // admit records when the set cannot be read
	CompressAudit   bool   // zstd-compress the audit artifact
}

// Filter drops records whose fingerprint was already recorded in the
// per-scope fingerprint set. The set only ever grows: fingerprints are
// appended, never removed.
type Filter struct {
	store blobstore.Store
	cfg   Config
	log   *slog.Logger
}

// NewFilter creates a dedup filter over the given store.
func NewFilter(store blobstore.Store, cfg Config, log *slog.Logger) *Filter {
	return &Filter{store: store, cfg: cfg, log: log}
}

// setKey returns the fingerprint-set blob key for a raw-bucket scope.
func (f *Filter) setKey(scope string) string {
	if scope == "" {
		return f.cfg.HashPrefix + setFileName
	}
	return f.cfg.HashPrefix + scope + "/" + setFileName
}

// loadSet reads the fingerprint set for a scope. A missing blob is an
// empty set, created lazily by the next Record call.
func (f *Filter) loadSet(ctx context.Context, scope string) ([]string, error) {
	data, err := f.store.Get(ctx, f.setKey(scope))
	if err != nil {
		if blobstore.IsNotFound(err) {
			f.log.Info("fingerprint set does not exist yet", "scope", scope)
			return nil, nil
		}
		return nil, fmt.Errorf("load fingerprint set %s: %w", scope, err)
	}

	var hashes []string
	if err := json.Unmarshal(data, &hashes); err != nil {
		return nil, fmt.Errorf("parse fingerprint set %s: %w", scope, err)
	}
	return hashes, nil
}

// Seen reports whether the digest was already recorded for the scope.
func (f *Filter) Seen(ctx context.Context, scope, digest string) (bool, error) {
	hashes, err := f.loadSet(ctx, scope)
	if err != nil {
		if f.cfg.FailOpen {
			f.log.Warn("fingerprint lookup failed, admitting record", "error", err)
			return false, nil
		}
		return false, err
	}

	for _, h := range hashes {
		if h == digest {
			return true, nil
		}
	}
	return false, nil
}

// Record merges a batch of new digests into the scope's fingerprint set
// in one read-modify-write. Previously recorded digests are preserved.
func (f *Filter) Record(ctx context.Context, scope string, digests []string) error {
	if len(digests) == 0 {
		return nil
	}

	hashes, err := f.loadSet(ctx, scope)
	if err != nil {
		return err
	}

	hashes = append(hashes, digests...)

	data, err := json.Marshal(hashes)
	if err != nil {
		return fmt.Errorf("marshal fingerprint set %s: %w", scope, err)
	}
	if err := f.store.Put(ctx, f.setKey(scope), data); err != nil {
		return fmt.Errorf("write fingerprint set %s: %w", scope, err)
	}

	f.log.Info("recorded new fingerprints", "scope", scope, "count", len(digests))
	return nil
}

// Apply filters a batch of records against the scope's fingerprint set,
// records the survivors' digests, and persists an audit copy of the
// surviving records under the processed prefix. Returns the surviving
// records and the number of duplicates dropped.
func (f *Filter) Apply(ctx context.Context, scope, artifactName string, records []ingest.OrderRecord) ([]ingest.OrderRecord, int, error) {
	existing, err := f.loadSet(ctx, scope)
	if err != nil {
		if !f.cfg.FailOpen {
			return nil, 0, err
		}
		f.log.Warn("fingerprint set unreadable, admitting whole batch", "error", err)
		existing = nil
	}

	seen := make(map[string]struct{}, len(existing))
	for _, h := range existing {
		seen[h] = struct{}{}
	}

	var unique []ingest.OrderRecord
	var newDigests []string
	duplicates := 0

	for _, rec := range records {
		digest := Fingerprint(rec)
		if _, dup := seen[digest]; dup {
			duplicates++
			f.log.Debug("skipping duplicate record", "digest", digest)
			continue
		}
		// Also dedup within the batch itself.
		seen[digest] = struct{}{}
		newDigests = append(newDigests, digest)
		unique = append(unique, rec)
	}

	if err := f.Record(ctx, scope, newDigests); err != nil {
		return nil, 0, err
	}

	if len(unique) > 0 && artifactName != "" {
		if err := f.writeAudit(ctx, artifactName, unique, newDigests); err != nil {
			return nil, 0, err
		}
	}

	return unique, duplicates, nil
}

// writeAudit persists the denormalized copy of surviving records for
// audit and replay.
func (f *Filter) writeAudit(ctx context.Context, name string, records []ingest.OrderRecord, digests []string) error {
	data, err := ingest.WriteCSV(records, digests)
	if err != nil {
		return fmt.Errorf("build audit artifact %s: %w", name, err)
	}

	key := f.cfg.ProcessedPrefix + name + ".csv"
	if f.cfg.CompressAudit {
		compressed, err := compress(data)
		if err != nil {
			return fmt.Errorf("compress audit artifact %s: %w", name, err)
		}
		data = compressed
		key += ".zst"
	}

	if err := f.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write audit artifact %s: %w", key, err)
	}

	f.log.Info("stored audit artifact", "key", key, "records", len(records))
	return nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
