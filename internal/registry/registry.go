package registry

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/openretail/pos-reconciler/internal/blobstore"
)

// Keys names the shared-state blobs the registry manages.
type Keys struct {
	Locations string
	Products  string
	Counters  string
}

// Registry loads and flushes the shared entity catalogs and the ID
// counter ledger. Each invocation loads its own working copies, mutates
// them in memory, and writes back once at the end. Writes go through
// the versioned helpers so a concurrent invocation surfaces as
// ErrConcurrentUpdate instead of a silent lost update.
type Registry struct {
	store blobstore.Store
	keys  Keys
	log   *slog.Logger
}

// New constructs a Registry over the given store.
func New(store blobstore.Store, keys Keys, log *slog.Logger) *Registry {
	return &Registry{
		store: store,
		keys:  keys,
		log:   log.With("component", "registry"),
	}
}

// LoadLocations reads the location catalog into a working copy.
// A missing blob yields an empty catalog.
func (r *Registry) LoadLocations(ctx context.Context) (*Locations, error) {
	data, version, err := blobstore.GetVersioned(ctx, r.store, r.keys.Locations)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}

	loc := &Locations{byTown: make(map[string]int), version: version}
	if len(data) == 0 {
		return loc, nil
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse locations catalog: %w", err)
	}
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) < 2 {
			continue
		}
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("locations catalog row %d: bad id %q", i, row[0])
		}
		loc.byTown[row[1]] = id
	}
	r.log.Debug("loaded location catalog", "entries", loc.Len())
	return loc, nil
}

// FlushLocations writes the catalog back if it grew. Returns
// ErrConcurrentUpdate when the blob changed since LoadLocations.
func (r *Registry) FlushLocations(ctx context.Context, loc *Locations) error {
	if !loc.Dirty() {
		return nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "town"}); err != nil {
		return fmt.Errorf("encode locations catalog: %w", err)
	}
	for _, row := range loc.rows() {
		if err := w.Write(row[:]); err != nil {
			return fmt.Errorf("encode locations catalog: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode locations catalog: %w", err)
	}

	if err := blobstore.PutVersioned(ctx, r.store, r.keys.Locations, buf.Bytes(), loc.version); err != nil {
		if errors.Is(err, blobstore.ErrVersionConflict) {
			return fmt.Errorf("flush locations: %w", ErrConcurrentUpdate)
		}
		return fmt.Errorf("flush locations: %w", err)
	}
	r.log.Info("flushed location catalog", "entries", loc.Len())
	return nil
}

// LoadProducts reads the product catalog into a working copy.
// A missing blob yields an empty catalog with ids starting at 1.
func (r *Registry) LoadProducts(ctx context.Context) (*ProductCatalog, error) {
	data, version, err := blobstore.GetVersioned(ctx, r.store, r.keys.Products)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	cat := &ProductCatalog{
		index:   make(map[identityKey]int),
		nextID:  1,
		version: version,
	}
	if len(data) == 0 {
		return cat, nil
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse product catalog: %w", err)
	}
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) < 5 {
			continue
		}
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("product catalog row %d: bad id %q", i, row[0])
		}
		price, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("product catalog row %d: bad price %q", i, row[4])
		}
		flavour := row[2]
		if flavour == nullFlavour {
			flavour = ""
		}
		p := Product{ID: id, Name: row[1], Flavour: flavour, Size: row[3], Price: price}
		cat.products = append(cat.products, p)
		cat.index[keyFor(p.Name, p.Flavour, p.Size, p.Price)] = p.ID
		if id >= cat.nextID {
			cat.nextID = id + 1
		}
	}
	r.log.Debug("loaded product catalog", "entries", cat.Len())
	return cat, nil
}

// FlushProducts writes the catalog back if it grew. Returns
// ErrConcurrentUpdate when the blob changed since LoadProducts.
func (r *Registry) FlushProducts(ctx context.Context, cat *ProductCatalog) error {
	if !cat.Dirty() {
		return nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "name", "flavour", "size", "price"}); err != nil {
		return fmt.Errorf("encode product catalog: %w", err)
	}
	for _, p := range cat.products {
		row := []string{
			strconv.Itoa(p.ID),
			p.Name,
			flavourKey(p.Flavour),
			p.Size,
			fmt.Sprintf("%.2f", p.Price),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("encode product catalog: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode product catalog: %w", err)
	}

	if err := blobstore.PutVersioned(ctx, r.store, r.keys.Products, buf.Bytes(), cat.version); err != nil {
		if errors.Is(err, blobstore.ErrVersionConflict) {
			return fmt.Errorf("flush products: %w", ErrConcurrentUpdate)
		}
		return fmt.Errorf("flush products: %w", err)
	}
	r.log.Info("flushed product catalog", "entries", cat.Len())
	return nil
}

// IDBatch is a contiguous run of reserved ids for one entity type.
type IDBatch struct {
	Start int // first id in the batch, inclusive
	Count int
}

// Next pops the next id from the batch. Panics if the batch is
// exhausted; callers size batches to their exact need.
func (b *IDBatch) Next() int {
	if b.Count <= 0 {
		panic("id batch exhausted")
	}
	id := b.Start
	b.Start++
	b.Count--
	return id
}

// ReserveIDBatch atomically advances the counter ledger for each
// requested entity type and returns the reserved ranges. Ranges handed
// to distinct invocations never overlap as long as the version check
// holds; a detected race returns ErrConcurrentUpdate and reserves
// nothing. Entity types with a zero count are left untouched.
func (r *Registry) ReserveIDBatch(ctx context.Context, counts map[string]int) (map[string]IDBatch, error) {
	data, version, err := blobstore.GetVersioned(ctx, r.store, r.keys.Counters)
	if err != nil {
		return nil, fmt.Errorf("load counter ledger: %w", err)
	}

	counters := make(map[string]int)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &counters); err != nil {
			return nil, fmt.Errorf("parse counter ledger: %w", err)
		}
	}

	batches := make(map[string]IDBatch, len(counts))
	for entity, n := range counts {
		if n <= 0 {
			continue
		}
		last := counters[entity]
		batches[entity] = IDBatch{Start: last + 1, Count: n}
		counters[entity] = last + n
	}
	if len(batches) == 0 {
		return batches, nil
	}

	out, err := json.MarshalIndent(counters, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode counter ledger: %w", err)
	}
	if err := blobstore.PutVersioned(ctx, r.store, r.keys.Counters, out, version); err != nil {
		if errors.Is(err, blobstore.ErrVersionConflict) {
			return nil, fmt.Errorf("reserve ids: %w", ErrConcurrentUpdate)
		}
		return nil, fmt.Errorf("reserve ids: %w", err)
	}

	for entity, b := range batches {
		r.log.Debug("reserved id batch", "entity_type", entity, "start", b.Start, "count", b.Count)
	}
	return batches, nil
}
