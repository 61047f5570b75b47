package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openretail/pos-reconciler/internal/dedup"
	"github.com/openretail/pos-reconciler/internal/ingest"
	"github.com/openretail/pos-reconciler/internal/logging"
	"github.com/openretail/pos-reconciler/internal/metrics"
	"github.com/openretail/pos-reconciler/internal/registry"
	"github.com/openretail/pos-reconciler/internal/transform"
	"github.com/openretail/pos-reconciler/internal/vocab"
)

// Entity types tracked by the counter ledger.
const (
	entityTransaction = "transaction"
	entityBasket      = "basket"
)

// Result summarizes one reconciliation invocation.
type Result struct {
	Received   int // records delivered
	Duplicates int // dropped by the dedup filter
	Unique     int // survivors of the dedup filter
	Malformed  int // unparseable timestamps, skipped individually
	Rejected   int // records in buckets rejected by validation
	Processed  int // records reconciled and emitted
	Groups     int // date/location groups emitted
}

// Orchestrator runs the reconciliation pipeline over one delivery.
type Orchestrator struct {
	reg     *registry.Registry
	sink    Sink
	filter  *dedup.Filter // nil disables deduplication
	vocab   vocab.Vocabulary
	log     *slog.Logger
	metrics *metrics.Metrics // nil disables instrumentation
}

// New constructs an orchestrator. Passing a nil filter disables the
// dedup stage.
func New(reg *registry.Registry, sink Sink, filter *dedup.Filter, v vocab.Vocabulary, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		reg:     reg,
		sink:    sink,
		filter:  filter,
		vocab:   v,
		log:     log.With("component", "reconcile"),
		metrics: metrics.Get(),
	}
}

// stagedRecord is one order after transformation but before id
// assignment.
type stagedRecord struct {
	town       string
	date       string
	timeOfDay  string
	payment    string
	total      float64
	candidates []transform.Candidate
}

// Run reconciles one delivery of order records. Buckets are validated
// in full before any ids are reserved for them, so a rejected bucket
// never advances the counter ledger. Catalog changes accumulate in
// memory and are flushed once at the end.
func (o *Orchestrator) Run(ctx context.Context, source string, records []ingest.OrderRecord) (*Result, error) {
	res := &Result{Received: len(records)}

	unique := records
	if o.filter != nil {
		var duplicates int
		var err error
		unique, duplicates, err = o.filter.Apply(ctx, "", source, records)
		if err != nil {
			o.countStorageError("dedup")
			return nil, fmt.Errorf("dedup stage: %w", err)
		}
		res.Duplicates = duplicates
		if m := o.metrics; m != nil {
			m.RecordsDuplicate.Add(float64(duplicates))
		}
	}
	res.Unique = len(unique)

	buckets, malformed := groupRecords(unique)
	res.Malformed = len(malformed)
	if len(malformed) > 0 {
		o.log.Warn("skipping records with unparseable timestamps", "count", len(malformed))
		if m := o.metrics; m != nil {
			m.RecordsMalformed.Add(float64(len(malformed)))
		}
	}
	if len(buckets) == 0 {
		o.log.Info("nothing to reconcile", "source", source)
		return res, nil
	}

	locations, err := o.reg.LoadLocations(ctx)
	if err != nil {
		o.countStorageError("load_locations")
		return nil, err
	}
	products, err := o.reg.LoadProducts(ctx)
	if err != nil {
		o.countStorageError("load_products")
		return nil, err
	}

	for _, bucket := range buckets {
		glog := logging.GroupLogger(o.log, bucket.Date, bucket.LocationFolder, len(bucket.Records))

		staged, err := o.stageBucket(bucket)
		if err != nil {
			res.Rejected += len(bucket.Records)
			glog.Error("rejecting group, validation failed", "error", err)
			o.countRejection(err)
			continue
		}

		if err := o.emitBucket(ctx, bucket, staged, locations, products); err != nil {
			return nil, err
		}
		res.Processed += len(bucket.Records)
		res.Groups++
		if m := o.metrics; m != nil {
			m.RecordsProcessed.Add(float64(len(bucket.Records)))
			m.GroupsProcessed.Inc()
		}
		glog.Info("reconciled group")
	}

	if err := o.flushCatalogs(ctx, locations, products); err != nil {
		return nil, err
	}

	o.log.Info("invocation complete",
		"source", source,
		"received", res.Received,
		"duplicates", res.Duplicates,
		"malformed", res.Malformed,
		"rejected", res.Rejected,
		"processed", res.Processed,
		"groups", res.Groups,
	)
	return res, nil
}

// stageBucket transforms every record of a bucket, failing on the first
// validation error. No shared state is touched here, so a failure
// leaves catalogs and the ledger exactly as loaded.
func (o *Orchestrator) stageBucket(bucket *Bucket) ([]stagedRecord, error) {
	staged := make([]stagedRecord, 0, len(bucket.Records))
	for _, rec := range bucket.Records {
		date, timeOfDay, err := transform.ParseTimestamp(rec.TransactionTimestamp)
		if err != nil {
			return nil, err
		}
		payment, err := transform.NormalizePayment(rec.PaymentMethod)
		if err != nil {
			return nil, err
		}
		total, err := transform.ParseTotal(rec.TransactionTotal)
		if err != nil {
			return nil, err
		}
		candidates, err := transform.ParseProductLine(rec.Products, o.vocab)
		if err != nil {
			return nil, err
		}
		staged = append(staged, stagedRecord{
			town:       rec.LocationName,
			date:       date,
			timeOfDay:  timeOfDay,
			payment:    payment,
			total:      total,
			candidates: candidates,
		})
	}
	return staged, nil
}

// emitBucket reserves id batches sized to the staged bucket, resolves
// entity identities, and writes the group's rows to the sink.
func (o *Orchestrator) emitBucket(ctx context.Context, bucket *Bucket, staged []stagedRecord, locations *registry.Locations, products *registry.ProductCatalog) error {
	basketCount := 0
	for _, s := range staged {
		basketCount += len(s.candidates)
	}

	batches, err := o.reg.ReserveIDBatch(ctx, map[string]int{
		entityTransaction: len(staged),
		entityBasket:      basketCount,
	})
	if err != nil {
		o.countStorageError("reserve_ids")
		return fmt.Errorf("group %s/%s: %w", bucket.Date, bucket.LocationFolder, err)
	}
	txBatch := batches[entityTransaction]
	basketBatch := batches[entityBasket]
	if m := o.metrics; m != nil {
		m.AddIDsReserved(entityTransaction, float64(txBatch.Count))
		m.AddIDsReserved(entityBasket, float64(basketBatch.Count))
	}

	transactions := make([]TransactionRow, 0, len(staged))
	baskets := make([]BasketRow, 0, basketCount)
	for _, s := range staged {
		locationID, created := locations.ResolveOrCreate(s.town)
		if created {
			o.countEntityCreated("location")
		}

		txID := txBatch.Next()
		transactions = append(transactions, TransactionRow{
			ID:          txID,
			Date:        s.date,
			Time:        s.timeOfDay,
			LocationID:  locationID,
			PaymentType: s.payment,
			TotalSpend:  s.total,
		})

		for _, cand := range s.candidates {
			productID, created := products.ResolveOrCreate(cand)
			if created {
				o.countEntityCreated("product")
			}
			baskets = append(baskets, BasketRow{
				ID:            basketBatch.Next(),
				TransactionID: txID,
				ProductID:     productID,
			})
		}
	}

	if err := o.sink.WriteGroup(ctx, bucket.Date, bucket.LocationFolder, transactions, baskets); err != nil {
		o.countStorageError("write_group")
		return fmt.Errorf("group %s/%s: %w", bucket.Date, bucket.LocationFolder, err)
	}
	return nil
}

// flushCatalogs writes back the dirty catalogs in one pass at the end
// of the invocation.
func (o *Orchestrator) flushCatalogs(ctx context.Context, locations *registry.Locations, products *registry.ProductCatalog) error {
	if locations.Dirty() {
		if err := o.reg.FlushLocations(ctx, locations); err != nil {
			o.countFlushFailure("locations", err)
			return err
		}
		if m := o.metrics; m != nil {
			m.IncRegistryFlush("locations")
		}
	}
	if products.Dirty() {
		if err := o.reg.FlushProducts(ctx, products); err != nil {
			o.countFlushFailure("products", err)
			return err
		}
		if m := o.metrics; m != nil {
			m.IncRegistryFlush("products")
		}
	}
	return nil
}

func (o *Orchestrator) countRejection(err error) {
	m := o.metrics
	if m == nil {
		return
	}
	var verr *transform.ValidationError
	if errors.As(err, &verr) {
		m.IncRejected(verr.Field)
		return
	}
	m.IncRejected("unknown")
}

func (o *Orchestrator) countEntityCreated(entityType string) {
	if m := o.metrics; m != nil {
		m.IncEntitiesCreated(entityType)
	}
}

func (o *Orchestrator) countStorageError(operation string) {
	if m := o.metrics; m != nil {
		m.IncStorageError(operation)
	}
}

func (o *Orchestrator) countFlushFailure(catalog string, err error) {
	m := o.metrics
	if m == nil {
		return
	}
	if errors.Is(err, registry.ErrConcurrentUpdate) {
		m.IncCatalogConflict(catalog)
		return
	}
	m.IncStorageError("flush_" + catalog)
}
