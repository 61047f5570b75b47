package reconcile

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/openretail/pos-reconciler/internal/blobstore"
	"github.com/openretail/pos-reconciler/internal/dedup"
	"github.com/openretail/pos-reconciler/internal/ingest"
	"github.com/openretail/pos-reconciler/internal/registry"
	"github.com/openretail/pos-reconciler/internal/vocab"
)

// memorySink captures emitted groups for assertions.
type memorySink struct {
	groups []capturedGroup
}

type capturedGroup struct {
	date         string
	folder       string
	transactions []TransactionRow
	baskets      []BasketRow
}

func (s *memorySink) WriteGroup(_ context.Context, date, folder string, transactions []TransactionRow, baskets []BasketRow) error {
	s.groups = append(s.groups, capturedGroup{
		date:         date,
		folder:       folder,
		transactions: transactions,
		baskets:      baskets,
	})
	return nil
}

type harness struct {
	orch  *Orchestrator
	sink  *memorySink
	store blobstore.Store
	reg   *registry.Registry
}

func newHarness(t *testing.T, withDedup bool) *harness {
	t.Helper()
	store, err := blobstore.NewMemStore("")
	if err != nil {
		t.Fatalf("NewMemStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New(store, registry.Keys{
		Locations: "registry/locations.csv",
		Products:  "registry/products.csv",
		Counters:  "registry/id_counters.json",
	}, log)

	var filter *dedup.Filter
	if withDedup {
		filter = dedup.NewFilter(store, dedup.Config{
			HashPrefix:      "hash_registry/",
			ProcessedPrefix: "processed/",
		}, log)
	}

	sink := &memorySink{}
	return &harness{
		orch:  New(reg, sink, filter, vocab.Default(), log),
		sink:  sink,
		store: store,
		reg:   reg,
	}
}

func order(timestamp, town, customer, products, total, payment string) ingest.OrderRecord {
	return ingest.OrderRecord{
		TransactionTimestamp: timestamp,
		LocationName:         town,
		CustomerName:         customer,
		Products:             products,
		TransactionTotal:     total,
		PaymentMethod:        payment,
	}
}

func TestRunReconcilesSingleGroup(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	records := []ingest.OrderRecord{
		order("28/04/2025 14:30", "Springfield", "Homer",
			"Large Coffee - Vanilla - 3.50, Regular Tea - 2.00", "5.50", "card"),
		order("28/04/2025 15:00", "Springfield", "Marge",
			"Large Coffee - Vanilla - 3.50", "3.50", "cash"),
	}

	res, err := h.orch.Run(ctx, "orders", records)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Processed != 2 || res.Groups != 1 {
		t.Fatalf("res = %+v, want 2 processed in 1 group", res)
	}
	if len(h.sink.groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(h.sink.groups))
	}

	g := h.sink.groups[0]
	if g.date != "2025-04-28" || g.folder != "Springfield" {
		t.Errorf("group placed at %s/%s", g.date, g.folder)
	}
	if len(g.transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(g.transactions))
	}

	first := g.transactions[0]
	if first.ID != 1 || first.Time != "14:30:00" || first.PaymentType != "Card" || first.TotalSpend != 5.50 {
		t.Errorf("first transaction = %+v", first)
	}
	if g.transactions[1].ID != 2 || g.transactions[1].PaymentType != "Cash" {
		t.Errorf("second transaction = %+v", g.transactions[1])
	}

	// Three basket lines, contiguous ids, the shared product resolved once.
	if len(g.baskets) != 3 {
		t.Fatalf("got %d baskets, want 3", len(g.baskets))
	}
	for i, b := range g.baskets {
		if b.ID != i+1 {
			t.Errorf("basket %d has id %d, want %d", i, b.ID, i+1)
		}
	}
	if g.baskets[0].ProductID != g.baskets[2].ProductID {
		t.Error("identical vanilla coffees resolved to different products")
	}
	if g.baskets[0].ProductID == g.baskets[1].ProductID {
		t.Error("coffee and tea resolved to the same product")
	}
}

func TestRunSplitsGroupsByDateAndLocation(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	records := []ingest.OrderRecord{
		order("28/04/2025 09:00", "Springfield", "Homer", "Regular Tea - 2.00", "2.00", "cash"),
		order("28/04/2025 10:00", "North Haverbrook", "Lyle", "Regular Tea - 2.00", "2.00", "cash"),
		order("29/04/2025 09:00", "Springfield", "Marge", "Regular Tea - 2.00", "2.00", "cash"),
	}

	res, err := h.orch.Run(ctx, "orders", records)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Groups != 3 {
		t.Fatalf("got %d groups, want 3", res.Groups)
	}
	if h.sink.groups[1].folder != "North_Haverbrook" {
		t.Errorf("spaces not folded in folder name: %q", h.sink.groups[1].folder)
	}

	// Transaction ids must be disjoint and contiguous across groups.
	var ids []int
	for _, g := range h.sink.groups {
		for _, tx := range g.transactions {
			ids = append(ids, tx.ID)
		}
	}
	for i, id := range ids {
		if id != i+1 {
			t.Errorf("transaction ids not contiguous: %v", ids)
			break
		}
	}
}

func TestRunDropsDuplicateDeliveries(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	rec := order("28/04/2025 14:30", "Springfield", "Homer", "Regular Tea - 2.00", "2.00", "card")

	res, err := h.orch.Run(ctx, "batch1", []ingest.OrderRecord{rec})
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if res.Processed != 1 {
		t.Fatalf("first run processed %d, want 1", res.Processed)
	}

	// The same record redelivered must be dropped entirely.
	res, err = h.orch.Run(ctx, "batch2", []ingest.OrderRecord{rec})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if res.Duplicates != 1 || res.Processed != 0 || res.Groups != 0 {
		t.Errorf("redelivery result = %+v", res)
	}
	if len(h.sink.groups) != 1 {
		t.Errorf("duplicate delivery emitted a group")
	}
}

func TestRunRejectedGroupDoesNotAdvanceLedger(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	records := []ingest.OrderRecord{
		// Valid group.
		order("28/04/2025 09:00", "Springfield", "Homer", "Regular Tea - 2.00", "2.00", "cash"),
		// Invalid payment method poisons its whole group.
		order("28/04/2025 10:00", "Shelbyville", "Bart", "Regular Tea - 2.00", "2.00", "bitcoin"),
		order("28/04/2025 11:00", "Shelbyville", "Lisa", "Regular Tea - 2.00", "2.00", "cash"),
	}

	res, err := h.orch.Run(ctx, "orders", records)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Rejected != 2 {
		t.Errorf("rejected = %d, want 2", res.Rejected)
	}
	if res.Processed != 1 || res.Groups != 1 {
		t.Errorf("res = %+v, want the valid group emitted", res)
	}

	// The ledger must only reflect the emitted group.
	batches, err := h.reg.ReserveIDBatch(ctx, map[string]int{"transaction": 1})
	if err != nil {
		t.Fatalf("ReserveIDBatch failed: %v", err)
	}
	if b := batches["transaction"]; b.Start != 2 {
		t.Errorf("next transaction id = %d, want 2", b.Start)
	}
}

func TestRunSkipsUnparseableTimestamps(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	records := []ingest.OrderRecord{
		order("not a timestamp", "Springfield", "Homer", "Regular Tea - 2.00", "2.00", "cash"),
		order("28/04/2025 09:00", "Springfield", "Marge", "Regular Tea - 2.00", "2.00", "cash"),
	}

	res, err := h.orch.Run(ctx, "orders", records)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Malformed != 1 || res.Processed != 1 {
		t.Errorf("res = %+v, want 1 malformed and 1 processed", res)
	}
}

func TestRunFlushesCatalogsOnce(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	records := []ingest.OrderRecord{
		order("28/04/2025 09:00", "Springfield", "Homer",
			"Large Coffee - Vanilla - 3.50", "3.50", "cash"),
	}
	if _, err := h.orch.Run(ctx, "orders", records); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := h.store.Get(ctx, "registry/locations.csv")
	if err != nil {
		t.Fatalf("location catalog not flushed: %v", err)
	}
	if !strings.Contains(string(data), "1,Springfield") {
		t.Errorf("location catalog content:\n%s", data)
	}

	data, err = h.store.Get(ctx, "registry/products.csv")
	if err != nil {
		t.Fatalf("product catalog not flushed: %v", err)
	}
	if !strings.Contains(string(data), "Coffee,Vanilla,Large,3.50") {
		t.Errorf("product catalog content:\n%s", data)
	}
}

func TestRunSharesLocationAcrossBuckets(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	// Two buckets (different dates) referencing the same town.
	records := []ingest.OrderRecord{
		order("28/04/2025 09:00", "Springfield", "Homer", "Regular Tea - 2.00", "2.00", "cash"),
		order("29/04/2025 09:00", "Springfield", "Marge", "Regular Tea - 2.00", "2.00", "cash"),
	}
	res, err := h.orch.Run(ctx, "orders", records)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Groups != 2 {
		t.Fatalf("got %d groups, want 2", res.Groups)
	}

	if h.sink.groups[0].transactions[0].LocationID != h.sink.groups[1].transactions[0].LocationID {
		t.Error("second bucket did not reuse the location id from the first")
	}

	// One flush, one catalog entry.
	data, err := h.store.Get(ctx, "registry/locations.csv")
	if err != nil {
		t.Fatalf("location catalog not flushed: %v", err)
	}
	if got := strings.Count(string(data), "Springfield"); got != 1 {
		t.Errorf("catalog mentions Springfield %d times, want 1:\n%s", got, data)
	}
}

func TestRunReusesCatalogEntriesAcrossInvocations(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	rec := order("28/04/2025 09:00", "Springfield", "Homer",
		"Large Coffee - Vanilla - 3.50", "3.50", "cash")
	if _, err := h.orch.Run(ctx, "a", []ingest.OrderRecord{rec}); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	later := order("29/04/2025 09:00", "Springfield", "Marge",
		"Large Coffee - Vanilla - 3.50", "3.50", "card")
	if _, err := h.orch.Run(ctx, "b", []ingest.OrderRecord{later}); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	g1 := h.sink.groups[0]
	g2 := h.sink.groups[1]
	if g1.transactions[0].LocationID != g2.transactions[0].LocationID {
		t.Error("same town resolved to different location ids across invocations")
	}
	if g1.baskets[0].ProductID != g2.baskets[0].ProductID {
		t.Error("same product resolved to different ids across invocations")
	}
	if g2.transactions[0].ID != 2 {
		t.Errorf("second invocation transaction id = %d, want 2", g2.transactions[0].ID)
	}
}
