// Package sink persists reconciled rows to the blob store.
package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/openretail/pos-reconciler/internal/blobstore"
	"github.com/openretail/pos-reconciler/internal/reconcile"
)

var (
	transactionHeaders = []string{"transaction_id", "date", "time", "location_id", "payment_type", "total_spend"}
	basketHeaders      = []string{"basket_id", "transaction_id", "product_id"}
)

// CSVSink writes each group's transaction and basket rows as CSV blobs
// under transactions/<location>/<date>/ and baskets/<location>/<date>/.
type CSVSink struct {
	store  blobstore.Store
	prefix string
	log    *slog.Logger
}

// NewCSVSink creates a sink writing under the given key prefix.
func NewCSVSink(store blobstore.Store, prefix string, log *slog.Logger) *CSVSink {
	return &CSVSink{
		store:  store,
		prefix: prefix,
		log:    log.With("component", "sink"),
	}
}

// WriteGroup persists one group's rows. The two blobs are written
// independently; a failure on the second leaves the first in place.
func (s *CSVSink) WriteGroup(ctx context.Context, date, locationFolder string, transactions []reconcile.TransactionRow, baskets []reconcile.BasketRow) error {
	txKey := fmt.Sprintf("%stransactions/%s/%s/transactions.csv", s.prefix, locationFolder, date)
	txData, err := encodeTransactions(transactions)
	if err != nil {
		return fmt.Errorf("encode %s: %w", txKey, err)
	}
	if err := s.store.Put(ctx, txKey, txData); err != nil {
		return fmt.Errorf("write %s: %w", txKey, err)
	}

	basketKey := fmt.Sprintf("%sbaskets/%s/%s/baskets.csv", s.prefix, locationFolder, date)
	basketData, err := encodeBaskets(baskets)
	if err != nil {
		return fmt.Errorf("encode %s: %w", basketKey, err)
	}
	if err := s.store.Put(ctx, basketKey, basketData); err != nil {
		return fmt.Errorf("write %s: %w", basketKey, err)
	}

	s.log.Info("wrote group rows",
		"transactions", txKey,
		"baskets", basketKey,
		"rows", len(transactions)+len(baskets),
	)
	return nil
}

func encodeTransactions(rows []reconcile.TransactionRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(transactionHeaders); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.ID),
			r.Date,
			r.Time,
			strconv.Itoa(r.LocationID),
			r.PaymentType,
			fmt.Sprintf("%.2f", r.TotalSpend),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func encodeBaskets(rows []reconcile.BasketRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(basketHeaders); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.ID),
			strconv.Itoa(r.TransactionID),
			strconv.Itoa(r.ProductID),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// NullSink discards all rows. Useful for dry runs.
type NullSink struct{}

// WriteGroup implements reconcile.Sink and does nothing.
func (NullSink) WriteGroup(context.Context, string, string, []reconcile.TransactionRow, []reconcile.BasketRow) error {
	return nil
}
