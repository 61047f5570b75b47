package sink

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/parquet-go/parquet-go"

	"github.com/openretail/pos-reconciler/internal/blobstore"
	"github.com/openretail/pos-reconciler/internal/reconcile"
)

// transactionParquetRow mirrors TransactionRow with parquet column tags.
type transactionParquetRow struct {
	TransactionID int64   `parquet:"transaction_id"`
	Date          string  `parquet:"date"`
	Time          string  `parquet:"time"`
	LocationID    int64   `parquet:"location_id"`
	PaymentType   string  `parquet:"payment_type"`
	TotalSpend    float64 `parquet:"total_spend"`
}

// basketParquetRow mirrors BasketRow with parquet column tags.
type basketParquetRow struct {
	BasketID      int64 `parquet:"basket_id"`
	TransactionID int64 `parquet:"transaction_id"`
	ProductID     int64 `parquet:"product_id"`
}

// ParquetSink writes each group's rows as Parquet blobs, using the same
// key layout as CSVSink with a .parquet extension. Suited for warehouse
// engines that ingest columnar files directly.
type ParquetSink struct {
	store  blobstore.Store
	prefix string
	log    *slog.Logger
}

// NewParquetSink creates a sink writing under the given key prefix.
func NewParquetSink(store blobstore.Store, prefix string, log *slog.Logger) *ParquetSink {
	return &ParquetSink{
		store:  store,
		prefix: prefix,
		log:    log.With("component", "sink"),
	}
}

// WriteGroup persists one group's rows as two Parquet blobs.
func (s *ParquetSink) WriteGroup(ctx context.Context, date, locationFolder string, transactions []reconcile.TransactionRow, baskets []reconcile.BasketRow) error {
	txRows := make([]transactionParquetRow, len(transactions))
	for i, r := range transactions {
		txRows[i] = transactionParquetRow{
			TransactionID: int64(r.ID),
			Date:          r.Date,
			Time:          r.Time,
			LocationID:    int64(r.LocationID),
			PaymentType:   r.PaymentType,
			TotalSpend:    r.TotalSpend,
		}
	}
	txKey := fmt.Sprintf("%stransactions/%s/%s/transactions.parquet", s.prefix, locationFolder, date)
	if err := writeParquet(ctx, s.store, txKey, txRows); err != nil {
		return err
	}

	basketRows := make([]basketParquetRow, len(baskets))
	for i, r := range baskets {
		basketRows[i] = basketParquetRow{
			BasketID:      int64(r.ID),
			TransactionID: int64(r.TransactionID),
			ProductID:     int64(r.ProductID),
		}
	}
	basketKey := fmt.Sprintf("%sbaskets/%s/%s/baskets.parquet", s.prefix, locationFolder, date)
	if err := writeParquet(ctx, s.store, basketKey, basketRows); err != nil {
		return err
	}

	s.log.Info("wrote group rows",
		"transactions", txKey,
		"baskets", basketKey,
		"rows", len(transactions)+len(baskets),
	)
	return nil
}

func writeParquet[T any](ctx context.Context, store blobstore.Store, key string, rows []T) error {
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[T](&buf)
	if _, err := w.Write(rows); err != nil {
		w.Close()
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Put(ctx, key, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
