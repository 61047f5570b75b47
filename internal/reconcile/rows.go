// Package reconcile orchestrates one reconciliation invocation: it
// filters duplicate orders, groups the survivors by date and location,
// resolves entity identities against the shared registry, reserves
// surrogate id batches, and emits the analytical rows.
package reconcile

import "context"

// TransactionRow is one reconciled transaction in the analytical schema.
type TransactionRow struct {
	ID          int
	Date        string // YYYY-MM-DD
	Time        string // HH:MM:SS
	LocationID  int
	PaymentType string
	TotalSpend  float64
}

// BasketRow links one purchased product to its transaction.
type BasketRow struct {
	ID            int
	TransactionID int
	ProductID     int
}

// Sink receives the reconciled rows of one date/location group.
type Sink interface {
	WriteGroup(ctx context.Context, date, locationFolder string, transactions []TransactionRow, baskets []BasketRow) error
}
