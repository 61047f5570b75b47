package transform

import (
	"strconv"
	"strings"
	"time"
)

// timestampLayout is the wire format of POS export timestamps.
const timestampLayout = "02/01/2006 15:04"

// Payment types accepted by the analytical schema.
const (
	PaymentCash = "Cash"
	PaymentCard = "Card"
)

// ParseTimestamp splits a raw "DD/MM/YYYY HH:MM" timestamp into the
// date (YYYY-MM-DD) and time (HH:MM:SS) strings the analytical schema
// expects.
func ParseTimestamp(raw string) (date, timeOfDay string, err error) {
	ts, perr := time.Parse(timestampLayout, strings.TrimSpace(raw))
	if perr != nil {
		return "", "", validationErr("transaction_timestamp", raw, "expected DD/MM/YYYY HH:MM")
	}
	return ts.Format("2006-01-02"), ts.Format("15:04:05"), nil
}

// NormalizePayment validates and normalizes the payment method. Only
// cash and card are accepted, case-insensitively.
func NormalizePayment(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cash":
		return PaymentCash, nil
	case "card":
		return PaymentCard, nil
	default:
		return "", validationErr("payment_method", raw, "must be cash or card")
	}
}

// ParseTotal parses the transaction total as a decimal amount.
func ParseTotal(raw string) (float64, error) {
	total, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, validationErr("transaction_total", raw, "not a decimal amount")
	}
	return total, nil
}
