package dedup

import (
	"testing"

	"github.com/openretail/pos-reconciler/internal/ingest"
)

func sampleRecord() ingest.OrderRecord {
	return ingest.OrderRecord{
		TransactionTimestamp: "28/04/2025 14:30",
		LocationName:         "Springfield",
		CustomerName:         "Homer",
		Products:             "Large Coffee - Vanilla - 3.50, Regular Tea - 2.00",
		TransactionTotal:     "5.50",
		PaymentMethod:        "card",
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	rec := sampleRecord()

	first := Fingerprint(rec)
	second := Fingerprint(rec)
	if first != second {
		t.Errorf("fingerprint not stable: %q vs %q", first, second)
	}
	if len(first) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(first))
	}
}

func TestFingerprintSensitiveToBusinessKeys(t *testing.T) {
	base := Fingerprint(sampleRecord())

	changed := sampleRecord()
	changed.CustomerName = "Marge"
	if Fingerprint(changed) == base {
		t.Error("fingerprint should change with customer name")
	}

	changed = sampleRecord()
	changed.TransactionTotal = "5.51"
	if Fingerprint(changed) == base {
		t.Error("fingerprint should change with total")
	}
}

func TestFingerprintIgnoresPaymentAndCard(t *testing.T) {
	base := Fingerprint(sampleRecord())

	changed := sampleRecord()
	changed.PaymentMethod = "cash"
	changed.CardNumber = "4111"
	if Fingerprint(changed) != base {
		t.Error("payment method and card number are not business keys")
	}
}
