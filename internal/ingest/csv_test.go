package ingest

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		`28/04/2025 14:30,Springfield,Homer,"Large Coffee - Vanilla - 3.50, Regular Tea - 2.00",5.50,card,1234`,
		`28/04/2025 15:00,Shelbyville,Lenny,Regular Latte - 2.80,2.80,cash,`,
	}, "\n") + "\n"

	records, skipped, err := ParseCSV(strings.NewReader(input), discardLogger())
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.LocationName != "Springfield" {
		t.Errorf("location = %q, want Springfield", first.LocationName)
	}
	if first.Products != "Large Coffee - Vanilla - 3.50, Regular Tea - 2.00" {
		t.Errorf("products = %q", first.Products)
	}
	if first.PaymentMethod != "card" {
		t.Errorf("payment = %q, want card", first.PaymentMethod)
	}
}

func TestParseCSVSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		`28/04/2025 14:30,Springfield,Homer,Regular Tea - 2.00,2.00,cash,9999`,
		`too,few,columns`,
		`28/04/2025 16:00,Springfield,Marge,Regular Tea - 2.00,2.00,card,8888`,
	}, "\n") + "\n"

	records, skipped, err := ParseCSV(strings.NewReader(input), discardLogger())
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestWriteCSVIncludesHashColumn(t *testing.T) {
	records := []OrderRecord{
		{
			TransactionTimestamp: "28/04/2025 14:30",
			LocationName:         "Springfield",
			CustomerName:         "Homer",
			Products:             "Regular Tea - 2.00",
			TransactionTotal:     "2.00",
			PaymentMethod:        "cash",
		},
	}

	data, err := WriteCSV(records, []string{"abc123"})
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header + 1 row", len(lines))
	}
	if !strings.HasSuffix(lines[0], ",record_hash") {
		t.Errorf("header missing record_hash column: %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], ",abc123") {
		t.Errorf("row missing hash value: %q", lines[1])
	}
}
