package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
)

// ParseCSV reads a headerless POS CSV export into order records.
// Rows with the wrong field count are skipped with a warning and
// counted, never fatal.
func ParseCSV(r io.Reader, log *slog.Logger) ([]OrderRecord, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // row width validated by hand below

	var records []OrderRecord
	skipped := 0

	for rowNumber := 1; ; rowNumber++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read csv row %d: %w", rowNumber, err)
		}

		if len(row) != len(Headers) {
			log.Warn("skipping malformed row",
				"row", rowNumber,
				"columns", len(row),
				"expected", len(Headers),
			)
			skipped++
			continue
		}

		records = append(records, fromRow(row))
	}

	return records, skipped, nil
}

// WriteCSV serializes records in export column order, including the
// appended record_hash column when hashes are provided. Used for the
// audit/replay artifact the dedup filter persists.
func WriteCSV(records []OrderRecord, hashes []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := Headers
	withHash := len(hashes) == len(records)
	if withHash {
		header = append(append([]string{}, Headers...), "record_hash")
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for i, rec := range records {
		row := rec.toRow()
		if withHash {
			row = append(row, hashes[i])
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
