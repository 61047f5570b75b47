package reconcile

import (
	"strings"

	"github.com/openretail/pos-reconciler/internal/ingest"
	"github.com/openretail/pos-reconciler/internal/transform"
)

// Bucket is one date/location reconciliation group. Records keep their
// arrival order within the bucket.
type Bucket struct {
	Date           string // YYYY-MM-DD
	LocationFolder string // town with spaces replaced by underscores
	Records        []ingest.OrderRecord
}

// locationFolder derives the storage-safe folder name for a town.
func locationFolder(town string) string {
	return strings.ReplaceAll(town, " ", "_")
}

// groupRecords partitions records into date/location buckets, preserving
// first-seen bucket order and arrival order within each bucket. Records
// whose timestamp cannot be parsed are returned separately so the caller
// can count and skip them without touching any shared state.
func groupRecords(records []ingest.OrderRecord) (buckets []*Bucket, malformed []ingest.OrderRecord) {
	type bucketKey struct {
		date   string
		folder string
	}
	index := make(map[bucketKey]*Bucket)

	for _, rec := range records {
		date, _, err := transform.ParseTimestamp(rec.TransactionTimestamp)
		if err != nil {
			malformed = append(malformed, rec)
			continue
		}

		key := bucketKey{date: date, folder: locationFolder(rec.LocationName)}
		b, ok := index[key]
		if !ok {
			b = &Bucket{Date: key.date, LocationFolder: key.folder}
			index[key] = b
			buckets = append(buckets, b)
		}
		b.Records = append(b.Records, rec)
	}
	return buckets, malformed
}
