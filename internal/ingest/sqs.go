package ingest

import (
	"encoding/json"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
)

// ParseDeliveries flattens queued SQS deliveries into order records.
// A message body is either a JSON array of records or a single record
// object. Malformed payloads are logged and skipped, never fatal to
// the batch.
func ParseDeliveries(messages []events.SQSMessage, log *slog.Logger) []OrderRecord {
	var records []OrderRecord

	for _, msg := range messages {
		if msg.Body == "" {
			continue
		}

		var batch []OrderRecord
		if err := json.Unmarshal([]byte(msg.Body), &batch); err == nil {
			records = append(records, batch...)
			continue
		}

		var single OrderRecord
		if err := json.Unmarshal([]byte(msg.Body), &single); err == nil {
			records = append(records, single)
			continue
		}

		log.Error("unparseable delivery body, skipping", "message_id", msg.MessageId)
	}

	return records
}
