// Package ingest parses raw POS deliveries, both CSV exports and
// queued JSON messages, into order records.
package ingest

// OrderRecord is one raw point-of-sale order as delivered. Field names
// mirror the export schema; the JSON tags match the queued message
// format.
type OrderRecord struct {
	TransactionTimestamp string `json:"transaction_timestamp"`
	LocationName         string `json:"location_name"`
	CustomerName         string `json:"customer_name"`
	Products             string `json:"products"`
	TransactionTotal     string `json:"transaction_total"`
	PaymentMethod        string `json:"payment_method"`
	CardNumber           string `json:"card_number"`
}

// Headers is the fixed column order of POS CSV exports.
var Headers = []string{
	"transaction_timestamp", "location_name", "customer_name", "products",
	"transaction_total", "payment_method", "card_number",
}

// fromRow builds an OrderRecord from a CSV row. The caller guarantees
// the row has exactly len(Headers) fields.
func fromRow(row []string) OrderRecord {
	return OrderRecord{
		TransactionTimestamp: row[0],
		LocationName:         row[1],
		CustomerName:         row[2],
		Products:             row[3],
		TransactionTotal:     row[4],
		PaymentMethod:        row[5],
		CardNumber:           row[6],
	}
}

// toRow flattens an OrderRecord back into CSV column order.
func (r OrderRecord) toRow() []string {
	return []string{
		r.TransactionTimestamp, r.LocationName, r.CustomerName, r.Products,
		r.TransactionTotal, r.PaymentMethod, r.CardNumber,
	}
}
