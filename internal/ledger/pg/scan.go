package pg

import (
	"database/sql"
	"encoding/json"

	"github.com/groblegark/agora/internal/ledger"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanRecord scans a single row into a ledger.Record. The row must contain
// columns in the order defined by recordColumns.
func scanRecord(row scannable) (*ledger.Record, error) {
	var rec ledger.Record
	var (
		previous sql.NullString
		payload  []byte
	)

	err := row.Scan(
		&rec.Ref,
		&previous,
		&rec.Author,
		&rec.Timestamp,
		&payload,
	)
	if err != nil {
		return nil, err
	}

	if previous.Valid {
		prev := ledger.Ref(previous.String)
		rec.Previous = &prev
	}
	if len(payload) > 0 {
		rec.Payload = json.RawMessage(payload)
	}

	return &rec, nil
}

// scanRecords drains rows into records, closing the result set.
func scanRecords(rows *sql.Rows) ([]*ledger.Record, error) {
	defer rows.Close()
	var out []*ledger.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// nullRefPtr converts a *ledger.Ref to a driver value, mapping nil to NULL.
func nullRefPtr(ref *ledger.Ref) any {
	if ref == nil {
		return nil
	}
	return string(*ref)
}

// jsonbBytes converts a payload to a driver value, mapping empty to NULL.
func jsonbBytes(payload json.RawMessage) any {
	if len(payload) == 0 {
		return nil
	}
	return []byte(payload)
}
