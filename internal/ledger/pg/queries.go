package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/groblegark/agora/internal/ledger"
)

// recordColumns is the column list used for SELECT statements on the records
// table.
const recordColumns = `ref, previous, author, created_at, payload`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// chainRow is the locked head state of one chain.
type chainRow struct {
	origin ledger.Ref
	noun   string
	head   ledger.Ref
}

func queryInsertChain(ctx context.Context, db executor, domain string, origin ledger.Ref, noun string, head ledger.Ref) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO chains (domain, origin, noun, head, deleted)
		VALUES ($1, $2, $3, $4, FALSE)`,
		domain, string(origin), noun, string(head),
	)
	return err
}

func queryInsertRecord(ctx context.Context, db executor, domain string, origin ledger.Ref, rec *ledger.Record) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO records (ref, domain, origin, previous, author, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(rec.Ref),
		domain,
		string(origin),
		nullRefPtr(rec.Previous),
		rec.Author,
		rec.Timestamp,
		jsonbBytes(rec.Payload),
	)
	return err
}

// queryLockChain resolves any ref of a chain to its live chain row and locks
// it for the rest of the transaction.
func queryLockChain(ctx context.Context, db executor, domain, fn string, ref ledger.Ref) (*chainRow, error) {
	row := db.QueryRowContext(ctx, `
		SELECT c.origin, c.noun, c.head
		FROM chains c
		JOIN records r ON r.domain = c.domain AND r.origin = c.origin
		WHERE c.domain = $1 AND r.ref = $2 AND NOT c.deleted
		FOR UPDATE OF c`,
		domain, string(ref),
	)
	var ch chainRow
	var origin, head string
	if err := row.Scan(&origin, &ch.noun, &head); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.Errf(ledger.CodeNotFound, domain, fn, "no records for %s", ref)
		}
		return nil, err
	}
	ch.origin = ledger.Ref(origin)
	ch.head = ledger.Ref(head)
	return &ch, nil
}

func queryAdvanceHead(ctx context.Context, db executor, domain string, origin, head ledger.Ref) error {
	_, err := db.ExecContext(ctx, `
		UPDATE chains SET head = $3 WHERE domain = $1 AND origin = $2`,
		domain, string(origin), string(head),
	)
	return err
}

func queryMarkDeleted(ctx context.Context, db executor, domain string, origin ledger.Ref) error {
	_, err := db.ExecContext(ctx, `
		UPDATE chains SET deleted = TRUE WHERE domain = $1 AND origin = $2`,
		domain, string(origin),
	)
	return err
}

func queryGetRecord(ctx context.Context, db executor, domain, fn string, ref ledger.Ref) (*ledger.Record, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE domain = $1 AND ref = $2`,
		domain, string(ref),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.Errf(ledger.CodeNotFound, domain, fn, "no record %s", ref)
	}
	return rec, err
}

func queryRevisions(ctx context.Context, db executor, domain, fn string, ref ledger.Ref) ([]*ledger.Record, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT r.ref, r.previous, r.author, r.created_at, r.payload
		FROM records r
		JOIN chains c ON c.domain = r.domain AND c.origin = r.origin
		WHERE r.domain = $1 AND NOT c.deleted
		  AND r.origin = (SELECT origin FROM records WHERE domain = $1 AND ref = $2)
		ORDER BY r.created_at, r.ref`,
		domain, string(ref),
	)
	if err != nil {
		return nil, err
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ledger.Errf(ledger.CodeNotFound, domain, fn, "no records for %s", ref)
	}
	return records, nil
}

func queryListRecords(ctx context.Context, db executor, domain, noun string) ([]*ledger.Record, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT r.ref, r.previous, r.author, r.created_at, r.payload
		FROM records r
		JOIN chains c ON c.domain = r.domain AND c.origin = r.origin
		WHERE r.domain = $1 AND c.noun = $2 AND NOT c.deleted
		ORDER BY r.created_at, r.ref`,
		domain, noun,
	)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}
