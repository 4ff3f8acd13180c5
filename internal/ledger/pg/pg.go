// Package pg implements the ledger boundary on PostgreSQL. Records are
// append-only; each chain row tracks the current head so stale writes are
// rejected with one row lock instead of a full chain resolution.
package pg

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/groblegark/agora/internal/idgen"
	"github.com/groblegark/agora/internal/ledger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ledger implements ledger.Caller backed by a PostgreSQL database.
type Ledger struct {
	db *sql.DB
}

var _ ledger.Caller = (*Ledger)(nil)

// New opens a connection to the database at the given URL, configures the
// connection pool, and runs any pending migrations.
func New(databaseURL string) (*Ledger, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Ledger{db: db}, nil
}

// NewWithDB wraps an existing connection without running migrations.
// Used by tests.
func NewWithDB(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Call implements ledger.Caller for single-record functions.
func (l *Ledger) Call(ctx context.Context, domain, fn string, payload any) (*ledger.Record, error) {
	records, err := l.dispatch(ctx, domain, fn, payload)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ledger.Errf(ledger.CodeInternal, domain, fn, "no record produced")
	}
	return records[0], nil
}

// CallList implements ledger.Caller for multi-record functions.
func (l *Ledger) CallList(ctx context.Context, domain, fn string, payload any) ([]*ledger.Record, error) {
	return l.dispatch(ctx, domain, fn, payload)
}

func (l *Ledger) dispatch(ctx context.Context, domain, fn string, payload any) ([]*ledger.Record, error) {
	switch {
	case strings.HasPrefix(fn, "create_"):
		return l.create(ctx, domain, fn, strings.TrimPrefix(fn, "create_"), payload)
	case strings.HasPrefix(fn, "update_"):
		return l.update(ctx, domain, fn, payload)
	case strings.HasPrefix(fn, "delete_"):
		return l.delete(ctx, domain, fn, payload)
	case strings.HasPrefix(fn, "get_revisions_"):
		return l.revisions(ctx, domain, fn, payload)
	case strings.HasPrefix(fn, "list_"):
		return l.list(ctx, domain, fn, strings.TrimPrefix(fn, "list_"))
	default:
		return nil, ledger.Errf(ledger.CodeInternal, domain, fn, "unknown function")
	}
}

func (l *Ledger) create(ctx context.Context, domain, fn, noun string, payload any) ([]*ledger.Record, error) {
	var input ledger.CreateInput
	if err := ledger.DecodePayload(payload, &input); err != nil {
		return nil, ledger.Errf(ledger.CodeInvalid, domain, fn, "%v", err)
	}
	ref, err := idgen.Ref(noun)
	if err != nil {
		return nil, ledger.Errf(ledger.CodeInternal, domain, fn, "%v", err)
	}
	rec := &ledger.Record{
		Ref:       ledger.Ref(ref),
		Author:    ledger.AuthorFromContext(ctx),
		Timestamp: time.Now().UTC(),
		Payload:   input.Value,
	}

	err = l.inTx(ctx, domain, fn, func(tx *sql.Tx) error {
		if err := queryInsertChain(ctx, tx, domain, rec.Ref, noun, rec.Ref); err != nil {
			return err
		}
		return queryInsertRecord(ctx, tx, domain, rec.Ref, rec)
	})
	if err != nil {
		return nil, err
	}
	return []*ledger.Record{rec}, nil
}

func (l *Ledger) update(ctx context.Context, domain, fn string, payload any) ([]*ledger.Record, error) {
	var input ledger.UpdateInput
	if err := ledger.DecodePayload(payload, &input); err != nil {
		return nil, ledger.Errf(ledger.CodeInvalid, domain, fn, "%v", err)
	}

	rec := &ledger.Record{
		Author:    ledger.AuthorFromContext(ctx),
		Timestamp: time.Now().UTC(),
		Payload:   input.Value,
	}

	err := l.inTx(ctx, domain, fn, func(tx *sql.Tx) error {
		ch, err := queryLockChain(ctx, tx, domain, fn, input.Original)
		if err != nil {
			return err
		}
		if ch.head != input.Previous {
			return ledger.Errf(ledger.CodeStaleWrite, domain, fn,
				"previous %s is not the head (%s)", input.Previous, ch.head)
		}

		ref, err := idgen.Ref(ch.noun)
		if err != nil {
			return ledger.Errf(ledger.CodeInternal, domain, fn, "%v", err)
		}
		rec.Ref = ledger.Ref(ref)
		prev := input.Previous
		rec.Previous = &prev

		if err := queryInsertRecord(ctx, tx, domain, ch.origin, rec); err != nil {
			return err
		}
		return queryAdvanceHead(ctx, tx, domain, ch.origin, rec.Ref)
	})
	if err != nil {
		return nil, err
	}
	return []*ledger.Record{rec}, nil
}

func (l *Ledger) delete(ctx context.Context, domain, fn string, payload any) ([]*ledger.Record, error) {
	var input ledger.OriginalInput
	if err := ledger.DecodePayload(payload, &input); err != nil {
		return nil, ledger.Errf(ledger.CodeInvalid, domain, fn, "%v", err)
	}

	var head *ledger.Record
	err := l.inTx(ctx, domain, fn, func(tx *sql.Tx) error {
		ch, err := queryLockChain(ctx, tx, domain, fn, input.Original)
		if err != nil {
			return err
		}
		head, err = queryGetRecord(ctx, tx, domain, fn, ch.head)
		if err != nil {
			return err
		}
		return queryMarkDeleted(ctx, tx, domain, ch.origin)
	})
	if err != nil {
		return nil, err
	}
	return []*ledger.Record{head}, nil
}

func (l *Ledger) revisions(ctx context.Context, domain, fn string, payload any) ([]*ledger.Record, error) {
	var input ledger.OriginalInput
	if err := ledger.DecodePayload(payload, &input); err != nil {
		return nil, ledger.Errf(ledger.CodeInvalid, domain, fn, "%v", err)
	}
	records, err := queryRevisions(ctx, l.db, domain, fn, input.Original)
	if err != nil {
		return nil, wrapDBErr(ctx, domain, fn, err)
	}
	return records, nil
}

func (l *Ledger) list(ctx context.Context, domain, fn, noun string) ([]*ledger.Record, error) {
	records, err := queryListRecords(ctx, l.db, domain, noun)
	if err != nil {
		return nil, wrapDBErr(ctx, domain, fn, err)
	}
	return records, nil
}

// inTx runs fn in a transaction, translating context expiry into the
// boundary's timeout code.
func (l *Ledger) inTx(ctx context.Context, domain, fn string, work func(tx *sql.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBErr(ctx, domain, fn, err)
	}
	if err := work(tx); err != nil {
		_ = tx.Rollback()
		return wrapDBErr(ctx, domain, fn, err)
	}
	if err := tx.Commit(); err != nil {
		return wrapDBErr(ctx, domain, fn, err)
	}
	return nil
}

func wrapDBErr(ctx context.Context, domain, fn string, err error) error {
	var lerr *ledger.Error
	if errors.As(err, &lerr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ledger.Errf(ledger.CodeTimeout, domain, fn, "deadline exceeded")
	}
	return ledger.Errf(ledger.CodeInternal, domain, fn, "%v", err)
}
