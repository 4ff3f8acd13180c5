// Package memory implements the ledger boundary in process. It emulates the
// runtime's observable contract (append-only revision chains, stale-write
// rejection, idempotent deletes) without any networking or replication, and
// backs both the test suites and the CLI's embedded mode.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/groblegark/agora/internal/chain"
	"github.com/groblegark/agora/internal/idgen"
	"github.com/groblegark/agora/internal/ledger"
)

type entityChain struct {
	noun    string
	records []*ledger.Record
	head    ledger.Ref
	deleted bool
}

type domainLog struct {
	chains map[ledger.Ref]*entityChain // by origin ref
	origin map[ledger.Ref]ledger.Ref   // any ref -> origin ref
}

// Ledger is the in-process runtime. One instance emulates one network; it is
// safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	domains map[string]*domainLog

	now func() time.Time // overridable in tests
}

var _ ledger.Caller = (*Ledger)(nil)

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		domains: make(map[string]*domainLog),
		now:     time.Now,
	}
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
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ledger.Errf(ledger.CodeTimeout, domain, fn, "deadline exceeded")
		}
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case strings.HasPrefix(fn, "create_"):
		return l.create(ctx, domain, fn, strings.TrimPrefix(fn, "create_"), payload)
	case strings.HasPrefix(fn, "update_"):
		return l.update(ctx, domain, fn, payload)
	case strings.HasPrefix(fn, "delete_"):
		return l.delete(domain, fn, payload)
	case strings.HasPrefix(fn, "get_revisions_"):
		return l.revisions(domain, fn, payload)
	case strings.HasPrefix(fn, "list_"):
		return l.list(domain, strings.TrimPrefix(fn, "list_")), nil
	default:
		return nil, ledger.Errf(ledger.CodeInternal, domain, fn, "unknown function")
	}
}

func (l *Ledger) log(domain string) *domainLog {
	dl, ok := l.domains[domain]
	if !ok {
		dl = &domainLog{
			chains: make(map[ledger.Ref]*entityChain),
			origin: make(map[ledger.Ref]ledger.Ref),
		}
		l.domains[domain] = dl
	}
	return dl
}

func (l *Ledger) create(ctx context.Context, domain, fn, noun string, payload any) ([]*ledger.Record, error) {
	var input ledger.CreateInput
	if err := ledger.DecodePayload(payload, &input); err != nil {
		return nil, ledger.Errf(ledger.CodeInvalid, domain, fn, "%v", err)
	}
	rec, err := l.newRecord(ctx, domain, fn, noun, nil, input.Value)
	if err != nil {
		return nil, err
	}

	dl := l.log(domain)
	dl.chains[rec.Ref] = &entityChain{noun: noun, records: []*ledger.Record{rec}, head: rec.Ref}
	dl.origin[rec.Ref] = rec.Ref
	return []*ledger.Record{rec}, nil
}

func (l *Ledger) update(ctx context.Context, domain, fn string, payload any) ([]*ledger.Record, error) {
	var input ledger.UpdateInput
	if err := ledger.DecodePayload(payload, &input); err != nil {
		return nil, ledger.Errf(ledger.CodeInvalid, domain, fn, "%v", err)
	}

	dl := l.log(domain)
	ec, err := dl.live(domain, fn, input.Original)
	if err != nil {
		return nil, err
	}
	if ec.head != input.Previous {
		return nil, ledger.Errf(ledger.CodeStaleWrite, domain, fn,
			"previous %s is not the head (%s)", input.Previous, ec.head)
	}

	prev := input.Previous
	rec, err := l.newRecord(ctx, domain, fn, ec.noun, &prev, input.Value)
	if err != nil {
		return nil, err
	}
	ec.records = append(ec.records, rec)
	ec.head = rec.Ref
	dl.origin[rec.Ref] = input.Original
	return []*ledger.Record{rec}, nil
}

func (l *Ledger) delete(domain, fn string, payload any) ([]*ledger.Record, error) {
	var input ledger.OriginalInput
	if err := ledger.DecodePayload(payload, &input); err != nil {
		return nil, ledger.Errf(ledger.CodeInvalid, domain, fn, "%v", err)
	}

	dl := l.log(domain)
	ec, err := dl.live(domain, fn, input.Original)
	if err != nil {
		return nil, err
	}
	ec.deleted = true
	head := *ec.records[len(ec.records)-1]
	return []*ledger.Record{&head}, nil
}

func (l *Ledger) revisions(domain, fn string, payload any) ([]*ledger.Record, error) {
	var input ledger.OriginalInput
	if err := ledger.DecodePayload(payload, &input); err != nil {
		return nil, ledger.Errf(ledger.CodeInvalid, domain, fn, "%v", err)
	}

	dl := l.log(domain)
	ec, err := dl.live(domain, fn, input.Original)
	if err != nil {
		return nil, err
	}
	out := make([]*ledger.Record, len(ec.records))
	for i, rec := range ec.records {
		cp := *rec
		out[i] = &cp
	}
	return out, nil
}

func (l *Ledger) list(domain, noun string) []*ledger.Record {
	dl := l.log(domain)
	var out []*ledger.Record
	for _, ec := range dl.chains {
		if ec.noun != noun || ec.deleted {
			continue
		}
		for _, rec := range ec.records {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out
}

func (dl *domainLog) live(domain, fn string, original ledger.Ref) (*entityChain, error) {
	origin, ok := dl.origin[original]
	if !ok {
		return nil, ledger.Errf(ledger.CodeNotFound, domain, fn, "no records for %s", original)
	}
	ec := dl.chains[origin]
	if ec == nil || ec.deleted {
		return nil, ledger.Errf(ledger.CodeNotFound, domain, fn, "no records for %s", original)
	}
	return ec, nil
}

func (l *Ledger) newRecord(ctx context.Context, domain, fn, noun string, previous *ledger.Ref, payload []byte) (*ledger.Record, error) {
	ref, err := idgen.Ref(noun)
	if err != nil {
		return nil, ledger.Errf(ledger.CodeInternal, domain, fn, "%v", err)
	}
	return &ledger.Record{
		Ref:       ledger.Ref(ref),
		Previous:  previous,
		Author:    ledger.AuthorFromContext(ctx),
		Timestamp: l.now(),
		Payload:   payload,
	}, nil
}

// Import inserts a record produced elsewhere (a snapshot restore, or a test
// constructing a fork) and recomputes the chain head with the shared
// resolution rule.
func (l *Ledger) Import(domain, noun string, rec *ledger.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	dl := l.log(domain)
	if rec.Previous == nil {
		dl.chains[rec.Ref] = &entityChain{noun: noun, records: []*ledger.Record{rec}, head: rec.Ref}
		dl.origin[rec.Ref] = rec.Ref
		return nil
	}

	origin, ok := dl.origin[*rec.Previous]
	if !ok {
		return fmt.Errorf("memory: import %s: unknown previous %s", rec.Ref, *rec.Previous)
	}
	ec := dl.chains[origin]
	ec.records = append(ec.records, rec)
	dl.origin[rec.Ref] = origin

	res, err := chain.Resolve(ec.records)
	var conflict *chain.ConflictError
	if err != nil && !errors.As(err, &conflict) {
		return fmt.Errorf("memory: import %s: %w", rec.Ref, err)
	}
	ec.head = res.Head.Ref
	return nil
}
