package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/groblegark/agora/internal/bus"
	"github.com/groblegark/agora/internal/cache"
	"github.com/groblegark/agora/internal/chain"
	"github.com/groblegark/agora/internal/ledger"
)

// Config assembles one domain store. Dependencies are passed explicitly;
// tests construct fresh stores around fake callers instead of sharing
// module-level state.
type Config[T any] struct {
	// Domain is the ledger domain, e.g. "requests".
	Domain string
	// Noun derives the ledger function names, e.g. "request".
	Noun   string
	Caller ledger.Caller
	Cache  *cache.Cache[Entity[T]]
	Bus    *bus.Bus
	// Auth gates operations through the status state machine. Nil allows
	// everything (used by domains without a moderation lifecycle).
	Auth   Authorizer
	Logger *slog.Logger
	// Validate rejects bad values before the ledger round-trip. Optional.
	Validate func(*T) error
	// ListWarm is how long a full list fetch keeps the cache authoritative
	// for list reads. Defaults to cache.DefaultTTL.
	ListWarm time.Duration
}

// Store orchestrates cache, revision chains, events, and the status gate for
// one domain type. It is the only component callers interact with directly.
type Store[T any] struct {
	domain   string
	ops      Ops
	caller   ledger.Caller
	cache    *cache.Cache[Entity[T]]
	bus      *bus.Bus
	auth     Authorizer
	logger   *slog.Logger
	validate func(*T) error
	listWarm time.Duration

	mu        sync.Mutex
	warmUntil time.Time

	now func() time.Time // overridable in tests
}

// NewStore builds a store from cfg.
func NewStore[T any](cfg Config[T]) *Store[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	listWarm := cfg.ListWarm
	if listWarm <= 0 {
		listWarm = cache.DefaultTTL
	}
	return &Store[T]{
		domain:   cfg.Domain,
		ops:      OpsFor(cfg.Noun),
		caller:   cfg.Caller,
		cache:    cfg.Cache,
		bus:      cfg.Bus,
		auth:     cfg.Auth,
		logger:   logger,
		validate: cfg.Validate,
		listWarm: listWarm,
		now:      time.Now,
	}
}

// Cache exposes the store's cache for domain-wide eviction, e.g. dropping
// every entity that denormalizes a changed organization.
func (s *Store[T]) Cache() *cache.Cache[Entity[T]] { return s.cache }

// Create writes the origin record for a new entity, caches the one-record
// resolution, and emits the created event.
func (s *Store[T]) Create(ctx context.Context, value T) (Entity[T], error) {
	var zero Entity[T]
	if s.validate != nil {
		if err := s.validate(&value); err != nil {
			return zero, fmt.Errorf("%w: %v", ErrCreationRejected, err)
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", s.domain, err)
	}

	rec, err := s.caller.Call(ctx, s.domain, s.ops.Create, ledger.CreateInput{Value: raw})
	if err != nil {
		if ledger.CodeOf(err) == ledger.CodeInvalid {
			return zero, fmt.Errorf("%w: %v", ErrCreationRejected, err)
		}
		return zero, mapCallErr(err)
	}
	if err := ctx.Err(); err != nil {
		// Abandoned while suspended on the ledger call: no cache write, no event.
		return zero, err
	}

	ent := Entity[T]{
		Original:  rec.Ref,
		Head:      rec.Ref,
		Author:    rec.Author,
		CreatedAt: rec.Timestamp,
		UpdatedAt: rec.Timestamp,
		Value:     value,
	}
	s.cache.Set(ent.Original, ent)
	s.bus.Emit(bus.Topic(s.domain, bus.ActionCreated), bus.EntityCreated{Entity: ent})
	return ent, nil
}

// GetLatest returns the resolved current state of the identity, serving from
// cache when possible. A fork still returns the winning head but the
// *chain.ConflictError is returned alongside it so the caller can offer a
// merge or reload.
func (s *Store[T]) GetLatest(ctx context.Context, original ledger.Ref) (Entity[T], error) {
	var zero Entity[T]
	actor := ledger.AuthorFromContext(ctx)

	if ent, ok := s.cache.Get(original); ok {
		if err := s.authorize(ctx, OpRead, actor, ent.Author, original); err != nil {
			return zero, err
		}
		return ent, nil
	}

	ent, conflict, err := s.fetch(ctx, original)
	if err != nil {
		return zero, err
	}
	if err := s.authorize(ctx, OpRead, actor, ent.Author, original); err != nil {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	s.cache.Set(original, ent)
	if conflict != nil {
		return ent, conflict
	}
	return ent, nil
}

// Update writes a new head on top of believedHead. A stale believed head is
// surfaced as *StaleWriteError after invalidating the cache; the caller
// decides whether to rebase and retry.
func (s *Store[T]) Update(ctx context.Context, original, believedHead ledger.Ref, value T) (Entity[T], error) {
	var zero Entity[T]
	if s.validate != nil {
		if err := s.validate(&value); err != nil {
			return zero, fmt.Errorf("validate %s: %w", s.domain, err)
		}
	}
	actor := ledger.AuthorFromContext(ctx)

	current, err := s.current(ctx, original)
	if err != nil {
		return zero, err
	}
	if err := s.authorize(ctx, OpUpdate, actor, current.Author, original); err != nil {
		return zero, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", s.domain, err)
	}
	rec, err := s.caller.Call(ctx, s.domain, s.ops.Update, ledger.UpdateInput{
		Original: original,
		Previous: believedHead,
		Value:    raw,
	})
	if err != nil {
		if ledger.IsStaleWrite(err) {
			s.cache.Invalidate(original)
			return zero, &StaleWriteError{Original: original, BelievedHead: believedHead}
		}
		return zero, mapCallErr(err)
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	ent := Entity[T]{
		Original:  original,
		Head:      rec.Ref,
		Author:    current.Author,
		CreatedAt: current.CreatedAt,
		UpdatedAt: rec.Timestamp,
		Value:     value,
	}
	s.cache.Set(original, ent)
	s.bus.Emit(bus.Topic(s.domain, bus.ActionUpdated), bus.EntityUpdated{Entity: ent})
	return ent, nil
}

// Delete removes the identity. Deleting an already-deleted identity is not
// an error; only the first deletion emits an event.
func (s *Store[T]) Delete(ctx context.Context, original ledger.Ref) error {
	actor := ledger.AuthorFromContext(ctx)

	current, err := s.current(ctx, original)
	if errors.Is(err, ErrNotFound) {
		s.cache.Invalidate(original)
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, OpDelete, actor, current.Author, original); err != nil {
		return err
	}

	if _, err := s.caller.Call(ctx, s.domain, s.ops.Delete, ledger.OriginalInput{Original: original}); err != nil {
		if ledger.IsNotFound(err) {
			s.cache.Invalidate(original)
			return nil
		}
		return mapCallErr(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Invalidate(original)
	s.bus.Emit(bus.Topic(s.domain, bus.ActionDeleted), bus.EntityDeleted{ID: original})
	return nil
}

// Scope selects a subset of entities for List.
type Scope[T any] struct {
	Name  string
	Match func(Entity[T]) bool
}

// All matches every entity.
func All[T any]() Scope[T] {
	return Scope[T]{Name: "all"}
}

// List returns the entities in scope visible to the calling actor. While the
// cache is warm from a recent full fetch it serves from cache; otherwise it
// performs one ledger fetch, repopulates the cache, and returns the result.
// The returned sequence is finite and a snapshot: a second call may return a
// different sequence reflecting intervening writes.
func (s *Store[T]) List(ctx context.Context, scope Scope[T]) (iter.Seq[Entity[T]], error) {
	actor := ledger.AuthorFromContext(ctx)

	s.mu.Lock()
	warm := s.now().Before(s.warmUntil)
	s.mu.Unlock()

	if warm {
		return s.filterSeq(ctx, actor, s.cache.AllValid(), scope), nil
	}

	records, err := s.caller.CallList(ctx, s.domain, s.ops.List, nil)
	if err != nil {
		return nil, mapCallErr(err)
	}
	resolved, err := s.resolveAll(records)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, ent := range resolved {
		s.cache.Set(ent.Original, ent)
	}
	s.mu.Lock()
	s.warmUntil = s.now().Add(s.listWarm)
	s.mu.Unlock()

	return s.filterSeq(ctx, actor, func(yield func(Entity[T]) bool) {
		for _, ent := range resolved {
			if !yield(ent) {
				return
			}
		}
	}, scope), nil
}

// filterSeq applies the scope match and the read-authorization gate lazily.
func (s *Store[T]) filterSeq(ctx context.Context, actor string, src iter.Seq[Entity[T]], scope Scope[T]) iter.Seq[Entity[T]] {
	return func(yield func(Entity[T]) bool) {
		for ent := range src {
			if scope.Match != nil && !scope.Match(ent) {
				continue
			}
			if s.authorize(ctx, OpRead, actor, ent.Author, ent.Original) != nil {
				continue
			}
			if !yield(ent) {
				return
			}
		}
	}
}

// fetch pulls all revisions for original and resolves them.
func (s *Store[T]) fetch(ctx context.Context, original ledger.Ref) (Entity[T], *chain.ConflictError, error) {
	var zero Entity[T]
	records, err := s.caller.CallList(ctx, s.domain, s.ops.Revisions, ledger.OriginalInput{Original: original})
	if err != nil {
		return zero, nil, mapCallErr(err)
	}
	if len(records) == 0 {
		return zero, nil, ErrNotFound
	}
	return s.resolveRecords(records)
}

func (s *Store[T]) resolveRecords(records []*ledger.Record) (Entity[T], *chain.ConflictError, error) {
	var zero Entity[T]
	res, err := chain.Resolve(records)
	var conflict *chain.ConflictError
	if err != nil && !errors.As(err, &conflict) {
		if errors.Is(err, chain.ErrEmpty) {
			return zero, nil, ErrNotFound
		}
		return zero, nil, err
	}
	if conflict != nil {
		s.logger.Warn("store: concurrent edit conflict",
			"domain", s.domain,
			"original", res.Origin.Ref,
			"candidates", len(conflict.Candidates))
	}

	var value T
	if err := res.Head.Decode(&value); err != nil {
		return zero, nil, err
	}
	ent := Entity[T]{
		Original:  res.Origin.Ref,
		Head:      res.Head.Ref,
		Author:    res.Origin.Author,
		CreatedAt: res.Origin.Timestamp,
		UpdatedAt: res.Head.Timestamp,
		Value:     value,
	}
	return ent, conflict, nil
}

// resolveAll groups a flat record dump into chains by origin and resolves
// each. Corruption anywhere fails the whole list; forks resolve to their
// winner and are logged.
func (s *Store[T]) resolveAll(records []*ledger.Record) ([]Entity[T], error) {
	byRef := make(map[ledger.Ref]*ledger.Record, len(records))
	for _, rec := range records {
		byRef[rec.Ref] = rec
	}

	groups := make(map[ledger.Ref][]*ledger.Record)
	for _, rec := range records {
		origin, err := originOf(rec, byRef, len(records))
		if err != nil {
			return nil, err
		}
		groups[origin] = append(groups[origin], rec)
	}

	out := make([]Entity[T], 0, len(groups))
	for _, group := range groups {
		ent, _, err := s.resolveRecords(group)
		if err != nil {
			return nil, err
		}
		out = append(out, ent)
	}
	return out, nil
}

// originOf walks previous pointers back to the origin record.
func originOf(rec *ledger.Record, byRef map[ledger.Ref]*ledger.Record, limit int) (ledger.Ref, error) {
	cur := rec
	for steps := 0; ; steps++ {
		if cur.Previous == nil {
			return cur.Ref, nil
		}
		if steps > limit {
			return "", fmt.Errorf("%w: cycle involving %s", chain.ErrCorrupt, rec.Ref)
		}
		prev, ok := byRef[*cur.Previous]
		if !ok {
			return "", fmt.Errorf("%w: record %s supersedes unknown ref %s", chain.ErrCorrupt, cur.Ref, *cur.Previous)
		}
		cur = prev
	}
}

// current returns the entity for authorization and bookkeeping without
// applying the read gate. A fork is tolerated here; the winner's metadata is
// enough, and a stale believed head will be rejected by the ledger anyway.
func (s *Store[T]) current(ctx context.Context, original ledger.Ref) (Entity[T], error) {
	if ent, ok := s.cache.Get(original); ok {
		return ent, nil
	}
	ent, _, err := s.fetch(ctx, original)
	return ent, err
}

func (s *Store[T]) authorize(ctx context.Context, op Op, actor, creator string, subject ledger.Ref) error {
	if s.auth == nil {
		return nil
	}
	return s.auth.Authorize(ctx, op, actor, creator, subject)
}
