package entity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/groblegark/agora/internal/bus"
	"github.com/groblegark/agora/internal/cache"
	"github.com/groblegark/agora/internal/chain"
	"github.com/groblegark/agora/internal/ledger"
	"github.com/groblegark/agora/internal/ledger/memory"
)

type widget struct {
	Name string `json:"name"`
}

// countingCaller wraps a real backend and counts calls per function, so tests
// can assert which operations hit the backend versus the cache.
type countingCaller struct {
	inner ledger.Caller

	mu    sync.Mutex
	calls map[string]int
}

func newCountingCaller(inner ledger.Caller) *countingCaller {
	return &countingCaller{inner: inner, calls: make(map[string]int)}
}

func (c *countingCaller) count(fn string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[fn]
}

func (c *countingCaller) Call(ctx context.Context, domain, fn string, payload any) (*ledger.Record, error) {
	c.mu.Lock()
	c.calls[fn]++
	c.mu.Unlock()
	return c.inner.Call(ctx, domain, fn, payload)
}

func (c *countingCaller) CallList(ctx context.Context, domain, fn string, payload any) ([]*ledger.Record, error) {
	c.mu.Lock()
	c.calls[fn]++
	c.mu.Unlock()
	return c.inner.CallList(ctx, domain, fn, payload)
}

// errCaller fails every call with a fixed ledger error.
type errCaller struct {
	code ledger.Code
}

func (e errCaller) Call(ctx context.Context, domain, fn string, payload any) (*ledger.Record, error) {
	return nil, ledger.Errf(e.code, domain, fn, "injected")
}

func (e errCaller) CallList(ctx context.Context, domain, fn string, payload any) ([]*ledger.Record, error) {
	return nil, ledger.Errf(e.code, domain, fn, "injected")
}

type testStore struct {
	*Store[widget]
	backend *memory.Ledger
	caller  *countingCaller
	bus     *bus.Bus
}

func newTestStore(t *testing.T, opts ...func(*Config[widget])) *testStore {
	t.Helper()
	backend := memory.New()
	caller := newCountingCaller(backend)
	b := bus.New(nil)
	cfg := Config[widget]{
		Domain: "widgets",
		Noun:   "widget",
		Caller: caller,
		Cache:  cache.New[Entity[widget]](cache.DefaultTTL),
		Bus:    b,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &testStore{Store: NewStore(cfg), backend: backend, caller: caller, bus: b}
}

func actorCtx(agent string) context.Context {
	return ledger.WithAuthor(context.Background(), agent)
}

func TestCreateThenGetServesFromCache(t *testing.T) {
	ts := newTestStore(t)
	ctx := actorCtx("agent-1")

	ent, err := ts.Create(ctx, widget{Name: "anvil"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ent.Original != ent.Head {
		t.Errorf("origin entity head = %s, want %s", ent.Head, ent.Original)
	}
	if ent.Author != "agent-1" {
		t.Errorf("author = %q, want agent-1", ent.Author)
	}

	got, err := ts.GetLatest(ctx, ent.Original)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Value.Name != "anvil" {
		t.Errorf("value = %q, want anvil", got.Value.Name)
	}
	if n := ts.caller.count("get_revisions_widget"); n != 0 {
		t.Errorf("get after create made %d backend fetches, want 0", n)
	}
}

func TestCreateValidateRejects(t *testing.T) {
	ts := newTestStore(t, func(cfg *Config[widget]) {
		cfg.Validate = func(w *widget) error {
			if w.Name == "" {
				return fmt.Errorf("name required")
			}
			return nil
		}
	})

	_, err := ts.Create(actorCtx("agent-1"), widget{})
	if !errors.Is(err, ErrCreationRejected) {
		t.Fatalf("err = %v, want ErrCreationRejected", err)
	}
	if n := ts.caller.count("create_widget"); n != 0 {
		t.Errorf("rejected create reached the backend %d times", n)
	}
}

func TestGetFetchesOnceThenCaches(t *testing.T) {
	ts := newTestStore(t)
	ctx := actorCtx("agent-1")

	ent, err := ts.Create(ctx, widget{Name: "anvil"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ts.Cache().Invalidate(ent.Original)

	for i := 0; i < 3; i++ {
		if _, err := ts.GetLatest(ctx, ent.Original); err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
	}
	if n := ts.caller.count("get_revisions_widget"); n != 1 {
		t.Errorf("made %d backend fetches, want 1", n)
	}
}

func TestGetUnknown(t *testing.T) {
	ts := newTestStore(t)
	_, err := ts.GetLatest(actorCtx("agent-1"), "widget-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateAdvancesHeadAndEmits(t *testing.T) {
	ts := newTestStore(t)
	ctx := actorCtx("agent-1")

	var events []bus.Event
	ts.bus.On(bus.Topic("widgets", bus.ActionUpdated), func(evt bus.Event) {
		events = append(events, evt)
	})

	ent, err := ts.Create(ctx, widget{Name: "anvil"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	upd, err := ts.Update(ctx, ent.Original, ent.Head, widget{Name: "anvil mk2"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.Head == ent.Head {
		t.Error("head did not advance")
	}
	if upd.Original != ent.Original {
		t.Errorf("original changed: %s != %s", upd.Original, ent.Original)
	}
	if upd.Author != "agent-1" {
		t.Errorf("author = %q, want creator preserved", upd.Author)
	}
	if len(events) != 1 {
		t.Fatalf("got %d updated events, want 1", len(events))
	}

	got, err := ts.GetLatest(ctx, ent.Original)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Value.Name != "anvil mk2" {
		t.Errorf("cached value = %q, want anvil mk2", got.Value.Name)
	}
}

func TestUpdateStaleInvalidatesCache(t *testing.T) {
	ts := newTestStore(t)
	ctx := actorCtx("agent-1")

	ent, err := ts.Create(ctx, widget{Name: "v1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ts.Update(ctx, ent.Original, ent.Head, widget{Name: "v2"}); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// Second writer edits on top of the origin, which is no longer the head.
	_, err = ts.Update(ctx, ent.Original, ent.Head, widget{Name: "v2b"})
	var stale *StaleWriteError
	if !errors.As(err, &stale) {
		t.Fatalf("err = %v, want *StaleWriteError", err)
	}
	if stale.Original != ent.Original || stale.BelievedHead != ent.Head {
		t.Errorf("stale = %+v", stale)
	}

	// The failed value never lands in the cache; re-reading resolves the
	// actual head from the backend.
	before := ts.caller.count("get_revisions_widget")
	got, err := ts.GetLatest(ctx, ent.Original)
	if err != nil {
		t.Fatalf("get after stale: %v", err)
	}
	if got.Value.Name != "v2" {
		t.Errorf("value = %q, want v2", got.Value.Name)
	}
	if n := ts.caller.count("get_revisions_widget"); n != before+1 {
		t.Errorf("get after stale made %d new fetches, want 1", n-before)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	ts := newTestStore(t)
	ctx := actorCtx("agent-1")

	deleted := 0
	ts.bus.On(bus.Topic("widgets", bus.ActionDeleted), func(bus.Event) { deleted++ })

	ent, err := ts.Create(ctx, widget{Name: "anvil"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ts.Delete(ctx, ent.Original); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := ts.Delete(ctx, ent.Original); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted != 1 {
		t.Errorf("got %d deleted events, want 1", deleted)
	}
	if _, err := ts.GetLatest(ctx, ent.Original); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestListWarmAndCold(t *testing.T) {
	ts := newTestStore(t)
	ctx := actorCtx("agent-1")

	for _, name := range []string{"anvil", "bellows", "crucible"} {
		if _, err := ts.Create(ctx, widget{Name: name}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	collect := func(scope Scope[widget]) []Entity[widget] {
		t.Helper()
		seq, err := ts.List(ctx, scope)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		var out []Entity[widget]
		for ent := range seq {
			out = append(out, ent)
		}
		return out
	}

	if got := collect(All[widget]()); len(got) != 3 {
		t.Fatalf("cold list returned %d entities, want 3", len(got))
	}
	if n := ts.caller.count("list_widget"); n != 1 {
		t.Fatalf("cold list made %d backend calls, want 1", n)
	}

	// Warm: served from cache, no further backend calls.
	if got := collect(All[widget]()); len(got) != 3 {
		t.Fatalf("warm list returned %d entities, want 3", len(got))
	}
	if n := ts.caller.count("list_widget"); n != 1 {
		t.Errorf("warm list made %d backend calls, want 1", n)
	}

	scope := Scope[widget]{Name: "bellows-only", Match: func(e Entity[widget]) bool {
		return e.Value.Name == "bellows"
	}}
	got := collect(scope)
	if len(got) != 1 || got[0].Value.Name != "bellows" {
		t.Errorf("scoped list = %+v, want the single bellows entity", got)
	}

	// Expired warm window forces a refetch.
	ts.now = func() time.Time { return time.Now().Add(cache.DefaultTTL + time.Minute) }
	if _, err := ts.List(ctx, All[widget]()); err != nil {
		t.Fatalf("list after warm expiry: %v", err)
	}
	if n := ts.caller.count("list_widget"); n != 2 {
		t.Errorf("expired list made %d backend calls, want 2", n)
	}
}

func TestGetSurfacesConflict(t *testing.T) {
	ts := newTestStore(t)
	ctx := actorCtx("agent-1")

	ent, err := ts.Create(ctx, widget{Name: "v1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	upd, err := ts.Update(ctx, ent.Original, ent.Head, widget{Name: "v2"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	// Inject a sibling revision as a partitioned peer would have written it.
	prev := ent.Original
	fork := &ledger.Record{
		Ref:       "widget-zzzzzzzzzzzz",
		Previous:  &prev,
		Author:    "agent-2",
		Timestamp: upd.UpdatedAt.Add(time.Hour),
		Payload:   []byte(`{"name":"v2-peer"}`),
	}
	if err := ts.backend.Import("widgets", "widget", fork); err != nil {
		t.Fatalf("import: %v", err)
	}
	ts.Cache().Invalidate(ent.Original)

	got, err := ts.GetLatest(ctx, ent.Original)
	var conflict *chain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want *chain.ConflictError", err)
	}
	if got.Head != fork.Ref {
		t.Errorf("head = %s, want the later sibling %s", got.Head, fork.Ref)
	}
	if got.Value.Name != "v2-peer" {
		t.Errorf("value = %q, want v2-peer", got.Value.Name)
	}
	if len(conflict.Candidates) != 2 {
		t.Errorf("got %d candidates, want 2", len(conflict.Candidates))
	}
	if conflict.Winner().Ref != fork.Ref {
		t.Errorf("winner = %s, want %s", conflict.Winner().Ref, fork.Ref)
	}
}

func TestBackendTimeout(t *testing.T) {
	ts := newTestStore(t, func(cfg *Config[widget]) {
		cfg.Caller = errCaller{code: ledger.CodeTimeout}
	})

	_, err := ts.GetLatest(actorCtx("agent-1"), "widget-any")
	if !errors.Is(err, ErrBackendTimeout) {
		t.Fatalf("get: err = %v, want ErrBackendTimeout", err)
	}
	if _, err := ts.List(actorCtx("agent-1"), All[widget]()); !errors.Is(err, ErrBackendTimeout) {
		t.Fatalf("list: err = %v, want ErrBackendTimeout", err)
	}
	if ts.Cache().Len() != 0 {
		t.Errorf("timeout populated the cache: len = %d", ts.Cache().Len())
	}
}

// creatorOnly denies writes by anyone but the creator.
type creatorOnly struct{}

func (creatorOnly) Authorize(ctx context.Context, op Op, actor, creator string, subject ledger.Ref) error {
	if op != OpRead && actor != creator {
		return fmt.Errorf("%w: %s is not the creator", ErrPermissionDenied, actor)
	}
	return nil
}

func TestAuthorizerGatesWrites(t *testing.T) {
	ts := newTestStore(t, func(cfg *Config[widget]) {
		cfg.Auth = creatorOnly{}
	})

	ent, err := ts.Create(actorCtx("agent-1"), widget{Name: "anvil"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = ts.Update(actorCtx("agent-2"), ent.Original, ent.Head, widget{Name: "stolen"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("update by stranger: err = %v, want ErrPermissionDenied", err)
	}
	if err := ts.Delete(actorCtx("agent-2"), ent.Original); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("delete by stranger: err = %v, want ErrPermissionDenied", err)
	}

	if _, err := ts.Update(actorCtx("agent-1"), ent.Original, ent.Head, widget{Name: "kept"}); err != nil {
		t.Fatalf("update by creator: %v", err)
	}
}
