package memory

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/groblegark/agora/internal/ledger"
)

type note struct {
	Title string `json:"title"`
}

func mustCreate(t *testing.T, l *Ledger, ctx context.Context, domain, noun, title string) *ledger.Record {
	t.Helper()
	raw, _ := json.Marshal(note{Title: title})
	rec, err := l.Call(ctx, domain, "create_"+noun, ledger.CreateInput{Value: raw})
	if err != nil {
		t.Fatalf("create_%s: %v", noun, err)
	}
	return rec
}

func TestCreateRecord(t *testing.T) {
	l := New()
	ctx := ledger.WithAuthor(context.Background(), "agent-1")

	rec := mustCreate(t, l, ctx, "notes", "note", "hello")
	if rec.Ref == "" {
		t.Fatal("expected non-empty ref")
	}
	if !strings.HasPrefix(string(rec.Ref), "note-") {
		t.Errorf("ref = %q, want noun prefix", rec.Ref)
	}
	if rec.Previous != nil {
		t.Errorf("origin record has previous %s", *rec.Previous)
	}
	if rec.Author != "agent-1" {
		t.Errorf("author = %q, want agent-1", rec.Author)
	}
	if rec.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}

	var n note
	if err := rec.Decode(&n); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n.Title != "hello" {
		t.Errorf("title = %q, want hello", n.Title)
	}
}

func TestUpdateAdvancesHead(t *testing.T) {
	l := New()
	ctx := ledger.WithAuthor(context.Background(), "agent-1")

	origin := mustCreate(t, l, ctx, "notes", "note", "v1")
	raw, _ := json.Marshal(note{Title: "v2"})
	rev, err := l.Call(ctx, "notes", "update_note", ledger.UpdateInput{
		Original: origin.Ref,
		Previous: origin.Ref,
		Value:    raw,
	})
	if err != nil {
		t.Fatalf("update_note: %v", err)
	}
	if rev.Previous == nil || *rev.Previous != origin.Ref {
		t.Errorf("previous = %v, want %s", rev.Previous, origin.Ref)
	}

	revs, err := l.CallList(ctx, "notes", "get_revisions_note", ledger.OriginalInput{Original: origin.Ref})
	if err != nil {
		t.Fatalf("get_revisions_note: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("got %d revisions, want 2", len(revs))
	}

	// The revision ref resolves to the same chain as the origin ref.
	raw, _ = json.Marshal(note{Title: "v3"})
	if _, err := l.Call(ctx, "notes", "update_note", ledger.UpdateInput{
		Original: rev.Ref,
		Previous: rev.Ref,
		Value:    raw,
	}); err != nil {
		t.Fatalf("update via revision ref: %v", err)
	}
}

func TestUpdateStalePrevious(t *testing.T) {
	l := New()
	ctx := ledger.WithAuthor(context.Background(), "agent-1")

	origin := mustCreate(t, l, ctx, "notes", "note", "v1")
	raw, _ := json.Marshal(note{Title: "v2"})
	if _, err := l.Call(ctx, "notes", "update_note", ledger.UpdateInput{
		Original: origin.Ref, Previous: origin.Ref, Value: raw,
	}); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// Second writer still believes the origin is the head.
	raw, _ = json.Marshal(note{Title: "v2b"})
	_, err := l.Call(ctx, "notes", "update_note", ledger.UpdateInput{
		Original: origin.Ref, Previous: origin.Ref, Value: raw,
	})
	if !ledger.IsStaleWrite(err) {
		t.Fatalf("err = %v, want stale write", err)
	}
}

func TestUnknownRef(t *testing.T) {
	l := New()
	ctx := context.Background()

	for _, fn := range []string{"update_note", "delete_note", "get_revisions_note"} {
		var err error
		switch fn {
		case "update_note":
			_, err = l.Call(ctx, "notes", fn, ledger.UpdateInput{Original: "note-missing", Previous: "note-missing"})
		default:
			_, err = l.CallList(ctx, "notes", fn, ledger.OriginalInput{Original: "note-missing"})
		}
		if !ledger.IsNotFound(err) {
			t.Errorf("%s: err = %v, want not found", fn, err)
		}
	}
}

func TestDelete(t *testing.T) {
	l := New()
	ctx := ledger.WithAuthor(context.Background(), "agent-1")

	origin := mustCreate(t, l, ctx, "notes", "note", "v1")
	if _, err := l.Call(ctx, "notes", "delete_note", ledger.OriginalInput{Original: origin.Ref}); err != nil {
		t.Fatalf("delete_note: %v", err)
	}

	if _, err := l.CallList(ctx, "notes", "get_revisions_note", ledger.OriginalInput{Original: origin.Ref}); !ledger.IsNotFound(err) {
		t.Errorf("revisions after delete: err = %v, want not found", err)
	}
	// A second delete reports not found; callers treat that as success.
	if _, err := l.Call(ctx, "notes", "delete_note", ledger.OriginalInput{Original: origin.Ref}); !ledger.IsNotFound(err) {
		t.Errorf("second delete: err = %v, want not found", err)
	}
}

func TestListFiltersNounAndDeleted(t *testing.T) {
	l := New()
	ctx := ledger.WithAuthor(context.Background(), "agent-1")

	a := mustCreate(t, l, ctx, "notes", "note", "keep")
	b := mustCreate(t, l, ctx, "notes", "note", "gone")
	mustCreate(t, l, ctx, "notes", "tag", "other noun")

	if _, err := l.Call(ctx, "notes", "delete_note", ledger.OriginalInput{Original: b.Ref}); err != nil {
		t.Fatalf("delete_note: %v", err)
	}

	records, err := l.CallList(ctx, "notes", "list_note", nil)
	if err != nil {
		t.Fatalf("list_note: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Ref != a.Ref {
		t.Errorf("ref = %s, want %s", records[0].Ref, a.Ref)
	}
}

func TestImportForkRecomputesHead(t *testing.T) {
	l := New()
	l.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := ledger.WithAuthor(context.Background(), "agent-1")

	origin := mustCreate(t, l, ctx, "notes", "note", "v1")
	raw, _ := json.Marshal(note{Title: "v2"})
	rev, err := l.Call(ctx, "notes", "update_note", ledger.UpdateInput{
		Original: origin.Ref, Previous: origin.Ref, Value: raw,
	})
	if err != nil {
		t.Fatalf("update_note: %v", err)
	}

	// A sibling revision written on a partitioned peer, with a later
	// timestamp. After import it must win the head.
	prev := origin.Ref
	fork := &ledger.Record{
		Ref:       "note-zzzzzzzzzzzz",
		Previous:  &prev,
		Author:    "agent-2",
		Timestamp: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		Payload:   json.RawMessage(`{"title":"v2-peer"}`),
	}
	if err := l.Import("notes", "note", fork); err != nil {
		t.Fatalf("import: %v", err)
	}

	raw, _ = json.Marshal(note{Title: "v3"})
	if _, err := l.Call(ctx, "notes", "update_note", ledger.UpdateInput{
		Original: origin.Ref, Previous: rev.Ref, Value: raw,
	}); !ledger.IsStaleWrite(err) {
		t.Fatalf("update from losing branch: err = %v, want stale write", err)
	}
	if _, err := l.Call(ctx, "notes", "update_note", ledger.UpdateInput{
		Original: origin.Ref, Previous: fork.Ref, Value: raw,
	}); err != nil {
		t.Fatalf("update from winning branch: %v", err)
	}
}

func TestExpiredContext(t *testing.T) {
	l := New()
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := l.Call(ctx, "notes", "create_note", ledger.CreateInput{})
	if !ledger.IsTimeout(err) {
		t.Fatalf("err = %v, want timeout", err)
	}
}

func TestUnknownFunction(t *testing.T) {
	l := New()
	_, err := l.Call(context.Background(), "notes", "frobnicate_note", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if ledger.CodeOf(err) != ledger.CodeInternal {
		t.Errorf("code = %v, want internal", ledger.CodeOf(err))
	}
}
