package chain

import (
	"errors"
	"testing"
	"time"

	"github.com/groblegark/agora/internal/ledger"
)

func ref(s string) *ledger.Ref {
	r := ledger.Ref(s)
	return &r
}

func rec(self string, prev *ledger.Ref, at time.Time) *ledger.Record {
	return &ledger.Record{Ref: ledger.Ref(self), Previous: prev, Author: "alice", Timestamp: at}
}

func TestResolve_SingleRecord(t *testing.T) {
	t0 := time.Now()
	res, err := Resolve([]*ledger.Record{rec("h0", nil, t0)})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.Origin.Ref != "h0" || res.Head.Ref != "h0" {
		t.Errorf("got origin=%s head=%s, want h0/h0", res.Origin.Ref, res.Head.Ref)
	}
}

func TestResolve_LinearChain(t *testing.T) {
	t0 := time.Now()
	records := []*ledger.Record{
		rec("h2", ref("h1"), t0.Add(2*time.Second)),
		rec("h0", nil, t0),
		rec("h1", ref("h0"), t0.Add(time.Second)),
	}
	res, err := Resolve(records)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.Origin.Ref != "h0" {
		t.Errorf("origin = %s, want h0", res.Origin.Ref)
	}
	if res.Head.Ref != "h2" {
		t.Errorf("head = %s, want h2", res.Head.Ref)
	}
	if !Reachable(records, res.Head.Ref, res.Origin.Ref) {
		t.Error("head is not reachable back to origin")
	}
}

func TestResolve_Empty(t *testing.T) {
	if _, err := Resolve(nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("got %v, want ErrEmpty", err)
	}
}

func TestResolve_Fork(t *testing.T) {
	t0 := time.Now()
	records := []*ledger.Record{
		rec("h0", nil, t0),
		rec("ha", ref("h0"), t0.Add(time.Second)),
		rec("hb", ref("h0"), t0.Add(2*time.Second)),
	}
	res, err := Resolve(records)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("got %v, want *ConflictError", err)
	}
	if len(conflict.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(conflict.Candidates))
	}
	// Later timestamp wins.
	if res.Head.Ref != "hb" || conflict.Winner().Ref != "hb" {
		t.Errorf("winner = %s, want hb", conflict.Winner().Ref)
	}
}

func TestResolve_ForkTieBrokenByRef(t *testing.T) {
	t0 := time.Now()
	records := []*ledger.Record{
		rec("h0", nil, t0),
		rec("ha", ref("h0"), t0.Add(time.Second)),
		rec("hb", ref("h0"), t0.Add(time.Second)),
	}
	res, err := Resolve(records)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("got %v, want *ConflictError", err)
	}
	if res.Head.Ref != "hb" {
		t.Errorf("winner = %s, want hb (greater ref on equal timestamps)", res.Head.Ref)
	}
}

func TestResolve_Corruption(t *testing.T) {
	t0 := time.Now()
	for name, records := range map[string][]*ledger.Record{
		"cycle": {
			rec("ha", ref("hb"), t0),
			rec("hb", ref("ha"), t0.Add(time.Second)),
		},
		"missing previous": {
			rec("h0", nil, t0),
			rec("h1", ref("gone"), t0.Add(time.Second)),
		},
		"two origins": {
			rec("h0", nil, t0),
			rec("g0", nil, t0.Add(time.Second)),
		},
		"duplicate ref": {
			rec("h0", nil, t0),
			rec("h0", nil, t0),
		},
	} {
		if _, err := Resolve(records); !errors.Is(err, ErrCorrupt) {
			t.Errorf("%s: got %v, want ErrCorrupt", name, err)
		}
	}
}

func TestReachable_NotReachable(t *testing.T) {
	t0 := time.Now()
	records := []*ledger.Record{
		rec("h0", nil, t0),
		rec("h1", ref("h0"), t0.Add(time.Second)),
	}
	if Reachable(records, "h0", "h1") {
		t.Error("origin must not reach forward to head")
	}
}
