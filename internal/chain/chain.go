// Package chain resolves the flat set of immutable records the ledger holds
// for one entity identity into a single current head.
//
// A well-formed chain has exactly one origin record (no previous pointer) and
// exactly one head (no record claims it as previous). Concurrent edits can
// produce a fork: two or more records claiming the same predecessor. A fork
// is resolved deterministically but always surfaced to the caller, so the UI
// can offer a merge or reload instead of silently discarding one side.
package chain

import (
	"errors"
	"fmt"
	"sort"

	"github.com/groblegark/agora/internal/ledger"
)

// ErrEmpty is returned when there are no records to resolve.
var ErrEmpty = errors.New("chain: no records")

// ErrCorrupt signals a violated chain invariant: a cycle, a missing origin,
// or a previous pointer that does not resolve within the chain. Corruption is
// fatal; it is never silently recovered.
var ErrCorrupt = errors.New("chain: corrupt")

// ConflictError reports a fork: more than one record with no successor.
// Head resolution still succeeds with the deterministic winner, but callers
// must surface the conflict rather than swallow it.
type ConflictError struct {
	// Candidates are all unsuperseded records, winner first.
	Candidates []*ledger.Record
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("chain: %d records claim to be head", len(e.Candidates))
}

// Winner is the deterministically chosen head among the candidates.
func (e *ConflictError) Winner() *ledger.Record { return e.Candidates[0] }

// Resolution is the outcome of resolving one revision chain.
type Resolution struct {
	Origin *ledger.Record
	Head   *ledger.Record
}

// Resolve turns the ledger's record set for one identity into origin and
// head. On a fork it returns the winning head along with a *ConflictError;
// on corruption the resolution is unusable and only the error is returned.
//
// The winner of a fork is the candidate with the highest timestamp,
// tie-broken by ref ordering, so every replica resolves the same head.
func Resolve(records []*ledger.Record) (Resolution, error) {
	if len(records) == 0 {
		return Resolution{}, ErrEmpty
	}

	byRef := make(map[ledger.Ref]*ledger.Record, len(records))
	for _, rec := range records {
		if _, dup := byRef[rec.Ref]; dup {
			return Resolution{}, fmt.Errorf("%w: duplicate ref %s", ErrCorrupt, rec.Ref)
		}
		byRef[rec.Ref] = rec
	}

	superseded := make(map[ledger.Ref]bool, len(records))
	var origin *ledger.Record
	for _, rec := range records {
		if rec.Previous == nil {
			if origin != nil {
				return Resolution{}, fmt.Errorf("%w: records %s and %s both claim to be origin", ErrCorrupt, origin.Ref, rec.Ref)
			}
			origin = rec
			continue
		}
		if _, ok := byRef[*rec.Previous]; !ok {
			return Resolution{}, fmt.Errorf("%w: record %s supersedes unknown ref %s", ErrCorrupt, rec.Ref, *rec.Previous)
		}
		superseded[*rec.Previous] = true
	}
	if origin == nil {
		return Resolution{}, fmt.Errorf("%w: no origin record", ErrCorrupt)
	}

	var heads []*ledger.Record
	for _, rec := range records {
		if !superseded[rec.Ref] {
			heads = append(heads, rec)
		}
	}
	switch len(heads) {
	case 0:
		// Every record is superseded by another: a cycle.
		return Resolution{}, fmt.Errorf("%w: no unsuperseded record", ErrCorrupt)
	case 1:
		return Resolution{Origin: origin, Head: heads[0]}, nil
	}

	sort.Slice(heads, func(i, j int) bool {
		if !heads[i].Timestamp.Equal(heads[j].Timestamp) {
			return heads[i].Timestamp.After(heads[j].Timestamp)
		}
		return heads[i].Ref > heads[j].Ref
	})
	return Resolution{Origin: origin, Head: heads[0]}, &ConflictError{Candidates: heads}
}

// Reachable reports whether target can be reached from start by following
// previous pointers zero or more times within the given record set.
func Reachable(records []*ledger.Record, start, target ledger.Ref) bool {
	byRef := make(map[ledger.Ref]*ledger.Record, len(records))
	for _, rec := range records {
		byRef[rec.Ref] = rec
	}
	seen := make(map[ledger.Ref]bool)
	for cur := start; !seen[cur]; {
		if cur == target {
			return true
		}
		seen[cur] = true
		rec, ok := byRef[cur]
		if !ok || rec.Previous == nil {
			return false
		}
		cur = *rec.Previous
	}
	return false
}
