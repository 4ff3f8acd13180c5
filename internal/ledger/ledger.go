// Package ledger defines the boundary between the marketplace stores and the
// distributed-ledger runtime they persist to. Every store operation maps to
// one remote call identified by (domain, function, payload); the runtime
// answers with one or more immutable records. How the runtime achieves
// durability or replication is opaque to this package.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Ref is the opaque, content-derived identifier of one immutable record.
// Two refs matter for every entity: the original ref, which names the entity
// identity across its whole history, and the head ref, which names the most
// recent accepted record in its revision chain.
type Ref string

func (r Ref) String() string { return string(r) }

// Record is one immutable entry in an entity's revision chain. Previous is
// nil for the origin record and otherwise points at the record this one
// supersedes.
type Record struct {
	Ref       Ref             `json:"ref"`
	Previous  *Ref            `json:"previous,omitempty"`
	Author    string          `json:"author"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Decode unmarshals the record payload into v.
func (r *Record) Decode(v any) error {
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("decode record %s: %w", r.Ref, err)
	}
	return nil
}

// Caller is the single entry point into the ledger runtime. Implementations
// must enforce a deadline on each call and translate a missed deadline into
// CodeTimeout, so callers can leave their caches untouched on timeout.
type Caller interface {
	// Call invokes a ledger function that returns a single record.
	Call(ctx context.Context, domain, fn string, payload any) (*Record, error)

	// CallList invokes a ledger function that returns every matching record,
	// e.g. all revisions for one entity identity.
	CallList(ctx context.Context, domain, fn string, payload any) ([]*Record, error)
}

// CreateInput is the payload for create_* functions.
type CreateInput struct {
	Value json.RawMessage `json:"value"`
}

// UpdateInput is the payload for update_* functions. Previous carries the
// caller's believed head; the runtime rejects the update with CodeStaleWrite
// when it is no longer the actual head.
type UpdateInput struct {
	Original Ref             `json:"original"`
	Previous Ref             `json:"previous"`
	Value    json.RawMessage `json:"value"`
}

// OriginalInput is the payload for functions addressed by entity identity
// (get_all_revisions_for_*, delete_*).
type OriginalInput struct {
	Original Ref `json:"original"`
}
