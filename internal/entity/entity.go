// Package entity implements the per-domain store that callers interact with:
// cache-first reads, optimistic writes, revision-chain resolution, and typed
// event emission, orchestrated against the ledger boundary.
package entity

import (
	"time"

	"github.com/groblegark/agora/internal/ledger"
)

// Entity is the resolved, user-facing view of one domain value. It is only
// ever constructed by resolving a revision chain; callers never build one by
// hand. Author is the origin author, i.e. the entity's creator.
type Entity[T any] struct {
	Original  ledger.Ref `json:"original"`
	Head      ledger.Ref `json:"head"`
	Author    string     `json:"author"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Value     T          `json:"value"`
}

// LogicalTime orders cache writes for the same identity.
func (e Entity[T]) LogicalTime() time.Time { return e.UpdatedAt }

// Ops names the ledger functions for one domain noun.
type Ops struct {
	Create    string
	Revisions string
	Update    string
	Delete    string
	List      string
}

// OpsFor derives the conventional function names for a noun, e.g.
// OpsFor("request").Create == "create_request".
func OpsFor(noun string) Ops {
	return Ops{
		Create:    "create_" + noun,
		Revisions: "get_revisions_" + noun,
		Update:    "update_" + noun,
		Delete:    "delete_" + noun,
		List:      "list_" + noun,
	}
}
