// Package status implements the moderation lifecycle applied to marketplace
// entities: pending on creation, accepted or rejected by an administrator,
// suspended by a moderator, reinstated by an administrator. Status records
// are themselves ledger entities in the administration domain, so every
// transition appends to a revision chain and nothing is ever deleted.
package status

import (
	"errors"
	"fmt"
	"time"

	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/ledger"
)

// State is one lifecycle state. The wire forms match the original runtime's
// status type strings.
type State string

const (
	Pending               State = "pending"
	Accepted              State = "accepted"
	Rejected              State = "rejected"
	SuspendedTemporarily  State = "suspended temporarily"
	SuspendedIndefinitely State = "suspended indefinitely"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsValid checks whether the state is a known value.
func (s State) IsValid() bool {
	switch s {
	case Pending, Accepted, Rejected, SuspendedTemporarily, SuspendedIndefinitely:
		return true
	}
	return false
}

// Suspended reports whether the state is either suspension.
func (s State) Suspended() bool {
	return s == SuspendedTemporarily || s == SuspendedIndefinitely
}

// Record is the payload of one status entity revision.
type Record struct {
	// Subject is the original ref of the entity this status governs.
	Subject ledger.Ref `json:"subject"`
	State   State      `json:"state"`
	Reason  string     `json:"reason,omitempty"`
	// SuspendedUntil is set only for SuspendedTemporarily.
	SuspendedUntil *time.Time `json:"suspended_until,omitempty"`
}

// UnsuspendDue reports whether a temporary suspension has lapsed.
func (r Record) UnsuspendDue(now time.Time) bool {
	return r.State == SuspendedTemporarily && r.SuspendedUntil != nil && !now.Before(*r.SuspendedUntil)
}

// ErrInvalidTransition is returned for a transition the lifecycle forbids.
var ErrInvalidTransition = errors.New("status: invalid transition")

// ValidateTransition checks one lifecycle step. Reinstatement to Accepted is
// allowed from any state; everything else follows the fixed edges.
func ValidateTransition(from, to Record, now time.Time) error {
	if !to.State.IsValid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, to.State)
	}
	switch to.State {
	case Accepted:
		// Approval or reinstatement, from any state.
		return nil
	case Rejected:
		if from.State != Pending {
			return fmt.Errorf("%w: %s -> rejected", ErrInvalidTransition, from.State)
		}
		return nil
	case SuspendedTemporarily:
		if from.State != Accepted {
			return fmt.Errorf("%w: %s -> suspended temporarily", ErrInvalidTransition, from.State)
		}
		if to.SuspendedUntil == nil || !to.SuspendedUntil.After(now) {
			return fmt.Errorf("%w: suspension end must be in the future", ErrInvalidTransition)
		}
		return nil
	case SuspendedIndefinitely:
		if from.State != Accepted {
			return fmt.Errorf("%w: %s -> suspended indefinitely", ErrInvalidTransition, from.State)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from.State, to.State)
	}
}

// CanPerform is the authorization rule gating store operations. The creator
// keeps access to their own entity in every state except Rejected, which
// blocks further edits; administrators may do anything; everyone else gets
// read-only access to accepted entities.
func CanPerform(op entity.Op, isAdmin, isCreator bool, state State) bool {
	if isAdmin {
		return true
	}
	if isCreator {
		if op == entity.OpRead {
			return true
		}
		return state != Rejected
	}
	return op == entity.OpRead && state == Accepted
}
