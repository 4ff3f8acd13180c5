package model

import (
	"fmt"
	"strings"

	"github.com/groblegark/agora/internal/ledger"
)

// OfferStatus represents the current state of an offer. Archiving an offer
// removes it from active listings without deleting its history.
type OfferStatus string

const (
	OfferActive   OfferStatus = "active"
	OfferArchived OfferStatus = "archived"
)

// String returns the string representation of the status.
func (s OfferStatus) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s OfferStatus) IsValid() bool {
	switch s {
	case OfferActive, OfferArchived:
		return true
	}
	return false
}

// Offer is something a participant makes available to the community.
type Offer struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Capabilities []string     `json:"capabilities"`
	Availability string       `json:"availability,omitempty"`
	Status       OfferStatus  `json:"status"`
	Organization *ledger.Ref  `json:"organization,omitempty"`
	ServiceTypes []ledger.Ref `json:"service_types,omitempty"`
}

// Validate reports the first rule the offer breaks.
func (o *Offer) Validate() error {
	if strings.TrimSpace(o.Title) == "" {
		return fmt.Errorf("offer title cannot be empty")
	}
	if strings.TrimSpace(o.Description) == "" {
		return fmt.Errorf("offer description cannot be empty")
	}
	if len(o.Capabilities) == 0 {
		return fmt.Errorf("offer must have at least one capability")
	}
	if !o.Status.IsValid() {
		return fmt.Errorf("unknown offer status %q", o.Status)
	}
	return nil
}
