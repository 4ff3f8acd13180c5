package model

import (
	"fmt"

	"github.com/groblegark/agora/internal/ledger"
)

// Membership records who belongs to an organization. It is a separate
// revision-chained entity so membership changes never race with profile
// edits. Coordinators manage the roster and may post on the organization's
// behalf; coordinators are members.
type Membership struct {
	Organization ledger.Ref `json:"organization"`
	Members      []string   `json:"members,omitempty"`
	Coordinators []string   `json:"coordinators"`
}

// HasMember reports whether agent belongs to the organization.
func (m *Membership) HasMember(agent string) bool {
	for _, a := range m.Members {
		if a == agent {
			return true
		}
	}
	return m.HasCoordinator(agent)
}

// HasCoordinator reports whether agent coordinates the organization.
func (m *Membership) HasCoordinator(agent string) bool {
	for _, a := range m.Coordinators {
		if a == agent {
			return true
		}
	}
	return false
}

// Validate reports the first rule the membership breaks.
func (m *Membership) Validate() error {
	if m.Organization == "" {
		return fmt.Errorf("membership must name an organization")
	}
	if len(m.Coordinators) == 0 {
		return fmt.Errorf("organization must keep at least one coordinator")
	}
	return nil
}
