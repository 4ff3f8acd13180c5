package model

import (
	"fmt"
	"strings"
)

// MediumOfExchange is an admin-moderated way of settling an exchange
// (a currency code or an arrangement like pay-it-forward).
type MediumOfExchange struct {
	// Code is the unique identifier, e.g. "EUR", "USD", "PAY_IT_FORWARD".
	Code string `json:"code"`
	// Name is the human-readable form, e.g. "Euro", "Pay it Forward".
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// ResourceSpecID links an approved medium to its external resource
	// specification; empty while the medium is only suggested.
	ResourceSpecID string `json:"resource_spec_id,omitempty"`
}

// Validate reports the first rule the medium breaks.
func (m *MediumOfExchange) Validate() error {
	if strings.TrimSpace(m.Code) == "" {
		return fmt.Errorf("medium of exchange code cannot be empty")
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("medium of exchange name cannot be empty")
	}
	return nil
}
