package model

import (
	"fmt"
	"net/mail"
	"strings"
)

// Organization is a collective that can own requests and offers. Members and
// coordinators are tracked as links on the entity, not inside the value.
type Organization struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	FullLegalName string   `json:"full_legal_name"`
	Email         string   `json:"email"`
	URLs          []string `json:"urls,omitempty"`
	Location      string   `json:"location,omitempty"`
}

// Validate reports the first rule the organization breaks.
func (o *Organization) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("organization name cannot be empty")
	}
	if strings.TrimSpace(o.FullLegalName) == "" {
		return fmt.Errorf("organization full legal name cannot be empty")
	}
	if _, err := mail.ParseAddress(o.Email); err != nil {
		return fmt.Errorf("invalid email %q", o.Email)
	}
	return nil
}
