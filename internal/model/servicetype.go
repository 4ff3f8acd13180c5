package model

import (
	"fmt"
	"strings"
)

// ServiceType is an admin-moderated category that requests and offers tag
// themselves with. Suggested by anyone, usable only once approved.
type ServiceType struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Technical   bool   `json:"technical"`
}

// Validate reports the first rule the service type breaks.
func (s *ServiceType) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("service type name cannot be empty")
	}
	if strings.TrimSpace(s.Description) == "" {
		return fmt.Errorf("service type description cannot be empty")
	}
	return nil
}
