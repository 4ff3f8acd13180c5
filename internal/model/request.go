package model

import (
	"fmt"
	"strings"

	"github.com/groblegark/agora/internal/ledger"
)

// RequestStatus represents the current state of a request.
type RequestStatus string

const (
	RequestDraft      RequestStatus = "draft"
	RequestPublished  RequestStatus = "published"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
	RequestCancelled  RequestStatus = "cancelled"
)

// String returns the string representation of the status.
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestDraft, RequestPublished, RequestInProgress, RequestCompleted, RequestCancelled:
		return true
	}
	return false
}

// Request is something a participant needs from the community.
type Request struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Status       RequestStatus `json:"status"`
	Skills       []string      `json:"skills"`
	Organization *ledger.Ref   `json:"organization,omitempty"`
	ServiceTypes []ledger.Ref  `json:"service_types,omitempty"`
}

// Validate reports the first rule the request breaks.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("request title cannot be empty")
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("request description cannot be empty")
	}
	if len(r.Skills) == 0 {
		return fmt.Errorf("request must have at least one skill")
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("unknown request status %q", r.Status)
	}
	return nil
}
