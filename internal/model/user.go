// Package model defines the marketplace domain values. Each value is the
// payload of one ledger record; validation mirrors what the ledger runtime
// enforces upstream so obviously bad writes fail before the round-trip.
package model

import (
	"fmt"
	"net/mail"
	"strings"
)

// UserType classifies how a user participates in the marketplace.
type UserType string

const (
	UserTypeAdvocate UserType = "advocate"
	UserTypeCreator  UserType = "creator"
)

// String returns the string representation of the user type.
func (t UserType) String() string {
	return string(t)
}

// IsValid checks whether the user type is a known value.
func (t UserType) IsValid() bool {
	switch t {
	case UserTypeAdvocate, UserTypeCreator:
		return true
	}
	return false
}

// User is the profile of one participating agent. Exactly one user exists
// per agent; registration enforces that.
type User struct {
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
	Bio      string   `json:"bio,omitempty"`
	Type     UserType `json:"user_type"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone,omitempty"`
	TimeZone string   `json:"time_zone,omitempty"`
	Location string   `json:"location,omitempty"`
	Skills   []string `json:"skills,omitempty"`
}

// Validate reports the first rule the user profile breaks.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("user name cannot be empty")
	}
	if strings.TrimSpace(u.Nickname) == "" {
		return fmt.Errorf("user nickname cannot be empty")
	}
	if !u.Type.IsValid() {
		return fmt.Errorf("unknown user type %q", u.Type)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("invalid email %q", u.Email)
	}
	return nil
}
