package model

import "testing"

func validUser() User {
	return User{
		Name:     "Alice Example",
		Nickname: "alice",
		Type:     UserTypeAdvocate,
		Email:    "alice@example.org",
	}
}

func TestUser_Validate(t *testing.T) {
	u := validUser()
	if err := u.Validate(); err != nil {
		t.Fatalf("valid user rejected: %v", err)
	}

	for name, mutate := range map[string]func(*User){
		"empty name":     func(u *User) { u.Name = "  " },
		"empty nickname": func(u *User) { u.Nickname = "" },
		"bad type":       func(u *User) { u.Type = "robot" },
		"bad email":      func(u *User) { u.Email = "not-an-address" },
	} {
		u := validUser()
		mutate(&u)
		if err := u.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestOrganization_Validate(t *testing.T) {
	org := Organization{
		Name:          "Commons Coop",
		Description:   "A cooperative",
		FullLegalName: "Commons Cooperative Ltd",
		Email:         "hello@commons.coop",
	}
	if err := org.Validate(); err != nil {
		t.Fatalf("valid organization rejected: %v", err)
	}

	org.FullLegalName = ""
	if err := org.Validate(); err == nil {
		t.Error("expected error for empty full legal name")
	}
}

func TestRequest_Validate(t *testing.T) {
	req := Request{
		Title:       "Need a logo",
		Description: "Vector logo for the coop",
		Status:      RequestPublished,
		Skills:      []string{"design"},
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	req.Skills = nil
	if err := req.Validate(); err == nil {
		t.Error("expected error for request without skills")
	}
}

func TestOffer_Validate(t *testing.T) {
	offer := Offer{
		Title:        "Web development",
		Description:  "Frontend and backend work",
		Capabilities: []string{"go", "svelte"},
		Status:       OfferActive,
	}
	if err := offer.Validate(); err != nil {
		t.Fatalf("valid offer rejected: %v", err)
	}

	offer.Status = "paused"
	if err := offer.Validate(); err == nil {
		t.Error("expected error for unknown offer status")
	}
}

func TestServiceType_Validate(t *testing.T) {
	st := ServiceType{Name: "Translation", Description: "Written translation", Technical: false}
	if err := st.Validate(); err != nil {
		t.Fatalf("valid service type rejected: %v", err)
	}
	st.Name = ""
	if err := st.Validate(); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestMediumOfExchange_Validate(t *testing.T) {
	moe := MediumOfExchange{Code: "EUR", Name: "Euro"}
	if err := moe.Validate(); err != nil {
		t.Fatalf("valid medium rejected: %v", err)
	}
	moe.Code = ""
	if err := moe.Validate(); err == nil {
		t.Error("expected error for empty code")
	}
}

func TestEnumValidity(t *testing.T) {
	for _, tc := range []struct {
		name  string
		valid bool
		check func() bool
	}{
		{"request status", true, RequestDraft.IsValid},
		{"request status unknown", false, RequestStatus("gone").IsValid},
		{"offer status", true, OfferArchived.IsValid},
		{"offer status unknown", false, OfferStatus("gone").IsValid},
		{"user type", true, UserTypeCreator.IsValid},
		{"user type unknown", false, UserType("gone").IsValid},
	} {
		if got := tc.check(); got != tc.valid {
			t.Errorf("%s: IsValid = %v, want %v", tc.name, got, tc.valid)
		}
	}
}
