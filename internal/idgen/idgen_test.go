package idgen

import (
	"regexp"
	"strings"
	"testing"
)

func TestRef_Layout(t *testing.T) {
	ref, err := Ref("offer")
	if err != nil {
		t.Fatalf("Ref() error: %v", err)
	}
	wantLen := len("offer-") + Length
	if len(ref) != wantLen {
		t.Errorf("Ref() length = %d, want %d (ref=%q)", len(ref), wantLen, ref)
	}
	if !strings.HasPrefix(ref, "offer-") {
		t.Errorf("Ref() = %q, want noun prefix %q", ref, "offer-")
	}
}

func TestRef_Charset(t *testing.T) {
	pattern := regexp.MustCompile(`^request-[a-zA-Z0-9]+$`)
	for i := 0; i < 100; i++ {
		ref, err := Ref("request")
		if err != nil {
			t.Fatalf("Ref() error on iteration %d: %v", i, err)
		}
		if !pattern.MatchString(ref) {
			t.Fatalf("Ref() = %q, does not match expected charset pattern", ref)
		}
	}
}

func TestRef_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		ref, err := Ref("user")
		if err != nil {
			t.Fatalf("Ref() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate ref after %d generations: %q", i, ref)
		}
		seen[ref] = struct{}{}
	}
}

func TestRef_InvalidNoun(t *testing.T) {
	for _, noun := range []string{"", "has-hyphen", "has space"} {
		if _, err := Ref(noun); err == nil {
			t.Errorf("Ref(%q): expected error", noun)
		}
	}
}

func TestNoun(t *testing.T) {
	for _, tc := range []struct {
		ref  string
		want string
	}{
		{"offer-4XkQzR81mWcD", "offer"},
		{"service_type-a1B2c3D4e5F6", "service_type"},
		{"medium_of_exchange-ZZZZZZZZZZZZ", "medium_of_exchange"},
		{"nohyphen", ""},
		{"-leading", ""},
	} {
		if got := Noun(tc.ref); got != tc.want {
			t.Errorf("Noun(%q) = %q, want %q", tc.ref, got, tc.want)
		}
	}

	ref, err := Ref("roster")
	if err != nil {
		t.Fatalf("Ref() error: %v", err)
	}
	if got := Noun(ref); got != "roster" {
		t.Errorf("Noun(Ref(roster)) = %q, want %q", got, "roster")
	}
}
