package status

import (
	"errors"
	"testing"
	"time"

	"github.com/groblegark/agora/internal/entity"
)

func TestValidateTransition(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		from State
		to   Record
		ok   bool
	}{
		{"approve pending", Pending, Record{State: Accepted}, true},
		{"reject pending", Pending, Record{State: Rejected}, true},
		{"reject accepted", Accepted, Record{State: Rejected}, false},
		{"reject rejected", Rejected, Record{State: Rejected}, false},
		{"reinstate rejected", Rejected, Record{State: Accepted}, true},
		{"reinstate suspended", SuspendedIndefinitely, Record{State: Accepted}, true},
		{"suspend accepted", Accepted, Record{State: SuspendedTemporarily, SuspendedUntil: &future}, true},
		{"suspend accepted no end", Accepted, Record{State: SuspendedTemporarily}, false},
		{"suspend accepted past end", Accepted, Record{State: SuspendedTemporarily, SuspendedUntil: &past}, false},
		{"suspend pending", Pending, Record{State: SuspendedTemporarily, SuspendedUntil: &future}, false},
		{"suspend indefinitely accepted", Accepted, Record{State: SuspendedIndefinitely}, true},
		{"suspend indefinitely pending", Pending, Record{State: SuspendedIndefinitely}, false},
		{"unknown state", Accepted, Record{State: "banished"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(Record{State: tt.from}, tt.to, now)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("err = %v, want ErrInvalidTransition", err)
				}
			}
		})
	}
}

func TestCanPerform(t *testing.T) {
	tests := []struct {
		name      string
		op        entity.Op
		isAdmin   bool
		isCreator bool
		state     State
		want      bool
	}{
		{"admin writes rejected", entity.OpUpdate, true, false, Rejected, true},
		{"admin deletes suspended", entity.OpDelete, true, false, SuspendedIndefinitely, true},
		{"creator reads rejected", entity.OpRead, false, true, Rejected, true},
		{"creator updates rejected", entity.OpUpdate, false, true, Rejected, false},
		{"creator updates pending", entity.OpUpdate, false, true, Pending, true},
		{"creator deletes accepted", entity.OpDelete, false, true, Accepted, true},
		{"stranger reads accepted", entity.OpRead, false, false, Accepted, true},
		{"stranger reads pending", entity.OpRead, false, false, Pending, false},
		{"stranger reads suspended", entity.OpRead, false, false, SuspendedTemporarily, false},
		{"stranger updates accepted", entity.OpUpdate, false, false, Accepted, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanPerform(tt.op, tt.isAdmin, tt.isCreator, tt.state)
			if got != tt.want {
				t.Errorf("CanPerform(%s, admin=%v, creator=%v, %s) = %v, want %v",
					tt.op, tt.isAdmin, tt.isCreator, tt.state, got, tt.want)
			}
		})
	}
}

func TestUnsuspendDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(-time.Minute)
	later := now.Add(time.Minute)

	if (Record{State: SuspendedTemporarily, SuspendedUntil: &end}).UnsuspendDue(now) != true {
		t.Error("lapsed suspension should be due")
	}
	if (Record{State: SuspendedTemporarily, SuspendedUntil: &later}).UnsuspendDue(now) {
		t.Error("active suspension is not due")
	}
	if (Record{State: SuspendedIndefinitely}).UnsuspendDue(now) {
		t.Error("indefinite suspension never lapses")
	}
	if (Record{State: SuspendedTemporarily}).UnsuspendDue(now) {
		t.Error("suspension without an end never lapses")
	}
}
