package market

import (
	"context"
	"fmt"

	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/ledger"
	"github.com/groblegark/agora/internal/model"
	"github.com/groblegark/agora/internal/status"
)

// CreateOrganization creates the organization and its membership entity with
// the calling agent as sole coordinator. The organization starts pending like
// any other moderated entity.
func (m *Market) CreateOrganization(ctx context.Context, org model.Organization) (entity.Entity[model.Organization], error) {
	var zero entity.Entity[model.Organization]
	agent, err := actor(ctx)
	if err != nil {
		return zero, err
	}

	ent, err := m.Organizations.Create(ctx, org)
	if err != nil {
		return zero, err
	}
	if _, err := m.Memberships.Create(ctx, model.Membership{
		Organization: ent.Original,
		Coordinators: []string{agent},
	}); err != nil {
		return zero, fmt.Errorf("membership for %s: %w", ent.Original, err)
	}
	if _, err := m.Status.Ensure(ctx, ent.Original, status.Pending); err != nil {
		return zero, fmt.Errorf("status for %s: %w", ent.Original, err)
	}
	return ent, nil
}

// MembershipOf returns the membership entity of the organization.
func (m *Market) MembershipOf(ctx context.Context, org ledger.Ref) (entity.Entity[model.Membership], error) {
	var zero entity.Entity[model.Membership]
	seq, err := m.Memberships.List(ctx, entity.All[model.Membership]())
	if err != nil {
		return zero, err
	}
	for ent := range seq {
		if ent.Value.Organization == org {
			return ent, nil
		}
	}
	return zero, fmt.Errorf("membership of %s: %w", org, entity.ErrNotFound)
}

// IsMember reports whether agent belongs to the organization.
func (m *Market) IsMember(ctx context.Context, org ledger.Ref, agent string) (bool, error) {
	ms, err := m.MembershipOf(ctx, org)
	if err != nil {
		return false, err
	}
	return ms.Value.HasMember(agent), nil
}

// editMembership applies one roster change. Only a coordinator of the
// organization or an administrator may edit.
func (m *Market) editMembership(ctx context.Context, org ledger.Ref, mutate func(*model.Membership) error) error {
	agent, err := actor(ctx)
	if err != nil {
		return err
	}
	ms, err := m.MembershipOf(ctx, org)
	if err != nil {
		return err
	}
	if !ms.Value.HasCoordinator(agent) {
		isAdmin, err := m.Status.IsAdministrator(ctx, agent)
		if err != nil {
			return err
		}
		if !isAdmin {
			return fmt.Errorf("%w: %s may not edit membership of %s", entity.ErrPermissionDenied, agent, org)
		}
	}

	value := ms.Value
	value.Members = append([]string(nil), ms.Value.Members...)
	value.Coordinators = append([]string(nil), ms.Value.Coordinators...)
	if err := mutate(&value); err != nil {
		return err
	}
	_, err = m.Memberships.Update(ctx, ms.Original, ms.Head, value)
	return err
}

// AddMember adds agent to the organization.
func (m *Market) AddMember(ctx context.Context, org ledger.Ref, agent string) error {
	return m.editMembership(ctx, org, func(ms *model.Membership) error {
		if ms.HasMember(agent) {
			return nil
		}
		ms.Members = append(ms.Members, agent)
		return nil
	})
}

// RemoveMember removes agent from the organization. Coordinators must be
// demoted first.
func (m *Market) RemoveMember(ctx context.Context, org ledger.Ref, agent string) error {
	return m.editMembership(ctx, org, func(ms *model.Membership) error {
		if ms.HasCoordinator(agent) {
			return fmt.Errorf("%s coordinates %s; demote first", agent, org)
		}
		out := ms.Members[:0]
		for _, a := range ms.Members {
			if a != agent {
				out = append(out, a)
			}
		}
		ms.Members = out
		return nil
	})
}

// AddCoordinator promotes agent to coordinator, adding them as a member if
// needed.
func (m *Market) AddCoordinator(ctx context.Context, org ledger.Ref, agent string) error {
	return m.editMembership(ctx, org, func(ms *model.Membership) error {
		if ms.HasCoordinator(agent) {
			return nil
		}
		ms.Coordinators = append(ms.Coordinators, agent)
		return nil
	})
}

// RemoveCoordinator demotes agent to plain member. The organization keeps at
// least one coordinator.
func (m *Market) RemoveCoordinator(ctx context.Context, org ledger.Ref, agent string) error {
	return m.editMembership(ctx, org, func(ms *model.Membership) error {
		if len(ms.Coordinators) == 1 && ms.Coordinators[0] == agent {
			return fmt.Errorf("cannot remove the last coordinator of %s", org)
		}
		out := ms.Coordinators[:0]
		for _, a := range ms.Coordinators {
			if a != agent {
				out = append(out, a)
			}
		}
		ms.Coordinators = out
		if !ms.HasMember(agent) {
			ms.Members = append(ms.Members, agent)
		}
		return nil
	})
}
