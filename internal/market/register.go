package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/model"
	"github.com/groblegark/agora/internal/status"
)

// RegisterUser creates the calling agent's user profile. The first agent on
// an empty network becomes the progenitor: it is installed as administrator
// and its profile is accepted immediately, since nobody else could approve
// it. Every later profile starts pending. The returned bool reports whether
// the caller became the progenitor.
func (m *Market) RegisterUser(ctx context.Context, u model.User) (entity.Entity[model.User], bool, error) {
	var zero entity.Entity[model.User]
	agent, err := actor(ctx)
	if err != nil {
		return zero, false, err
	}

	if _, err := m.UserOf(ctx, agent); err == nil {
		return zero, false, fmt.Errorf("%w: %s", ErrAlreadyRegistered, agent)
	} else if !errors.Is(err, ErrNotRegistered) {
		return zero, false, err
	}

	ent, err := m.Users.Create(ctx, u)
	if err != nil {
		return zero, false, err
	}

	progenitor, err := m.Status.Bootstrap(ctx)
	if err != nil {
		return zero, false, fmt.Errorf("bootstrap after registration: %w", err)
	}
	initial := status.Pending
	if progenitor {
		initial = status.Accepted
	}
	if _, err := m.Status.Ensure(ctx, ent.Original, initial); err != nil {
		return zero, false, fmt.Errorf("status for %s: %w", ent.Original, err)
	}

	m.logger.Info("market: user registered",
		"agent", agent, "user", ent.Original, "progenitor", progenitor)
	return ent, progenitor, nil
}

// UserOf returns the profile created by agent, or ErrNotRegistered.
// An agent has at most one profile; registration enforces that.
func (m *Market) UserOf(ctx context.Context, agent string) (entity.Entity[model.User], error) {
	var zero entity.Entity[model.User]
	seq, err := m.Users.List(ctx, entity.All[model.User]())
	if err != nil {
		return zero, err
	}
	for ent := range seq {
		if ent.Author == agent {
			return ent, nil
		}
	}
	return zero, fmt.Errorf("%w: %s", ErrNotRegistered, agent)
}
