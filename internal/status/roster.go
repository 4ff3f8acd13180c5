package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/ledger"
)

var errNoRoster = errors.New("status: no roster")

// loadRoster resolves the single roster entity, caching it briefly. Before
// the progenitor bootstrap there is no roster and nobody holds any role.
func (s *Service) loadRoster(ctx context.Context) (rosterState, error) {
	s.mu.Lock()
	if s.roster != nil && s.now().Before(s.rosterExpiry) {
		rs := *s.roster
		s.mu.Unlock()
		return rs, nil
	}
	s.mu.Unlock()

	records, err := s.caller.CallList(ctx, domain, s.rosterOps.List, nil)
	if err != nil {
		return rosterState{}, fmt.Errorf("list roster: %w", err)
	}
	if len(records) == 0 {
		return rosterState{}, errNoRoster
	}
	res, err := s.resolveRoster(records)
	if err != nil {
		return rosterState{}, err
	}

	s.mu.Lock()
	s.roster = &res
	s.rosterExpiry = s.now().Add(s.rosterTTL)
	s.mu.Unlock()
	return res, nil
}

func (s *Service) resolveRoster(records []*ledger.Record) (rosterState, error) {
	resolved, err := s.resolve(records)
	if err != nil {
		return rosterState{}, err
	}
	// resolve decodes into a status Record; re-decode the head as a roster.
	var roster Roster
	for _, rec := range records {
		if rec.Ref == resolved.Head {
			if err := rec.Decode(&roster); err != nil {
				return rosterState{}, err
			}
		}
	}
	return rosterState{original: resolved.Original, head: resolved.Head, roster: roster}, nil
}

func (s *Service) invalidateRoster() {
	s.mu.Lock()
	s.roster = nil
	s.mu.Unlock()
}

// Bootstrap installs the calling agent as the first administrator when no
// roster exists yet. It reports whether the agent became the progenitor.
// The rule exists because at first registration there is no administrator
// who could approve anyone.
func (s *Service) Bootstrap(ctx context.Context) (bool, error) {
	if _, err := s.loadRoster(ctx); err == nil {
		return false, nil
	} else if !errors.Is(err, errNoRoster) {
		return false, err
	}

	actor := ledger.AuthorFromContext(ctx)
	raw, err := json.Marshal(Roster{Administrators: []string{actor}})
	if err != nil {
		return false, fmt.Errorf("encode roster: %w", err)
	}
	if _, err := s.caller.Call(ctx, domain, s.rosterOps.Create, ledger.CreateInput{Value: raw}); err != nil {
		return false, fmt.Errorf("create roster: %w", err)
	}
	s.invalidateRoster()
	s.logger.Info("status: progenitor installed as administrator", "agent", actor)
	return true, nil
}

// updateRoster writes a new roster revision on behalf of an administrator.
func (s *Service) updateRoster(ctx context.Context, mutate func(*Roster) error) error {
	actor := ledger.AuthorFromContext(ctx)
	isAdmin, err := s.IsAdministrator(ctx, actor)
	if err != nil {
		return err
	}
	if !isAdmin {
		return fmt.Errorf("%w: %s may not edit the roster", entity.ErrPermissionDenied, actor)
	}

	rs, err := s.loadRoster(ctx)
	if err != nil {
		return err
	}
	roster := rs.roster
	if err := mutate(&roster); err != nil {
		return err
	}

	raw, err := json.Marshal(roster)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}
	if _, err := s.caller.Call(ctx, domain, s.rosterOps.Update, ledger.UpdateInput{
		Original: rs.original,
		Previous: rs.head,
		Value:    raw,
	}); err != nil {
		s.invalidateRoster()
		return fmt.Errorf("update roster: %w", err)
	}
	s.invalidateRoster()
	return nil
}

// AddAdministrator grants agent the administrator role.
func (s *Service) AddAdministrator(ctx context.Context, agent string) error {
	return s.updateRoster(ctx, func(r *Roster) error {
		if r.isAdministrator(agent) {
			return nil
		}
		r.Administrators = append(r.Administrators, agent)
		return nil
	})
}

// RemoveAdministrator revokes the administrator role. The last
// administrator cannot be removed; the system must stay administrable.
func (s *Service) RemoveAdministrator(ctx context.Context, agent string) error {
	return s.updateRoster(ctx, func(r *Roster) error {
		if len(r.Administrators) == 1 && r.Administrators[0] == agent {
			return fmt.Errorf("cannot remove the last administrator")
		}
		out := r.Administrators[:0]
		for _, a := range r.Administrators {
			if a != agent {
				out = append(out, a)
			}
		}
		r.Administrators = out
		return nil
	})
}

// AddModerator grants agent the moderator role.
func (s *Service) AddModerator(ctx context.Context, agent string) error {
	return s.updateRoster(ctx, func(r *Roster) error {
		for _, m := range r.Moderators {
			if m == agent {
				return nil
			}
		}
		r.Moderators = append(r.Moderators, agent)
		return nil
	})
}

// RemoveModerator revokes the moderator role.
func (s *Service) RemoveModerator(ctx context.Context, agent string) error {
	return s.updateRoster(ctx, func(r *Roster) error {
		out := r.Moderators[:0]
		for _, m := range r.Moderators {
			if m != agent {
				out = append(out, m)
			}
		}
		r.Moderators = out
		return nil
	})
}
