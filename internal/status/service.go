package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/groblegark/agora/internal/bus"
	"github.com/groblegark/agora/internal/cache"
	"github.com/groblegark/agora/internal/chain"
	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/ledger"
)

const domain = "administration"

// ErrNoStatus means no status entity was ever created for the subject.
// Domains without a moderation lifecycle (requests, offers) hit this on
// every authorization check and are treated as accepted.
var ErrNoStatus = errors.New("status: none recorded")

// Resolved is the current view of one subject's status chain.
type Resolved struct {
	// Original and Head identify the status entity itself, not the subject.
	Original  ledger.Ref
	Head      ledger.Ref
	Current   Record
	History   []Record // prior records, oldest first
	UpdatedAt time.Time
}

// LogicalTime orders cache writes.
func (r Resolved) LogicalTime() time.Time { return r.UpdatedAt }

// Roster is the payload of the administration roster entity: who may
// approve, reject, and suspend. It is a revision-chained entity like
// everything else, created by the progenitor bootstrap.
type Roster struct {
	Administrators []string `json:"administrators"`
	Moderators     []string `json:"moderators,omitempty"`
}

func (r Roster) isAdministrator(agent string) bool {
	for _, a := range r.Administrators {
		if a == agent {
			return true
		}
	}
	return false
}

func (r Roster) isModerator(agent string) bool {
	for _, m := range r.Moderators {
		if m == agent {
			return true
		}
	}
	return r.isAdministrator(agent)
}

type rosterState struct {
	original ledger.Ref
	head     ledger.Ref
	roster   Roster
}

// Service orchestrates status entities and the roster against the ledger.
// It implements entity.Authorizer for the domain stores.
type Service struct {
	caller    ledger.Caller
	statuses  *cache.Cache[Resolved]
	bus       *bus.Bus
	logger    *slog.Logger
	statusOps entity.Ops
	rosterOps entity.Ops

	mu           sync.Mutex
	roster       *rosterState
	rosterExpiry time.Time
	rosterTTL    time.Duration

	now func() time.Time // overridable in tests
}

var _ entity.Authorizer = (*Service)(nil)

// NewService builds the administration service. ttl bounds both the status
// cache and the roster cache.
func NewService(caller ledger.Caller, b *bus.Bus, logger *slog.Logger, ttl time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Service{
		caller:    caller,
		statuses:  cache.New[Resolved](ttl),
		bus:       b,
		logger:    logger,
		statusOps: entity.OpsFor("status"),
		rosterOps: entity.OpsFor("roster"),
		rosterTTL: ttl,
		now:       time.Now,
	}
}

// Ensure creates the subject's status entity if it does not exist yet.
// Entities are created Pending except for the progenitor bootstrap.
func (s *Service) Ensure(ctx context.Context, subject ledger.Ref, initial State) (Resolved, error) {
	res, err := s.Get(ctx, subject)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, ErrNoStatus) {
		return Resolved{}, err
	}

	rec := Record{Subject: subject, State: initial}
	raw, err := json.Marshal(rec)
	if err != nil {
		return Resolved{}, fmt.Errorf("encode status: %w", err)
	}
	created, err := s.caller.Call(ctx, domain, s.statusOps.Create, ledger.CreateInput{Value: raw})
	if err != nil {
		return Resolved{}, fmt.Errorf("create status for %s: %w", subject, err)
	}
	if err := ctx.Err(); err != nil {
		return Resolved{}, err
	}

	res = Resolved{
		Original:  created.Ref,
		Head:      created.Ref,
		Current:   rec,
		UpdatedAt: created.Timestamp,
	}
	s.statuses.Set(subject, res)
	return res, nil
}

// Get returns the subject's current status, applying the lazy unsuspension
// rule: reading a temporary suspension past its end both returns the
// accepted view and writes the transition back to the ledger.
func (s *Service) Get(ctx context.Context, subject ledger.Ref) (Resolved, error) {
	if res, ok := s.statuses.Get(subject); ok {
		return s.maybeUnsuspend(ctx, subject, res)
	}

	res, err := s.fetch(ctx, subject)
	if err != nil {
		return Resolved{}, err
	}
	s.statuses.Set(subject, res)
	return s.maybeUnsuspend(ctx, subject, res)
}

// fetch locates the subject's status chain in the administration domain and
// resolves it. Every revision carries the subject ref, so one flat fetch is
// enough to reconstruct the chain.
func (s *Service) fetch(ctx context.Context, subject ledger.Ref) (Resolved, error) {
	records, err := s.caller.CallList(ctx, domain, s.statusOps.List, nil)
	if err != nil {
		return Resolved{}, fmt.Errorf("list statuses: %w", err)
	}

	var mine []*ledger.Record
	for _, rec := range records {
		var payload Record
		if err := rec.Decode(&payload); err != nil {
			return Resolved{}, err
		}
		if payload.Subject == subject {
			mine = append(mine, rec)
		}
	}
	if len(mine) == 0 {
		return Resolved{}, fmt.Errorf("%w: %s", ErrNoStatus, subject)
	}
	return s.resolve(mine)
}

func (s *Service) resolve(records []*ledger.Record) (Resolved, error) {
	res, err := chain.Resolve(records)
	if err != nil {
		var conflict *chain.ConflictError
		if !errors.As(err, &conflict) {
			return Resolved{}, err
		}
		// Concurrent moderation: deterministic winner, logged, not fatal.
		s.logger.Warn("status: conflicting concurrent transitions", "original", res.Origin.Ref)
	}

	var current Record
	if err := res.Head.Decode(&current); err != nil {
		return Resolved{}, err
	}

	prior := make([]*ledger.Record, 0, len(records)-1)
	for _, rec := range records {
		if rec.Ref != res.Head.Ref {
			prior = append(prior, rec)
		}
	}
	sort.Slice(prior, func(i, j int) bool { return prior[i].Timestamp.Before(prior[j].Timestamp) })
	history := make([]Record, len(prior))
	for i, rec := range prior {
		if err := rec.Decode(&history[i]); err != nil {
			return Resolved{}, err
		}
	}

	return Resolved{
		Original:  res.Origin.Ref,
		Head:      res.Head.Ref,
		Current:   current,
		History:   history,
		UpdatedAt: res.Head.Timestamp,
	}, nil
}

func (s *Service) maybeUnsuspend(ctx context.Context, subject ledger.Ref, res Resolved) (Resolved, error) {
	if !res.Current.UnsuspendDue(s.now()) {
		return res, nil
	}
	next := Record{Subject: subject, State: Accepted, Reason: "suspension lapsed"}
	updated, err := s.apply(ctx, subject, res, next)
	if err != nil && ledger.IsStaleWrite(err) {
		// Someone else already transitioned; take their word for it.
		s.statuses.Invalidate(subject)
		fresh, ferr := s.fetch(ctx, subject)
		if ferr != nil {
			return Resolved{}, ferr
		}
		s.statuses.Set(subject, fresh)
		return fresh, nil
	}
	return updated, err
}

// apply writes one transition and emits the status-changed event.
func (s *Service) apply(ctx context.Context, subject ledger.Ref, res Resolved, next Record) (Resolved, error) {
	raw, err := json.Marshal(next)
	if err != nil {
		return Resolved{}, fmt.Errorf("encode status: %w", err)
	}
	rec, err := s.caller.Call(ctx, domain, s.statusOps.Update, ledger.UpdateInput{
		Original: res.Original,
		Previous: res.Head,
		Value:    raw,
	})
	if err != nil {
		return Resolved{}, err
	}
	if err := ctx.Err(); err != nil {
		return Resolved{}, err
	}

	updated := Resolved{
		Original:  res.Original,
		Head:      rec.Ref,
		Current:   next,
		History:   append(append([]Record{}, res.History...), res.Current),
		UpdatedAt: rec.Timestamp,
	}
	s.statuses.Set(subject, updated)
	if s.bus != nil {
		s.bus.Emit(bus.TopicStatusChanged, bus.StatusChanged{
			Subject:  subject,
			Previous: string(res.Current.State),
			Current:  string(next.State),
		})
	}
	return updated, nil
}

// transition validates and applies one moderator/administrator step.
func (s *Service) transition(ctx context.Context, subject ledger.Ref, next Record, needAdmin bool) (Resolved, error) {
	actor := ledger.AuthorFromContext(ctx)
	allowed, err := s.hasRole(ctx, actor, needAdmin)
	if err != nil {
		return Resolved{}, err
	}
	if !allowed {
		return Resolved{}, fmt.Errorf("%w: %s may not change status of %s", entity.ErrPermissionDenied, actor, subject)
	}

	res, err := s.Get(ctx, subject)
	if err != nil {
		return Resolved{}, err
	}
	if err := ValidateTransition(res.Current, next, s.now()); err != nil {
		return Resolved{}, err
	}
	return s.apply(ctx, subject, res, next)
}

// Approve moves a pending subject to accepted. Administrator only.
func (s *Service) Approve(ctx context.Context, subject ledger.Ref) (Resolved, error) {
	return s.transition(ctx, subject, Record{Subject: subject, State: Accepted}, true)
}

// Reject refuses a pending subject. Administrator only.
func (s *Service) Reject(ctx context.Context, subject ledger.Ref, reason string) (Resolved, error) {
	return s.transition(ctx, subject, Record{Subject: subject, State: Rejected, Reason: reason}, true)
}

// Reinstate returns any subject to accepted. Administrator only.
func (s *Service) Reinstate(ctx context.Context, subject ledger.Ref) (Resolved, error) {
	return s.transition(ctx, subject, Record{Subject: subject, State: Accepted, Reason: "reinstated"}, true)
}

// SuspendTemporarily suspends an accepted subject until the given time.
// Moderator action; until must be strictly in the future.
func (s *Service) SuspendTemporarily(ctx context.Context, subject ledger.Ref, until time.Time, reason string) (Resolved, error) {
	return s.transition(ctx, subject, Record{
		Subject:        subject,
		State:          SuspendedTemporarily,
		Reason:         reason,
		SuspendedUntil: &until,
	}, false)
}

// SuspendIndefinitely suspends an accepted subject with no end time.
// Moderator action.
func (s *Service) SuspendIndefinitely(ctx context.Context, subject ledger.Ref, reason string) (Resolved, error) {
	return s.transition(ctx, subject, Record{Subject: subject, State: SuspendedIndefinitely, Reason: reason}, false)
}

func (s *Service) hasRole(ctx context.Context, agent string, needAdmin bool) (bool, error) {
	rs, err := s.loadRoster(ctx)
	if err != nil {
		if errors.Is(err, errNoRoster) {
			return false, nil
		}
		return false, err
	}
	if needAdmin {
		return rs.roster.isAdministrator(agent), nil
	}
	return rs.roster.isModerator(agent), nil
}

// IsAdministrator reports whether agent is on the roster as administrator.
func (s *Service) IsAdministrator(ctx context.Context, agent string) (bool, error) {
	return s.hasRole(ctx, agent, true)
}

// IsModerator reports whether agent may take moderator actions.
// Administrators qualify.
func (s *Service) IsModerator(ctx context.Context, agent string) (bool, error) {
	return s.hasRole(ctx, agent, false)
}

// Authorize implements entity.Authorizer. Subjects with no status entity are
// treated as accepted; their access is governed by the creator rule alone.
func (s *Service) Authorize(ctx context.Context, op entity.Op, actor, creator string, subject ledger.Ref) error {
	isAdmin, err := s.IsAdministrator(ctx, actor)
	if err != nil {
		return err
	}
	if isAdmin {
		return nil
	}

	state := Accepted
	res, err := s.Get(ctx, subject)
	switch {
	case err == nil:
		state = res.Current.State
	case errors.Is(err, ErrNoStatus):
	default:
		return err
	}

	if !CanPerform(op, false, actor == creator, state) {
		return fmt.Errorf("%w: %s may not %s %s", entity.ErrPermissionDenied, actor, op, subject)
	}
	return nil
}
