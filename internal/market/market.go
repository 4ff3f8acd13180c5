// Package market assembles the client-facing surface: one store per domain
// type, the administration service gating them, and a shared event bus. A
// process embeds exactly one Market per ledger connection.
package market

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/groblegark/agora/internal/bus"
	"github.com/groblegark/agora/internal/cache"
	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/ledger"
	"github.com/groblegark/agora/internal/model"
	"github.com/groblegark/agora/internal/status"
)

var (
	// ErrAlreadyRegistered means the calling agent already has a user profile.
	ErrAlreadyRegistered = errors.New("market: agent already registered")

	// ErrNotRegistered means the calling agent has no user profile yet.
	ErrNotRegistered = errors.New("market: agent not registered")

	// ErrNotMember means the calling agent does not belong to the
	// organization the operation targets.
	ErrNotMember = errors.New("market: not an organization member")

	// ErrAnonymous means the context carries no actor identity.
	ErrAnonymous = errors.New("market: anonymous caller")
)

// Options configures a Market.
type Options struct {
	Caller ledger.Caller
	Logger *slog.Logger
	// Bus receives every domain event. A nil bus gets a fresh one.
	Bus *bus.Bus
	// CacheTTL bounds every entity cache. Defaults to cache.DefaultTTL.
	CacheTTL time.Duration
}

// Market is the root object. The stores are exported for direct reads and
// writes; the methods on Market implement the flows that span more than one
// store (registration, organization membership, moderated catalogs).
type Market struct {
	Bus    *bus.Bus
	Status *status.Service

	Users         *entity.Store[model.User]
	Organizations *entity.Store[model.Organization]
	Memberships   *entity.Store[model.Membership]
	Requests      *entity.Store[model.Request]
	Offers        *entity.Store[model.Offer]
	ServiceTypes  *entity.Store[model.ServiceType]
	Mediums       *entity.Store[model.MediumOfExchange]

	logger *slog.Logger
}

// New wires a Market over the given ledger caller.
func New(opts Options) *Market {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	b := opts.Bus
	if b == nil {
		b = bus.New(logger)
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	svc := status.NewService(opts.Caller, b, logger, ttl)

	m := &Market{
		Bus:    b,
		Status: svc,
		logger: logger,
	}
	m.Users = newStore[model.User](opts, b, ttl, "users", "user", svc, (*model.User).Validate)
	m.Organizations = newStore[model.Organization](opts, b, ttl, "organizations", "organization", svc, (*model.Organization).Validate)
	m.Memberships = newStore[model.Membership](opts, b, ttl, "memberships", "membership", nil, (*model.Membership).Validate)
	m.Requests = newStore[model.Request](opts, b, ttl, "requests", "request", svc, (*model.Request).Validate)
	m.Offers = newStore[model.Offer](opts, b, ttl, "offers", "offer", svc, (*model.Offer).Validate)
	m.ServiceTypes = newStore[model.ServiceType](opts, b, ttl, "service_types", "service_type", nil, (*model.ServiceType).Validate)
	m.Mediums = newStore[model.MediumOfExchange](opts, b, ttl, "mediums_of_exchange", "medium_of_exchange", nil, (*model.MediumOfExchange).Validate)
	return m
}

func newStore[T any](opts Options, b *bus.Bus, ttl time.Duration, domain, noun string, auth entity.Authorizer, validate func(*T) error) *entity.Store[T] {
	return entity.NewStore(entity.Config[T]{
		Domain:   domain,
		Noun:     noun,
		Caller:   opts.Caller,
		Cache:    cache.New[entity.Entity[T]](ttl),
		Bus:      b,
		Auth:     auth,
		Logger:   opts.Logger,
		Validate: validate,
		ListWarm: ttl,
	})
}

// actor extracts the calling agent or fails.
func actor(ctx context.Context) (string, error) {
	agent := ledger.AuthorFromContext(ctx)
	if agent == ledger.AnonymousAuthor {
		return "", ErrAnonymous
	}
	return agent, nil
}
