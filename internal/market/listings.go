package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/groblegark/agora/internal/chain"
	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/ledger"
	"github.com/groblegark/agora/internal/model"
)

// requireMember gates posting on behalf of an organization.
func (m *Market) requireMember(ctx context.Context, org *ledger.Ref) error {
	if org == nil {
		return nil
	}
	agent, err := actor(ctx)
	if err != nil {
		return err
	}
	ok, err := m.IsMember(ctx, *org, agent)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrNotMember, agent, *org)
	}
	return nil
}

// CreateRequest posts a request. A request attributed to an organization
// requires the caller to be a member. An empty status defaults to draft.
func (m *Market) CreateRequest(ctx context.Context, req model.Request) (entity.Entity[model.Request], error) {
	var zero entity.Entity[model.Request]
	if req.Status == "" {
		req.Status = model.RequestDraft
	}
	if err := m.requireMember(ctx, req.Organization); err != nil {
		return zero, err
	}
	return m.Requests.Create(ctx, req)
}

// CreateOffer posts an offer. An offer attributed to an organization requires
// the caller to be a member. An empty status defaults to active.
func (m *Market) CreateOffer(ctx context.Context, off model.Offer) (entity.Entity[model.Offer], error) {
	var zero entity.Entity[model.Offer]
	if off.Status == "" {
		off.Status = model.OfferActive
	}
	if err := m.requireMember(ctx, off.Organization); err != nil {
		return zero, err
	}
	return m.Offers.Create(ctx, off)
}

// ArchiveOffer removes the offer from active listings, keeping its history.
func (m *Market) ArchiveOffer(ctx context.Context, original ledger.Ref) (entity.Entity[model.Offer], error) {
	var zero entity.Entity[model.Offer]
	ent, err := m.Offers.GetLatest(ctx, original)
	var conflict *chain.ConflictError
	if err != nil && !errors.As(err, &conflict) {
		return zero, err
	}
	if ent.Value.Status == model.OfferArchived {
		return ent, nil
	}
	value := ent.Value
	value.Status = model.OfferArchived
	return m.Offers.Update(ctx, original, ent.Head, value)
}

// ActiveOffers matches offers still open for uptake.
func ActiveOffers() entity.Scope[model.Offer] {
	return entity.Scope[model.Offer]{
		Name:  "active",
		Match: func(e entity.Entity[model.Offer]) bool { return e.Value.Status == model.OfferActive },
	}
}

// PublishedRequests matches requests visible to the community.
func PublishedRequests() entity.Scope[model.Request] {
	return entity.Scope[model.Request]{
		Name:  "published",
		Match: func(e entity.Entity[model.Request]) bool { return e.Value.Status == model.RequestPublished },
	}
}

// OffersBy matches offers posted on behalf of the organization.
func OffersBy(org ledger.Ref) entity.Scope[model.Offer] {
	return entity.Scope[model.Offer]{
		Name: "organization",
		Match: func(e entity.Entity[model.Offer]) bool {
			return e.Value.Organization != nil && *e.Value.Organization == org
		},
	}
}

// RequestsBy matches requests posted on behalf of the organization.
func RequestsBy(org ledger.Ref) entity.Scope[model.Request] {
	return entity.Scope[model.Request]{
		Name: "organization",
		Match: func(e entity.Entity[model.Request]) bool {
			return e.Value.Organization != nil && *e.Value.Organization == org
		},
	}
}
