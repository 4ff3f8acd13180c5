package market

import (
	"context"
	"fmt"

	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/model"
	"github.com/groblegark/agora/internal/status"
)

// The catalogs (service types and mediums of exchange) are shared vocabulary:
// anyone may suggest an entry, only an administrator approves it, and only
// approved entries belong in UI pickers. Approval runs through the same
// status chains as user moderation.

// SuggestServiceType proposes a new category. It stays pending until an
// administrator approves it.
func (m *Market) SuggestServiceType(ctx context.Context, st model.ServiceType) (entity.Entity[model.ServiceType], error) {
	var zero entity.Entity[model.ServiceType]
	ent, err := m.ServiceTypes.Create(ctx, st)
	if err != nil {
		return zero, err
	}
	if _, err := m.Status.Ensure(ctx, ent.Original, status.Pending); err != nil {
		return zero, fmt.Errorf("status for %s: %w", ent.Original, err)
	}
	return ent, nil
}

// SuggestMediumOfExchange proposes a new settlement medium. It stays pending
// until an administrator approves it.
func (m *Market) SuggestMediumOfExchange(ctx context.Context, medium model.MediumOfExchange) (entity.Entity[model.MediumOfExchange], error) {
	var zero entity.Entity[model.MediumOfExchange]
	ent, err := m.Mediums.Create(ctx, medium)
	if err != nil {
		return zero, err
	}
	if _, err := m.Status.Ensure(ctx, ent.Original, status.Pending); err != nil {
		return zero, fmt.Errorf("status for %s: %w", ent.Original, err)
	}
	return ent, nil
}

// Approved narrows a catalog listing to entries an administrator accepted.
func Approved[T any](ctx context.Context, svc *status.Service) entity.Scope[T] {
	return entity.Scope[T]{
		Name: "approved",
		Match: func(e entity.Entity[T]) bool {
			res, err := svc.Get(ctx, e.Original)
			return err == nil && res.Current.State == status.Accepted
		},
	}
}
