package repository

import (
	"context"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// PlanRepository defines storage operations for the plan catalog.
// Lookup methods return (nil, nil) when no plan matches.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) error
	GetByID(ctx context.Context, id string) (*domain.Plan, error)
	GetByProviderPriceRef(ctx context.Context, ref string) (*domain.Plan, error)
	ListActive(ctx context.Context) ([]*domain.Plan, error)
	Update(ctx context.Context, plan *domain.Plan) error
	// Delete removes the plan. It returns domain.ErrConflict while any
	// subscription still references the plan (restrict, never cascade).
	Delete(ctx context.Context, id string) error
}
