package repository

import (
	"context"
	"time"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// SubscriptionRepository defines storage operations for subscriptions.
// Lookup methods return (nil, nil) when no subscription matches.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	GetByProviderRef(ctx context.Context, providerRef string) (*domain.Subscription, error)
	ListByTenantID(ctx context.Context, tenantID string) ([]*domain.Subscription, error)
	// ListGraceExpired lists subscriptions still in their grace period whose
	// window elapsed at or before asOf, up to limit rows. Used by the
	// reconciliation sweep.
	ListGraceExpired(ctx context.Context, asOf time.Time, limit int) ([]*domain.Subscription, error)
	// Update persists the subscription with optimistic concurrency: the write
	// only applies when the stored version matches sub.Version, and the
	// version is incremented on success. A version mismatch returns
	// domain.ErrConcurrencyConflict.
	Update(ctx context.Context, sub *domain.Subscription) error
}

// BillingEventRepository records which provider event references have already
// been applied, so repeated webhook deliveries become idempotent no-ops.
type BillingEventRepository interface {
	// MarkProcessed records the event reference. It returns false when the
	// reference was already recorded.
	MarkProcessed(ctx context.Context, eventRef string) (bool, error)
	// Unmark removes a recorded reference. The lifecycle engine calls it when
	// the state write behind an event fails, so the provider's redelivery is
	// not swallowed as a duplicate.
	Unmark(ctx context.Context, eventRef string) error
}
