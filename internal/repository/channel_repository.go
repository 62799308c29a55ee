package repository

import (
	"context"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// ChannelAccountRepository defines storage operations for channel accounts.
// Lookup methods return (nil, nil) when no account matches.
type ChannelAccountRepository interface {
	// CreateWithQuota inserts the account only if, at commit time, the
	// tenant's non-deleted counts stay within both caps: existing accounts of
	// the same channel type < typeMax and total existing accounts < totalMax.
	// The count and insert execute atomically; a violated cap returns
	// domain.ErrQuotaExceeded, a duplicate (tenant, provider ref) returns
	// domain.ErrConflict, and a serialization failure returns
	// domain.ErrConcurrencyConflict (caller retries).
	CreateWithQuota(ctx context.Context, account *domain.ChannelAccount, typeMax, totalMax int) error
	GetByID(ctx context.Context, id string) (*domain.ChannelAccount, error)
	GetByProviderRef(ctx context.Context, tenantID, providerAccountRef string) (*domain.ChannelAccount, error)
	Update(ctx context.Context, account *domain.ChannelAccount) error
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.ChannelAccount, error)
	// CountActive counts non-deleted accounts owned by the tenant.
	CountActive(ctx context.Context, tenantID string) (int, error)
	// CountActiveByType counts non-deleted accounts of one channel type.
	CountActiveByType(ctx context.Context, tenantID string, channelType domain.ChannelType) (int, error)
}
