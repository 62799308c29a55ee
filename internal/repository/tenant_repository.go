package repository

import (
	"context"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// TenantRepository defines storage operations for tenants.
// Lookup methods return (nil, nil) when no tenant matches.
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetByBillingCustomerRef(ctx context.Context, ref string) (*domain.Tenant, error)
	Update(ctx context.Context, tenant *domain.Tenant) error
	// Delete removes the tenant and cascades to all tenant-owned state
	// (subscriptions, channel accounts, memberships, roles, invoices).
	Delete(ctx context.Context, id string) error
}
