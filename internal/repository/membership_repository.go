package repository

import (
	"context"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// MembershipRepository defines storage operations for tenant memberships and
// tenant-scoped role grants. Lookup methods return (nil, nil) when nothing
// matches.
type MembershipRepository interface {
	CreateMember(ctx context.Context, member *domain.TenantUser) error
	// CreateMemberWithQuota inserts the membership, or revives the pair's
	// historical row when member.ID matches an existing one, only if at
	// commit time the tenant's active-member count (excluding this row) is
	// below maxUsers. The count and write execute atomically; a violated cap
	// returns domain.ErrQuotaExceeded, a live duplicate (tenant, account)
	// pair returns domain.ErrConflict, and a serialization failure returns
	// domain.ErrConcurrencyConflict.
	CreateMemberWithQuota(ctx context.Context, member *domain.TenantUser, maxUsers int) error
	GetMemberByID(ctx context.Context, id string) (*domain.TenantUser, error)
	// GetMember returns the membership for the (tenant, account) pair,
	// including terminal ones; at most one row exists per pair.
	GetMember(ctx context.Context, tenantID, accountID string) (*domain.TenantUser, error)
	UpdateMember(ctx context.Context, member *domain.TenantUser) error
	// CountActiveMembers counts non-terminal, non-deleted memberships for
	// quota enforcement.
	CountActiveMembers(ctx context.Context, tenantID string) (int, error)

	CreateRole(ctx context.Context, role *domain.TenantUserRole) error
	GetRoleByID(ctx context.Context, id string) (*domain.TenantUserRole, error)
	// GetActiveRole returns the non-revoked grant of roleName on the
	// membership, if any.
	GetActiveRole(ctx context.Context, tenantUserID, roleName string) (*domain.TenantUserRole, error)
	UpdateRole(ctx context.Context, role *domain.TenantUserRole) error
	ListRoles(ctx context.Context, tenantUserID string) ([]*domain.TenantUserRole, error)
}
