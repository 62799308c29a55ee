package repository

import (
	"context"
	"sync"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// MemoryMembershipRepository is an in-memory MembershipRepository for testing.
type MemoryMembershipRepository struct {
	mu      sync.RWMutex
	members map[string]*domain.TenantUser
	roles   map[string]*domain.TenantUserRole
}

// NewMemoryMembershipRepository creates an empty in-memory membership
// repository.
func NewMemoryMembershipRepository() *MemoryMembershipRepository {
	return &MemoryMembershipRepository{
		members: make(map[string]*domain.TenantUser),
		roles:   make(map[string]*domain.TenantUserRole),
	}
}

func (r *MemoryMembershipRepository) CreateMember(ctx context.Context, member *domain.TenantUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[member.ID]; exists {
		return domain.ErrConflict
	}
	for _, existing := range r.members {
		if existing.TenantID == member.TenantID && existing.AccountID == member.AccountID {
			return domain.ErrConflict
		}
	}
	copied := *member
	r.members[member.ID] = &copied
	return nil
}

// CreateMemberWithQuota counts and writes under one lock, so two concurrent
// adds cannot both land under the user cap.
func (r *MemoryMembershipRepository) CreateMemberWithQuota(ctx context.Context, member *domain.TenantUser, maxUsers int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := 0
	for id, existing := range r.members {
		if existing.TenantID != member.TenantID {
			continue
		}
		if id == member.ID {
			continue
		}
		if existing.AccountID == member.AccountID {
			return domain.ErrConflict
		}
		if !existing.MembershipStatus.IsTerminal() && !existing.Lifecycle.IsDeleted() {
			active++
		}
	}
	if active >= maxUsers {
		return domain.ErrQuotaExceeded
	}

	copied := *member
	r.members[member.ID] = &copied
	return nil
}

func (r *MemoryMembershipRepository) GetMemberByID(ctx context.Context, id string) (*domain.TenantUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	member, exists := r.members[id]
	if !exists {
		return nil, nil
	}
	copied := *member
	return &copied, nil
}

func (r *MemoryMembershipRepository) GetMember(ctx context.Context, tenantID, accountID string) (*domain.TenantUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, member := range r.members {
		if member.TenantID == tenantID && member.AccountID == accountID {
			copied := *member
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryMembershipRepository) UpdateMember(ctx context.Context, member *domain.TenantUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[member.ID]; !exists {
		return domain.ErrNotFound
	}
	copied := *member
	r.members[member.ID] = &copied
	return nil
}

func (r *MemoryMembershipRepository) CountActiveMembers(ctx context.Context, tenantID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, member := range r.members {
		if member.TenantID == tenantID && !member.MembershipStatus.IsTerminal() && !member.Lifecycle.IsDeleted() {
			count++
		}
	}
	return count, nil
}

func (r *MemoryMembershipRepository) CreateRole(ctx context.Context, role *domain.TenantUserRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.roles[role.ID]; exists {
		return domain.ErrConflict
	}
	for _, existing := range r.roles {
		if existing.TenantUserID == role.TenantUserID && existing.RoleName == role.RoleName && existing.RevokedAt == nil {
			return domain.ErrConflict
		}
	}
	copied := *role
	r.roles[role.ID] = &copied
	return nil
}

func (r *MemoryMembershipRepository) GetRoleByID(ctx context.Context, id string) (*domain.TenantUserRole, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	role, exists := r.roles[id]
	if !exists {
		return nil, nil
	}
	copied := *role
	return &copied, nil
}

func (r *MemoryMembershipRepository) GetActiveRole(ctx context.Context, tenantUserID, roleName string) (*domain.TenantUserRole, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, role := range r.roles {
		if role.TenantUserID == tenantUserID && role.RoleName == roleName && role.RevokedAt == nil {
			copied := *role
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryMembershipRepository) UpdateRole(ctx context.Context, role *domain.TenantUserRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.roles[role.ID]; !exists {
		return domain.ErrNotFound
	}
	copied := *role
	r.roles[role.ID] = &copied
	return nil
}

func (r *MemoryMembershipRepository) ListRoles(ctx context.Context, tenantUserID string) ([]*domain.TenantUserRole, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]*domain.TenantUserRole, 0)
	for _, role := range r.roles {
		if role.TenantUserID == tenantUserID {
			copied := *role
			roles = append(roles, &copied)
		}
	}
	return roles, nil
}

// DeleteByTenant removes all memberships and their role grants for a tenant;
// used by the memory container's cascade hooks.
func (r *MemoryMembershipRepository) DeleteByTenant(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, member := range r.members {
		if member.TenantID != tenantID {
			continue
		}
		for roleID, role := range r.roles {
			if role.TenantUserID == member.ID {
				delete(r.roles, roleID)
			}
		}
		delete(r.members, id)
	}
}

// NullifyActor clears references to a removed account on memberships and
// role grants. Registered as an account-delete hook by the memory container.
func (r *MemoryMembershipRepository) NullifyActor(accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, member := range r.members {
		member.AuditInfo.NullifyActor(accountID)
		member.Lifecycle.NullifyActor(accountID)
		if member.InvitedBy != nil && *member.InvitedBy == accountID {
			member.InvitedBy = nil
		}
	}
	for _, role := range r.roles {
		role.AuditInfo.NullifyActor(accountID)
		if role.AssignedBy != nil && *role.AssignedBy == accountID {
			role.AssignedBy = nil
		}
	}
}
