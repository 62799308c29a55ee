package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/repository"
	"github.com/SyedWaqas82/ConnectFlow-sub001/pkg/logger"
)

// MembershipService defines the interface for membership and tenant-scoped
// role operations
type MembershipService interface {
	// AddMember binds an account to a tenant. Re-adding an account that
	// previously left revives the historical membership. User-quota
	// enforcement applies.
	AddMember(ctx context.Context, tenantID, accountID string, invitedBy *string) (*domain.TenantUser, error)
	// GetMember returns the membership for the (tenant, account) pair
	GetMember(ctx context.Context, tenantID, accountID string) (*domain.TenantUser, error)
	// RemoveMember ends the membership, keeping the row for history.
	// Idempotent.
	RemoveMember(ctx context.Context, tenantID, accountID string) error
	// SuspendMember suspends the membership; role grants stop being
	// effective while suspended
	SuspendMember(ctx context.Context, tenantID, accountID string) error
	// ResumeMember lifts a suspension
	ResumeMember(ctx context.Context, tenantID, accountID string) error

	// GrantRole grants a tenant-scoped role to an active membership.
	// Granting an already-held role returns Conflict; granting on a
	// non-active membership returns InvalidTransition.
	GrantRole(ctx context.Context, tenantID, accountID, roleName string, assignedBy *string) (*domain.TenantUserRole, error)
	// RevokeRole ends a grant. Idempotent.
	RevokeRole(ctx context.Context, tenantID, accountID, roleName string) error
	// HasRole reports whether the role is effective for the account at the
	// given instant: grant active, membership active and not suspended.
	HasRole(ctx context.Context, tenantID, accountID, roleName string, now time.Time) (bool, error)
}

type membershipService struct {
	membershipRepo repository.MembershipRepository
	tenantRepo     repository.TenantRepository
	accountRepo    repository.AccountRepository
	entitlements   EntitlementService
}

// NewMembershipService creates a new MembershipService
func NewMembershipService(
	membershipRepo repository.MembershipRepository,
	tenantRepo repository.TenantRepository,
	accountRepo repository.AccountRepository,
	entitlements EntitlementService,
) MembershipService {
	return &membershipService{
		membershipRepo: membershipRepo,
		tenantRepo:     tenantRepo,
		accountRepo:    accountRepo,
		entitlements:   entitlements,
	}
}

func (s *membershipService) AddMember(ctx context.Context, tenantID, accountID string, invitedBy *string) (*domain.TenantUser, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrNotFound
	}
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}

	existing, err := s.membershipRepo.GetMember(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.MembershipStatus.IsTerminal() {
		return nil, domain.ErrConflict
	}

	_, plan, err := s.entitlements.EntitledPlan(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	maxUsers, err := plan.MaxFor(domain.ResourceUsers)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	member := existing
	if member != nil {
		// Revive the historical row; a pair has at most one membership.
		member.MembershipStatus = domain.MembershipActive
		member.JoinedAt = now
		member.LeftAt = nil
		member.InvitedBy = invitedBy
		member.Lifecycle = domain.NewLifecycleInfo()
		member.Touch(invitedBy)
	} else {
		member, err = domain.NewTenantUser(tenantID, accountID, invitedBy, now)
		if err != nil {
			return nil, err
		}
	}
	// The user cap is re-checked inside the repository write, so two
	// concurrent adds cannot both land under the limit.
	if err := s.membershipRepo.CreateMemberWithQuota(ctx, member, maxUsers); err != nil {
		return nil, err
	}
	logger.Get().InfoContext(ctx, "member added",
		zap.String("tenant_id", tenantID),
		zap.String("account_id", accountID),
	)
	return member, nil
}

func (s *membershipService) GetMember(ctx context.Context, tenantID, accountID string) (*domain.TenantUser, error) {
	member, err := s.membershipRepo.GetMember(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrNotFound
	}
	return member, nil
}

func (s *membershipService) RemoveMember(ctx context.Context, tenantID, accountID string) error {
	member, err := s.GetMember(ctx, tenantID, accountID)
	if err != nil {
		return err
	}
	if member.MembershipStatus.IsTerminal() {
		return nil
	}
	now := time.Now().UTC()
	member.Leave(now)
	member.Touch(nil)
	if err := s.membershipRepo.UpdateMember(ctx, member); err != nil {
		return err
	}

	// Ending the membership revokes its grants; a later re-add starts with
	// no roles.
	roles, err := s.membershipRepo.ListRoles(ctx, member.ID)
	if err != nil {
		return err
	}
	for _, role := range roles {
		if role.RevokedAt != nil {
			continue
		}
		role.Revoke(now)
		if err := s.membershipRepo.UpdateRole(ctx, role); err != nil {
			return err
		}
	}

	logger.Get().InfoContext(ctx, "member removed",
		zap.String("tenant_id", tenantID),
		zap.String("account_id", accountID),
	)
	return nil
}

func (s *membershipService) SuspendMember(ctx context.Context, tenantID, accountID string) error {
	member, err := s.GetMember(ctx, tenantID, accountID)
	if err != nil {
		return err
	}
	if member.MembershipStatus.IsTerminal() {
		return domain.ErrInvalidTransition
	}
	if err := member.Lifecycle.Suspend(time.Now().UTC()); err != nil {
		return err
	}
	member.Touch(nil)
	return s.membershipRepo.UpdateMember(ctx, member)
}

func (s *membershipService) ResumeMember(ctx context.Context, tenantID, accountID string) error {
	member, err := s.GetMember(ctx, tenantID, accountID)
	if err != nil {
		return err
	}
	if member.MembershipStatus.IsTerminal() {
		return domain.ErrInvalidTransition
	}
	if err := member.Lifecycle.Resume(time.Now().UTC()); err != nil {
		return err
	}
	member.Touch(nil)
	return s.membershipRepo.UpdateMember(ctx, member)
}

func (s *membershipService) GrantRole(ctx context.Context, tenantID, accountID, roleName string, assignedBy *string) (*domain.TenantUserRole, error) {
	member, err := s.GetMember(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if !member.IsAuthorized() {
		return nil, domain.ErrInvalidTransition
	}

	existing, err := s.membershipRepo.GetActiveRole(ctx, member.ID, roleName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrConflict
	}

	role, err := domain.NewTenantUserRole(member.ID, roleName, assignedBy, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.membershipRepo.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	logger.Get().InfoContext(ctx, "role granted",
		zap.String("tenant_id", tenantID),
		zap.String("account_id", accountID),
		zap.String("role", roleName),
	)
	return role, nil
}

func (s *membershipService) RevokeRole(ctx context.Context, tenantID, accountID, roleName string) error {
	member, err := s.GetMember(ctx, tenantID, accountID)
	if err != nil {
		return err
	}
	role, err := s.membershipRepo.GetActiveRole(ctx, member.ID, roleName)
	if err != nil {
		return err
	}
	if role == nil {
		return nil
	}
	role.Revoke(time.Now().UTC())
	return s.membershipRepo.UpdateRole(ctx, role)
}

func (s *membershipService) HasRole(ctx context.Context, tenantID, accountID, roleName string, now time.Time) (bool, error) {
	member, err := s.membershipRepo.GetMember(ctx, tenantID, accountID)
	if err != nil {
		return false, err
	}
	if member == nil || !member.IsAuthorized() {
		return false, nil
	}
	role, err := s.membershipRepo.GetActiveRole(ctx, member.ID, roleName)
	if err != nil {
		return false, err
	}
	return role != nil && role.ActiveAt(now), nil
}
