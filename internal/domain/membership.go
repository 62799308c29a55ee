package domain

import (
	"errors"
	"time"
)

// MembershipStatus tracks the membership lifecycle, independent of the
// Entity Status used for suspension.
type MembershipStatus string

const (
	MembershipInvited MembershipStatus = "invited"
	MembershipActive  MembershipStatus = "active"
	MembershipLeft    MembershipStatus = "left"
)

// IsTerminal returns true once the member has left; a left membership is kept
// for history and does not block re-adding the account.
func (m MembershipStatus) IsTerminal() bool {
	return m == MembershipLeft
}

// TenantUser binds one account to one tenant. (TenantID, AccountID) is
// unique among non-terminal memberships.
type TenantUser struct {
	ID string `json:"id"`
	AuditInfo
	Lifecycle LifecycleInfo `json:"lifecycle"`

	TenantID  string `json:"tenant_id"`
	AccountID string `json:"account_id"`

	MembershipStatus MembershipStatus `json:"membership_status"`
	JoinedAt         time.Time        `json:"joined_at"`
	LeftAt           *time.Time       `json:"left_at,omitempty"`
	InvitedBy        *string          `json:"invited_by,omitempty"`
}

// NewTenantUser creates an active membership.
func NewTenantUser(tenantID, accountID string, invitedBy *string, now time.Time) (*TenantUser, error) {
	if tenantID == "" {
		return nil, errors.New("tenant id is required")
	}
	if accountID == "" {
		return nil, errors.New("account id is required")
	}
	tu := &TenantUser{
		AuditInfo:        NewAuditInfo(invitedBy),
		Lifecycle:        NewLifecycleInfo(),
		TenantID:         tenantID,
		AccountID:        accountID,
		MembershipStatus: MembershipActive,
		JoinedAt:         now,
		InvitedBy:        invitedBy,
	}
	tu.ID = tu.PublicID
	return tu, nil
}

// Leave ends the membership, retaining the row for history. Idempotent.
func (tu *TenantUser) Leave(now time.Time) {
	if tu.MembershipStatus == MembershipLeft {
		return
	}
	tu.MembershipStatus = MembershipLeft
	tu.LeftAt = &now
}

// IsAuthorized reports whether role grants on this membership are effective:
// the membership must be active and not suspended or deleted.
func (tu *TenantUser) IsAuthorized() bool {
	return tu.MembershipStatus == MembershipActive && tu.Lifecycle.Status == EntityStatusActive
}

// TenantUserRole grants a tenant-scoped role to a membership. Role names are
// free text at the tenant scope; (TenantUserID, RoleName) is unique among
// non-revoked grants.
type TenantUserRole struct {
	ID string `json:"id"`
	AuditInfo

	TenantUserID string     `json:"tenant_user_id"`
	RoleName     string     `json:"role_name"`
	AssignedAt   time.Time  `json:"assigned_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	AssignedBy   *string    `json:"assigned_by,omitempty"`
}

// NewTenantUserRole creates an active role grant.
func NewTenantUserRole(tenantUserID, roleName string, assignedBy *string, now time.Time) (*TenantUserRole, error) {
	if tenantUserID == "" {
		return nil, errors.New("tenant user id is required")
	}
	if roleName == "" {
		return nil, errors.New("role name is required")
	}
	r := &TenantUserRole{
		AuditInfo:    NewAuditInfo(assignedBy),
		TenantUserID: tenantUserID,
		RoleName:     roleName,
		AssignedAt:   now,
		AssignedBy:   assignedBy,
	}
	r.ID = r.PublicID
	return r, nil
}

// Revoke ends the grant. Idempotent.
func (r *TenantUserRole) Revoke(now time.Time) {
	if r.RevokedAt != nil {
		return
	}
	r.RevokedAt = &now
}

// ActiveAt reports whether the grant is effective at the given instant.
func (r *TenantUserRole) ActiveAt(now time.Time) bool {
	if r.AssignedAt.After(now) {
		return false
	}
	return r.RevokedAt == nil || r.RevokedAt.After(now)
}
