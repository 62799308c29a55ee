package domain

import (
	"errors"
	"time"
)

// SystemRole is a globally scoped role assigned at the identity-directory
// level. The set is closed and seeded; tenant-scoped roles are free-text
// strings on TenantUserRole instead.
type SystemRole string

const (
	SystemRoleSuperAdmin     SystemRole = "SuperAdmin"
	SystemRoleTenantAdmin    SystemRole = "TenantAdmin"
	SystemRoleNonTenantAdmin SystemRole = "NonTenantAdmin"
)

// IsValid returns true if the role is one of the seeded system roles.
func (r SystemRole) IsValid() bool {
	switch r {
	case SystemRoleSuperAdmin, SystemRoleTenantAdmin, SystemRoleNonTenantAdmin:
		return true
	}
	return false
}

// Account represents a user account in the identity directory. Password and
// security material is opaque to this core; it is stored and round-tripped
// but never interpreted.
type Account struct {
	ID string `json:"id"`
	AuditInfo

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Locale    string `json:"locale,omitempty"`
	Timezone  string `json:"timezone,omitempty"`

	Preferences map[string]interface{} `json:"preferences,omitempty"`

	IsActive      bool       `json:"is_active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`

	FailedLoginCount int        `json:"failed_login_count"`
	LockedUntil      *time.Time `json:"locked_until,omitempty"`
	SecurityStamp    string     `json:"-"`

	SystemRoles []SystemRole `json:"system_roles,omitempty"`
}

// NewAccount creates an active account.
func NewAccount(email, firstName, lastName string) (*Account, error) {
	if email == "" {
		return nil, errors.New("email is required")
	}
	acc := &Account{
		AuditInfo:   NewAuditInfo(nil),
		FirstName:   firstName,
		LastName:    lastName,
		Email:       email,
		Preferences: make(map[string]interface{}),
		IsActive:    true,
	}
	acc.ID = acc.PublicID
	return acc, nil
}

// Deactivate marks the account inactive without deleting it. Idempotent.
func (a *Account) Deactivate(now time.Time) {
	if !a.IsActive {
		return
	}
	a.IsActive = false
	a.DeactivatedAt = &now
}

// HasSystemRole reports whether the account holds the given system role.
func (a *Account) HasSystemRole(role SystemRole) bool {
	for _, r := range a.SystemRoles {
		if r == role {
			return true
		}
	}
	return false
}
