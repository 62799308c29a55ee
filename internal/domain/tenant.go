package domain

import (
	"errors"
	"time"
)

// Tenant represents an organization subscribed to the platform. It is the
// root of all tenant-scoped data: deleting a tenant removes its
// subscriptions, channel accounts, and memberships.
type Tenant struct {
	ID string `json:"id"`
	AuditInfo

	Name         string `json:"name"`
	Domain       string `json:"domain,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	Address      string `json:"address,omitempty"`

	// BillingCustomerRef is the billing provider's customer id. Globally unique.
	BillingCustomerRef string `json:"billing_customer_ref"`

	Settings map[string]interface{} `json:"settings,omitempty"`

	IsActive      bool       `json:"is_active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// NewTenant creates an active tenant.
func NewTenant(name, billingCustomerRef string, createdBy *string) (*Tenant, error) {
	if name == "" {
		return nil, errors.New("tenant name is required")
	}
	if billingCustomerRef == "" {
		return nil, errors.New("billing customer ref is required")
	}
	t := &Tenant{
		AuditInfo:          NewAuditInfo(createdBy),
		Name:               name,
		BillingCustomerRef: billingCustomerRef,
		Settings:           make(map[string]interface{}),
		IsActive:           true,
	}
	t.ID = t.PublicID
	return t, nil
}

// Deactivate marks the tenant inactive without deleting it. Idempotent.
func (t *Tenant) Deactivate(now time.Time) {
	if !t.IsActive {
		return
	}
	t.IsActive = false
	t.DeactivatedAt = &now
}
