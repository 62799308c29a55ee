package domain

import (
	"errors"
	"time"
)

// ChannelType identifies the external communication channel an account
// integrates with.
type ChannelType string

const (
	ChannelTypeWhatsApp  ChannelType = "whatsapp"
	ChannelTypeFacebook  ChannelType = "facebook"
	ChannelTypeInstagram ChannelType = "instagram"
	ChannelTypeTelegram  ChannelType = "telegram"
)

// IsValid returns true for a supported channel type.
func (t ChannelType) IsValid() bool {
	switch t {
	case ChannelTypeWhatsApp, ChannelTypeFacebook, ChannelTypeInstagram, ChannelTypeTelegram:
		return true
	}
	return false
}

// ResourceKind returns the quota resource kind for this channel type.
func (t ChannelType) ResourceKind() ResourceKind {
	switch t {
	case ChannelTypeWhatsApp:
		return ResourceWhatsAppAccounts
	case ChannelTypeFacebook:
		return ResourceFacebookAccounts
	case ChannelTypeInstagram:
		return ResourceInstagramAccounts
	case ChannelTypeTelegram:
		return ResourceTelegramAccounts
	}
	return ResourceChannelAccounts
}

// ChannelAccountStatus is the operational status of a channel integration,
// orthogonal to the soft-delete lifecycle.
type ChannelAccountStatus string

const (
	ChannelAccountPending   ChannelAccountStatus = "pending"
	ChannelAccountActive    ChannelAccountStatus = "active"
	ChannelAccountSuspended ChannelAccountStatus = "suspended"
)

// ChannelAccount represents an external-channel integration owned by a
// tenant. (TenantID, ProviderAccountRef) is unique: a tenant cannot register
// the same external account twice.
type ChannelAccount struct {
	ID string `json:"id"`
	AuditInfo
	Lifecycle LifecycleInfo `json:"lifecycle"`

	TenantID           string      `json:"tenant_id"`
	Type               ChannelType `json:"type"`
	ProviderAccountRef string      `json:"provider_account_ref"`

	DisplayName string `json:"display_name,omitempty"`
	ContactInfo string `json:"contact_info,omitempty"`

	Settings map[string]interface{} `json:"settings,omitempty"`

	Status ChannelAccountStatus `json:"status"`
}

// NewChannelAccount creates a channel account in the pending operational state.
func NewChannelAccount(tenantID string, channelType ChannelType, providerAccountRef string, createdBy *string) (*ChannelAccount, error) {
	if tenantID == "" {
		return nil, errors.New("tenant id is required")
	}
	if !channelType.IsValid() {
		return nil, errors.New("unsupported channel type")
	}
	if providerAccountRef == "" {
		return nil, errors.New("provider account ref is required")
	}
	ca := &ChannelAccount{
		AuditInfo:          NewAuditInfo(createdBy),
		Lifecycle:          NewLifecycleInfo(),
		TenantID:           tenantID,
		Type:               channelType,
		ProviderAccountRef: providerAccountRef,
		Settings:           make(map[string]interface{}),
		Status:             ChannelAccountPending,
	}
	ca.ID = ca.PublicID
	return ca, nil
}

// CountsTowardQuota reports whether the account occupies a plan quota slot.
// Soft-deleted accounts do not.
func (c *ChannelAccount) CountsTowardQuota() bool {
	return !c.Lifecycle.IsDeleted()
}

// Activate moves a pending integration to the active operational state.
func (c *ChannelAccount) Activate() error {
	if c.Lifecycle.IsDeleted() {
		return ErrInvalidTransition
	}
	if c.Status != ChannelAccountPending {
		return ErrInvalidTransition
	}
	c.Status = ChannelAccountActive
	return nil
}

// Suspend pauses an active integration.
func (c *ChannelAccount) Suspend(now time.Time) error {
	if c.Lifecycle.IsDeleted() {
		return ErrInvalidTransition
	}
	if c.Status != ChannelAccountActive {
		return ErrInvalidTransition
	}
	c.Status = ChannelAccountSuspended
	return c.Lifecycle.Suspend(now)
}

// Resume re-activates a suspended integration. A deleted account cannot be
// resumed.
func (c *ChannelAccount) Resume(now time.Time) error {
	if c.Lifecycle.IsDeleted() {
		return ErrInvalidTransition
	}
	if c.Status != ChannelAccountSuspended {
		return ErrInvalidTransition
	}
	c.Status = ChannelAccountActive
	return c.Lifecycle.Resume(now)
}

// SoftDelete logically deletes the integration. The row is retained but no
// longer counts toward quota.
func (c *ChannelAccount) SoftDelete(now time.Time, actor *string) {
	c.Lifecycle.MarkDeleted(now, actor)
}
