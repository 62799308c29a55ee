package domain

import (
	"errors"
	"fmt"
)

// BillingCycle is the renewal interval of a plan.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

// PlanType distinguishes plan families in the catalog.
type PlanType string

const (
	PlanTypeStandard   PlanType = "standard"
	PlanTypeTrial      PlanType = "trial"
	PlanTypeEnterprise PlanType = "enterprise"
)

// ResourceKind identifies a quota-counted resource.
type ResourceKind string

const (
	ResourceUsers             ResourceKind = "users"
	ResourceChannelAccounts   ResourceKind = "channel_accounts"
	ResourceWhatsAppAccounts  ResourceKind = "whatsapp_accounts"
	ResourceFacebookAccounts  ResourceKind = "facebook_accounts"
	ResourceInstagramAccounts ResourceKind = "instagram_accounts"
	ResourceTelegramAccounts  ResourceKind = "telegram_accounts"
)

// Plan is a billing plan definition: price, cycle, and the hard caps it
// grants. Plans referenced by an active subscription change only through
// administrative update; IsActive controls visibility for new subscriptions.
type Plan struct {
	ID string `json:"id"`
	AuditInfo

	Name string `json:"name"`

	// ProviderPriceRef is the billing provider's price id. Globally unique.
	ProviderPriceRef string `json:"provider_price_ref"`

	// PriceAmount is in the currency's minor unit.
	PriceAmount  int64        `json:"price_amount"`
	Currency     string       `json:"currency"`
	Type         PlanType     `json:"type"`
	BillingCycle BillingCycle `json:"billing_cycle"`

	MaxUsers             int `json:"max_users"`
	MaxChannelAccounts   int `json:"max_channel_accounts"`
	MaxWhatsAppAccounts  int `json:"max_whatsapp_accounts"`
	MaxFacebookAccounts  int `json:"max_facebook_accounts"`
	MaxInstagramAccounts int `json:"max_instagram_accounts"`
	MaxTelegramAccounts  int `json:"max_telegram_accounts"`

	IsActive bool `json:"is_active"`
}

// NewPlan creates an active plan.
func NewPlan(name, providerPriceRef string, priceAmount int64, currency string, planType PlanType, cycle BillingCycle) (*Plan, error) {
	if name == "" {
		return nil, errors.New("plan name is required")
	}
	if providerPriceRef == "" {
		return nil, errors.New("provider price ref is required")
	}
	if len(currency) != 3 {
		return nil, errors.New("currency must be a 3-letter code")
	}
	if priceAmount < 0 {
		return nil, errors.New("price amount cannot be negative")
	}
	p := &Plan{
		AuditInfo:        NewAuditInfo(nil),
		Name:             name,
		ProviderPriceRef: providerPriceRef,
		PriceAmount:      priceAmount,
		Currency:         currency,
		Type:             planType,
		BillingCycle:     cycle,
		IsActive:         true,
	}
	p.ID = p.PublicID
	return p, nil
}

// MaxFor resolves the plan's cap for a resource kind. A cap of zero means no
// allowance, not unlimited.
func (p *Plan) MaxFor(kind ResourceKind) (int, error) {
	switch kind {
	case ResourceUsers:
		return p.MaxUsers, nil
	case ResourceChannelAccounts:
		return p.MaxChannelAccounts, nil
	case ResourceWhatsAppAccounts:
		return p.MaxWhatsAppAccounts, nil
	case ResourceFacebookAccounts:
		return p.MaxFacebookAccounts, nil
	case ResourceInstagramAccounts:
		return p.MaxInstagramAccounts, nil
	case ResourceTelegramAccounts:
		return p.MaxTelegramAccounts, nil
	}
	return 0, fmt.Errorf("unknown resource kind %q", kind)
}
