package gateway

import (
	"context"
	"time"
)

// BillingGateway defines the outbound interface to the billing provider.
// The platform core stores only opaque provider refs; everything else about
// the provider's data model stays behind this boundary.
type BillingGateway interface {
	// CreateCustomer creates a billing customer and returns its ref
	CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*CustomerResult, error)

	// CreateSubscription subscribes a customer to a price and returns the
	// provider's subscription ref and initial period
	CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*SubscriptionResult, error)

	// CancelSubscription cancels on the provider side, immediately or at
	// period end
	CancelSubscription(ctx context.Context, providerSubscriptionRef string, immediate bool) error

	// Name returns the gateway name
	Name() string
}

// CreateCustomerRequest represents a request to create a billing customer
type CreateCustomerRequest struct {
	TenantName string
	Email      string
	Metadata   map[string]string
}

// CustomerResult represents a created billing customer
type CustomerResult struct {
	CustomerRef string
	Email       string
}

// CreateSubscriptionRequest represents a request to start a subscription
type CreateSubscriptionRequest struct {
	CustomerRef string
	PriceRef    string
	Metadata    map[string]string
}

// SubscriptionResult represents a created provider subscription
type SubscriptionResult struct {
	SubscriptionRef    string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}
