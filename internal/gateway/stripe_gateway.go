package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"
)

// StripeGateway implements BillingGateway using the Stripe API.
type StripeGateway struct {
	secretKey string
}

// NewStripeGateway creates a Stripe-backed billing gateway.
func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{secretKey: secretKey}
}

// CreateCustomer creates a Stripe customer for the tenant.
func (g *StripeGateway) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*CustomerResult, error) {
	params := &stripe.CustomerParams{
		Name:  stripe.String(req.TenantName),
		Email: stripe.String(req.Email),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	cust, err := customer.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create customer: %w", err)
	}
	return &CustomerResult{
		CustomerRef: cust.ID,
		Email:       cust.Email,
	}, nil
}

// CreateSubscription subscribes the customer to a price.
func (g *StripeGateway) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*SubscriptionResult, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(req.CustomerRef),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(req.PriceRef)},
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sub, err := subscription.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create subscription: %w", err)
	}

	result := &SubscriptionResult{
		SubscriptionRef: sub.ID,
		Status:          string(sub.Status),
	}
	// The billing period lives on the subscription item.
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		result.CurrentPeriodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
		result.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
	}
	return result, nil
}

// CancelSubscription cancels the provider subscription. When immediate is
// false the subscription runs to its period end.
func (g *StripeGateway) CancelSubscription(ctx context.Context, providerSubscriptionRef string, immediate bool) error {
	if immediate {
		params := &stripe.SubscriptionCancelParams{}
		params.Context = ctx
		if _, err := subscription.Cancel(providerSubscriptionRef, params); err != nil {
			return fmt.Errorf("stripe cancel subscription: %w", err)
		}
		return nil
	}

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx
	if _, err := subscription.Update(providerSubscriptionRef, params); err != nil {
		return fmt.Errorf("stripe schedule cancellation: %w", err)
	}
	return nil
}

// Name returns the gateway name.
func (g *StripeGateway) Name() string {
	return "stripe"
}
