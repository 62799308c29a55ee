package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/service"
	"github.com/SyedWaqas82/ConnectFlow-sub001/pkg/logger"
)

// Normalized provider event types. The transport layer (outside this core)
// verifies signatures and maps the provider's raw payloads onto these.
const (
	EventPaymentFailed        = "payment.failed"
	EventPaymentSucceeded     = "payment.succeeded"
	EventSubscriptionRenewed  = "subscription.renewed"
	EventSubscriptionCanceled = "subscription.canceled"
)

// ProviderEvent is a normalized billing-provider notification. EventRef is
// the provider's event id and drives exactly-once application; redelivered
// refs are ignored.
type ProviderEvent struct {
	EventRef        string
	Type            string
	SubscriptionRef string

	// Invoice payload, present on payment events.
	InvoiceRef string
	Amount     int64
	Currency   string

	// New billing period, present on renewal events.
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// WebhookDispatcher translates normalized provider events into lifecycle
// engine calls.
type WebhookDispatcher struct {
	subscriptions service.SubscriptionService
}

// NewWebhookDispatcher creates a dispatcher over the lifecycle engine.
func NewWebhookDispatcher(subscriptions service.SubscriptionService) *WebhookDispatcher {
	return &WebhookDispatcher{subscriptions: subscriptions}
}

// Dispatch applies one provider event. Unknown event types are logged and
// ignored so provider-side additions never break ingestion.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *ProviderEvent) error {
	switch event.Type {
	case EventPaymentFailed:
		_, err := d.subscriptions.RecordPaymentFailure(ctx, event.SubscriptionRef, event.EventRef, event.invoicePayload())
		return wrapDispatch(event, err)

	case EventPaymentSucceeded:
		_, err := d.subscriptions.RecordPaymentSuccess(ctx, event.SubscriptionRef, event.EventRef, event.invoicePayload())
		return wrapDispatch(event, err)

	case EventSubscriptionRenewed:
		_, err := d.subscriptions.RecordRenewal(ctx, event.SubscriptionRef, event.EventRef, event.PeriodStart, event.PeriodEnd)
		return wrapDispatch(event, err)

	case EventSubscriptionCanceled:
		_, err := d.subscriptions.RecordProviderCancellation(ctx, event.SubscriptionRef, event.EventRef)
		return wrapDispatch(event, err)

	default:
		logger.Get().InfoContext(ctx, "provider event ignored",
			zap.String("event_type", event.Type),
			zap.String("event_ref", event.EventRef),
		)
		return nil
	}
}

func (e *ProviderEvent) invoicePayload() *service.InvoicePayload {
	if e.InvoiceRef == "" {
		return nil
	}
	return &service.InvoicePayload{
		ProviderInvoiceRef: e.InvoiceRef,
		Amount:             e.Amount,
		Currency:           e.Currency,
	}
}

func wrapDispatch(event *ProviderEvent, err error) error {
	if err != nil {
		return fmt.Errorf("dispatch %s (%s): %w", event.Type, event.EventRef, err)
	}
	return nil
}
