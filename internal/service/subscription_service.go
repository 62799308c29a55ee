package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/events"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/repository"
	"github.com/SyedWaqas82/ConnectFlow-sub001/pkg/logger"
	"github.com/SyedWaqas82/ConnectFlow-sub001/pkg/telemetry"
)

// concurrencyRetries bounds reload-and-reapply attempts when a versioned
// update loses a race with a concurrent webhook.
const concurrencyRetries = 3

// CreateSubscriptionInput carries the fields for starting a subscription.
type CreateSubscriptionInput struct {
	TenantID                string
	PlanID                  string
	ProviderSubscriptionRef string
	PeriodStart             time.Time
	PeriodEnd               time.Time
}

// InvoicePayload is the optional invoice attached to a payment notification.
type InvoicePayload struct {
	ProviderInvoiceRef string
	Amount             int64
	Currency           string
}

// SubscriptionService is the subscription lifecycle engine. Billing-provider
// notifications arrive with an event reference used for exactly-once
// application: a reference seen before returns the current state unchanged.
type SubscriptionService interface {
	// Create starts an active subscription. At most one entitled
	// subscription may exist per tenant; a second returns Conflict.
	Create(ctx context.Context, input CreateSubscriptionInput) (*domain.Subscription, error)
	// GetByID retrieves a subscription by id
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	// GetByProviderRef retrieves a subscription by the provider's
	// subscription id
	GetByProviderRef(ctx context.Context, providerRef string) (*domain.Subscription, error)
	// EntitledForTenant returns the tenant's entitled subscription, or
	// ErrNoActiveSubscription
	EntitledForTenant(ctx context.Context, tenantID string) (*domain.Subscription, error)
	// IsEntitled reports whether the tenant currently has platform access
	IsEntitled(ctx context.Context, tenantID string) (bool, error)

	// RecordPaymentFailure applies a payment-failed notification: retry
	// scheduling, then grace period once retries are exhausted. invoice may
	// be nil.
	RecordPaymentFailure(ctx context.Context, providerRef, eventRef string, invoice *InvoicePayload) (*domain.Subscription, error)
	// RecordPaymentSuccess applies a payment-succeeded notification,
	// restoring the active status and clearing failure state. invoice may
	// be nil.
	RecordPaymentSuccess(ctx context.Context, providerRef, eventRef string, invoice *InvoicePayload) (*domain.Subscription, error)
	// RecordRenewal advances the billing period; for a pending cancellation
	// reaching its period end it finalizes the cancellation instead.
	RecordRenewal(ctx context.Context, providerRef, eventRef string, newStart, newEnd time.Time) (*domain.Subscription, error)
	// RecordProviderCancellation applies the provider's own cancellation
	// notice as an immediate cancellation.
	RecordProviderCancellation(ctx context.Context, providerRef, eventRef string) (*domain.Subscription, error)

	// RequestCancellation cancels at period end, or immediately.
	RequestCancellation(ctx context.Context, subscriptionID string, immediate bool) (*domain.Subscription, error)
	// ExpireGracePeriod moves a subscription whose grace window has elapsed
	// to max_retries_exceeded. Called by the reconciliation sweep.
	ExpireGracePeriod(ctx context.Context, subscriptionID string) (*domain.Subscription, error)
	// Reactivate manually restores a max_retries_exceeded subscription
	// after out-of-band payment resolution.
	Reactivate(ctx context.Context, subscriptionID string) (*domain.Subscription, error)
}

type subscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	billingEventRepo repository.BillingEventRepository
	tenantRepo       repository.TenantRepository
	planRepo         repository.PlanRepository
	invoiceRepo      repository.InvoiceRepository
	publisher        events.Publisher
	policy           domain.RetryPolicy
	transitions      *telemetry.Counter
	now              func() time.Time
}

// NewSubscriptionService creates the lifecycle engine.
func NewSubscriptionService(
	subscriptionRepo repository.SubscriptionRepository,
	billingEventRepo repository.BillingEventRepository,
	tenantRepo repository.TenantRepository,
	planRepo repository.PlanRepository,
	invoiceRepo repository.InvoiceRepository,
	publisher events.Publisher,
	policy domain.RetryPolicy,
) SubscriptionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	transitions, _ := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "subscription.transitions",
		Description: "Applied subscription lifecycle transitions",
		Unit:        "{transition}",
	})
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		billingEventRepo: billingEventRepo,
		tenantRepo:       tenantRepo,
		planRepo:         planRepo,
		invoiceRepo:      invoiceRepo,
		publisher:        publisher,
		policy:           policy,
		transitions:      transitions,
		now:              time.Now,
	}
}

func (s *subscriptionService) Create(ctx context.Context, input CreateSubscriptionInput) (*domain.Subscription, error) {
	ctx, span := telemetry.StartSpan(ctx, "subscription.create")
	defer span.End()
	telemetry.SetSpanAttributes(ctx, telemetry.TenantIDAttr(input.TenantID))

	tenant, err := s.tenantRepo.GetByID(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrNotFound
	}
	plan, err := s.planRepo.GetByID(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrNotFound
	}

	existing, err := s.subscriptionRepo.GetByProviderRef(ctx, input.ProviderSubscriptionRef)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrConflict
	}

	// One entitled subscription per tenant.
	current, err := s.EntitledForTenant(ctx, input.TenantID)
	if err != nil && !errors.Is(err, domain.ErrNoActiveSubscription) {
		return nil, err
	}
	if current != nil {
		return nil, domain.ErrConflict
	}

	sub, err := domain.NewSubscription(input.TenantID, input.PlanID, input.ProviderSubscriptionRef, input.PeriodStart, input.PeriodEnd)
	if err != nil {
		return nil, err
	}
	if err := s.subscriptionRepo.Create(ctx, sub); err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, err
	}

	logger.Get().InfoContext(ctx, "subscription created",
		zap.String("subscription_id", sub.ID),
		zap.String("tenant_id", sub.TenantID),
		zap.String("plan_id", sub.PlanID),
	)
	s.emit(ctx, sub, "", sub.Status)
	return sub, nil
}

func (s *subscriptionService) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrNotFound
	}
	return sub, nil
}

func (s *subscriptionService) GetByProviderRef(ctx context.Context, providerRef string) (*domain.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByProviderRef(ctx, providerRef)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrNotFound
	}
	return sub, nil
}

func (s *subscriptionService) EntitledForTenant(ctx context.Context, tenantID string) (*domain.Subscription, error) {
	subs, err := s.subscriptionRepo.ListByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	for _, sub := range subs {
		if sub.IsEntitled(now) {
			return sub, nil
		}
	}
	return nil, domain.ErrNoActiveSubscription
}

func (s *subscriptionService) IsEntitled(ctx context.Context, tenantID string) (bool, error) {
	_, err := s.EntitledForTenant(ctx, tenantID)
	if errors.Is(err, domain.ErrNoActiveSubscription) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *subscriptionService) RecordPaymentFailure(ctx context.Context, providerRef, eventRef string, invoice *InvoicePayload) (*domain.Subscription, error) {
	return s.applyProviderEvent(ctx, providerRef, eventRef, func(sub *domain.Subscription, now time.Time) error {
		if err := sub.ApplyPaymentFailure(now, s.policy); err != nil {
			return err
		}
		return s.appendInvoice(ctx, sub, invoice, false, now)
	})
}

func (s *subscriptionService) RecordPaymentSuccess(ctx context.Context, providerRef, eventRef string, invoice *InvoicePayload) (*domain.Subscription, error) {
	return s.applyProviderEvent(ctx, providerRef, eventRef, func(sub *domain.Subscription, now time.Time) error {
		if err := sub.ApplyPaymentSuccess(now); err != nil {
			return err
		}
		return s.appendInvoice(ctx, sub, invoice, true, now)
	})
}

func (s *subscriptionService) RecordRenewal(ctx context.Context, providerRef, eventRef string, newStart, newEnd time.Time) (*domain.Subscription, error) {
	return s.applyProviderEvent(ctx, providerRef, eventRef, func(sub *domain.Subscription, now time.Time) error {
		return sub.AdvancePeriod(now, newStart, newEnd)
	})
}

func (s *subscriptionService) RecordProviderCancellation(ctx context.Context, providerRef, eventRef string) (*domain.Subscription, error) {
	return s.applyProviderEvent(ctx, providerRef, eventRef, func(sub *domain.Subscription, now time.Time) error {
		return sub.RequestCancellation(now, true)
	})
}

func (s *subscriptionService) RequestCancellation(ctx context.Context, subscriptionID string, immediate bool) (*domain.Subscription, error) {
	return s.applyByID(ctx, subscriptionID, func(sub *domain.Subscription, now time.Time) error {
		return sub.RequestCancellation(now, immediate)
	})
}

func (s *subscriptionService) ExpireGracePeriod(ctx context.Context, subscriptionID string) (*domain.Subscription, error) {
	return s.applyByID(ctx, subscriptionID, func(sub *domain.Subscription, now time.Time) error {
		return sub.ExpireGracePeriod(now)
	})
}

func (s *subscriptionService) Reactivate(ctx context.Context, subscriptionID string) (*domain.Subscription, error) {
	return s.applyByID(ctx, subscriptionID, func(sub *domain.Subscription, now time.Time) error {
		return sub.Reactivate(now)
	})
}

// applyProviderEvent is the single path for webhook-driven mutations: dedup on
// the event reference, load, mutate, versioned write with retry. A terminal
// subscription absorbs late events as a no-op rather than an error, since
// providers keep emitting after cancellation.
func (s *subscriptionService) applyProviderEvent(ctx context.Context, providerRef, eventRef string, mutate func(*domain.Subscription, time.Time) error) (*domain.Subscription, error) {
	ctx, span := telemetry.StartSpan(ctx, "subscription.apply_event")
	defer span.End()

	if eventRef != "" {
		first, err := s.billingEventRepo.MarkProcessed(ctx, eventRef)
		if err != nil {
			telemetry.SetSpanError(ctx, err)
			return nil, err
		}
		if !first {
			telemetry.AddSpanEvent(ctx, "duplicate_event_ignored")
			logger.Get().DebugContext(ctx, "duplicate billing event ignored",
				zap.String("event_ref", eventRef),
				zap.String("provider_ref", providerRef),
			)
			return s.GetByProviderRef(ctx, providerRef)
		}
	}

	sub, err := s.applyWithRetry(ctx, providerRef, mutate)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		if eventRef != "" {
			// The event was not applied; forget the ref so the provider's
			// redelivery is processed instead of swallowed.
			if uerr := s.billingEventRepo.Unmark(ctx, eventRef); uerr != nil {
				logger.Get().ErrorContext(ctx, "failed to release billing event ref",
					zap.String("event_ref", eventRef),
					zap.Error(uerr),
				)
			}
		}
	}
	return sub, err
}

func (s *subscriptionService) applyWithRetry(ctx context.Context, providerRef string, mutate func(*domain.Subscription, time.Time) error) (*domain.Subscription, error) {
	var lastErr error
	for attempt := 0; attempt < concurrencyRetries; attempt++ {
		sub, err := s.GetByProviderRef(ctx, providerRef)
		if err != nil {
			return nil, err
		}
		if sub.Status.IsTerminal() {
			return sub, nil
		}

		sub, err = s.mutateAndStore(ctx, sub, mutate)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *subscriptionService) applyByID(ctx context.Context, subscriptionID string, mutate func(*domain.Subscription, time.Time) error) (*domain.Subscription, error) {
	ctx, span := telemetry.StartSpan(ctx, "subscription.apply")
	defer span.End()

	sub, err := s.GetByID(ctx, subscriptionID)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, err
	}
	sub, err = s.mutateAndStore(ctx, sub, mutate)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
	}
	return sub, err
}

func (s *subscriptionService) mutateAndStore(ctx context.Context, sub *domain.Subscription, mutate func(*domain.Subscription, time.Time) error) (*domain.Subscription, error) {
	now := s.now().UTC()
	from := sub.Status
	if err := mutate(sub, now); err != nil {
		return nil, err
	}
	sub.Touch(nil)
	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}
	if sub.Status != from {
		logger.Get().InfoContext(ctx, "subscription transition",
			zap.String("subscription_id", sub.ID),
			zap.String("tenant_id", sub.TenantID),
			zap.String("from", string(from)),
			zap.String("to", string(sub.Status)),
			zap.Int("retry_count", sub.PaymentRetryCount),
		)
		s.emit(ctx, sub, from, sub.Status)
	}
	return sub, nil
}

// appendInvoice records the webhook's invoice payload in the ledger. A
// provider invoice ref seen before updates the stored row instead of
// appending.
func (s *subscriptionService) appendInvoice(ctx context.Context, sub *domain.Subscription, payload *InvoicePayload, paid bool, now time.Time) error {
	if payload == nil || payload.ProviderInvoiceRef == "" {
		return nil
	}
	invoice, err := s.invoiceRepo.GetByProviderRef(ctx, payload.ProviderInvoiceRef)
	if err != nil {
		return err
	}
	if invoice == nil {
		invoice, err = domain.NewInvoice(sub.ID, payload.ProviderInvoiceRef, payload.Amount, payload.Currency)
		if err != nil {
			return err
		}
		if paid {
			invoice.MarkPaid(now)
		} else {
			invoice.MarkFailed()
		}
		return s.invoiceRepo.Create(ctx, invoice)
	}
	if paid {
		invoice.MarkPaid(now)
	} else {
		invoice.MarkFailed()
	}
	invoice.Touch(nil)
	return s.invoiceRepo.Update(ctx, invoice)
}

// emit publishes the lifecycle event and bumps the transition counter. Both
// are best effort.
func (s *subscriptionService) emit(ctx context.Context, sub *domain.Subscription, from, to domain.SubscriptionStatus) {
	if s.transitions != nil {
		s.transitions.Inc(ctx,
			telemetry.TenantIDAttr(sub.TenantID),
			telemetry.SubscriptionStatusAttr(string(to)),
		)
	}
	event := &events.SubscriptionStateChanged{
		EventType:      "subscription.state_changed",
		SubscriptionID: sub.ID,
		TenantID:       sub.TenantID,
		FromStatus:     string(from),
		ToStatus:       string(to),
		RetryCount:     sub.PaymentRetryCount,
		ProviderRef:    sub.ProviderSubscriptionRef,
		Timestamp:      s.now().UTC(),
	}
	if err := s.publisher.PublishStateChanged(ctx, event); err != nil {
		logger.Get().WarnContext(ctx, "lifecycle event publish failed",
			zap.String("subscription_id", sub.ID),
			zap.Error(err),
		)
	}
}
