package domain

import (
	"errors"
	"time"
)

// SubscriptionStatus is the explicit state tag of the subscription lifecycle
// state machine. The nullable timestamps and counters on Subscription are the
// state payload; together they let reconciliation jobs recompute entitlement
// from stored state plus the clock, without replaying event history.
type SubscriptionStatus string

const (
	// SubscriptionActive is a subscription in good standing.
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionPastDue means a payment failed and retries are in progress.
	SubscriptionPastDue SubscriptionStatus = "past_due"
	// SubscriptionInGracePeriod means retries are exhausted but the tenant
	// retains access until the grace period expires.
	SubscriptionInGracePeriod SubscriptionStatus = "in_grace_period"
	// SubscriptionPendingCancellation means cancel-at-period-end was requested;
	// access continues until the current period ends.
	SubscriptionPendingCancellation SubscriptionStatus = "pending_cancellation"
	// SubscriptionCanceled is terminal.
	SubscriptionCanceled SubscriptionStatus = "canceled"
	// SubscriptionMaxRetriesExceeded means the grace period elapsed without
	// payment. Terminal unless manually reactivated.
	SubscriptionMaxRetriesExceeded SubscriptionStatus = "max_retries_exceeded"
)

// validStatusTransitions defines allowed lifecycle transitions.
// Key is current status, value is the list of allowed next statuses.
var validStatusTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionActive:              {SubscriptionPastDue, SubscriptionInGracePeriod, SubscriptionPendingCancellation, SubscriptionCanceled},
	SubscriptionPastDue:             {SubscriptionActive, SubscriptionInGracePeriod, SubscriptionPendingCancellation, SubscriptionCanceled},
	SubscriptionInGracePeriod:       {SubscriptionActive, SubscriptionMaxRetriesExceeded, SubscriptionCanceled},
	SubscriptionPendingCancellation: {SubscriptionCanceled},
	SubscriptionCanceled:            {},
	SubscriptionMaxRetriesExceeded:  {SubscriptionActive, SubscriptionCanceled},
}

// IsValid returns true if the status is a known lifecycle status.
func (s SubscriptionStatus) IsValid() bool {
	_, exists := validStatusTransitions[s]
	return exists
}

// IsTerminal returns true when no further billing events apply. A
// max_retries_exceeded subscription can still be manually reactivated.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionCanceled || s == SubscriptionMaxRetriesExceeded
}

// CanTransitionTo returns true if the transition to target is allowed.
func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	for _, allowed := range validStatusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// RetryPolicy is the payment-failure retry and grace-period policy. It is a
// configuration input, not hardcoded behavior.
type RetryPolicy struct {
	// MaxRetries is the number of failed payments tolerated before the
	// subscription enters its grace period.
	MaxRetries int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// BackoffMultiplier scales the delay for each subsequent retry.
	BackoffMultiplier float64
	// GracePeriod is how long access is retained after retries are exhausted.
	GracePeriod time.Duration
}

// DefaultRetryPolicy mirrors the provider's standard dunning schedule.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		InitialBackoff:    24 * time.Hour,
		BackoffMultiplier: 2.0,
		GracePeriod:       7 * 24 * time.Hour,
	}
}

// NextRetryAt computes the next retry time after the retryCount-th failure.
func (p RetryPolicy) NextRetryAt(retryCount int, now time.Time) time.Time {
	backoff := p.InitialBackoff
	for i := 1; i < retryCount; i++ {
		backoff = time.Duration(float64(backoff) * p.BackoffMultiplier)
	}
	return now.Add(backoff)
}

// Subscription binds a tenant to a plan and tracks the billing provider's
// subscription state. A tenant may have historical subscriptions but at most
// one in an entitled state at a time; the engine enforces this at creation.
type Subscription struct {
	ID string `json:"id"`
	AuditInfo

	TenantID string `json:"tenant_id"`
	PlanID   string `json:"plan_id"`

	// ProviderSubscriptionRef is the billing provider's subscription id.
	// Globally unique.
	ProviderSubscriptionRef string `json:"provider_subscription_ref"`

	Status SubscriptionStatus `json:"status"`

	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`

	CanceledAt              *time.Time `json:"canceled_at,omitempty"`
	CancelAtPeriodEnd       bool       `json:"cancel_at_period_end"`
	CancellationRequestedAt *time.Time `json:"cancellation_requested_at,omitempty"`

	IsInGracePeriod   bool       `json:"is_in_grace_period"`
	GracePeriodEndsAt *time.Time `json:"grace_period_ends_at,omitempty"`

	LastPaymentFailedAt   *time.Time `json:"last_payment_failed_at,omitempty"`
	PaymentRetryCount     int        `json:"payment_retry_count"`
	FirstPaymentFailureAt *time.Time `json:"first_payment_failure_at,omitempty"`
	NextRetryAt           *time.Time `json:"next_retry_at,omitempty"`
	HasReachedMaxRetries  bool       `json:"has_reached_max_retries"`

	// Version is the optimistic-concurrency stamp; every persisted update
	// increments it.
	Version int64 `json:"version"`
}

// NewSubscription creates an active subscription for the given period.
func NewSubscription(tenantID, planID, providerRef string, periodStart, periodEnd time.Time) (*Subscription, error) {
	if tenantID == "" {
		return nil, errors.New("tenant id is required")
	}
	if planID == "" {
		return nil, errors.New("plan id is required")
	}
	if providerRef == "" {
		return nil, errors.New("provider subscription ref is required")
	}
	if !periodEnd.After(periodStart) {
		return nil, errors.New("period end must be after period start")
	}
	s := &Subscription{
		AuditInfo:               NewAuditInfo(nil),
		TenantID:                tenantID,
		PlanID:                  planID,
		ProviderSubscriptionRef: providerRef,
		Status:                  SubscriptionActive,
		CurrentPeriodStart:      periodStart,
		CurrentPeriodEnd:        periodEnd,
		Version:                 1,
	}
	s.ID = s.PublicID
	return s, nil
}

// IsEntitled reports whether the subscription authorizes platform access at
// the given instant. It is a pure function of stored state and the clock.
func (s *Subscription) IsEntitled(now time.Time) bool {
	switch s.Status {
	case SubscriptionActive, SubscriptionPastDue:
		return true
	case SubscriptionInGracePeriod:
		return s.GracePeriodEndsAt != nil && now.Before(*s.GracePeriodEndsAt)
	case SubscriptionPendingCancellation:
		return now.Before(s.CurrentPeriodEnd)
	}
	return false
}

// ApplyPaymentFailure records a payment-failure notification: bumps the retry
// counter, schedules the next retry, and enters the grace period once the
// policy's retry budget is spent.
func (s *Subscription) ApplyPaymentFailure(now time.Time, policy RetryPolicy) error {
	if s.Status.IsTerminal() {
		return ErrInvalidTransition
	}

	s.LastPaymentFailedAt = &now
	if s.FirstPaymentFailureAt == nil {
		s.FirstPaymentFailureAt = &now
	}
	s.PaymentRetryCount++

	if s.PaymentRetryCount >= policy.MaxRetries {
		s.HasReachedMaxRetries = true
		s.NextRetryAt = nil
		// Grace flags accompany the status change; a subscription that
		// cannot enter grace (pending cancellation) keeps its exhausted
		// retries recorded without claiming a grace window.
		if s.Status.CanTransitionTo(SubscriptionInGracePeriod) {
			s.Status = SubscriptionInGracePeriod
			s.IsInGracePeriod = true
			graceEnd := now.Add(policy.GracePeriod)
			s.GracePeriodEndsAt = &graceEnd
		}
		return nil
	}

	nextRetry := policy.NextRetryAt(s.PaymentRetryCount, now)
	s.NextRetryAt = &nextRetry
	if s.Status == SubscriptionActive {
		s.Status = SubscriptionPastDue
	}
	return nil
}

// ApplyPaymentSuccess clears all failure and grace bookkeeping and restores
// the active status where the state machine allows it.
func (s *Subscription) ApplyPaymentSuccess(now time.Time) error {
	if s.Status.IsTerminal() {
		return ErrInvalidTransition
	}

	s.clearFailureState()
	if s.Status == SubscriptionPastDue || s.Status == SubscriptionInGracePeriod {
		s.Status = SubscriptionActive
	}
	return nil
}

// ExpireGracePeriod moves a grace-period subscription whose window has
// elapsed into the max_retries_exceeded status.
func (s *Subscription) ExpireGracePeriod(now time.Time) error {
	if s.Status != SubscriptionInGracePeriod {
		return ErrInvalidTransition
	}
	if s.GracePeriodEndsAt != nil && now.Before(*s.GracePeriodEndsAt) {
		return ErrInvalidTransition
	}
	s.Status = SubscriptionMaxRetriesExceeded
	return nil
}

// RequestCancellation cancels the subscription. An immediate request bypasses
// grace and retry bookkeeping from any non-canceled state; otherwise
// cancel-at-period-end is recorded and access continues until the period ends.
func (s *Subscription) RequestCancellation(now time.Time, immediate bool) error {
	if s.Status == SubscriptionCanceled {
		return ErrInvalidTransition
	}
	if immediate {
		s.CanceledAt = &now
		s.Status = SubscriptionCanceled
		return nil
	}
	if !s.Status.CanTransitionTo(SubscriptionPendingCancellation) {
		return ErrInvalidTransition
	}
	s.CancellationRequestedAt = &now
	s.CancelAtPeriodEnd = true
	s.Status = SubscriptionPendingCancellation
	return nil
}

// AdvancePeriod moves the billing period forward on renewal. For a
// pending-cancellation subscription reaching its period end there is no
// renewal; the cancellation is finalized instead.
func (s *Subscription) AdvancePeriod(now, newStart, newEnd time.Time) error {
	if s.Status.IsTerminal() {
		return ErrInvalidTransition
	}
	if !newEnd.After(newStart) {
		return errors.New("period end must be after period start")
	}
	if s.Status == SubscriptionPendingCancellation && s.CancelAtPeriodEnd && !newStart.Before(s.CurrentPeriodEnd) {
		s.CanceledAt = &now
		s.Status = SubscriptionCanceled
		return nil
	}
	s.CurrentPeriodStart = newStart
	s.CurrentPeriodEnd = newEnd
	return nil
}

// Reactivate manually restores a max_retries_exceeded subscription.
func (s *Subscription) Reactivate(now time.Time) error {
	if s.Status != SubscriptionMaxRetriesExceeded {
		return ErrInvalidTransition
	}
	s.clearFailureState()
	s.Status = SubscriptionActive
	return nil
}

func (s *Subscription) clearFailureState() {
	s.LastPaymentFailedAt = nil
	s.PaymentRetryCount = 0
	s.FirstPaymentFailureAt = nil
	s.NextRetryAt = nil
	s.HasReachedMaxRetries = false
	s.IsInGracePeriod = false
	s.GracePeriodEndsAt = nil
}
