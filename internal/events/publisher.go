package events

import (
	"context"
	"time"
)

// Topic names for subscription lifecycle events
const (
	TopicSubscriptionLifecycle = "subscription.lifecycle"
)

// SubscriptionStateChanged is published whenever the lifecycle engine applies
// a state transition. Consumers (notification senders, analytics) key on the
// tenant for ordering.
type SubscriptionStateChanged struct {
	EventType      string    `json:"event_type"`
	SubscriptionID string    `json:"subscription_id"`
	TenantID       string    `json:"tenant_id"`
	FromStatus     string    `json:"from_status"`
	ToStatus       string    `json:"to_status"`
	RetryCount     int       `json:"retry_count,omitempty"`
	ProviderRef    string    `json:"provider_ref,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Key returns the Kafka message key for partitioning.
func (e *SubscriptionStateChanged) Key() string {
	return e.TenantID
}

// Publisher emits lifecycle events. Publishing is best effort; the engine
// logs failures and never rolls back a committed transition.
type Publisher interface {
	PublishStateChanged(ctx context.Context, event *SubscriptionStateChanged) error
	Close()
}

// NoopPublisher discards events. Used in tests and when no broker is
// configured.
type NoopPublisher struct{}

// PublishStateChanged discards the event.
func (NoopPublisher) PublishStateChanged(ctx context.Context, event *SubscriptionStateChanged) error {
	return nil
}

// Close is a no-op.
func (NoopPublisher) Close() {}
