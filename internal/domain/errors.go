package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = errors.New("entity not found")
	// ErrConflict is returned on a uniqueness violation (duplicate membership,
	// duplicate role grant, duplicate channel registration, duplicate provider ref)
	ErrConflict = errors.New("entity already exists")
	// ErrQuotaExceeded is returned when a plan quota denies resource creation
	ErrQuotaExceeded = errors.New("plan quota exceeded")
	// ErrNoActiveSubscription is returned when a tenant has no entitled subscription
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrInvalidTransition is returned when a lifecycle operation is not allowed
	// from the entity's current state
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrConcurrencyConflict is returned when an optimistic-concurrency write
	// collides with a concurrent update; callers should reload and retry
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
)
