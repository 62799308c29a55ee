package repository

import (
	"context"
	"sync"
	"time"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// MemorySubscriptionRepository is an in-memory SubscriptionRepository for
// testing. Updates honor the optimistic-concurrency contract.
type MemorySubscriptionRepository struct {
	mu            sync.RWMutex
	subscriptions map[string]*domain.Subscription
	byProviderRef map[string]string
}

// NewMemorySubscriptionRepository creates an empty in-memory subscription
// repository.
func NewMemorySubscriptionRepository() *MemorySubscriptionRepository {
	return &MemorySubscriptionRepository{
		subscriptions: make(map[string]*domain.Subscription),
		byProviderRef: make(map[string]string),
	}
}

func (r *MemorySubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.subscriptions[sub.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.byProviderRef[sub.ProviderSubscriptionRef]; exists {
		return domain.ErrConflict
	}
	copied := *sub
	r.subscriptions[sub.ID] = &copied
	r.byProviderRef[sub.ProviderSubscriptionRef] = sub.ID
	return nil
}

func (r *MemorySubscriptionRepository) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, exists := r.subscriptions[id]
	if !exists {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

func (r *MemorySubscriptionRepository) GetByProviderRef(ctx context.Context, providerRef string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byProviderRef[providerRef]
	if !exists {
		return nil, nil
	}
	copied := *r.subscriptions[id]
	return &copied, nil
}

func (r *MemorySubscriptionRepository) ListByTenantID(ctx context.Context, tenantID string) ([]*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]*domain.Subscription, 0)
	for _, sub := range r.subscriptions {
		if sub.TenantID == tenantID {
			copied := *sub
			subs = append(subs, &copied)
		}
	}
	return subs, nil
}

func (r *MemorySubscriptionRepository) ListGraceExpired(ctx context.Context, asOf time.Time, limit int) ([]*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]*domain.Subscription, 0)
	for _, sub := range r.subscriptions {
		if sub.Status != domain.SubscriptionInGracePeriod {
			continue
		}
		if sub.GracePeriodEndsAt == nil || sub.GracePeriodEndsAt.After(asOf) {
			continue
		}
		copied := *sub
		subs = append(subs, &copied)
		if limit > 0 && len(subs) >= limit {
			break
		}
	}
	return subs, nil
}

func (r *MemorySubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.subscriptions[sub.ID]
	if !exists {
		return domain.ErrNotFound
	}
	if stored.Version != sub.Version {
		return domain.ErrConcurrencyConflict
	}
	copied := *sub
	copied.Version++
	r.subscriptions[sub.ID] = &copied
	sub.Version = copied.Version
	return nil
}

// DeleteByTenant removes all subscriptions owned by a tenant and returns
// their ids so the cascade can reach subscription-owned state (invoices).
func (r *MemorySubscriptionRepository) DeleteByTenant(tenantID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := make([]string, 0)
	for id, sub := range r.subscriptions {
		if sub.TenantID == tenantID {
			delete(r.byProviderRef, sub.ProviderSubscriptionRef)
			delete(r.subscriptions, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// ReferencesPlan reports whether any subscription references the plan.
func (r *MemorySubscriptionRepository) ReferencesPlan(planID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.subscriptions {
		if sub.PlanID == planID {
			return true
		}
	}
	return false
}

// MemoryBillingEventRepository is an in-memory BillingEventRepository.
type MemoryBillingEventRepository struct {
	mu        sync.Mutex
	processed map[string]struct{}
}

// NewMemoryBillingEventRepository creates an empty in-memory event store.
func NewMemoryBillingEventRepository() *MemoryBillingEventRepository {
	return &MemoryBillingEventRepository{processed: make(map[string]struct{})}
}

func (r *MemoryBillingEventRepository) MarkProcessed(ctx context.Context, eventRef string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.processed[eventRef]; exists {
		return false, nil
	}
	r.processed[eventRef] = struct{}{}
	return true, nil
}

func (r *MemoryBillingEventRepository) Unmark(ctx context.Context, eventRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.processed, eventRef)
	return nil
}
