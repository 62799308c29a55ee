package repository

import (
	"context"
	"sync"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// MemoryPlanRepository is an in-memory PlanRepository for testing.
type MemoryPlanRepository struct {
	mu         sync.RWMutex
	plans      map[string]*domain.Plan
	byPriceRef map[string]string

	// referenced reports whether any subscription references the plan; wired
	// by the memory container so Delete can enforce the restrict rule.
	referenced func(planID string) bool
}

// NewMemoryPlanRepository creates an empty in-memory plan repository.
func NewMemoryPlanRepository() *MemoryPlanRepository {
	return &MemoryPlanRepository{
		plans:      make(map[string]*domain.Plan),
		byPriceRef: make(map[string]string),
	}
}

// SetReferenceCheck wires the subscription-reference check used by Delete.
func (r *MemoryPlanRepository) SetReferenceCheck(fn func(planID string) bool) {
	r.referenced = fn
}

func (r *MemoryPlanRepository) Create(ctx context.Context, plan *domain.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plans[plan.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.byPriceRef[plan.ProviderPriceRef]; exists {
		return domain.ErrConflict
	}
	copied := *plan
	r.plans[plan.ID] = &copied
	r.byPriceRef[plan.ProviderPriceRef] = plan.ID
	return nil
}

func (r *MemoryPlanRepository) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plan, exists := r.plans[id]
	if !exists {
		return nil, nil
	}
	copied := *plan
	return &copied, nil
}

func (r *MemoryPlanRepository) GetByProviderPriceRef(ctx context.Context, ref string) (*domain.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byPriceRef[ref]
	if !exists {
		return nil, nil
	}
	copied := *r.plans[id]
	return &copied, nil
}

func (r *MemoryPlanRepository) ListActive(ctx context.Context) ([]*domain.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plans := make([]*domain.Plan, 0)
	for _, plan := range r.plans {
		if plan.IsActive {
			copied := *plan
			plans = append(plans, &copied)
		}
	}
	return plans, nil
}

func (r *MemoryPlanRepository) Update(ctx context.Context, plan *domain.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plans[plan.ID]; !exists {
		return domain.ErrNotFound
	}
	copied := *plan
	r.plans[plan.ID] = &copied
	return nil
}

func (r *MemoryPlanRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan, exists := r.plans[id]
	if !exists {
		return domain.ErrNotFound
	}
	if r.referenced != nil && r.referenced(id) {
		return domain.ErrConflict
	}
	delete(r.byPriceRef, plan.ProviderPriceRef)
	delete(r.plans, id)
	return nil
}
