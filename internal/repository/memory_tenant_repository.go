package repository

import (
	"context"
	"sync"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// MemoryTenantRepository is an in-memory TenantRepository for testing.
type MemoryTenantRepository struct {
	mu            sync.RWMutex
	tenants       map[string]*domain.Tenant
	byCustomerRef map[string]string // billing customer ref -> tenant id

	// onDelete hooks let the memory container mimic the cascade-on-delete
	// behavior of the relational backend.
	onDelete []func(tenantID string)
}

// NewMemoryTenantRepository creates an empty in-memory tenant repository.
func NewMemoryTenantRepository() *MemoryTenantRepository {
	return &MemoryTenantRepository{
		tenants:       make(map[string]*domain.Tenant),
		byCustomerRef: make(map[string]string),
	}
}

// OnDelete registers a cascade hook invoked with the tenant id on Delete.
func (r *MemoryTenantRepository) OnDelete(fn func(tenantID string)) {
	r.onDelete = append(r.onDelete, fn)
}

func (r *MemoryTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tenants[tenant.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.byCustomerRef[tenant.BillingCustomerRef]; exists {
		return domain.ErrConflict
	}
	r.tenants[tenant.ID] = copyTenant(tenant)
	r.byCustomerRef[tenant.BillingCustomerRef] = tenant.ID
	return nil
}

func (r *MemoryTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tenant, exists := r.tenants[id]
	if !exists {
		return nil, nil
	}
	return copyTenant(tenant), nil
}

func (r *MemoryTenantRepository) GetByBillingCustomerRef(ctx context.Context, ref string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byCustomerRef[ref]
	if !exists {
		return nil, nil
	}
	return copyTenant(r.tenants[id]), nil
}

func (r *MemoryTenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tenants[tenant.ID]; !exists {
		return domain.ErrNotFound
	}
	r.tenants[tenant.ID] = copyTenant(tenant)
	return nil
}

func (r *MemoryTenantRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	tenant, exists := r.tenants[id]
	if !exists {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(r.byCustomerRef, tenant.BillingCustomerRef)
	delete(r.tenants, id)
	hooks := r.onDelete
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(id)
	}
	return nil
}

// NullifyActor clears references to a removed account on tenants. Registered
// as an account-delete hook by the memory container.
func (r *MemoryTenantRepository) NullifyActor(accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tenant := range r.tenants {
		tenant.AuditInfo.NullifyActor(accountID)
	}
}

func copyTenant(t *domain.Tenant) *domain.Tenant {
	copied := *t
	copied.Settings = copySettings(t.Settings)
	return &copied
}

func copySettings(settings map[string]interface{}) map[string]interface{} {
	if settings == nil {
		return nil
	}
	copied := make(map[string]interface{}, len(settings))
	for k, v := range settings {
		copied[k] = v
	}
	return copied
}
