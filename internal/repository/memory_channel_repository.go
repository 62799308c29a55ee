package repository

import (
	"context"
	"sync"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// MemoryChannelAccountRepository is an in-memory ChannelAccountRepository for
// testing. The single mutex makes the quota-checked insert atomic.
type MemoryChannelAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.ChannelAccount
}

// NewMemoryChannelAccountRepository creates an empty in-memory channel
// account repository.
func NewMemoryChannelAccountRepository() *MemoryChannelAccountRepository {
	return &MemoryChannelAccountRepository{accounts: make(map[string]*domain.ChannelAccount)}
}

func (r *MemoryChannelAccountRepository) CreateWithQuota(ctx context.Context, account *domain.ChannelAccount, typeMax, totalMax int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	typeCount, totalCount := 0, 0
	for _, existing := range r.accounts {
		if existing.TenantID != account.TenantID {
			continue
		}
		if existing.ProviderAccountRef == account.ProviderAccountRef {
			return domain.ErrConflict
		}
		if !existing.CountsTowardQuota() {
			continue
		}
		totalCount++
		if existing.Type == account.Type {
			typeCount++
		}
	}
	if typeCount >= typeMax || totalCount >= totalMax {
		return domain.ErrQuotaExceeded
	}

	copied := copyChannelAccount(account)
	r.accounts[account.ID] = copied
	return nil
}

func (r *MemoryChannelAccountRepository) GetByID(ctx context.Context, id string) (*domain.ChannelAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil, nil
	}
	return copyChannelAccount(account), nil
}

func (r *MemoryChannelAccountRepository) GetByProviderRef(ctx context.Context, tenantID, providerAccountRef string) (*domain.ChannelAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.TenantID == tenantID && account.ProviderAccountRef == providerAccountRef {
			return copyChannelAccount(account), nil
		}
	}
	return nil, nil
}

func (r *MemoryChannelAccountRepository) Update(ctx context.Context, account *domain.ChannelAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID]; !exists {
		return domain.ErrNotFound
	}
	r.accounts[account.ID] = copyChannelAccount(account)
	return nil
}

func (r *MemoryChannelAccountRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.ChannelAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]*domain.ChannelAccount, 0)
	for _, account := range r.accounts {
		if account.TenantID == tenantID {
			accounts = append(accounts, copyChannelAccount(account))
		}
	}
	return accounts, nil
}

func (r *MemoryChannelAccountRepository) CountActive(ctx context.Context, tenantID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, account := range r.accounts {
		if account.TenantID == tenantID && account.CountsTowardQuota() {
			count++
		}
	}
	return count, nil
}

func (r *MemoryChannelAccountRepository) CountActiveByType(ctx context.Context, tenantID string, channelType domain.ChannelType) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, account := range r.accounts {
		if account.TenantID == tenantID && account.Type == channelType && account.CountsTowardQuota() {
			count++
		}
	}
	return count, nil
}

// DeleteByTenant removes all channel accounts owned by a tenant; used by the
// memory container's cascade hooks.
func (r *MemoryChannelAccountRepository) DeleteByTenant(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, account := range r.accounts {
		if account.TenantID == tenantID {
			delete(r.accounts, id)
		}
	}
}

// NullifyActor clears references to a removed account on channel accounts.
// Registered as an account-delete hook by the memory container.
func (r *MemoryChannelAccountRepository) NullifyActor(accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		account.AuditInfo.NullifyActor(accountID)
		account.Lifecycle.NullifyActor(accountID)
	}
}

func copyChannelAccount(c *domain.ChannelAccount) *domain.ChannelAccount {
	copied := *c
	copied.Settings = copySettings(c.Settings)
	return &copied
}
