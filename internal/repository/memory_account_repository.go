package repository

import (
	"context"
	"sync"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// MemoryAccountRepository is an in-memory AccountRepository for testing.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	byEmail  map[string]string

	// onDelete hooks null audit-actor references held by other stores.
	onDelete []func(accountID string)
}

// NewMemoryAccountRepository creates an empty in-memory account repository.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		accounts: make(map[string]*domain.Account),
		byEmail:  make(map[string]string),
	}
}

// OnDelete registers a hook invoked with the account id on Delete.
func (r *MemoryAccountRepository) OnDelete(fn func(accountID string)) {
	r.onDelete = append(r.onDelete, fn)
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.byEmail[account.Email]; exists {
		return domain.ErrConflict
	}
	r.accounts[account.ID] = copyAccount(account)
	r.byEmail[account.Email] = account.ID
	return nil
}

func (r *MemoryAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil, nil
	}
	return copyAccount(account), nil
}

func (r *MemoryAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byEmail[email]
	if !exists {
		return nil, nil
	}
	return copyAccount(r.accounts[id]), nil
}

func (r *MemoryAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID]; !exists {
		return domain.ErrNotFound
	}
	r.accounts[account.ID] = copyAccount(account)
	return nil
}

func (r *MemoryAccountRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	account, exists := r.accounts[id]
	if !exists {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(r.byEmail, account.Email)
	delete(r.accounts, id)
	hooks := r.onDelete
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(id)
	}
	return nil
}

func (r *MemoryAccountRepository) AssignSystemRole(ctx context.Context, accountID string, role domain.SystemRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[accountID]
	if !exists {
		return domain.ErrNotFound
	}
	for _, existing := range account.SystemRoles {
		if existing == role {
			return domain.ErrConflict
		}
	}
	account.SystemRoles = append(account.SystemRoles, role)
	return nil
}

func (r *MemoryAccountRepository) RemoveSystemRole(ctx context.Context, accountID string, role domain.SystemRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[accountID]
	if !exists {
		return domain.ErrNotFound
	}
	for i, existing := range account.SystemRoles {
		if existing == role {
			account.SystemRoles = append(account.SystemRoles[:i], account.SystemRoles[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *MemoryAccountRepository) ListSystemRoles(ctx context.Context, accountID string) ([]domain.SystemRole, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[accountID]
	if !exists {
		return nil, domain.ErrNotFound
	}
	roles := make([]domain.SystemRole, len(account.SystemRoles))
	copy(roles, account.SystemRoles)
	return roles, nil
}

func copyAccount(a *domain.Account) *domain.Account {
	copied := *a
	copied.Preferences = copySettings(a.Preferences)
	copied.SystemRoles = make([]domain.SystemRole, len(a.SystemRoles))
	copy(copied.SystemRoles, a.SystemRoles)
	return &copied
}
