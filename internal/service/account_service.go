package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/repository"
	"github.com/SyedWaqas82/ConnectFlow-sub001/pkg/logger"
)

// CreateAccountInput carries the fields for registering an account.
type CreateAccountInput struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Locale    string
	Timezone  string
}

// AccountService defines the interface for identity-directory operations
type AccountService interface {
	// Create registers a new account. Email must be unique.
	Create(ctx context.Context, input CreateAccountInput) (*domain.Account, error)
	// GetByID retrieves an account by its public id
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByEmail retrieves an account by email
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Deactivate marks the account inactive
	Deactivate(ctx context.Context, id string) error
	// Delete removes the account; audit-actor references elsewhere null out
	Delete(ctx context.Context, id string) error

	// AssignSystemRole grants one of the seeded system roles
	AssignSystemRole(ctx context.Context, accountID string, role domain.SystemRole) error
	// RemoveSystemRole revokes a system role. Idempotent.
	RemoveSystemRole(ctx context.Context, accountID string, role domain.SystemRole) error
	// HasSystemRole reports whether the account holds the role
	HasSystemRole(ctx context.Context, accountID string, role domain.SystemRole) (bool, error)
}

type accountService struct {
	accountRepo repository.AccountRepository
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo repository.AccountRepository) AccountService {
	return &accountService{accountRepo: accountRepo}
}

func (s *accountService) Create(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	account, err := domain.NewAccount(input.Email, input.FirstName, input.LastName)
	if err != nil {
		return nil, err
	}
	account.Phone = input.Phone
	account.Locale = input.Locale
	account.Timezone = input.Timezone

	existing, err := s.accountRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrConflict
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	logger.Get().InfoContext(ctx, "account registered", zap.String("account_id", account.ID))
	return account, nil
}

func (s *accountService) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

func (s *accountService) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

func (s *accountService) Deactivate(ctx context.Context, id string) error {
	account, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	account.Deactivate(time.Now().UTC())
	account.Touch(nil)
	return s.accountRepo.Update(ctx, account)
}

func (s *accountService) Delete(ctx context.Context, id string) error {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.ErrNotFound
	}
	if err := s.accountRepo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Get().InfoContext(ctx, "account deleted", zap.String("account_id", id))
	return nil
}

func (s *accountService) AssignSystemRole(ctx context.Context, accountID string, role domain.SystemRole) error {
	if !role.IsValid() {
		return domain.ErrNotFound
	}
	account, err := s.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.HasSystemRole(role) {
		return domain.ErrConflict
	}
	return s.accountRepo.AssignSystemRole(ctx, accountID, role)
}

func (s *accountService) RemoveSystemRole(ctx context.Context, accountID string, role domain.SystemRole) error {
	if _, err := s.GetByID(ctx, accountID); err != nil {
		return err
	}
	return s.accountRepo.RemoveSystemRole(ctx, accountID, role)
}

func (s *accountService) HasSystemRole(ctx context.Context, accountID string, role domain.SystemRole) (bool, error) {
	roles, err := s.accountRepo.ListSystemRoles(ctx, accountID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}
