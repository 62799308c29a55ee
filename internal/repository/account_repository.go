package repository

import (
	"context"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// AccountRepository defines identity-directory storage operations.
// Lookup methods return (nil, nil) when no account matches.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) error
	// Delete removes the account. Audit-actor references to the account
	// (CreatedBy/LastModifiedBy/DeletedBy/AssignedBy/InvitedBy) are nulled,
	// never cascaded.
	Delete(ctx context.Context, id string) error

	AssignSystemRole(ctx context.Context, accountID string, role domain.SystemRole) error
	RemoveSystemRole(ctx context.Context, accountID string, role domain.SystemRole) error
	ListSystemRoles(ctx context.Context, accountID string) ([]domain.SystemRole, error)
}
