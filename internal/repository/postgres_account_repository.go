package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// PostgresAccountRepository implements AccountRepository using PostgreSQL.
// Audit-actor columns referencing accounts are declared ON DELETE SET NULL,
// so deleting an account degrades audit trails instead of cascading.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountRepository creates a new PostgresAccountRepository.
func NewPostgresAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

const accountColumns = `
	id, public_id, first_name, last_name, email, phone, locale, timezone,
	preferences, is_active, deactivated_at, failed_login_count, locked_until,
	security_stamp, created_at, updated_at, created_by, last_modified_by
`

// Create inserts a new account.
func (r *PostgresAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.PublicID,
		account.FirstName,
		account.LastName,
		account.Email,
		nullStringOrValue(account.Phone),
		nullStringOrValue(account.Locale),
		nullStringOrValue(account.Timezone),
		account.Preferences,
		account.IsActive,
		account.DeactivatedAt,
		account.FailedLoginCount,
		account.LockedUntil,
		nullStringOrValue(account.SecurityStamp),
		account.CreatedAt,
		account.UpdatedAt,
		account.CreatedBy,
		account.LastModifiedBy,
	)
	return mapPgError(err)
}

// GetByID retrieves an account with its system roles.
func (r *PostgresAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := r.scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil || account == nil {
		return account, err
	}
	account.SystemRoles, err = r.ListSystemRoles(ctx, id)
	return account, err
}

// GetByEmail retrieves an account by email.
func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	account, err := r.scanAccount(r.pool.QueryRow(ctx, query, email))
	if err != nil || account == nil {
		return account, err
	}
	account.SystemRoles, err = r.ListSystemRoles(ctx, account.ID)
	return account, err
}

// Update updates account fields (not system roles).
func (r *PostgresAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET first_name = $2, last_name = $3, phone = $4, locale = $5,
		    timezone = $6, preferences = $7, is_active = $8, deactivated_at = $9,
		    failed_login_count = $10, locked_until = $11, security_stamp = $12,
		    updated_at = $13, last_modified_by = $14
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		account.ID,
		account.FirstName,
		account.LastName,
		nullStringOrValue(account.Phone),
		nullStringOrValue(account.Locale),
		nullStringOrValue(account.Timezone),
		account.Preferences,
		account.IsActive,
		account.DeactivatedAt,
		account.FailedLoginCount,
		account.LockedUntil,
		nullStringOrValue(account.SecurityStamp),
		account.UpdatedAt,
		account.LastModifiedBy,
	)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the account; actor references elsewhere null out via the
// schema's ON DELETE SET NULL constraints.
func (r *PostgresAccountRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AssignSystemRole grants a system role to the account.
func (r *PostgresAccountRepository) AssignSystemRole(ctx context.Context, accountID string, role domain.SystemRole) error {
	query := `INSERT INTO account_system_roles (account_id, role_name) VALUES ($1, $2)`
	_, err := r.pool.Exec(ctx, query, accountID, role)
	return mapPgError(err)
}

// RemoveSystemRole removes a system role from the account. Idempotent.
func (r *PostgresAccountRepository) RemoveSystemRole(ctx context.Context, accountID string, role domain.SystemRole) error {
	query := `DELETE FROM account_system_roles WHERE account_id = $1 AND role_name = $2`
	_, err := r.pool.Exec(ctx, query, accountID, role)
	return mapPgError(err)
}

// ListSystemRoles lists the account's system roles.
func (r *PostgresAccountRepository) ListSystemRoles(ctx context.Context, accountID string) ([]domain.SystemRole, error) {
	rows, err := r.pool.Query(ctx, `SELECT role_name FROM account_system_roles WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]domain.SystemRole, 0)
	for rows.Next() {
		var role domain.SystemRole
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *PostgresAccountRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	account := &domain.Account{}
	var phone, locale, timezone, securityStamp *string
	err := row.Scan(
		&account.ID,
		&account.PublicID,
		&account.FirstName,
		&account.LastName,
		&account.Email,
		&phone,
		&locale,
		&timezone,
		&account.Preferences,
		&account.IsActive,
		&account.DeactivatedAt,
		&account.FailedLoginCount,
		&account.LockedUntil,
		&securityStamp,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.CreatedBy,
		&account.LastModifiedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	account.Phone = stringOrEmpty(phone)
	account.Locale = stringOrEmpty(locale)
	account.Timezone = stringOrEmpty(timezone)
	account.SecurityStamp = stringOrEmpty(securityStamp)
	return account, nil
}
