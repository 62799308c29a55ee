package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// PostgresChannelAccountRepository implements ChannelAccountRepository using
// PostgreSQL.
type PostgresChannelAccountRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresChannelAccountRepository creates a new
// PostgresChannelAccountRepository.
func NewPostgresChannelAccountRepository(pool *pgxpool.Pool) *PostgresChannelAccountRepository {
	return &PostgresChannelAccountRepository{pool: pool}
}

const channelColumns = `
	id, public_id, tenant_id, channel_type, provider_account_ref,
	display_name, contact_info, settings, operational_status,
	entity_status, suspended_at, resumed_at, deleted_at, deleted_by,
	created_at, updated_at, created_by, last_modified_by
`

// CreateWithQuota counts and inserts inside one serializable transaction so
// two concurrent requests cannot both slip under the cap.
func (r *PostgresChannelAccountRepository) CreateWithQuota(ctx context.Context, account *domain.ChannelAccount, typeMax, totalMax int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	countQuery := `
		SELECT
			COUNT(*) FILTER (WHERE channel_type = $2),
			COUNT(*)
		FROM channel_accounts
		WHERE tenant_id = $1 AND entity_status != 'deleted'
	`
	var typeCount, totalCount int
	if err := tx.QueryRow(ctx, countQuery, account.TenantID, account.Type).Scan(&typeCount, &totalCount); err != nil {
		return mapPgError(err)
	}
	if typeCount >= typeMax || totalCount >= totalMax {
		return domain.ErrQuotaExceeded
	}

	insertQuery := `
		INSERT INTO channel_accounts (` + channelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = tx.Exec(ctx, insertQuery,
		account.ID,
		account.PublicID,
		account.TenantID,
		account.Type,
		account.ProviderAccountRef,
		nullStringOrValue(account.DisplayName),
		nullStringOrValue(account.ContactInfo),
		account.Settings,
		account.Status,
		account.Lifecycle.Status,
		account.Lifecycle.SuspendedAt,
		account.Lifecycle.ResumedAt,
		account.Lifecycle.DeletedAt,
		account.Lifecycle.DeletedBy,
		account.CreatedAt,
		account.UpdatedAt,
		account.CreatedBy,
		account.LastModifiedBy,
	)
	if err != nil {
		return mapPgError(err)
	}
	return mapPgError(tx.Commit(ctx))
}

// GetByID retrieves a channel account by internal id.
func (r *PostgresChannelAccountRepository) GetByID(ctx context.Context, id string) (*domain.ChannelAccount, error) {
	query := `SELECT ` + channelColumns + ` FROM channel_accounts WHERE id = $1`
	return scanChannelAccount(r.pool.QueryRow(ctx, query, id))
}

// GetByProviderRef retrieves a channel account by its provider account id
// within a tenant.
func (r *PostgresChannelAccountRepository) GetByProviderRef(ctx context.Context, tenantID, providerAccountRef string) (*domain.ChannelAccount, error) {
	query := `SELECT ` + channelColumns + ` FROM channel_accounts WHERE tenant_id = $1 AND provider_account_ref = $2`
	return scanChannelAccount(r.pool.QueryRow(ctx, query, tenantID, providerAccountRef))
}

// Update persists operational and lifecycle changes.
func (r *PostgresChannelAccountRepository) Update(ctx context.Context, account *domain.ChannelAccount) error {
	query := `
		UPDATE channel_accounts
		SET display_name = $2, contact_info = $3, settings = $4,
		    operational_status = $5, entity_status = $6, suspended_at = $7,
		    resumed_at = $8, deleted_at = $9, deleted_by = $10,
		    updated_at = $11, last_modified_by = $12
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		account.ID,
		nullStringOrValue(account.DisplayName),
		nullStringOrValue(account.ContactInfo),
		account.Settings,
		account.Status,
		account.Lifecycle.Status,
		account.Lifecycle.SuspendedAt,
		account.Lifecycle.ResumedAt,
		account.Lifecycle.DeletedAt,
		account.Lifecycle.DeletedBy,
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

// ListByTenant retrieves all channel accounts, deleted included, for a tenant.
func (r *PostgresChannelAccountRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.ChannelAccount, error) {
	query := `SELECT ` + channelColumns + ` FROM channel_accounts WHERE tenant_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]*domain.ChannelAccount, 0)
	for rows.Next() {
		account, err := scanChannelAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// CountActive counts non-deleted channel accounts owned by a tenant.
func (r *PostgresChannelAccountRepository) CountActive(ctx context.Context, tenantID string) (int, error) {
	query := `SELECT COUNT(*) FROM channel_accounts WHERE tenant_id = $1 AND entity_status != 'deleted'`
	var count int
	err := r.pool.QueryRow(ctx, query, tenantID).Scan(&count)
	return count, err
}

// CountActiveByType counts non-deleted channel accounts of one channel type.
func (r *PostgresChannelAccountRepository) CountActiveByType(ctx context.Context, tenantID string, channelType domain.ChannelType) (int, error) {
	query := `SELECT COUNT(*) FROM channel_accounts WHERE tenant_id = $1 AND channel_type = $2 AND entity_status != 'deleted'`
	var count int
	err := r.pool.QueryRow(ctx, query, tenantID, channelType).Scan(&count)
	return count, err
}

func scanChannelAccount(row pgx.Row) (*domain.ChannelAccount, error) {
	account := &domain.ChannelAccount{}
	var displayName, contactInfo *string
	err := row.Scan(
		&account.ID,
		&account.PublicID,
		&account.TenantID,
		&account.Type,
		&account.ProviderAccountRef,
		&displayName,
		&contactInfo,
		&account.Settings,
		&account.Status,
		&account.Lifecycle.Status,
		&account.Lifecycle.SuspendedAt,
		&account.Lifecycle.ResumedAt,
		&account.Lifecycle.DeletedAt,
		&account.Lifecycle.DeletedBy,
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
	account.DisplayName = stringOrEmpty(displayName)
	account.ContactInfo = stringOrEmpty(contactInfo)
	return account, nil
}
