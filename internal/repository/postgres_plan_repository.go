package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// PostgresPlanRepository implements PlanRepository using PostgreSQL.
type PostgresPlanRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPlanRepository creates a new PostgresPlanRepository.
func NewPostgresPlanRepository(pool *pgxpool.Pool) *PostgresPlanRepository {
	return &PostgresPlanRepository{pool: pool}
}

const planColumns = `
	id, public_id, name, provider_price_ref, price_amount, currency,
	plan_type, billing_cycle, max_users, max_channel_accounts,
	max_whatsapp_accounts, max_facebook_accounts, max_instagram_accounts,
	max_telegram_accounts, is_active, created_at, updated_at, created_by,
	last_modified_by
`

// Create inserts a new plan.
func (r *PostgresPlanRepository) Create(ctx context.Context, plan *domain.Plan) error {
	query := `
		INSERT INTO plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.pool.Exec(ctx, query,
		plan.ID,
		plan.PublicID,
		plan.Name,
		plan.ProviderPriceRef,
		plan.PriceAmount,
		plan.Currency,
		plan.Type,
		plan.BillingCycle,
		plan.MaxUsers,
		plan.MaxChannelAccounts,
		plan.MaxWhatsAppAccounts,
		plan.MaxFacebookAccounts,
		plan.MaxInstagramAccounts,
		plan.MaxTelegramAccounts,
		plan.IsActive,
		plan.CreatedAt,
		plan.UpdatedAt,
		plan.CreatedBy,
		plan.LastModifiedBy,
	)
	return mapPgError(err)
}

// GetByID retrieves a plan by internal id.
func (r *PostgresPlanRepository) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	return scanPlan(r.pool.QueryRow(ctx, query, id))
}

// GetByProviderPriceRef retrieves a plan by the billing provider's price id.
func (r *PostgresPlanRepository) GetByProviderPriceRef(ctx context.Context, ref string) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE provider_price_ref = $1`
	return scanPlan(r.pool.QueryRow(ctx, query, ref))
}

// ListActive retrieves plans visible for new subscriptions.
func (r *PostgresPlanRepository) ListActive(ctx context.Context) ([]*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE is_active = true ORDER BY price_amount`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]*domain.Plan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// Update updates a plan (administrative changes only).
func (r *PostgresPlanRepository) Update(ctx context.Context, plan *domain.Plan) error {
	query := `
		UPDATE plans
		SET name = $2, price_amount = $3, currency = $4, plan_type = $5,
		    billing_cycle = $6, max_users = $7, max_channel_accounts = $8,
		    max_whatsapp_accounts = $9, max_facebook_accounts = $10,
		    max_instagram_accounts = $11, max_telegram_accounts = $12,
		    is_active = $13, updated_at = $14, last_modified_by = $15
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		plan.ID,
		plan.Name,
		plan.PriceAmount,
		plan.Currency,
		plan.Type,
		plan.BillingCycle,
		plan.MaxUsers,
		plan.MaxChannelAccounts,
		plan.MaxWhatsAppAccounts,
		plan.MaxFacebookAccounts,
		plan.MaxInstagramAccounts,
		plan.MaxTelegramAccounts,
		plan.IsActive,
		plan.UpdatedAt,
		plan.LastModifiedBy,
	)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a plan. A plan still referenced by any subscription is
// protected by the ON DELETE RESTRICT constraint and returns ErrConflict.
func (r *PostgresPlanRepository) Delete(ctx context.Context, id string) error {
	var referenced bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM subscriptions WHERE plan_id = $1)`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return domain.ErrConflict
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	plan := &domain.Plan{}
	err := row.Scan(
		&plan.ID,
		&plan.PublicID,
		&plan.Name,
		&plan.ProviderPriceRef,
		&plan.PriceAmount,
		&plan.Currency,
		&plan.Type,
		&plan.BillingCycle,
		&plan.MaxUsers,
		&plan.MaxChannelAccounts,
		&plan.MaxWhatsAppAccounts,
		&plan.MaxFacebookAccounts,
		&plan.MaxInstagramAccounts,
		&plan.MaxTelegramAccounts,
		&plan.IsActive,
		&plan.CreatedAt,
		&plan.UpdatedAt,
		&plan.CreatedBy,
		&plan.LastModifiedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return plan, nil
}
