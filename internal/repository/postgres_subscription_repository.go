package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// PostgresSubscriptionRepository implements SubscriptionRepository using
// PostgreSQL with an optimistic-concurrency version column.
type PostgresSubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSubscriptionRepository creates a new
// PostgresSubscriptionRepository.
func NewPostgresSubscriptionRepository(pool *pgxpool.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

const subscriptionColumns = `
	id, public_id, tenant_id, plan_id, provider_subscription_ref, status,
	current_period_start, current_period_end,
	canceled_at, cancel_at_period_end, cancellation_requested_at,
	is_in_grace_period, grace_period_ends_at,
	last_payment_failed_at, payment_retry_count, first_payment_failure_at,
	next_retry_at, has_reached_max_retries,
	version, created_at, updated_at, created_by, last_modified_by
`

// Create inserts a new subscription.
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`
	_, err := r.pool.Exec(ctx, query,
		sub.ID,
		sub.PublicID,
		sub.TenantID,
		sub.PlanID,
		sub.ProviderSubscriptionRef,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CanceledAt,
		sub.CancelAtPeriodEnd,
		sub.CancellationRequestedAt,
		sub.IsInGracePeriod,
		sub.GracePeriodEndsAt,
		sub.LastPaymentFailedAt,
		sub.PaymentRetryCount,
		sub.FirstPaymentFailureAt,
		sub.NextRetryAt,
		sub.HasReachedMaxRetries,
		sub.Version,
		sub.CreatedAt,
		sub.UpdatedAt,
		sub.CreatedBy,
		sub.LastModifiedBy,
	)
	return mapPgError(err)
}

// GetByID retrieves a subscription by internal id.
func (r *PostgresSubscriptionRepository) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	return scanSubscription(r.pool.QueryRow(ctx, query, id))
}

// GetByProviderRef retrieves a subscription by the billing provider's
// subscription id.
func (r *PostgresSubscriptionRepository) GetByProviderRef(ctx context.Context, providerRef string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE provider_subscription_ref = $1`
	return scanSubscription(r.pool.QueryRow(ctx, query, providerRef))
}

// ListByTenantID retrieves all subscriptions, historical included, for a tenant.
func (r *PostgresSubscriptionRepository) ListByTenantID(ctx context.Context, tenantID string) ([]*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE tenant_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]*domain.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ListGraceExpired retrieves subscriptions still marked in_grace_period whose
// grace window elapsed at or before asOf.
func (r *PostgresSubscriptionRepository) ListGraceExpired(ctx context.Context, asOf time.Time, limit int) ([]*domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = 'in_grace_period' AND grace_period_ends_at IS NOT NULL AND grace_period_ends_at <= $1
		ORDER BY grace_period_ends_at
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]*domain.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Update persists a subscription guarded by its version. The write applies
// only when the stored version matches; a mismatch on an existing row means
// a concurrent update won.
func (r *PostgresSubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	query := `
		UPDATE subscriptions
		SET status = $3, current_period_start = $4, current_period_end = $5,
		    canceled_at = $6, cancel_at_period_end = $7, cancellation_requested_at = $8,
		    is_in_grace_period = $9, grace_period_ends_at = $10,
		    last_payment_failed_at = $11, payment_retry_count = $12,
		    first_payment_failure_at = $13, next_retry_at = $14,
		    has_reached_max_retries = $15,
		    version = version + 1, updated_at = $16, last_modified_by = $17
		WHERE id = $1 AND version = $2
	`
	result, err := r.pool.Exec(ctx, query,
		sub.ID,
		sub.Version,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CanceledAt,
		sub.CancelAtPeriodEnd,
		sub.CancellationRequestedAt,
		sub.IsInGracePeriod,
		sub.GracePeriodEndsAt,
		sub.LastPaymentFailedAt,
		sub.PaymentRetryCount,
		sub.FirstPaymentFailureAt,
		sub.NextRetryAt,
		sub.HasReachedMaxRetries,
		sub.UpdatedAt,
		sub.LastModifiedBy,
	)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM subscriptions WHERE id = $1)`, sub.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return domain.ErrConcurrencyConflict
		}
		return domain.ErrNotFound
	}
	sub.Version++
	return nil
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	sub := &domain.Subscription{}
	err := row.Scan(
		&sub.ID,
		&sub.PublicID,
		&sub.TenantID,
		&sub.PlanID,
		&sub.ProviderSubscriptionRef,
		&sub.Status,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.CanceledAt,
		&sub.CancelAtPeriodEnd,
		&sub.CancellationRequestedAt,
		&sub.IsInGracePeriod,
		&sub.GracePeriodEndsAt,
		&sub.LastPaymentFailedAt,
		&sub.PaymentRetryCount,
		&sub.FirstPaymentFailureAt,
		&sub.NextRetryAt,
		&sub.HasReachedMaxRetries,
		&sub.Version,
		&sub.CreatedAt,
		&sub.UpdatedAt,
		&sub.CreatedBy,
		&sub.LastModifiedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// PostgresBillingEventRepository implements BillingEventRepository using
// PostgreSQL; the unique event_ref column makes MarkProcessed race-safe.
type PostgresBillingEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBillingEventRepository creates a new
// PostgresBillingEventRepository.
func NewPostgresBillingEventRepository(pool *pgxpool.Pool) *PostgresBillingEventRepository {
	return &PostgresBillingEventRepository{pool: pool}
}

// MarkProcessed records the provider event reference. The insert is a no-op
// when the reference was already seen.
func (r *PostgresBillingEventRepository) MarkProcessed(ctx context.Context, eventRef string) (bool, error) {
	query := `
		INSERT INTO processed_billing_events (event_ref, processed_at)
		VALUES ($1, now())
		ON CONFLICT (event_ref) DO NOTHING
	`
	result, err := r.pool.Exec(ctx, query, eventRef)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// Unmark forgets an event reference after a failed state write, so the
// provider's redelivery gets applied instead of deduplicated.
func (r *PostgresBillingEventRepository) Unmark(ctx context.Context, eventRef string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM processed_billing_events WHERE event_ref = $1`, eventRef)
	return err
}
