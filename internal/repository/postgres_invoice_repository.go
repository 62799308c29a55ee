package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// PostgresInvoiceRepository implements InvoiceRepository using PostgreSQL.
type PostgresInvoiceRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresInvoiceRepository creates a new PostgresInvoiceRepository.
func NewPostgresInvoiceRepository(pool *pgxpool.Pool) *PostgresInvoiceRepository {
	return &PostgresInvoiceRepository{pool: pool}
}

const invoiceColumns = `
	id, public_id, subscription_id, provider_invoice_ref, status, amount,
	currency, paid_at, created_at, updated_at, created_by, last_modified_by
`

// Create appends an invoice to the ledger.
func (r *PostgresInvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		invoice.ID,
		invoice.PublicID,
		invoice.SubscriptionID,
		invoice.ProviderInvoiceRef,
		invoice.Status,
		invoice.Amount,
		invoice.Currency,
		invoice.PaidAt,
		invoice.CreatedAt,
		invoice.UpdatedAt,
		invoice.CreatedBy,
		invoice.LastModifiedBy,
	)
	return mapPgError(err)
}

// GetByProviderRef retrieves an invoice by the billing provider's invoice id.
func (r *PostgresInvoiceRepository) GetByProviderRef(ctx context.Context, providerRef string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE provider_invoice_ref = $1`
	return scanInvoice(r.pool.QueryRow(ctx, query, providerRef))
}

// Update updates an invoice's status fields.
func (r *PostgresInvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	query := `
		UPDATE invoices
		SET status = $2, paid_at = $3, updated_at = $4, last_modified_by = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		invoice.ID,
		invoice.Status,
		invoice.PaidAt,
		invoice.UpdatedAt,
		invoice.LastModifiedBy,
	)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListBySubscription retrieves all invoices for a subscription, newest first.
func (r *PostgresInvoiceRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE subscription_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]*domain.Invoice, 0)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	invoice := &domain.Invoice{}
	err := row.Scan(
		&invoice.ID,
		&invoice.PublicID,
		&invoice.SubscriptionID,
		&invoice.ProviderInvoiceRef,
		&invoice.Status,
		&invoice.Amount,
		&invoice.Currency,
		&invoice.PaidAt,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
		&invoice.CreatedBy,
		&invoice.LastModifiedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return invoice, nil
}
