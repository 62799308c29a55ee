package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// PostgresTenantRepository implements TenantRepository using PostgreSQL.
type PostgresTenantRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTenantRepository creates a new PostgresTenantRepository.
func NewPostgresTenantRepository(pool *pgxpool.Pool) *PostgresTenantRepository {
	return &PostgresTenantRepository{pool: pool}
}

const tenantColumns = `
	id, public_id, name, domain, contact_email, contact_phone, address,
	billing_customer_ref, settings, is_active, deactivated_at,
	created_at, updated_at, created_by, last_modified_by
`

// Create inserts a new tenant.
func (r *PostgresTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.pool.Exec(ctx, query,
		tenant.ID,
		tenant.PublicID,
		tenant.Name,
		nullStringOrValue(tenant.Domain),
		nullStringOrValue(tenant.ContactEmail),
		nullStringOrValue(tenant.ContactPhone),
		nullStringOrValue(tenant.Address),
		tenant.BillingCustomerRef,
		tenant.Settings,
		tenant.IsActive,
		tenant.DeactivatedAt,
		tenant.CreatedAt,
		tenant.UpdatedAt,
		tenant.CreatedBy,
		tenant.LastModifiedBy,
	)
	return mapPgError(err)
}

// GetByID retrieves a tenant by internal id.
func (r *PostgresTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.scanTenant(r.pool.QueryRow(ctx, query, id))
}

// GetByBillingCustomerRef retrieves a tenant by its billing provider customer id.
func (r *PostgresTenantRepository) GetByBillingCustomerRef(ctx context.Context, ref string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE billing_customer_ref = $1`
	return r.scanTenant(r.pool.QueryRow(ctx, query, ref))
}

// Update updates a tenant.
func (r *PostgresTenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $2, domain = $3, contact_email = $4, contact_phone = $5,
		    address = $6, settings = $7, is_active = $8, deactivated_at = $9,
		    updated_at = $10, last_modified_by = $11
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		tenant.ID,
		tenant.Name,
		nullStringOrValue(tenant.Domain),
		nullStringOrValue(tenant.ContactEmail),
		nullStringOrValue(tenant.ContactPhone),
		nullStringOrValue(tenant.Address),
		tenant.Settings,
		tenant.IsActive,
		tenant.DeactivatedAt,
		tenant.UpdatedAt,
		tenant.LastModifiedBy,
	)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the tenant. Tenant-owned rows (subscriptions, channel
// accounts, memberships, roles, invoices) go with it via ON DELETE CASCADE.
func (r *PostgresTenantRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresTenantRepository) scanTenant(row pgx.Row) (*domain.Tenant, error) {
	tenant := &domain.Tenant{}
	var domainName, contactEmail, contactPhone, address *string
	err := row.Scan(
		&tenant.ID,
		&tenant.PublicID,
		&tenant.Name,
		&domainName,
		&contactEmail,
		&contactPhone,
		&address,
		&tenant.BillingCustomerRef,
		&tenant.Settings,
		&tenant.IsActive,
		&tenant.DeactivatedAt,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
		&tenant.CreatedBy,
		&tenant.LastModifiedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	tenant.Domain = stringOrEmpty(domainName)
	tenant.ContactEmail = stringOrEmpty(contactEmail)
	tenant.ContactPhone = stringOrEmpty(contactPhone)
	tenant.Address = stringOrEmpty(address)
	return tenant, nil
}

// nullStringOrValue returns nil for empty strings, otherwise returns the value.
func nullStringOrValue(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
