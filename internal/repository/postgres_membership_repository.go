package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// PostgresMembershipRepository implements MembershipRepository using
// PostgreSQL. Membership uniqueness rides on the unique (tenant_id,
// account_id) index; active-grant uniqueness on a partial unique index over
// non-revoked rows.
type PostgresMembershipRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresMembershipRepository creates a new PostgresMembershipRepository.
func NewPostgresMembershipRepository(pool *pgxpool.Pool) *PostgresMembershipRepository {
	return &PostgresMembershipRepository{pool: pool}
}

const memberColumns = `
	id, public_id, tenant_id, account_id, membership_status, joined_at,
	left_at, invited_by, entity_status, suspended_at, resumed_at, deleted_at,
	deleted_by, created_at, updated_at, created_by, last_modified_by
`

// CreateMember inserts a membership row.
func (r *PostgresMembershipRepository) CreateMember(ctx context.Context, member *domain.TenantUser) error {
	query := `
		INSERT INTO tenant_users (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.pool.Exec(ctx, query,
		member.ID,
		member.PublicID,
		member.TenantID,
		member.AccountID,
		member.MembershipStatus,
		member.JoinedAt,
		member.LeftAt,
		member.InvitedBy,
		member.Lifecycle.Status,
		member.Lifecycle.SuspendedAt,
		member.Lifecycle.ResumedAt,
		member.Lifecycle.DeletedAt,
		member.Lifecycle.DeletedBy,
		member.CreatedAt,
		member.UpdatedAt,
		member.CreatedBy,
		member.LastModifiedBy,
	)
	return mapPgError(err)
}

// CreateMemberWithQuota re-checks the user cap inside a serializable
// transaction before inserting or reviving the row. Serialization failures
// surface as domain.ErrConcurrencyConflict via mapPgError.
func (r *PostgresMembershipRepository) CreateMemberWithQuota(ctx context.Context, member *domain.TenantUser, maxUsers int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	countQuery := `
		SELECT COUNT(*) FROM tenant_users
		WHERE tenant_id = $1 AND id != $2
		  AND membership_status != 'left' AND entity_status != 'deleted'
	`
	var active int
	if err := tx.QueryRow(ctx, countQuery, member.TenantID, member.ID).Scan(&active); err != nil {
		return mapPgError(err)
	}
	if active >= maxUsers {
		return domain.ErrQuotaExceeded
	}

	upsertQuery := `
		INSERT INTO tenant_users (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			membership_status = EXCLUDED.membership_status,
			joined_at = EXCLUDED.joined_at,
			left_at = EXCLUDED.left_at,
			invited_by = EXCLUDED.invited_by,
			entity_status = EXCLUDED.entity_status,
			suspended_at = EXCLUDED.suspended_at,
			resumed_at = EXCLUDED.resumed_at,
			deleted_at = EXCLUDED.deleted_at,
			deleted_by = EXCLUDED.deleted_by,
			updated_at = EXCLUDED.updated_at,
			last_modified_by = EXCLUDED.last_modified_by
	`
	_, err = tx.Exec(ctx, upsertQuery,
		member.ID,
		member.PublicID,
		member.TenantID,
		member.AccountID,
		member.MembershipStatus,
		member.JoinedAt,
		member.LeftAt,
		member.InvitedBy,
		member.Lifecycle.Status,
		member.Lifecycle.SuspendedAt,
		member.Lifecycle.ResumedAt,
		member.Lifecycle.DeletedAt,
		member.Lifecycle.DeletedBy,
		member.CreatedAt,
		member.UpdatedAt,
		member.CreatedBy,
		member.LastModifiedBy,
	)
	if err != nil {
		return mapPgError(err)
	}
	return mapPgError(tx.Commit(ctx))
}

// GetMemberByID retrieves a membership by internal id.
func (r *PostgresMembershipRepository) GetMemberByID(ctx context.Context, id string) (*domain.TenantUser, error) {
	query := `SELECT ` + memberColumns + ` FROM tenant_users WHERE id = $1`
	return scanMember(r.pool.QueryRow(ctx, query, id))
}

// GetMember retrieves the membership for a (tenant, account) pair.
func (r *PostgresMembershipRepository) GetMember(ctx context.Context, tenantID, accountID string) (*domain.TenantUser, error) {
	query := `SELECT ` + memberColumns + ` FROM tenant_users WHERE tenant_id = $1 AND account_id = $2`
	return scanMember(r.pool.QueryRow(ctx, query, tenantID, accountID))
}

// UpdateMember persists membership status and lifecycle changes.
func (r *PostgresMembershipRepository) UpdateMember(ctx context.Context, member *domain.TenantUser) error {
	query := `
		UPDATE tenant_users
		SET membership_status = $2, joined_at = $3, left_at = $4, invited_by = $5,
		    entity_status = $6, suspended_at = $7, resumed_at = $8, deleted_at = $9,
		    deleted_by = $10, updated_at = $11, last_modified_by = $12
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		member.ID,
		member.MembershipStatus,
		member.JoinedAt,
		member.LeftAt,
		member.InvitedBy,
		member.Lifecycle.Status,
		member.Lifecycle.SuspendedAt,
		member.Lifecycle.ResumedAt,
		member.Lifecycle.DeletedAt,
		member.Lifecycle.DeletedBy,
		member.UpdatedAt,
		member.LastModifiedBy,
	)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountActiveMembers counts non-terminal, non-deleted memberships.
func (r *PostgresMembershipRepository) CountActiveMembers(ctx context.Context, tenantID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM tenant_users
		WHERE tenant_id = $1 AND membership_status != 'left' AND entity_status != 'deleted'
	`
	var count int
	err := r.pool.QueryRow(ctx, query, tenantID).Scan(&count)
	return count, err
}

const roleColumns = `
	id, public_id, tenant_user_id, role_name, assigned_at, revoked_at,
	assigned_by, created_at, updated_at, created_by, last_modified_by
`

// CreateRole inserts a role grant.
func (r *PostgresMembershipRepository) CreateRole(ctx context.Context, role *domain.TenantUserRole) error {
	query := `
		INSERT INTO tenant_user_roles (` + roleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		role.ID,
		role.PublicID,
		role.TenantUserID,
		role.RoleName,
		role.AssignedAt,
		role.RevokedAt,
		role.AssignedBy,
		role.CreatedAt,
		role.UpdatedAt,
		role.CreatedBy,
		role.LastModifiedBy,
	)
	return mapPgError(err)
}

// GetRoleByID retrieves a role grant by internal id.
func (r *PostgresMembershipRepository) GetRoleByID(ctx context.Context, id string) (*domain.TenantUserRole, error) {
	query := `SELECT ` + roleColumns + ` FROM tenant_user_roles WHERE id = $1`
	return scanRole(r.pool.QueryRow(ctx, query, id))
}

// GetActiveRole retrieves the non-revoked grant of a role name on a membership.
func (r *PostgresMembershipRepository) GetActiveRole(ctx context.Context, tenantUserID, roleName string) (*domain.TenantUserRole, error) {
	query := `
		SELECT ` + roleColumns + ` FROM tenant_user_roles
		WHERE tenant_user_id = $1 AND role_name = $2 AND revoked_at IS NULL
	`
	return scanRole(r.pool.QueryRow(ctx, query, tenantUserID, roleName))
}

// UpdateRole persists revocation changes.
func (r *PostgresMembershipRepository) UpdateRole(ctx context.Context, role *domain.TenantUserRole) error {
	query := `
		UPDATE tenant_user_roles
		SET revoked_at = $2, updated_at = $3, last_modified_by = $4
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		role.ID,
		role.RevokedAt,
		role.UpdatedAt,
		role.LastModifiedBy,
	)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRoles retrieves all grants, revoked included, for a membership.
func (r *PostgresMembershipRepository) ListRoles(ctx context.Context, tenantUserID string) ([]*domain.TenantUserRole, error) {
	query := `SELECT ` + roleColumns + ` FROM tenant_user_roles WHERE tenant_user_id = $1 ORDER BY assigned_at`
	rows, err := r.pool.Query(ctx, query, tenantUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]*domain.TenantUserRole, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func scanMember(row pgx.Row) (*domain.TenantUser, error) {
	member := &domain.TenantUser{}
	err := row.Scan(
		&member.ID,
		&member.PublicID,
		&member.TenantID,
		&member.AccountID,
		&member.MembershipStatus,
		&member.JoinedAt,
		&member.LeftAt,
		&member.InvitedBy,
		&member.Lifecycle.Status,
		&member.Lifecycle.SuspendedAt,
		&member.Lifecycle.ResumedAt,
		&member.Lifecycle.DeletedAt,
		&member.Lifecycle.DeletedBy,
		&member.CreatedAt,
		&member.UpdatedAt,
		&member.CreatedBy,
		&member.LastModifiedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return member, nil
}

func scanRole(row pgx.Row) (*domain.TenantUserRole, error) {
	role := &domain.TenantUserRole{}
	err := row.Scan(
		&role.ID,
		&role.PublicID,
		&role.TenantUserID,
		&role.RoleName,
		&role.AssignedAt,
		&role.RevokedAt,
		&role.AssignedBy,
		&role.CreatedAt,
		&role.UpdatedAt,
		&role.CreatedBy,
		&role.LastModifiedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return role, nil
}
