package permissions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bachat/bachat/internal/shared"
)

// Repository defines persistence operations for permissions.
type Repository interface {
	GetAll(ctx context.Context) ([]Permission, error)
	GetByID(ctx context.Context, id uuid.UUID) (Permission, error)
	GetByName(ctx context.Context, name string) (Permission, error)
	GetByCategory(ctx context.Context, category string) ([]Permission, error)
	GetByActionID(ctx context.Context, actionID uuid.UUID) (Permission, error)
	Insert(ctx context.Context, p Permission) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, actor uuid.UUID) error
}

// RoleGrantRepository defines persistence operations for role grants.
// Lookup by pair includes soft-deleted rows so assignment can restore them
// instead of violating the unique constraint.
type RoleGrantRepository interface {
	GetByRoleAndPermission(ctx context.Context, roleID, permissionID uuid.UUID) (RoleGrant, error)
	GetByRoleID(ctx context.Context, roleID uuid.UUID) ([]RoleGrant, error)
	Insert(ctx context.Context, g RoleGrant) error
	Update(ctx context.Context, g RoleGrant) error
}

// UserGrantRepository defines persistence operations for user grants.
type UserGrantRepository interface {
	GetByUserAndPermission(ctx context.Context, userID, permissionID uuid.UUID) (UserGrant, error)
	GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]UserGrant, error)
	Insert(ctx context.Context, g UserGrant) error
	Update(ctx context.Context, g UserGrant) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL permission repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const permissionColumns = `id, name, action_id, category, description, is_active, is_deleted, created_by, created_at, updated_at`

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Name, &p.ActionID, &p.Category, &p.Description, &p.IsActive, &p.IsDeleted, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PGRepository) queryPermissions(ctx context.Context, query string, args ...any) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// GetAll returns all non-deleted permissions.
func (r *PGRepository) GetAll(ctx context.Context) ([]Permission, error) {
	return r.queryPermissions(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE NOT is_deleted`)
}

// GetByID fetches a permission by primary key.
func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (Permission, error) {
	p, err := scanPermission(r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1 AND NOT is_deleted`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, shared.ErrNotFound
	}
	return p, err
}

// GetByName fetches a permission by its unique name.
func (r *PGRepository) GetByName(ctx context.Context, name string) (Permission, error) {
	p, err := scanPermission(r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE name = $1 AND NOT is_deleted`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, shared.ErrNotFound
	}
	return p, err
}

// GetByCategory returns non-deleted permissions in a category.
func (r *PGRepository) GetByCategory(ctx context.Context, category string) ([]Permission, error) {
	return r.queryPermissions(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE category = $1 AND NOT is_deleted`, category)
}

// GetByActionID fetches the permission bound to an action.
func (r *PGRepository) GetByActionID(ctx context.Context, actionID uuid.UUID) (Permission, error) {
	p, err := scanPermission(r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE action_id = $1 AND NOT is_deleted`, actionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, shared.ErrNotFound
	}
	return p, err
}

// Insert persists a new permission row.
func (r *PGRepository) Insert(ctx context.Context, p Permission) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO permissions (id, name, action_id, category, description, is_active, is_deleted, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		p.ID, p.Name, p.ActionID, p.Category, p.Description, p.IsActive, p.IsDeleted, p.CreatedBy, time.Now().UTC())
	return err
}

// SetActive flips the permission active flag.
func (r *PGRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, actor uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE permissions SET is_active = $2, modified_by = $3, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`,
		id, active, actor)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// PGRoleGrantRepository implements RoleGrantRepository on PostgreSQL.
type PGRoleGrantRepository struct {
	pool *pgxpool.Pool
}

// NewRoleGrantRepository constructs a PostgreSQL role grant repository.
func NewRoleGrantRepository(pool *pgxpool.Pool) *PGRoleGrantRepository {
	return &PGRoleGrantRepository{pool: pool}
}

const roleGrantColumns = `id, role_id, permission_id, is_active, is_deleted, created_by, created_at, updated_at`

func scanRoleGrant(row pgx.Row) (RoleGrant, error) {
	var g RoleGrant
	err := row.Scan(&g.ID, &g.RoleID, &g.PermissionID, &g.IsActive, &g.IsDeleted, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// GetByRoleAndPermission fetches the owning row for a (role, permission)
// pair, including soft-deleted rows.
func (r *PGRoleGrantRepository) GetByRoleAndPermission(ctx context.Context, roleID, permissionID uuid.UUID) (RoleGrant, error) {
	g, err := scanRoleGrant(r.pool.QueryRow(ctx,
		`SELECT `+roleGrantColumns+` FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return RoleGrant{}, shared.ErrNotFound
	}
	return g, err
}

// GetByRoleID returns non-deleted grants for a role.
func (r *PGRoleGrantRepository) GetByRoleID(ctx context.Context, roleID uuid.UUID) ([]RoleGrant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleGrantColumns+` FROM role_permissions WHERE role_id = $1 AND NOT is_deleted`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []RoleGrant
	for rows.Next() {
		g, err := scanRoleGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// Insert persists a new role grant.
func (r *PGRoleGrantRepository) Insert(ctx context.Context, g RoleGrant) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_permissions (id, role_id, permission_id, is_active, is_deleted, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		g.ID, g.RoleID, g.PermissionID, g.IsActive, g.IsDeleted, g.CreatedBy, time.Now().UTC())
	return err
}

// Update rewrites a role grant row in place.
func (r *PGRoleGrantRepository) Update(ctx context.Context, g RoleGrant) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE role_permissions SET is_active = $2, is_deleted = $3, created_by = $4, created_at = $5, updated_at = NOW() WHERE id = $1`,
		g.ID, g.IsActive, g.IsDeleted, g.CreatedBy, g.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
var _ RoleGrantRepository = (*PGRoleGrantRepository)(nil)
