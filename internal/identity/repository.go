package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bachat/bachat/internal/shared"
)

// UserRepository defines persistence operations for users and their role
// memberships.
type UserRepository interface {
	Insert(ctx context.Context, u User) error
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	List(ctx context.Context, page shared.Pagination) ([]User, error)
	Update(ctx context.Context, u User) error
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	AddRole(ctx context.Context, userID, roleID uuid.UUID) error
	RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error
	RolesForUser(ctx context.Context, userID uuid.UUID) ([]Role, error)
	UsersInRole(ctx context.Context, roleID uuid.UUID) ([]User, error)
}

// RoleRepository defines persistence operations for roles.
type RoleRepository interface {
	Insert(ctx context.Context, r Role) error
	GetByID(ctx context.Context, id uuid.UUID) (Role, error)
	GetByName(ctx context.Context, name string) (Role, error)
	List(ctx context.Context) ([]Role, error)
	Update(ctx context.Context, r Role) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// PGUserRepository implements UserRepository on PostgreSQL.
type PGUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a PostgreSQL user repository.
func NewUserRepository(pool *pgxpool.Pool) *PGUserRepository {
	return &PGUserRepository{pool: pool}
}

const userColumns = `id, username, email, display_name, password_hash, is_active, is_deleted, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.PasswordHash, &u.IsActive, &u.IsDeleted, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Insert persists a new user.
func (r *PGUserRepository) Insert(ctx context.Context, u User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, display_name, password_hash, is_active, is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		u.ID, u.Username, u.Email, u.DisplayName, u.PasswordHash, u.IsActive, u.IsDeleted, time.Now().UTC())
	return err
}

// GetByID fetches a non-deleted user by primary key.
func (r *PGUserRepository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND NOT is_deleted`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return u, err
}

// GetByUsername fetches a non-deleted user by its unique username.
func (r *PGUserRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 AND NOT is_deleted`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return u, err
}

// List returns a page of users ordered by username.
func (r *PGUserRepository) List(ctx context.Context, page shared.Pagination) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE NOT is_deleted ORDER BY username LIMIT $1 OFFSET $2`,
		page.PerPage, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update rewrites the mutable user fields.
func (r *PGUserRepository) Update(ctx context.Context, u User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email = $2, display_name = $3, is_active = $4, updated_at = NOW()
		 WHERE id = $1 AND NOT is_deleted`,
		u.ID, u.Email, u.DisplayName, u.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetPasswordHash replaces the stored credential hash.
func (r *PGUserRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SoftDelete marks the user deleted and inactive.
func (r *PGUserRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_deleted = TRUE, is_active = FALSE, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AddRole links a user to a role. Idempotent on the unique pair.
func (r *PGUserRepository) AddRole(ctx context.Context, userID, roleID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (id, user_id, role_id, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, role_id) DO NOTHING`,
		uuid.New(), userID, roleID, time.Now().UTC())
	return err
}

// RemoveRole unlinks a user from a role.
func (r *PGUserRepository) RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RolesForUser returns the user's current non-deleted roles.
func (r *PGUserRepository) RolesForUser(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, r.description, r.is_deleted, r.created_at, r.updated_at
		 FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1 AND NOT r.is_deleted ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// UsersInRole returns the non-deleted members of a role.
func (r *PGUserRepository) UsersInRole(ctx context.Context, roleID uuid.UUID) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.username, u.email, u.display_name, u.password_hash, u.is_active, u.is_deleted, u.created_at, u.updated_at
		 FROM users u JOIN user_roles ur ON ur.user_id = u.id
		 WHERE ur.role_id = $1 AND NOT u.is_deleted ORDER BY u.username`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// PGRoleRepository implements RoleRepository on PostgreSQL.
type PGRoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository constructs a PostgreSQL role repository.
func NewRoleRepository(pool *pgxpool.Pool) *PGRoleRepository {
	return &PGRoleRepository{pool: pool}
}

const roleColumns = `id, name, description, is_deleted, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsDeleted, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

// Insert persists a new role.
func (r *PGRoleRepository) Insert(ctx context.Context, role Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO roles (id, name, description, is_deleted, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
		role.ID, role.Name, role.Description, role.IsDeleted, time.Now().UTC())
	return err
}

// GetByID fetches a non-deleted role by primary key.
func (r *PGRoleRepository) GetByID(ctx context.Context, id uuid.UUID) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1 AND NOT is_deleted`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.ErrNotFound
	}
	return role, err
}

// GetByName fetches a non-deleted role by its unique name.
func (r *PGRoleRepository) GetByName(ctx context.Context, name string) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1 AND NOT is_deleted`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.ErrNotFound
	}
	return role, err
}

// List returns all non-deleted roles ordered by name.
func (r *PGRoleRepository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles WHERE NOT is_deleted ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Update rewrites the mutable role fields.
func (r *PGRoleRepository) Update(ctx context.Context, role Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET name = $2, description = $3, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`,
		role.ID, role.Name, role.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SoftDelete marks the role deleted.
func (r *PGRoleRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ UserRepository = (*PGUserRepository)(nil)
var _ RoleRepository = (*PGRoleRepository)(nil)
