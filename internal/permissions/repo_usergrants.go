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

// PGUserGrantRepository implements UserGrantRepository on PostgreSQL.
type PGUserGrantRepository struct {
	pool *pgxpool.Pool
}

// NewUserGrantRepository constructs a PostgreSQL user grant repository.
func NewUserGrantRepository(pool *pgxpool.Pool) *PGUserGrantRepository {
	return &PGUserGrantRepository{pool: pool}
}

const userGrantColumns = `id, user_id, permission_id, expires_on, is_revoked, revoked_on, revoked_by, is_active, is_deleted, created_by, created_at, updated_at`

func scanUserGrant(row pgx.Row) (UserGrant, error) {
	var g UserGrant
	err := row.Scan(&g.ID, &g.UserID, &g.PermissionID, &g.ExpiresOn, &g.IsRevoked, &g.RevokedOn, &g.RevokedBy, &g.IsActive, &g.IsDeleted, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// GetByUserAndPermission fetches the owning row for a (user, permission)
// pair, including soft-deleted and revoked rows so assignment can restore
// them.
func (r *PGUserGrantRepository) GetByUserAndPermission(ctx context.Context, userID, permissionID uuid.UUID) (UserGrant, error) {
	g, err := scanUserGrant(r.pool.QueryRow(ctx,
		`SELECT `+userGrantColumns+` FROM user_permissions WHERE user_id = $1 AND permission_id = $2`, userID, permissionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return UserGrant{}, shared.ErrNotFound
	}
	return g, err
}

// GetActiveByUserID returns grants passing the flag filters. Expiry is
// evaluated in the service so clock handling stays in one place.
func (r *PGUserGrantRepository) GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]UserGrant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userGrantColumns+` FROM user_permissions
		 WHERE user_id = $1 AND is_active AND NOT is_deleted AND NOT is_revoked`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []UserGrant
	for rows.Next() {
		g, err := scanUserGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// Insert persists a new user grant.
func (r *PGUserGrantRepository) Insert(ctx context.Context, g UserGrant) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_permissions (id, user_id, permission_id, expires_on, is_revoked, revoked_on, revoked_by, is_active, is_deleted, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		g.ID, g.UserID, g.PermissionID, g.ExpiresOn, g.IsRevoked, g.RevokedOn, g.RevokedBy, g.IsActive, g.IsDeleted, g.CreatedBy, time.Now().UTC())
	return err
}

// Update rewrites a user grant row in place.
func (r *PGUserGrantRepository) Update(ctx context.Context, g UserGrant) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_permissions
		 SET expires_on = $2, is_revoked = $3, revoked_on = $4, revoked_by = $5,
		     is_active = $6, is_deleted = $7, created_by = $8, created_at = $9, updated_at = NOW()
		 WHERE id = $1`,
		g.ID, g.ExpiresOn, g.IsRevoked, g.RevokedOn, g.RevokedBy, g.IsActive, g.IsDeleted, g.CreatedBy, g.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ UserGrantRepository = (*PGUserGrantRepository)(nil)
