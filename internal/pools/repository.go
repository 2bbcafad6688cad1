package pools

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bachat/bachat/internal/shared"
)

// Repository defines persistence operations for pools.
type Repository interface {
	Insert(ctx context.Context, p Pool) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (Pool, error)
	List(ctx context.Context, tenantID uuid.UUID, search string, page shared.Pagination) ([]Pool, error)
	Update(ctx context.Context, p Pool) error
	SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const poolColumns = `id, tenant_id, name, code, timezone, is_deleted, created_by, created_at, updated_at`

func scanPool(row pgx.Row) (Pool, error) {
	var p Pool
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Code, &p.Timezone, &p.IsDeleted, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Insert persists a new pool.
func (r *PGRepository) Insert(ctx context.Context, p Pool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO pools (id, tenant_id, name, code, timezone, is_deleted, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		p.ID, p.TenantID, p.Name, p.Code, p.Timezone, p.IsDeleted, p.CreatedBy, time.Now().UTC())
	return err
}

// GetByID fetches a pool scoped to its tenant.
func (r *PGRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Pool, error) {
	p, err := scanPool(r.pool.QueryRow(ctx,
		`SELECT `+poolColumns+` FROM pools WHERE tenant_id = $1 AND id = $2 AND NOT is_deleted`, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Pool{}, shared.ErrNotFound
	}
	return p, err
}

// List returns a page of the tenant's pools, optionally filtered by a
// case-insensitive name/code search.
func (r *PGRepository) List(ctx context.Context, tenantID uuid.UUID, search string, page shared.Pagination) ([]Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE tenant_id = $1 AND NOT is_deleted`
	args := []any{tenantID}
	if search != "" {
		query += ` AND (name ILIKE $2 OR code ILIKE $2)`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update rewrites the mutable pool fields.
func (r *PGRepository) Update(ctx context.Context, p Pool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE pools SET name = $3, code = $4, timezone = $5, updated_at = NOW()
		 WHERE tenant_id = $1 AND id = $2 AND NOT is_deleted`,
		p.TenantID, p.ID, p.Name, p.Code, p.Timezone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SoftDelete marks a pool deleted.
func (r *PGRepository) SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE pools SET is_deleted = TRUE, updated_at = NOW() WHERE tenant_id = $1 AND id = $2 AND NOT is_deleted`,
		tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
