package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bachat/bachat/internal/shared"
)

// Repository defines persistence operations for the action catalog.
type Repository interface {
	GetAll(ctx context.Context) ([]Action, error)
	GetByID(ctx context.Context, id uuid.UUID) (Action, error)
	GetByTriple(ctx context.Context, controller, action, method string) (Action, error)
	Insert(ctx context.Context, a Action) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const actionColumns = `id, controller_name, action_name, http_method, route, description, is_active, is_deleted, created_by, created_at, updated_at`

func scanAction(row pgx.Row) (Action, error) {
	var a Action
	err := row.Scan(&a.ID, &a.Controller, &a.Name, &a.Method, &a.Route, &a.Description, &a.IsActive, &a.IsDeleted, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// GetAll returns all non-deleted actions.
func (r *PGRepository) GetAll(ctx context.Context) ([]Action, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+actionColumns+` FROM actions WHERE NOT is_deleted ORDER BY controller_name, action_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var actions []Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// GetByID fetches an action by primary key, ignoring soft-deleted rows.
func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (Action, error) {
	a, err := scanAction(r.pool.QueryRow(ctx, `SELECT `+actionColumns+` FROM actions WHERE id = $1 AND NOT is_deleted`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Action{}, shared.ErrNotFound
	}
	return a, err
}

// GetByTriple fetches an action by its unique identity, ignoring soft-deleted rows.
func (r *PGRepository) GetByTriple(ctx context.Context, controller, action, method string) (Action, error) {
	a, err := scanAction(r.pool.QueryRow(ctx,
		`SELECT `+actionColumns+` FROM actions WHERE controller_name = $1 AND action_name = $2 AND http_method = $3 AND NOT is_deleted`,
		controller, action, method))
	if errors.Is(err, pgx.ErrNoRows) {
		return Action{}, shared.ErrNotFound
	}
	return a, err
}

// Insert persists a new action row.
func (r *PGRepository) Insert(ctx context.Context, a Action) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO actions (id, controller_name, action_name, http_method, route, description, is_active, is_deleted, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		a.ID, a.Controller, a.Name, a.Method, a.Route, a.Description, a.IsActive, a.IsDeleted, a.CreatedBy, time.Now().UTC())
	return err
}

// SetActive flips the active flag; used by sync to retire removed endpoints.
func (r *PGRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE actions SET is_active = $2, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
