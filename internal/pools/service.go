package pools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bachat/bachat/internal/shared"
)

// CreatePoolInput carries the fields needed to open a pool.
type CreatePoolInput struct {
	TenantID uuid.UUID
	Name     string
	Code     string
	Timezone string
}

// UpdatePoolInput carries the mutable pool fields.
type UpdatePoolInput struct {
	Name     string
	Code     string
	Timezone string
}

// Service handles pool business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreatePool opens a pool. Codes are normalized to upper case and must be
// unique within the tenant; timezones must be valid IANA names.
func (s *Service) CreatePool(ctx context.Context, actor uuid.UUID, in CreatePoolInput) (Pool, error) {
	p := Pool{
		ID:        uuid.New(),
		TenantID:  in.TenantID,
		Name:      strings.TrimSpace(in.Name),
		Code:      strings.ToUpper(strings.TrimSpace(in.Code)),
		Timezone:  strings.TrimSpace(in.Timezone),
		CreatedBy: actor,
	}
	if p.Name == "" || p.Code == "" {
		return Pool{}, shared.ErrValidation
	}
	if err := validateTimezone(p.Timezone); err != nil {
		return Pool{}, err
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		if isUniqueViolation(err) {
			return Pool{}, shared.ErrConflict
		}
		return Pool{}, err
	}
	return p, nil
}

// GetPool fetches a tenant's pool by ID.
func (s *Service) GetPool(ctx context.Context, tenantID, id uuid.UUID) (Pool, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// ListPools returns a page of the tenant's pools.
func (s *Service) ListPools(ctx context.Context, tenantID uuid.UUID, search string, page shared.Pagination) ([]Pool, error) {
	return s.repo.List(ctx, tenantID, strings.TrimSpace(search), page)
}

// UpdatePool rewrites a pool's mutable fields.
func (s *Service) UpdatePool(ctx context.Context, tenantID, id uuid.UUID, in UpdatePoolInput) (Pool, error) {
	p, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return Pool{}, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	p.Timezone = strings.TrimSpace(in.Timezone)
	if p.Name == "" || p.Code == "" {
		return Pool{}, shared.ErrValidation
	}
	if err := validateTimezone(p.Timezone); err != nil {
		return Pool{}, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		if isUniqueViolation(err) {
			return Pool{}, shared.ErrConflict
		}
		return Pool{}, err
	}
	return p, nil
}

// DeletePool soft-deletes a pool.
func (s *Service) DeletePool(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, tenantID, id)
}

func validateTimezone(name string) error {
	if name == "" {
		return nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", shared.ErrValidation, name)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
