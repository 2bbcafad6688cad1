package pools

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/bachat/bachat/internal/shared"
)

type memRepo struct {
	rows map[uuid.UUID]Pool
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[uuid.UUID]Pool{}}
}

func (m *memRepo) Insert(ctx context.Context, p Pool) error {
	for _, existing := range m.rows {
		if existing.TenantID == p.TenantID && existing.Code == p.Code && !existing.IsDeleted {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	m.rows[p.ID] = p
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Pool, error) {
	p, ok := m.rows[id]
	if !ok || p.TenantID != tenantID || p.IsDeleted {
		return Pool{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memRepo) List(ctx context.Context, tenantID uuid.UUID, search string, page shared.Pagination) ([]Pool, error) {
	var out []Pool
	for _, p := range m.rows {
		if p.TenantID != tenantID || p.IsDeleted {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) &&
			!strings.Contains(strings.ToLower(p.Code), strings.ToLower(search)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memRepo) Update(ctx context.Context, p Pool) error {
	existing, ok := m.rows[p.ID]
	if !ok || existing.IsDeleted {
		return shared.ErrNotFound
	}
	m.rows[p.ID] = p
	return nil
}

func (m *memRepo) SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error {
	p, ok := m.rows[id]
	if !ok || p.TenantID != tenantID || p.IsDeleted {
		return shared.ErrNotFound
	}
	p.IsDeleted = true
	m.rows[id] = p
	return nil
}

func TestCreatePoolNormalizesAndValidates(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	tenantID := uuid.New()
	actor := uuid.New()

	p, err := svc.CreatePool(ctx, actor, CreatePoolInput{TenantID: tenantID, Name: " Family Pool ", Code: " fam01 ", Timezone: "Asia/Karachi"})
	require.NoError(t, err)
	require.Equal(t, "Family Pool", p.Name)
	require.Equal(t, "FAM01", p.Code, "codes are upper-cased")
	require.Equal(t, actor, p.CreatedBy)

	_, err = svc.CreatePool(ctx, actor, CreatePoolInput{TenantID: tenantID, Name: "No Code"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreatePool(ctx, actor, CreatePoolInput{TenantID: tenantID, Name: "Bad TZ", Code: "TZ1", Timezone: "Mars/Olympus"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreatePoolCodeUniquePerTenant(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	tenantA := uuid.New()
	tenantB := uuid.New()
	actor := uuid.New()

	_, err := svc.CreatePool(ctx, actor, CreatePoolInput{TenantID: tenantA, Name: "First", Code: "FAM01"})
	require.NoError(t, err)

	_, err = svc.CreatePool(ctx, actor, CreatePoolInput{TenantID: tenantA, Name: "Second", Code: "fam01"})
	require.ErrorIs(t, err, shared.ErrConflict, "same code within the tenant conflicts")

	_, err = svc.CreatePool(ctx, actor, CreatePoolInput{TenantID: tenantB, Name: "Other Tenant", Code: "FAM01"})
	require.NoError(t, err, "the same code is fine in another tenant")
}

func TestListPoolsScopedAndSearched(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	tenantA := uuid.New()
	tenantB := uuid.New()
	actor := uuid.New()

	_, err := svc.CreatePool(ctx, actor, CreatePoolInput{TenantID: tenantA, Name: "Family Pool", Code: "FAM01"})
	require.NoError(t, err)
	_, err = svc.CreatePool(ctx, actor, CreatePoolInput{TenantID: tenantA, Name: "Office Pool", Code: "OFF01"})
	require.NoError(t, err)
	_, err = svc.CreatePool(ctx, actor, CreatePoolInput{TenantID: tenantB, Name: "Family Pool", Code: "FAM01"})
	require.NoError(t, err)

	all, err := svc.ListPools(ctx, tenantA, "", shared.Pagination{Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Len(t, all, 2, "other tenants' pools stay invisible")

	found, err := svc.ListPools(ctx, tenantA, "family", shared.Pagination{Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "FAM01", found[0].Code)
}

func TestDeletePoolScopedToTenant(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	tenantA := uuid.New()
	actor := uuid.New()

	p, err := svc.CreatePool(ctx, actor, CreatePoolInput{TenantID: tenantA, Name: "Family Pool", Code: "FAM01"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeletePool(ctx, uuid.New(), p.ID), shared.ErrNotFound, "wrong tenant cannot delete")
	require.NoError(t, svc.DeletePool(ctx, tenantA, p.ID))
	_, err = svc.GetPool(ctx, tenantA, p.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
