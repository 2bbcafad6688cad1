package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bachat/bachat/internal/shared"
)

type fakeActionRepo struct {
	rows      map[uuid.UUID]Action
	insertErr map[string]error
}

func newFakeActionRepo() *fakeActionRepo {
	return &fakeActionRepo{rows: map[uuid.UUID]Action{}, insertErr: map[string]error{}}
}

func (f *fakeActionRepo) GetAll(ctx context.Context) ([]Action, error) {
	out := make([]Action, 0, len(f.rows))
	for _, a := range f.rows {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeActionRepo) GetByID(ctx context.Context, id uuid.UUID) (Action, error) {
	a, ok := f.rows[id]
	if !ok {
		return Action{}, shared.ErrNotFound
	}
	return a, nil
}

func (f *fakeActionRepo) GetByTriple(ctx context.Context, controller, action, method string) (Action, error) {
	for _, a := range f.rows {
		if a.Controller == controller && a.Name == action && a.Method == method {
			return a, nil
		}
	}
	return Action{}, shared.ErrNotFound
}

func (f *fakeActionRepo) Insert(ctx context.Context, a Action) error {
	if err := f.insertErr[a.Controller+"."+a.Name+"."+a.Method]; err != nil {
		return err
	}
	f.rows[a.ID] = a
	return nil
}

func (f *fakeActionRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	a, ok := f.rows[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.IsActive = active
	f.rows[id] = a
	return nil
}

type fakeSeeder struct {
	created []Action
	err     error
}

func (f *fakeSeeder) CreateForAction(ctx context.Context, action Action, description string) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, action)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func poolsManifest() *Manifest {
	m := NewManifest()
	m.Add(
		Descriptor{Controller: "Pools", Action: "GetAll", Method: "GET", Route: "/api/v1/pools"},
		Descriptor{Controller: "Pools", Action: "Create", Method: "POST", Route: "/api/v1/pools"},
	)
	return m
}

func TestDiscoverAndRegisterIdempotent(t *testing.T) {
	repo := newFakeActionRepo()
	seeder := &fakeSeeder{}
	d := NewDiscoverer(poolsManifest(), repo, seeder, discardLogger())
	ctx := context.Background()

	report, err := d.DiscoverAndRegister(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.Discovered)
	require.Equal(t, 2, report.Created)
	require.Empty(t, report.Errors)
	require.Len(t, repo.rows, 2)
	require.Len(t, seeder.created, 2)

	for _, a := range repo.rows {
		require.True(t, a.IsActive, "discovered actions start active")
	}

	// Second run with an unchanged manifest creates nothing.
	report, err = d.DiscoverAndRegister(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.Discovered)
	require.Equal(t, 0, report.Created)
	require.Len(t, repo.rows, 2)
	require.Len(t, seeder.created, 2, "no permission re-seeded for known actions")
}

func TestDiscoverAndRegisterIsolatesFailures(t *testing.T) {
	repo := newFakeActionRepo()
	repo.insertErr["Pools.GetAll.GET"] = errors.New("insert failed")
	seeder := &fakeSeeder{}
	d := NewDiscoverer(poolsManifest(), repo, seeder, discardLogger())

	report, err := d.DiscoverAndRegister(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Created, "other descriptors register despite the failure")
	require.Len(t, report.Errors, 1)
	require.Equal(t, "GetAll", report.Errors[0].Action)
}

func TestSyncDeactivatesRemovedActions(t *testing.T) {
	repo := newFakeActionRepo()
	stale := Action{
		ID:         uuid.New(),
		Controller: "Reports",
		Name:       "Export",
		Method:     "GET",
		IsActive:   true,
	}
	repo.rows[stale.ID] = stale

	d := NewDiscoverer(poolsManifest(), repo, &fakeSeeder{}, discardLogger())
	report, err := d.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Created)
	require.Equal(t, 1, report.Deactivated)

	got, err := repo.GetByID(context.Background(), stale.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive, "removed endpoint is deactivated, not deleted")
	require.Len(t, repo.rows, 3, "the row survives for audit")
}

func TestSyncLeavesInactiveRowsAlone(t *testing.T) {
	repo := newFakeActionRepo()
	dormant := Action{
		ID:         uuid.New(),
		Controller: "Reports",
		Name:       "Export",
		Method:     "GET",
		IsActive:   false,
	}
	repo.rows[dormant.ID] = dormant

	d := NewDiscoverer(poolsManifest(), repo, &fakeSeeder{}, discardLogger())
	report, err := d.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.Deactivated)
}

func TestDiscoverAndRegisterStopsOnCancel(t *testing.T) {
	repo := newFakeActionRepo()
	d := NewDiscoverer(poolsManifest(), repo, &fakeSeeder{}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.DiscoverAndRegister(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, repo.rows)
}

func TestSeederFailureReportedPerItem(t *testing.T) {
	repo := newFakeActionRepo()
	seeder := &fakeSeeder{err: errors.New("permission store down")}
	d := NewDiscoverer(poolsManifest(), repo, seeder, discardLogger())

	report, err := d.DiscoverAndRegister(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Errors, 2)
	require.Len(t, repo.rows, 2, "actions persist even when seeding fails")
}
