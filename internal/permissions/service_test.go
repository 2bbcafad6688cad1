package permissions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/bachat/bachat/internal/catalog"
	"github.com/bachat/bachat/internal/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePerms struct {
	rows map[uuid.UUID]Permission
	err  error
}

func (f *fakePerms) GetAll(ctx context.Context) ([]Permission, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Permission, 0, len(f.rows))
	for _, p := range f.rows {
		if !p.IsDeleted {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePerms) GetByID(ctx context.Context, id uuid.UUID) (Permission, error) {
	if f.err != nil {
		return Permission{}, f.err
	}
	p, ok := f.rows[id]
	if !ok || p.IsDeleted {
		return Permission{}, shared.ErrNotFound
	}
	return p, nil
}

func (f *fakePerms) GetByName(ctx context.Context, name string) (Permission, error) {
	if f.err != nil {
		return Permission{}, f.err
	}
	for _, p := range f.rows {
		if p.Name == name && !p.IsDeleted {
			return p, nil
		}
	}
	return Permission{}, shared.ErrNotFound
}

func (f *fakePerms) GetByCategory(ctx context.Context, category string) ([]Permission, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Permission
	for _, p := range f.rows {
		if p.Category == category && !p.IsDeleted {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePerms) GetByActionID(ctx context.Context, actionID uuid.UUID) (Permission, error) {
	if f.err != nil {
		return Permission{}, f.err
	}
	for _, p := range f.rows {
		if p.ActionID == actionID && !p.IsDeleted {
			return p, nil
		}
	}
	return Permission{}, shared.ErrNotFound
}

func (f *fakePerms) Insert(ctx context.Context, p Permission) error {
	if f.err != nil {
		return f.err
	}
	f.rows[p.ID] = p
	return nil
}

func (f *fakePerms) SetActive(ctx context.Context, id uuid.UUID, active bool, actor uuid.UUID) error {
	p, ok := f.rows[id]
	if !ok || p.IsDeleted {
		return shared.ErrNotFound
	}
	p.IsActive = active
	f.rows[id] = p
	return nil
}

type fakeRoleGrants struct {
	rows          map[uuid.UUID]RoleGrant
	failInsertFor uuid.UUID
	failInsertErr error
}

func (f *fakeRoleGrants) GetByRoleAndPermission(ctx context.Context, roleID, permissionID uuid.UUID) (RoleGrant, error) {
	for _, g := range f.rows {
		if g.RoleID == roleID && g.PermissionID == permissionID {
			return g, nil
		}
	}
	return RoleGrant{}, shared.ErrNotFound
}

func (f *fakeRoleGrants) GetByRoleID(ctx context.Context, roleID uuid.UUID) ([]RoleGrant, error) {
	var out []RoleGrant
	for _, g := range f.rows {
		if g.RoleID == roleID && !g.IsDeleted {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeRoleGrants) Insert(ctx context.Context, g RoleGrant) error {
	if g.PermissionID == f.failInsertFor && f.failInsertErr != nil {
		return f.failInsertErr
	}
	for _, existing := range f.rows {
		if existing.RoleID == g.RoleID && existing.PermissionID == g.PermissionID {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	f.rows[g.ID] = g
	return nil
}

func (f *fakeRoleGrants) Update(ctx context.Context, g RoleGrant) error {
	if _, ok := f.rows[g.ID]; !ok {
		return shared.ErrNotFound
	}
	f.rows[g.ID] = g
	return nil
}

type fakeUserGrants struct {
	rows          map[uuid.UUID]UserGrant
	failInsertFor uuid.UUID
	failInsertErr error
}

func (f *fakeUserGrants) GetByUserAndPermission(ctx context.Context, userID, permissionID uuid.UUID) (UserGrant, error) {
	for _, g := range f.rows {
		if g.UserID == userID && g.PermissionID == permissionID {
			return g, nil
		}
	}
	return UserGrant{}, shared.ErrNotFound
}

func (f *fakeUserGrants) GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]UserGrant, error) {
	var out []UserGrant
	for _, g := range f.rows {
		if g.UserID == userID && g.IsActive && !g.IsDeleted && !g.IsRevoked {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeUserGrants) Insert(ctx context.Context, g UserGrant) error {
	if g.PermissionID == f.failInsertFor {
		if f.failInsertErr != nil {
			return f.failInsertErr
		}
		return errors.New("connection refused")
	}
	for _, existing := range f.rows {
		if existing.UserID == g.UserID && existing.PermissionID == g.PermissionID {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	f.rows[g.ID] = g
	return nil
}

func (f *fakeUserGrants) Update(ctx context.Context, g UserGrant) error {
	if _, ok := f.rows[g.ID]; !ok {
		return shared.ErrNotFound
	}
	f.rows[g.ID] = g
	return nil
}

type fakeActions struct {
	rows map[uuid.UUID]catalog.Action
}

func (f *fakeActions) GetByID(ctx context.Context, id uuid.UUID) (catalog.Action, error) {
	a, ok := f.rows[id]
	if !ok {
		return catalog.Action{}, shared.ErrNotFound
	}
	return a, nil
}

func (f *fakeActions) GetByTriple(ctx context.Context, controller, action, method string) (catalog.Action, error) {
	for _, a := range f.rows {
		if a.Controller == controller && a.Name == action && a.Method == method && !a.IsDeleted {
			return a, nil
		}
	}
	return catalog.Action{}, shared.ErrNotFound
}

func (f *fakeActions) GetAll(ctx context.Context) ([]catalog.Action, error) {
	out := make([]catalog.Action, 0, len(f.rows))
	for _, a := range f.rows {
		if !a.IsDeleted {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeActions) Insert(ctx context.Context, a catalog.Action) error {
	f.rows[a.ID] = a
	return nil
}

func (f *fakeActions) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	a, ok := f.rows[id]
	if !ok || a.IsDeleted {
		return shared.ErrNotFound
	}
	a.IsActive = active
	f.rows[id] = a
	return nil
}

type fakeDirectory struct {
	roles map[uuid.UUID][]RoleRef
}

func (f *fakeDirectory) RolesForUser(ctx context.Context, userID uuid.UUID) ([]RoleRef, error) {
	return f.roles[userID], nil
}

type recordingAudit struct {
	entries []shared.AuditEntry
}

func (r *recordingAudit) Record(ctx context.Context, entry shared.AuditEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

type fixture struct {
	svc        *Service
	perms      *fakePerms
	actions    *fakeActions
	roleGrants *fakeRoleGrants
	userGrants *fakeUserGrants
	directory  *fakeDirectory
	audit      *recordingAudit
	redis      *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		perms:      &fakePerms{rows: map[uuid.UUID]Permission{}},
		actions:    &fakeActions{rows: map[uuid.UUID]catalog.Action{}},
		roleGrants: &fakeRoleGrants{rows: map[uuid.UUID]RoleGrant{}},
		userGrants: &fakeUserGrants{rows: map[uuid.UUID]UserGrant{}},
		directory:  &fakeDirectory{roles: map[uuid.UUID][]RoleRef{}},
		audit:      &recordingAudit{},
		redis:      mr,
	}
	f.svc = NewService(f.perms, f.actions, f.roleGrants, f.userGrants, f.directory,
		NewCache(client, DefaultCacheTTL), f.audit, testLogger(), nil)
	return f
}

func (f *fixture) addPermission(name, category string, active bool) Permission {
	action := catalog.Action{
		ID:         uuid.New(),
		Controller: category,
		Name:       name,
		Method:     "GET",
		Route:      "/api/v1/test",
		IsActive:   true,
	}
	f.actions.rows[action.ID] = action
	p := Permission{
		ID:       uuid.New(),
		Name:     category + "." + name,
		ActionID: action.ID,
		Category: category,
		IsActive: active,
	}
	f.perms.rows[p.ID] = p
	return p
}

func (f *fixture) grantToUser(userID uuid.UUID, p Permission, expiresOn *time.Time) UserGrant {
	g := UserGrant{
		ID:           uuid.New(),
		UserID:       userID,
		PermissionID: p.ID,
		ExpiresOn:    expiresOn,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	f.userGrants.rows[g.ID] = g
	return g
}

func (f *fixture) grantToRole(roleID uuid.UUID, p Permission) RoleGrant {
	g := RoleGrant{
		ID:           uuid.New(),
		RoleID:       roleID,
		PermissionID: p.ID,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	f.roleGrants.rows[g.ID] = g
	return g
}

func TestHasPermissionFailsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	require.False(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"), "unknown permission")

	p := f.addPermission("GetAll", "Pools", false)
	f.grantToUser(userID, p, nil)
	require.False(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"), "inactive permission")

	f.perms.err = errors.New("connection refused")
	require.False(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"), "store failure")
}

func TestHasPermissionGrantPaths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	roleID := uuid.New()

	direct := f.addPermission("Create", "Pools", true)
	viaRole := f.addPermission("GetAll", "Pools", true)
	f.grantToUser(userID, direct, nil)
	f.directory.roles[userID] = []RoleRef{{ID: roleID, Name: "Manager"}}
	f.grantToRole(roleID, viaRole)

	require.True(t, f.svc.HasPermission(ctx, userID, "Pools.Create"))
	require.True(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"))
	require.False(t, f.svc.HasPermission(ctx, uuid.New(), "Pools.Create"))
}

func TestUserGrantExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	p := f.addPermission("GetAll", "Pools", true)
	f.grantToUser(userID, p, &now)
	require.True(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"), "expiry equal to now is still valid")

	f.svc.now = func() time.Time { return now.Add(time.Second) }
	f.redis.FlushAll()
	require.False(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"), "past expiry denies")
}

func TestHasPermissionForAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	p := f.addPermission("GetAll", "Pools", true)
	f.grantToUser(userID, p, nil)

	require.True(t, f.svc.HasPermissionForAction(ctx, userID, "Pools", "GetAll", "GET"))
	require.False(t, f.svc.HasPermissionForAction(ctx, userID, "Pools", "GetAll", "POST"), "verb is part of the action identity")
	require.False(t, f.svc.HasPermissionForAction(ctx, userID, "Pools", "Delete", "DELETE"))
}

func TestAssignPermissionToUserStateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	actor := uuid.New()
	p := f.addPermission("GetAll", "Pools", true)

	require.NoError(t, f.svc.AssignPermissionToUser(ctx, userID, p.ID, actor, nil))
	require.Len(t, f.userGrants.rows, 1)

	// Revoke, then re-assign: the same row is restored, not duplicated.
	require.NoError(t, f.svc.RevokePermissionFromUser(ctx, userID, p.ID, actor))
	g, err := f.userGrants.GetByUserAndPermission(ctx, userID, p.ID)
	require.NoError(t, err)
	require.True(t, g.IsRevoked)
	require.False(t, g.IsActive)
	require.NotNil(t, g.RevokedOn)
	require.NotNil(t, g.RevokedBy)
	require.Equal(t, actor, *g.RevokedBy)

	require.NoError(t, f.svc.AssignPermissionToUser(ctx, userID, p.ID, actor, nil))
	require.Len(t, f.userGrants.rows, 1, "restore reuses the owning row")
	g, err = f.userGrants.GetByUserAndPermission(ctx, userID, p.ID)
	require.NoError(t, err)
	require.True(t, g.IsActive)
	require.False(t, g.IsRevoked)
	require.Nil(t, g.RevokedOn)
	require.Nil(t, g.RevokedBy)

	// Re-assigning a live grant only refreshes its expiry.
	expiry := time.Now().UTC().Add(24 * time.Hour)
	require.NoError(t, f.svc.AssignPermissionToUser(ctx, userID, p.ID, actor, &expiry))
	require.Len(t, f.userGrants.rows, 1)
	g, err = f.userGrants.GetByUserAndPermission(ctx, userID, p.ID)
	require.NoError(t, err)
	require.NotNil(t, g.ExpiresOn)
	require.True(t, g.ExpiresOn.Equal(expiry))
}

func TestAssignPermissionToUserRestoresDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	actor := uuid.New()
	p := f.addPermission("GetAll", "Pools", true)

	g := f.grantToUser(userID, p, nil)
	g.IsDeleted = true
	g.IsActive = false
	f.userGrants.rows[g.ID] = g

	require.NoError(t, f.svc.AssignPermissionToUser(ctx, userID, p.ID, actor, nil))
	require.Len(t, f.userGrants.rows, 1)
	restored := f.userGrants.rows[g.ID]
	require.False(t, restored.IsDeleted)
	require.True(t, restored.IsActive)
	require.Equal(t, actor, restored.CreatedBy)
}

func TestDirectMutationsInvalidateCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	actor := uuid.New()
	p := f.addPermission("GetAll", "Pools", true)
	f.grantToUser(userID, p, nil)

	require.True(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"))
	require.True(t, f.redis.Exists("perm:"+userID.String()), "evaluation primes the cache")

	require.NoError(t, f.svc.RevokePermissionFromUser(ctx, userID, p.ID, actor))
	require.False(t, f.redis.Exists("perm:"+userID.String()), "revoke drops the entry")
	require.False(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"), "denial takes effect immediately")
}

func TestRoleRevokeConvergesViaTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	roleID := uuid.New()
	actor := uuid.New()

	p := f.addPermission("GetAll", "Pools", true)
	f.directory.roles[userID] = []RoleRef{{ID: roleID, Name: "Manager"}}
	f.grantToRole(roleID, p)

	require.True(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"))

	// Role revocation does not fan out to member caches.
	require.NoError(t, f.svc.RevokePermissionFromRole(ctx, roleID, p.ID, actor))
	require.True(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"), "cached decision survives the role revoke")

	f.redis.FastForward(DefaultCacheTTL + time.Minute)
	require.False(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"), "entry expires and the revoke lands")
}

func TestAssignPermissionToRoleStateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roleID := uuid.New()
	actor := uuid.New()
	p := f.addPermission("GetAll", "Pools", true)

	require.NoError(t, f.svc.AssignPermissionToRole(ctx, roleID, p.ID, actor))
	require.Len(t, f.roleGrants.rows, 1)

	// Idempotent on an active grant.
	require.NoError(t, f.svc.AssignPermissionToRole(ctx, roleID, p.ID, actor))
	require.Len(t, f.roleGrants.rows, 1)

	require.NoError(t, f.svc.RevokePermissionFromRole(ctx, roleID, p.ID, actor))
	g, err := f.roleGrants.GetByRoleAndPermission(ctx, roleID, p.ID)
	require.NoError(t, err)
	require.False(t, g.IsActive)

	require.NoError(t, f.svc.AssignPermissionToRole(ctx, roleID, p.ID, actor))
	require.Len(t, f.roleGrants.rows, 1, "reactivation reuses the row")
	g, err = f.roleGrants.GetByRoleAndPermission(ctx, roleID, p.ID)
	require.NoError(t, err)
	require.True(t, g.IsActive)
}

func TestEffectiveReportUnion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	roleID := uuid.New()

	a := f.addPermission("GetAll", "Pools", true)
	b := f.addPermission("Create", "Pools", true)
	c := f.addPermission("GetAll", "Users", true)

	f.directory.roles[userID] = []RoleRef{{ID: roleID, Name: "Manager"}}
	f.grantToRole(roleID, a)
	f.grantToRole(roleID, b)
	f.grantToUser(userID, b, nil)
	f.grantToUser(userID, c, nil)

	report, err := f.svc.EffectiveReport(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, userID, report.UserID)
	require.Equal(t, []string{"Manager"}, report.Roles)
	require.Len(t, report.RolePermissions, 2)
	require.Len(t, report.UserPermissions, 2)
	require.Len(t, report.AllPermissions, 3, "shared permission appears once")

	seen := map[uuid.UUID]int{}
	for _, v := range report.AllPermissions {
		seen[v.ID]++
	}
	require.Equal(t, map[uuid.UUID]int{a.ID: 1, b.ID: 1, c.ID: 1}, seen)
}

func TestEffectiveReportCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	roleID := uuid.New()

	p := f.addPermission("GetAll", "Pools", true)
	f.directory.roles[userID] = []RoleRef{{ID: roleID, Name: "Manager"}}
	f.grantToRole(roleID, p)

	first, err := f.svc.EffectiveReport(ctx, userID)
	require.NoError(t, err)
	require.Len(t, first.AllPermissions, 1)

	// A new role grant is invisible until the cached report expires.
	f.grantToRole(roleID, f.addPermission("Create", "Pools", true))
	cached, err := f.svc.EffectiveReport(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cached.AllPermissions, 1)

	f.redis.FastForward(DefaultCacheTTL + time.Minute)
	fresh, err := f.svc.EffectiveReport(ctx, userID)
	require.NoError(t, err)
	require.Len(t, fresh.AllPermissions, 2)
}

func TestCreateForActionIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	action := catalog.Action{
		ID:         uuid.New(),
		Controller: "Pools",
		Name:       "GetAll",
		Method:     "GET",
		Route:      "/api/v1/pools",
		IsActive:   true,
	}
	f.actions.rows[action.ID] = action

	require.NoError(t, f.svc.CreateForAction(ctx, action, "auto-discovered"))
	require.Len(t, f.perms.rows, 1)

	created, err := f.perms.GetByActionID(ctx, action.ID)
	require.NoError(t, err)
	require.Equal(t, "Pools.GetAll", created.Name)
	require.Equal(t, "Pools", created.Category)
	require.False(t, created.IsActive, "discovered permissions start inactive")

	require.NoError(t, f.svc.CreateForAction(ctx, action, "auto-discovered"))
	require.Len(t, f.perms.rows, 1, "no second permission for the same action")
}

func TestListPermissionsOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addPermission("GetAll", "Users", true)
	f.addPermission("GetAll", "Pools", true)
	f.addPermission("Create", "Pools", true)

	views, err := f.svc.ListPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, views, 3)
	require.Equal(t, "Pools.Create", views[0].Name)
	require.Equal(t, "Pools.GetAll", views[1].Name)
	require.Equal(t, "Users.GetAll", views[2].Name)
}

func TestAssignBatchContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	actor := uuid.New()

	good := f.addPermission("GetAll", "Pools", true)
	broken := f.addPermission("Delete", "Pools", true)
	other := f.addPermission("Create", "Pools", true)
	f.userGrants.failInsertFor = broken.ID

	require.NoError(t, f.svc.AssignPermissionsToUser(ctx, userID, []uuid.UUID{good.ID, broken.ID, other.ID}, actor, nil))
	require.True(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"))
	require.True(t, f.svc.HasPermission(ctx, userID, "Pools.Create"), "grants after the failed item still land")
	require.False(t, f.svc.HasPermission(ctx, userID, "Pools.Delete"))
}

func TestAssignUnknownIDMapsToNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := uuid.New()
	missing := uuid.New()

	f.userGrants.failInsertFor = missing
	f.userGrants.failInsertErr = &pgconn.PgError{Code: "23503"}
	err := f.svc.AssignPermissionToUser(ctx, uuid.New(), missing, actor, nil)
	require.ErrorIs(t, err, shared.ErrNotFound, "dangling reference is the caller's mistake, not a server fault")

	f.roleGrants.failInsertFor = missing
	f.roleGrants.failInsertErr = &pgconn.PgError{Code: "23503"}
	err = f.svc.AssignPermissionToRole(ctx, uuid.New(), missing, actor)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEffectiveReportSurvivesCorruptCacheEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	roleID := uuid.New()

	p := f.addPermission("GetAll", "Pools", true)
	f.directory.roles[userID] = []RoleRef{{ID: roleID, Name: "Manager"}}
	f.grantToRole(roleID, p)

	require.NoError(t, f.redis.Set("effperm:"+userID.String(), "{not json"))

	report, err := f.svc.EffectiveReport(ctx, userID)
	require.NoError(t, err, "a bad cache entry falls back to recomputation")
	require.Len(t, report.AllPermissions, 1)
}

func TestDiscoveredPermissionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	actor := uuid.New()

	manifest := catalog.NewManifest()
	manifest.Add(catalog.Descriptor{Controller: "PoolsHandler", Action: "GetAll", Method: "get", Route: "/api/v1/pools"})
	discoverer := catalog.NewDiscoverer(manifest, f.actions, f.svc, testLogger())

	report, err := discoverer.DiscoverAndRegister(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Created)
	require.Empty(t, report.Errors)

	perm, err := f.perms.GetByName(ctx, "Pools.GetAll")
	require.NoError(t, err)
	require.False(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"), "discovered permissions deny until activated")

	require.NoError(t, f.svc.SetPermissionActive(ctx, perm.ID, true, actor))
	require.NoError(t, f.svc.AssignPermissionToUser(ctx, userID, perm.ID, actor, nil))
	require.True(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"))
	require.True(t, f.svc.HasPermissionForAction(ctx, userID, "Pools", "GetAll", "GET"))

	require.NoError(t, f.svc.RevokePermissionFromUser(ctx, userID, perm.ID, actor))
	require.False(t, f.svc.HasPermission(ctx, userID, "Pools.GetAll"), "revocation lands without waiting for the TTL")
}
