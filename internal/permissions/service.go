package permissions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/bachat/bachat/internal/catalog"
	"github.com/bachat/bachat/internal/observability"
	"github.com/bachat/bachat/internal/shared"
)

// ActionStore is the slice of the catalog consumed during evaluation and
// DTO mapping.
type ActionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (catalog.Action, error)
	GetByTriple(ctx context.Context, controller, action, method string) (catalog.Action, error)
}

// RoleDirectory resolves a user's current role memberships from the
// identity collaborator.
type RoleDirectory interface {
	RolesForUser(ctx context.Context, userID uuid.UUID) ([]RoleRef, error)
}

// AuditRecorder persists grant/revoke audit entries. Best effort; failures
// are logged and never block the mutation.
type AuditRecorder interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// Service is the permission evaluation engine plus the grant/revoke
// mutation surface.
type Service struct {
	perms      Repository
	actions    ActionStore
	roleGrants RoleGrantRepository
	userGrants UserGrantRepository
	directory  RoleDirectory
	cache      *Cache
	audit      AuditRecorder
	logger     *slog.Logger
	metrics    *observability.Metrics
	group      singleflight.Group
	now        func() time.Time
}

// NewService constructs the evaluation engine.
func NewService(perms Repository, actions ActionStore, roleGrants RoleGrantRepository, userGrants UserGrantRepository, directory RoleDirectory, cache *Cache, audit AuditRecorder, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		perms:      perms,
		actions:    actions,
		roleGrants: roleGrants,
		userGrants: userGrants,
		directory:  directory,
		cache:      cache,
		audit:      audit,
		logger:     logger,
		metrics:    metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateForAction inserts the companion permission for a newly discovered
// action: named "{Controller}.{Action}", categorised by controller, and
// inactive until an administrator opts in. Implements catalog.PermissionSeeder.
func (s *Service) CreateForAction(ctx context.Context, action catalog.Action, description string) error {
	if _, err := s.perms.GetByActionID(ctx, action.ID); err == nil {
		// Pre-existing actions are not granted a second permission.
		return nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	p := Permission{
		ID:          uuid.New(),
		Name:        action.Controller + "." + action.Name,
		ActionID:    action.ID,
		Category:    action.Controller,
		Description: description,
		IsActive:    false,
		CreatedBy:   uuid.Nil,
	}
	if err := s.perms.Insert(ctx, p); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

// HasPermission reports whether the user holds the named permission.
// Unknown, soft-deleted and inactive permissions all resolve to false;
// evaluation errors are swallowed here so authorization always fails
// closed instead of surfacing store failures to callers.
func (s *Service) HasPermission(ctx context.Context, userID uuid.UUID, name string) bool {
	permission, err := s.perms.GetByName(ctx, name)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && s.logger != nil {
			s.logger.Error("permission lookup", slog.String("permission", name), slog.Any("error", err))
		}
		return false
	}
	if permission.IsDeleted || !permission.IsActive {
		return false
	}
	return s.hasPermissionID(ctx, userID, permission.ID)
}

// HasPermissionForAction is the route-shaped overload: it resolves the
// action triple, then the bound permission, and shares the ID-based core
// with HasPermission. Same fail-closed rules.
func (s *Service) HasPermissionForAction(ctx context.Context, userID uuid.UUID, controller, action, method string) bool {
	act, err := s.actions.GetByTriple(ctx, controller, action, method)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && s.logger != nil {
			s.logger.Error("action lookup", slog.String("controller", controller), slog.String("action", action), slog.Any("error", err))
		}
		return false
	}
	if act.IsDeleted || !act.IsActive {
		return false
	}
	permission, err := s.perms.GetByActionID(ctx, act.ID)
	if err != nil || permission.IsDeleted || !permission.IsActive {
		return false
	}
	return s.hasPermissionID(ctx, userID, permission.ID)
}

func (s *Service) hasPermissionID(ctx context.Context, userID, permissionID uuid.UUID) bool {
	ids, err := s.effectivePermissionIDs(ctx, userID)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("effective permission ids", slog.String("user_id", userID.String()), slog.Any("error", err))
		}
		return false
	}
	_, ok := ids[permissionID]
	return ok
}

// effectivePermissionIDs computes the union of permission IDs reachable via
// the user's roles' active grants and the user's own currently-effective
// grants. Results are cached per user; concurrent misses for the same user
// are collapsed through singleflight (a stampede would only duplicate work,
// never corrupt state).
func (s *Service) effectivePermissionIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	if set, hit, err := s.cache.GetIDSet(ctx, userID); err == nil && hit {
		s.metrics.PermCacheOp("hit")
		return set, nil
	} else if err != nil && s.logger != nil {
		s.logger.Warn("permission cache read", slog.Any("error", err))
	}
	s.metrics.PermCacheOp("miss")

	v, err, _ := s.group.Do("ids:"+userID.String(), func() (any, error) {
		set, err := s.computePermissionIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetIDSet(ctx, userID, set); err != nil && s.logger != nil {
			s.logger.Warn("permission cache write", slog.Any("error", err))
		}
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[uuid.UUID]struct{}), nil
}

func (s *Service) computePermissionIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	set := make(map[uuid.UUID]struct{})

	roles, err := s.directory.RolesForUser(ctx, userID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("permissions: roles for user: %w", err)
	}
	for _, role := range roles {
		grants, err := s.roleGrants.GetByRoleID(ctx, role.ID)
		if err != nil {
			return nil, fmt.Errorf("permissions: role grants: %w", err)
		}
		for _, g := range grants {
			if g.IsActive && !g.IsDeleted {
				set[g.PermissionID] = struct{}{}
			}
		}
	}

	grants, err := s.userGrants.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("permissions: user grants: %w", err)
	}
	now := s.now()
	for _, g := range grants {
		if g.EffectiveAt(now) {
			set[g.PermissionID] = struct{}{}
		}
	}
	return set, nil
}

// EffectiveReport resolves the user's full effective-permission report,
// partitioned into role-derived and direct permissions with a deduplicated
// union. Cached independently of the raw ID set; misses are collapsed
// through singleflight like the ID-set path.
func (s *Service) EffectiveReport(ctx context.Context, userID uuid.UUID) (EffectiveReport, error) {
	if report, hit, err := s.cache.GetReport(ctx, userID); err == nil && hit {
		s.metrics.PermCacheOp("hit")
		return *report, nil
	} else if err != nil && s.logger != nil {
		s.logger.Warn("permission cache read", slog.Any("error", err))
	}
	s.metrics.PermCacheOp("miss")

	v, err, _ := s.group.Do("report:"+userID.String(), func() (any, error) {
		report, err := s.computeReport(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetReport(ctx, userID, report); err != nil && s.logger != nil {
			s.logger.Warn("permission cache write", slog.Any("error", err))
		}
		return report, nil
	})
	if err != nil {
		return EffectiveReport{}, err
	}
	return v.(EffectiveReport), nil
}

func (s *Service) computeReport(ctx context.Context, userID uuid.UUID) (EffectiveReport, error) {
	roles, err := s.directory.RolesForUser(ctx, userID)
	if err != nil {
		return EffectiveReport{}, fmt.Errorf("permissions: roles for user: %w", err)
	}

	var rolePerms []Permission
	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, role.Name)
		grants, err := s.roleGrants.GetByRoleID(ctx, role.ID)
		if err != nil {
			return EffectiveReport{}, fmt.Errorf("permissions: role grants: %w", err)
		}
		for _, g := range grants {
			if !g.IsActive || g.IsDeleted {
				continue
			}
			p, err := s.perms.GetByID(ctx, g.PermissionID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					continue
				}
				return EffectiveReport{}, err
			}
			rolePerms = append(rolePerms, p)
		}
	}

	grants, err := s.userGrants.GetActiveByUserID(ctx, userID)
	if err != nil {
		return EffectiveReport{}, fmt.Errorf("permissions: user grants: %w", err)
	}
	var userPerms []Permission
	now := s.now()
	for _, g := range grants {
		if !g.EffectiveAt(now) {
			continue
		}
		p, err := s.perms.GetByID(ctx, g.PermissionID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return EffectiveReport{}, err
		}
		userPerms = append(userPerms, p)
	}

	// Dedup by permission ID, role-derived entries first.
	var all []Permission
	seen := make(map[uuid.UUID]struct{})
	for _, p := range append(append([]Permission{}, rolePerms...), userPerms...) {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		all = append(all, p)
	}

	return EffectiveReport{
		UserID:          userID,
		Roles:           roleNames,
		RolePermissions: s.mapToViews(ctx, rolePerms),
		UserPermissions: s.mapToViews(ctx, userPerms),
		AllPermissions:  s.mapToViews(ctx, all),
	}, nil
}

// ListPermissions returns all permissions joined with their actions,
// ordered by category then name for display.
func (s *Service) ListPermissions(ctx context.Context) ([]View, error) {
	perms, err := s.perms.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	views := s.mapToViews(ctx, perms)
	sortViews(views)
	return views, nil
}

// GetPermission fetches one permission by ID.
func (s *Service) GetPermission(ctx context.Context, id uuid.UUID) (View, error) {
	p, err := s.perms.GetByID(ctx, id)
	if err != nil {
		return View{}, err
	}
	views := s.mapToViews(ctx, []Permission{p})
	if len(views) == 0 {
		return View{}, shared.ErrNotFound
	}
	return views[0], nil
}

// PermissionsByCategory lists permissions in one category, display ordered.
func (s *Service) PermissionsByCategory(ctx context.Context, category string) ([]View, error) {
	perms, err := s.perms.GetByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	views := s.mapToViews(ctx, perms)
	sortViews(views)
	return views, nil
}

// SetPermissionActive activates or deactivates a permission.
func (s *Service) SetPermissionActive(ctx context.Context, id uuid.UUID, active bool, actor uuid.UUID) error {
	if err := s.perms.SetActive(ctx, id, active, actor); err != nil {
		return err
	}
	s.recordAudit(ctx, shared.AuditEntry{
		ActorID:      actor,
		Action:       shared.AuditActionUpdate,
		EntityType:   shared.AuditEntityPermission,
		PermissionID: &id,
		Details:      map[string]any{"is_active": active},
	})
	return nil
}

// RolePermissions lists the permissions currently granted to a role.
func (s *Service) RolePermissions(ctx context.Context, roleID uuid.UUID) ([]View, error) {
	grants, err := s.roleGrants.GetByRoleID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	var perms []Permission
	for _, g := range grants {
		if !g.IsActive || g.IsDeleted {
			continue
		}
		p, err := s.perms.GetByID(ctx, g.PermissionID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		perms = append(perms, p)
	}
	views := s.mapToViews(ctx, perms)
	sortViews(views)
	return views, nil
}

// UserPermissions lists the user's currently-effective direct grants.
func (s *Service) UserPermissions(ctx context.Context, userID uuid.UUID) ([]View, error) {
	grants, err := s.userGrants.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var perms []Permission
	now := s.now()
	for _, g := range grants {
		if !g.EffectiveAt(now) {
			continue
		}
		p, err := s.perms.GetByID(ctx, g.PermissionID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		perms = append(perms, p)
	}
	views := s.mapToViews(ctx, perms)
	sortViews(views)
	return views, nil
}

func (s *Service) mapToViews(ctx context.Context, perms []Permission) []View {
	views := make([]View, 0, len(perms))
	for _, p := range perms {
		action, err := s.actions.GetByID(ctx, p.ActionID)
		if err != nil {
			// A permission whose action vanished is unservable; skip it.
			continue
		}
		views = append(views, View{
			ID:          p.ID,
			Name:        p.Name,
			Category:    p.Category,
			Description: p.Description,
			ActionID:    p.ActionID,
			Controller:  action.Controller,
			Action:      action.Name,
			HTTPMethod:  action.Method,
			Route:       action.Route,
			IsActive:    p.IsActive,
		})
	}
	return views
}

func (s *Service) recordAudit(ctx context.Context, entry shared.AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil && s.logger != nil {
		s.logger.Warn("permission audit", slog.Any("error", err))
	}
}

func (s *Service) invalidateUser(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil && s.logger != nil {
		s.logger.Warn("permission cache invalidate", slog.String("user_id", userID.String()), slog.Any("error", err))
	}
	s.metrics.PermCacheOp("invalidate")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func sortViews(views []View) {
	cl := collate.New(language.English)
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Category != views[j].Category {
			return cl.CompareString(views[i].Category, views[j].Category) < 0
		}
		return cl.CompareString(views[i].Name, views[j].Name) < 0
	})
}
