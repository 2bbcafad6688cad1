package permissions

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/bachat/bachat/internal/observability"
	"github.com/bachat/bachat/internal/shared"
)

// Gate wires authorization enforcement for HTTP handlers. Identity comes
// from the request context set by the auth middleware; a missing identity
// and a missing permission produce the same 403 so callers cannot probe
// which permissions exist.
type Gate struct {
	Service *Service
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Require ensures the caller holds the named permission.
func (g Gate) Require(permission string) func(http.Handler) http.Handler {
	permission = strings.TrimSpace(permission)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if permission == "" {
				next.ServeHTTP(w, r)
				return
			}
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				g.deny(w, permission)
				return
			}
			if !g.Service.HasPermission(r.Context(), identity.UserID, permission) {
				g.deny(w, permission)
				return
			}
			g.Metrics.AuthzDecision(permission, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the caller holds at least one of the permissions.
func (g Gate) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		if p = strings.TrimSpace(p); p != "" {
			normalized = append(normalized, p)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				g.deny(w, strings.Join(normalized, ","))
				return
			}
			for _, p := range normalized {
				if g.Service.HasPermission(r.Context(), identity.UserID, p) {
					g.Metrics.AuthzDecision(p, "allow")
					next.ServeHTTP(w, r)
					return
				}
			}
			g.deny(w, strings.Join(normalized, ","))
		})
	}
}

// RequireAction guards a route by its catalog identity instead of a
// permission name; the HTTP verb comes from the request itself.
func (g Gate) RequireAction(controller, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				g.deny(w, controller+"."+action)
				return
			}
			if !g.Service.HasPermissionForAction(r.Context(), identity.UserID, controller, action, r.Method) {
				g.deny(w, controller+"."+action)
				return
			}
			g.Metrics.AuthzDecision(controller+"."+action, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

func (g Gate) deny(w http.ResponseWriter, permission string) {
	g.Metrics.AuthzDecision(permission, "deny")
	g.forbid(w)
}

func (g Gate) forbid(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}
