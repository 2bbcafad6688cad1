package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bachat/bachat/internal/auth"
	"github.com/bachat/bachat/internal/catalog"
	"github.com/bachat/bachat/internal/identity"
	"github.com/bachat/bachat/internal/observability"
	"github.com/bachat/bachat/internal/permissions"
	"github.com/bachat/bachat/internal/pools"
	"github.com/bachat/bachat/jobs"
)

// RouterParams groups dependencies for building the HTTP router. Manifest
// is the route table shared with the discovery engine; mounting fills it so
// the catalog always mirrors what is actually served.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Tokens             *auth.TokenIssuer
	Manifest           *catalog.Manifest
	AuthHandler        *auth.Handler
	UsersHandler       *identity.UsersHandler
	RolesHandler       *identity.RolesHandler
	PoolsHandler       *pools.Handler
	PermissionsHandler *permissions.Handler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router and contributes every handler's
// descriptors to the shared route manifest.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(auth.Bearer(params.Tokens))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/roles", params.RolesHandler.MountRoutes)
		r.Route("/pools", params.PoolsHandler.MountRoutes)
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	PopulateManifest(params)

	return r
}

// PopulateManifest contributes every handler's descriptors to the shared
// route manifest. The worker uses it directly since it reconciles the
// catalog without mounting routes.
func PopulateManifest(params RouterParams) {
	params.Manifest.Add(params.AuthHandler.Descriptors()...)
	params.Manifest.Add(params.UsersHandler.Descriptors()...)
	params.Manifest.Add(params.RolesHandler.Descriptors()...)
	params.Manifest.Add(params.PoolsHandler.Descriptors()...)
	params.Manifest.Add(params.PermissionsHandler.Descriptors()...)
	params.Manifest.Add(params.JobsHandler.Descriptors()...)
}
