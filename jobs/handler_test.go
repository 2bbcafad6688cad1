package jobs

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/bachat/bachat/internal/catalog"
)

type stubGuard struct {
	allow    bool
	required string
}

func (g *stubGuard) Require(permission string) func(http.Handler) http.Handler {
	g.required = permission
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.allow {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newTestRouter(guard Guard) chi.Router {
	h := NewHandler(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), guard)
	r := chi.NewRouter()
	r.Route("/api/v1/jobs", h.MountRoutes)
	return r
}

func TestHealthWithoutInspector(t *testing.T) {
	r := newTestRouter(&stubGuard{allow: true})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}

func TestHealthIsGated(t *testing.T) {
	guard := &stubGuard{allow: false}
	r := newTestRouter(guard)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/health", nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "Jobs.Health", guard.required)
}

func TestHandlerDescriptors(t *testing.T) {
	h := NewHandler(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), &stubGuard{allow: true})

	m := catalog.NewManifest()
	m.Add(h.Descriptors()...)

	descs := m.Descriptors()
	require.Len(t, descs, 1)
	require.Equal(t, "Jobs", descs[0].Controller)
	require.Equal(t, "Health", descs[0].Action)
	require.Equal(t, http.MethodGet, descs[0].Method)
}
