package pools

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bachat/bachat/internal/catalog"
	"github.com/bachat/bachat/internal/permissions"
	"github.com/bachat/bachat/internal/platform/httpx"
	"github.com/bachat/bachat/internal/shared"
)

// Handler manages pool endpoints. The tenant scope comes from the
// X-Tenant-ID header on every request.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	gate     permissions.Gate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate permissions.Gate) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), gate: gate}
}

// MountRoutes registers pool routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.gate.Require("Pools.GetAll")).Get("/", h.listPools)
	r.With(h.gate.Require("Pools.Create")).Post("/", h.createPool)
	r.With(h.gate.Require("Pools.GetByID")).Get("/{id}", h.getPool)
	r.With(h.gate.Require("Pools.Update")).Put("/{id}", h.updatePool)
	r.With(h.gate.Require("Pools.Delete")).Delete("/{id}", h.deletePool)
}

// Descriptors contributes the pool endpoints to the route manifest.
func (h *Handler) Descriptors() []catalog.Descriptor {
	const controller = "Pools"
	return []catalog.Descriptor{
		{Controller: controller, Action: "GetAll", Method: http.MethodGet, Route: "/api/v1/pools"},
		{Controller: controller, Action: "Create", Method: http.MethodPost, Route: "/api/v1/pools"},
		{Controller: controller, Action: "GetByID", Method: http.MethodGet, Route: "/api/v1/pools/{id}"},
		{Controller: controller, Action: "Update", Method: http.MethodPut, Route: "/api/v1/pools/{id}"},
		{Controller: controller, Action: "Delete", Method: http.MethodDelete, Route: "/api/v1/pools/{id}"},
	}
}

type poolRequest struct {
	Name     string `json:"name" validate:"required,max=128"`
	Code     string `json:"code" validate:"required,max=32"`
	Timezone string `json:"timezone" validate:"omitempty,max=64"`
}

func (h *Handler) listPools(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	page := shared.PageParams(r.URL.Query())
	pools, err := h.service.ListPools(r.Context(), tenantID, r.URL.Query().Get("q"), page)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pools)
}

func (h *Handler) createPool(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	var req poolRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	p, err := h.service.CreatePool(r.Context(), actor.UserID, CreatePoolInput{
		TenantID: tenantID,
		Name:     req.Name,
		Code:     req.Code,
		Timezone: req.Timezone,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) getPool(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid pool id")
		return
	}
	p, err := h.service.GetPool(r.Context(), tenantID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) updatePool(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid pool id")
		return
	}
	var req poolRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.UpdatePool(r.Context(), tenantID, id, UpdatePoolInput{
		Name:     req.Name,
		Code:     req.Code,
		Timezone: req.Timezone,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) deletePool(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid pool id")
		return
	}
	if err := h.service.DeletePool(r.Context(), tenantID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func tenantFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, err := uuid.Parse(r.Header.Get("X-Tenant-ID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing or invalid X-Tenant-ID header")
		return uuid.Nil, false
	}
	return tenantID, true
}
