package permissions

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bachat/bachat/internal/catalog"
	"github.com/bachat/bachat/internal/platform/httpx"
	"github.com/bachat/bachat/internal/shared"
)

// RoleResolver resolves a role by ID or name, in that order, matching how
// administrative callers address roles.
type RoleResolver interface {
	FindRole(ctx context.Context, idOrName string) (RoleRef, error)
}

// Handler exposes the administrative permission surface.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	discoverer *catalog.Discoverer
	roles      RoleResolver
	validate   *validator.Validate
	gate       Gate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, discoverer *catalog.Discoverer, roles RoleResolver, gate Gate) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		discoverer: discoverer,
		roles:      roles,
		validate:   validator.New(),
		gate:       gate,
	}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.gate.Require("Permissions.GetAll")).Get("/", h.getAll)
	r.With(h.gate.Require("Permissions.GetByID")).Get("/{id}", h.getByID)
	r.With(h.gate.Require("Permissions.GetByCategory")).Get("/category/{category}", h.getByCategory)
	r.With(h.gate.Require("Permissions.Sync")).Post("/sync", h.sync)
	r.With(h.gate.Require("Permissions.Activate")).Put("/{id}/active", h.setActive)

	r.With(h.gate.Require("Permissions.AssignToRole")).Post("/roles/{roleID}", h.assignToRole)
	r.With(h.gate.Require("Permissions.RevokeFromRole")).Delete("/roles/{roleID}/{permissionID}", h.revokeFromRole)
	r.With(h.gate.Require("Permissions.GetRolePermissions")).Get("/roles/{roleID}", h.rolePermissions)

	r.With(h.gate.Require("Permissions.AssignToUser")).Post("/users/{userID}", h.assignToUser)
	r.With(h.gate.Require("Permissions.RevokeFromUser")).Delete("/users/{userID}/{permissionID}", h.revokeFromUser)
	r.With(h.gate.Require("Permissions.GetUserPermissions")).Get("/users/{userID}", h.userPermissions)
	r.With(h.gate.Require("Permissions.GetUserEffectivePermissions")).Get("/users/{userID}/effective", h.userEffectivePermissions)
}

// Descriptors contributes this handler's endpoints to the route manifest.
func (h *Handler) Descriptors() []catalog.Descriptor {
	const controller = "Permissions"
	return []catalog.Descriptor{
		{Controller: controller, Action: "GetAll", Method: http.MethodGet, Route: "/api/v1/permissions"},
		{Controller: controller, Action: "GetByID", Method: http.MethodGet, Route: "/api/v1/permissions/{id}"},
		{Controller: controller, Action: "GetByCategory", Method: http.MethodGet, Route: "/api/v1/permissions/category/{category}"},
		{Controller: controller, Action: "Sync", Method: http.MethodPost, Route: "/api/v1/permissions/sync"},
		{Controller: controller, Action: "Activate", Method: http.MethodPut, Route: "/api/v1/permissions/{id}/active"},
		{Controller: controller, Action: "AssignToRole", Method: http.MethodPost, Route: "/api/v1/permissions/roles/{roleID}"},
		{Controller: controller, Action: "RevokeFromRole", Method: http.MethodDelete, Route: "/api/v1/permissions/roles/{roleID}/{permissionID}"},
		{Controller: controller, Action: "GetRolePermissions", Method: http.MethodGet, Route: "/api/v1/permissions/roles/{roleID}"},
		{Controller: controller, Action: "AssignToUser", Method: http.MethodPost, Route: "/api/v1/permissions/users/{userID}"},
		{Controller: controller, Action: "RevokeFromUser", Method: http.MethodDelete, Route: "/api/v1/permissions/users/{userID}/{permissionID}"},
		{Controller: controller, Action: "GetUserPermissions", Method: http.MethodGet, Route: "/api/v1/permissions/users/{userID}"},
		{Controller: controller, Action: "GetUserEffectivePermissions", Method: http.MethodGet, Route: "/api/v1/permissions/users/{userID}/effective"},
	}
}

type assignRequest struct {
	PermissionIDs []uuid.UUID `json:"permission_ids" validate:"required,min=1"`
	ExpiresOn     *time.Time  `json:"expires_on,omitempty"`
}

type setActiveRequest struct {
	IsActive bool `json:"is_active"`
}

func (h *Handler) getAll(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListPermissions(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) getByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid permission id")
		return
	}
	view, err := h.service.GetPermission(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) getByCategory(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.PermissionsByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	report, err := h.discoverer.Sync(r.Context())
	if err != nil {
		h.logger.Error("manual action sync", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid permission id")
		return
	}
	var req setActiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.SetPermissionActive(r.Context(), id, req.IsActive, actor.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) assignToRole(w http.ResponseWriter, r *http.Request) {
	role, ok := h.resolveRole(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeAssign(w, r)
	if !ok {
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.AssignPermissionsToRole(r.Context(), role.ID, req.PermissionIDs, actor.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assigned": len(req.PermissionIDs)})
}

func (h *Handler) revokeFromRole(w http.ResponseWriter, r *http.Request) {
	role, ok := h.resolveRole(w, r)
	if !ok {
		return
	}
	permissionID, err := uuid.Parse(chi.URLParam(r, "permissionID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid permission id")
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.RevokePermissionFromRole(r.Context(), role.ID, permissionID, actor.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	role, ok := h.resolveRole(w, r)
	if !ok {
		return
	}
	views, err := h.service.RolePermissions(r.Context(), role.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) assignToUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	req, ok := h.decodeAssign(w, r)
	if !ok {
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.AssignPermissionsToUser(r.Context(), userID, req.PermissionIDs, actor.UserID, req.ExpiresOn); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assigned": len(req.PermissionIDs)})
}

func (h *Handler) revokeFromUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	permissionID, err := uuid.Parse(chi.URLParam(r, "permissionID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid permission id")
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.RevokePermissionFromUser(r.Context(), userID, permissionID, actor.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userPermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	views, err := h.service.UserPermissions(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) userEffectivePermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	report, err := h.service.EffectiveReport(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) resolveRole(w http.ResponseWriter, r *http.Request) (RoleRef, bool) {
	role, err := h.roles.FindRole(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
		} else {
			httpx.RespondError(w, err)
		}
		return RoleRef{}, false
	}
	return role, true
}

func (h *Handler) decodeAssign(w http.ResponseWriter, r *http.Request) (assignRequest, bool) {
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
}
