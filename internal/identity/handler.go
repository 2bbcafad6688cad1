package identity

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

// UsersHandler manages user management endpoints.
type UsersHandler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	gate     permissions.Gate
}

// NewUsersHandler builds UsersHandler instance.
func NewUsersHandler(logger *slog.Logger, service *Service, gate permissions.Gate) *UsersHandler {
	return &UsersHandler{logger: logger, service: service, validate: validator.New(), gate: gate}
}

// MountRoutes registers user routes.
func (h *UsersHandler) MountRoutes(r chi.Router) {
	r.With(h.gate.Require("Users.GetAll")).Get("/", h.listUsers)
	r.With(h.gate.Require("Users.Create")).Post("/", h.createUser)
	r.With(h.gate.Require("Users.GetByID")).Get("/{id}", h.getUser)
	r.With(h.gate.Require("Users.Update")).Put("/{id}", h.updateUser)
	r.With(h.gate.Require("Users.Delete")).Delete("/{id}", h.deleteUser)
	r.With(h.gate.Require("Users.GetRoles")).Get("/{id}/roles", h.userRoles)
	r.With(h.gate.Require("Users.AssignRole")).Post("/{id}/roles/{roleID}", h.assignRole)
	r.With(h.gate.Require("Users.RemoveRole")).Delete("/{id}/roles/{roleID}", h.removeRole)
}

// Descriptors contributes the user endpoints to the route manifest.
func (h *UsersHandler) Descriptors() []catalog.Descriptor {
	const controller = "Users"
	return []catalog.Descriptor{
		{Controller: controller, Action: "GetAll", Method: http.MethodGet, Route: "/api/v1/users"},
		{Controller: controller, Action: "Create", Method: http.MethodPost, Route: "/api/v1/users"},
		{Controller: controller, Action: "GetByID", Method: http.MethodGet, Route: "/api/v1/users/{id}"},
		{Controller: controller, Action: "Update", Method: http.MethodPut, Route: "/api/v1/users/{id}"},
		{Controller: controller, Action: "Delete", Method: http.MethodDelete, Route: "/api/v1/users/{id}"},
		{Controller: controller, Action: "GetRoles", Method: http.MethodGet, Route: "/api/v1/users/{id}/roles"},
		{Controller: controller, Action: "AssignRole", Method: http.MethodPost, Route: "/api/v1/users/{id}/roles/{roleID}"},
		{Controller: controller, Action: "RemoveRole", Method: http.MethodDelete, Route: "/api/v1/users/{id}/roles/{roleID}"},
	}
}

type createUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,max=128"`
	Password    string `json:"password" validate:"required,min=8"`
}

type updateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,max=128"`
	IsActive    bool   `json:"is_active"`
}

func (h *UsersHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	page := shared.PageParams(r.URL.Query())
	users, err := h.service.ListUsers(r.Context(), page)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *UsersHandler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.service.CreateUser(r.Context(), CreateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *UsersHandler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invalid user id")
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *UsersHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invalid user id")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.service.UpdateUser(r.Context(), id, UpdateUserInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		IsActive:    req.IsActive,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *UsersHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invalid user id")
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) userRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invalid user id")
	if !ok {
		return
	}
	roles, err := h.service.UserRoles(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *UsersHandler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r, "id", "invalid user id")
	if !ok {
		return
	}
	roleID, ok := parseID(w, r, "roleID", "invalid role id")
	if !ok {
		return
	}
	if err := h.service.AssignRoleToUser(r.Context(), userID, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) removeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r, "id", "invalid user id")
	if !ok {
		return
	}
	roleID, ok := parseID(w, r, "roleID", "invalid role id")
	if !ok {
		return
	}
	if err := h.service.RemoveRoleFromUser(r.Context(), userID, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RolesHandler manages role management endpoints.
type RolesHandler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	gate     permissions.Gate
}

// NewRolesHandler builds RolesHandler instance.
func NewRolesHandler(logger *slog.Logger, service *Service, gate permissions.Gate) *RolesHandler {
	return &RolesHandler{logger: logger, service: service, validate: validator.New(), gate: gate}
}

// MountRoutes registers role routes.
func (h *RolesHandler) MountRoutes(r chi.Router) {
	r.With(h.gate.Require("Roles.GetAll")).Get("/", h.listRoles)
	r.With(h.gate.Require("Roles.Create")).Post("/", h.createRole)
	r.With(h.gate.Require("Roles.GetByID")).Get("/{id}", h.getRole)
	r.With(h.gate.Require("Roles.Update")).Put("/{id}", h.updateRole)
	r.With(h.gate.Require("Roles.Delete")).Delete("/{id}", h.deleteRole)
	r.With(h.gate.Require("Roles.GetUsers")).Get("/{id}/users", h.usersInRole)
}

// Descriptors contributes the role endpoints to the route manifest.
func (h *RolesHandler) Descriptors() []catalog.Descriptor {
	const controller = "Roles"
	return []catalog.Descriptor{
		{Controller: controller, Action: "GetAll", Method: http.MethodGet, Route: "/api/v1/roles"},
		{Controller: controller, Action: "Create", Method: http.MethodPost, Route: "/api/v1/roles"},
		{Controller: controller, Action: "GetByID", Method: http.MethodGet, Route: "/api/v1/roles/{id}"},
		{Controller: controller, Action: "Update", Method: http.MethodPut, Route: "/api/v1/roles/{id}"},
		{Controller: controller, Action: "Delete", Method: http.MethodDelete, Route: "/api/v1/roles/{id}"},
		{Controller: controller, Action: "GetUsers", Method: http.MethodGet, Route: "/api/v1/roles/{id}/users"},
	}
}

type roleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	Description string `json:"description" validate:"max=256"`
}

func (h *RolesHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *RolesHandler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *RolesHandler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invalid role id")
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *RolesHandler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invalid role id")
	if !ok {
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *RolesHandler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invalid role id")
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RolesHandler) usersInRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invalid role id")
	if !ok {
		return
	}
	users, err := h.service.UsersInRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func parseID(w http.ResponseWriter, r *http.Request, param, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", message)
		return uuid.Nil, false
	}
	return id, true
}
