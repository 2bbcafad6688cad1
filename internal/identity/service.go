package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/bachat/bachat/internal/permissions"
	"github.com/bachat/bachat/internal/shared"
)

// CreateUserInput carries the fields needed to open an account.
type CreateUserInput struct {
	Username    string
	Email       string
	DisplayName string
	Password    string
}

// UpdateUserInput carries the mutable profile fields.
type UpdateUserInput struct {
	Email       string
	DisplayName string
	IsActive    bool
}

// Service handles user and role business logic. It doubles as the role
// directory consumed by the permission evaluation engine.
type Service struct {
	users UserRepository
	roles RoleRepository
}

// NewService builds Service instance.
func NewService(users UserRepository, roles RoleRepository) *Service {
	return &Service{users: users, roles: roles}
}

// CreateUser opens an account with a bcrypt-hashed credential. A taken
// username or email surfaces as a conflict.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("identity: hash password: %w", err)
	}
	u := User{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		DisplayName:  strings.TrimSpace(in.DisplayName),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		if isUniqueViolation(err) {
			return User{}, shared.ErrConflict
		}
		return User{}, err
	}
	return u, nil
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return s.users.GetByID(ctx, id)
}

// GetUserByUsername fetches a user by username.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.users.GetByUsername(ctx, strings.TrimSpace(username))
}

// UsernameAvailable reports whether no account currently uses the username.
func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	_, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, shared.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// ListUsers returns a page of users.
func (s *Service) ListUsers(ctx context.Context, page shared.Pagination) ([]User, error) {
	return s.users.List(ctx, page)
}

// UpdateUser rewrites a user's profile fields.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) (User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.Email = strings.TrimSpace(in.Email)
	u.DisplayName = strings.TrimSpace(in.DisplayName)
	u.IsActive = in.IsActive
	if err := s.users.Update(ctx, u); err != nil {
		if isUniqueViolation(err) {
			return User{}, shared.ErrConflict
		}
		return User{}, err
	}
	return u, nil
}

// SetPassword replaces a user's credential.
func (s *Service) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("identity: hash password: %w", err)
	}
	return s.users.SetPasswordHash(ctx, id, string(hash))
}

// DeleteUser soft-deletes a user account.
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.users.SoftDelete(ctx, id)
}

// AssignRoleToUser links a user to a role after both exist.
func (s *Service) AssignRoleToUser(ctx context.Context, userID, roleID uuid.UUID) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return err
	}
	return s.users.AddRole(ctx, userID, roleID)
}

// RemoveRoleFromUser unlinks a user from a role.
func (s *Service) RemoveRoleFromUser(ctx context.Context, userID, roleID uuid.UUID) error {
	return s.users.RemoveRole(ctx, userID, roleID)
}

// UserRoles returns the user's current roles.
func (s *Service) UserRoles(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	return s.users.RolesForUser(ctx, userID)
}

// UsersInRole returns the members of a role.
func (s *Service) UsersInRole(ctx context.Context, roleID uuid.UUID) ([]User, error) {
	return s.users.UsersInRole(ctx, roleID)
}

// CreateRole registers a role with a unique name.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	role := Role{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
	if role.Name == "" {
		return Role{}, shared.ErrValidation
	}
	if err := s.roles.Insert(ctx, role); err != nil {
		if isUniqueViolation(err) {
			return Role{}, shared.ErrConflict
		}
		return Role{}, err
	}
	return role, nil
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	return s.roles.GetByID(ctx, id)
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.roles.List(ctx)
}

// UpdateRole rewrites a role's name and description.
func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, name, description string) (Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return Role{}, err
	}
	role.Name = strings.TrimSpace(name)
	role.Description = strings.TrimSpace(description)
	if role.Name == "" {
		return Role{}, shared.ErrValidation
	}
	if err := s.roles.Update(ctx, role); err != nil {
		if isUniqueViolation(err) {
			return Role{}, shared.ErrConflict
		}
		return Role{}, err
	}
	return role, nil
}

// DeleteRole soft-deletes a role. Memberships stay behind but stop
// contributing permissions because the role no longer resolves.
func (s *Service) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return s.roles.SoftDelete(ctx, id)
}

// RolesForUser implements the evaluation engine's role directory contract.
func (s *Service) RolesForUser(ctx context.Context, userID uuid.UUID) ([]permissions.RoleRef, error) {
	roles, err := s.users.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	refs := make([]permissions.RoleRef, 0, len(roles))
	for _, r := range roles {
		refs = append(refs, permissions.RoleRef{ID: r.ID, Name: r.Name})
	}
	return refs, nil
}

// FindRole resolves a role addressed either by UUID or by name.
func (s *Service) FindRole(ctx context.Context, idOrName string) (permissions.RoleRef, error) {
	var role Role
	var err error
	if id, parseErr := uuid.Parse(idOrName); parseErr == nil {
		role, err = s.roles.GetByID(ctx, id)
	} else {
		role, err = s.roles.GetByName(ctx, idOrName)
	}
	if err != nil {
		return permissions.RoleRef{}, err
	}
	return permissions.RoleRef{ID: role.ID, Name: role.Name}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
