package permissions

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bachat/bachat/internal/shared"
)

// AssignPermissionToRole grants a permission to a role. Exactly one row
// owns each (role, permission) pair: a deleted row is restored, an inactive
// row reactivated, an active row left alone. A racing insert losing to the
// unique constraint is retried as an update.
func (s *Service) AssignPermissionToRole(ctx context.Context, roleID, permissionID, grantedBy uuid.UUID) error {
	existing, err := s.roleGrants.GetByRoleAndPermission(ctx, roleID, permissionID)
	switch {
	case err == nil:
		if err := s.restoreRoleGrant(ctx, existing, grantedBy); err != nil {
			return err
		}
	case errors.Is(err, shared.ErrNotFound):
		grant := RoleGrant{
			ID:           uuid.New(),
			RoleID:       roleID,
			PermissionID: permissionID,
			IsActive:     true,
			CreatedBy:    grantedBy,
			CreatedAt:    s.now(),
		}
		if err := s.roleGrants.Insert(ctx, grant); err != nil {
			if isForeignKeyViolation(err) {
				// Unknown role or permission ID.
				return shared.ErrNotFound
			}
			if !isUniqueViolation(err) {
				return err
			}
			// Lost a race with a concurrent grant; the row exists now.
			existing, err = s.roleGrants.GetByRoleAndPermission(ctx, roleID, permissionID)
			if err != nil {
				return err
			}
			if err := s.restoreRoleGrant(ctx, existing, grantedBy); err != nil {
				return err
			}
		}
	default:
		return err
	}

	s.recordAudit(ctx, shared.AuditEntry{
		ActorID:      grantedBy,
		Action:       shared.AuditActionGrant,
		EntityType:   shared.AuditEntityRolePermission,
		RoleID:       &roleID,
		PermissionID: &permissionID,
	})
	return nil
}

func (s *Service) restoreRoleGrant(ctx context.Context, existing RoleGrant, grantedBy uuid.UUID) error {
	if existing.IsDeleted {
		existing.IsDeleted = false
		existing.IsActive = true
		existing.CreatedBy = grantedBy
		existing.CreatedAt = s.now()
		return s.roleGrants.Update(ctx, existing)
	}
	if existing.IsActive {
		return nil
	}
	existing.IsActive = true
	return s.roleGrants.Update(ctx, existing)
}

// RevokePermissionFromRole deactivates a role grant. The row is kept so a
// later re-grant reuses it.
func (s *Service) RevokePermissionFromRole(ctx context.Context, roleID, permissionID, revokedBy uuid.UUID) error {
	grant, err := s.roleGrants.GetByRoleAndPermission(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	if grant.IsDeleted {
		return shared.ErrNotFound
	}
	grant.IsActive = false
	if err := s.roleGrants.Update(ctx, grant); err != nil {
		return err
	}
	s.recordAudit(ctx, shared.AuditEntry{
		ActorID:      revokedBy,
		Action:       shared.AuditActionRevoke,
		EntityType:   shared.AuditEntityRolePermission,
		RoleID:       &roleID,
		PermissionID: &permissionID,
	})
	// No cache fan-out to role members: their entries converge within the
	// cache TTL. See DESIGN.md on the staleness trade-off.
	return nil
}

// AssignPermissionsToRole grants several permissions in sequence. Each
// grant commits independently; a failure mid-batch leaves earlier grants in
// place and is logged rather than surfaced per item.
func (s *Service) AssignPermissionsToRole(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID, grantedBy uuid.UUID) error {
	for _, id := range permissionIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.AssignPermissionToRole(ctx, roleID, id, grantedBy); err != nil && s.logger != nil {
			s.logger.Error("assign permission to role",
				slog.String("role_id", roleID.String()),
				slog.String("permission_id", id.String()),
				slog.Any("error", err))
		}
	}
	return nil
}

// AssignPermissionToUser grants a permission directly to a user, optionally
// time-limited. The single owning row per (user, permission) pair moves
// through the deleted/revoked/inactive/active states; an active grant only
// has its expiry refreshed.
func (s *Service) AssignPermissionToUser(ctx context.Context, userID, permissionID, grantedBy uuid.UUID, expiresOn *time.Time) error {
	existing, err := s.userGrants.GetByUserAndPermission(ctx, userID, permissionID)
	switch {
	case err == nil:
		if err := s.restoreUserGrant(ctx, existing, grantedBy, expiresOn); err != nil {
			return err
		}
	case errors.Is(err, shared.ErrNotFound):
		grant := UserGrant{
			ID:           uuid.New(),
			UserID:       userID,
			PermissionID: permissionID,
			ExpiresOn:    expiresOn,
			IsActive:     true,
			CreatedBy:    grantedBy,
			CreatedAt:    s.now(),
		}
		if err := s.userGrants.Insert(ctx, grant); err != nil {
			if isForeignKeyViolation(err) {
				// Unknown user or permission ID.
				return shared.ErrNotFound
			}
			if !isUniqueViolation(err) {
				return err
			}
			existing, err = s.userGrants.GetByUserAndPermission(ctx, userID, permissionID)
			if err != nil {
				return err
			}
			if err := s.restoreUserGrant(ctx, existing, grantedBy, expiresOn); err != nil {
				return err
			}
		}
	default:
		return err
	}

	s.invalidateUser(ctx, userID)
	s.recordAudit(ctx, shared.AuditEntry{
		ActorID:      grantedBy,
		Action:       shared.AuditActionGrant,
		EntityType:   shared.AuditEntityUserPermission,
		UserID:       &userID,
		PermissionID: &permissionID,
		Details:      auditExpiry(expiresOn),
	})
	return nil
}

func (s *Service) restoreUserGrant(ctx context.Context, existing UserGrant, grantedBy uuid.UUID, expiresOn *time.Time) error {
	switch {
	case existing.IsDeleted:
		existing.IsDeleted = false
		existing.CreatedBy = grantedBy
		existing.CreatedAt = s.now()
	case existing.IsActive && !existing.IsRevoked:
		// Re-assignment of a live grant just refreshes the expiry.
		existing.ExpiresOn = expiresOn
		return s.userGrants.Update(ctx, existing)
	}
	existing.IsActive = true
	existing.IsRevoked = false
	existing.ExpiresOn = expiresOn
	existing.RevokedOn = nil
	existing.RevokedBy = nil
	return s.userGrants.Update(ctx, existing)
}

// RevokePermissionFromUser revokes a direct grant, stamping who revoked it
// and when. Distinct from soft deletion so the grant can be restored with
// its history intact.
func (s *Service) RevokePermissionFromUser(ctx context.Context, userID, permissionID, revokedBy uuid.UUID) error {
	grant, err := s.userGrants.GetByUserAndPermission(ctx, userID, permissionID)
	if err != nil {
		return err
	}
	if grant.IsDeleted {
		return shared.ErrNotFound
	}
	now := s.now()
	grant.IsActive = false
	grant.IsRevoked = true
	grant.RevokedOn = &now
	grant.RevokedBy = &revokedBy
	if err := s.userGrants.Update(ctx, grant); err != nil {
		return err
	}

	s.invalidateUser(ctx, userID)
	s.recordAudit(ctx, shared.AuditEntry{
		ActorID:      revokedBy,
		Action:       shared.AuditActionRevoke,
		EntityType:   shared.AuditEntityUserPermission,
		UserID:       &userID,
		PermissionID: &permissionID,
	})
	return nil
}

// AssignPermissionsToUser grants several permissions in sequence with a
// shared expiry. Same at-least-partial-success semantics as the role batch.
func (s *Service) AssignPermissionsToUser(ctx context.Context, userID uuid.UUID, permissionIDs []uuid.UUID, grantedBy uuid.UUID, expiresOn *time.Time) error {
	for _, id := range permissionIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.AssignPermissionToUser(ctx, userID, id, grantedBy, expiresOn); err != nil && s.logger != nil {
			s.logger.Error("assign permission to user",
				slog.String("user_id", userID.String()),
				slog.String("permission_id", id.String()),
				slog.Any("error", err))
		}
	}
	return nil
}

func auditExpiry(expiresOn *time.Time) map[string]any {
	if expiresOn == nil {
		return nil
	}
	return map[string]any{"expires_on": expiresOn.UTC().Format(time.RFC3339)}
}
