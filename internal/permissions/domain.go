package permissions

import (
	"time"

	"github.com/google/uuid"
)

// Permission is a named, grantable capability bound 1:1 to a catalog action.
// Discovery creates permissions inactive; an administrator activates and
// grants them explicitly.
type Permission struct {
	ID          uuid.UUID
	Name        string
	ActionID    uuid.UUID
	Category    string
	Description string
	IsActive    bool
	IsDeleted   bool
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoleGrant records that a role holds a permission. Unique per
// (role, permission); reactivation reuses the row.
type RoleGrant struct {
	ID           uuid.UUID
	RoleID       uuid.UUID
	PermissionID uuid.UUID
	IsActive     bool
	IsDeleted    bool
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserGrant records a user-specific permission override. Revocation and
// soft deletion are deliberately separate states: a revoked grant keeps its
// audit trail and can be re-granted, a deleted one is administratively gone.
type UserGrant struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	PermissionID uuid.UUID
	ExpiresOn    *time.Time
	IsRevoked    bool
	RevokedOn    *time.Time
	RevokedBy    *uuid.UUID
	IsActive     bool
	IsDeleted    bool
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EffectiveAt reports whether the grant confers its permission at the given
// instant. Expiry is inclusive: a grant expires strictly after its
// timestamp, so ExpiresOn == now is still valid.
func (g UserGrant) EffectiveAt(now time.Time) bool {
	if !g.IsActive || g.IsDeleted || g.IsRevoked {
		return false
	}
	if g.ExpiresOn == nil {
		return true
	}
	return !g.ExpiresOn.Before(now)
}

// View is the permission DTO joined with its bound action, served by the
// admin listing and effective-permission endpoints.
type View struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	ActionID    uuid.UUID `json:"action_id"`
	Controller  string    `json:"controller_name"`
	Action      string    `json:"action_name"`
	HTTPMethod  string    `json:"http_method"`
	Route       string    `json:"route,omitempty"`
	IsActive    bool      `json:"is_active"`
}

// EffectiveReport partitions a user's resolved permissions. AllPermissions
// is deduplicated by permission ID with role-derived entries first.
type EffectiveReport struct {
	UserID          uuid.UUID `json:"user_id"`
	Roles           []string  `json:"roles"`
	RolePermissions []View    `json:"role_permissions"`
	UserPermissions []View    `json:"user_permissions"`
	AllPermissions  []View    `json:"all_permissions"`
}

// RoleRef is the minimal role identity the evaluation engine consumes from
// the identity collaborator.
type RoleRef struct {
	ID   uuid.UUID
	Name string
}
