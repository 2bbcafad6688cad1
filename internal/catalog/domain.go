package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Action represents a discoverable HTTP endpoint identity. Rows are never
// physically deleted; removed endpoints are marked inactive to preserve the
// grant audit trail.
type Action struct {
	ID          uuid.UUID
	Controller  string
	Name        string
	Method      string
	Route       string
	Description string
	IsActive    bool
	IsDeleted   bool
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Descriptor is one (controller, action, method) tuple contributed by the
// routing layer at startup.
type Descriptor struct {
	Controller  string
	Action      string
	Method      string
	Route       string
	Description string
}

// Triple returns the identity key of the descriptor.
func (d Descriptor) Triple() string {
	return d.Controller + "." + d.Action + "." + d.Method
}

// PermissionName returns the conventional name of the companion permission.
func (d Descriptor) PermissionName() string {
	return d.Controller + "." + d.Action
}
