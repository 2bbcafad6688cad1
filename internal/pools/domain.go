package pools

import (
	"time"

	"github.com/google/uuid"
)

// Pool is a savings pool owned by a tenant. Codes are unique within a
// tenant, not globally.
type Pool struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Timezone  string    `json:"timezone,omitempty"`
	IsDeleted bool      `json:"-"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
