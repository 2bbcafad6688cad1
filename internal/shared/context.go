package shared

import (
	"context"

	"github.com/google/uuid"
)

// Identity describes the authenticated caller of a request. It is resolved
// once by the auth middleware and passed explicitly through context; nothing
// else in the codebase reads claims off the request.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

type identityContextKey struct{}

// ContextWithIdentity stores the caller identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the caller identity from context. The second
// return value is false for unauthenticated requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || id.UserID == uuid.Nil {
		return Identity{}, false
	}
	return id, true
}
