package auth

import (
	"net/http"
	"strings"

	"github.com/bachat/bachat/internal/shared"
)

// Bearer resolves the Authorization header into a request identity. Requests
// without a valid token pass through anonymously; the permission gate turns
// missing identities into 403s, so protected routes still fail closed.
func Bearer(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			userID, username, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := shared.ContextWithIdentity(r.Context(), shared.Identity{UserID: userID, Username: username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
