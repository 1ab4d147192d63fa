package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var errNoToken = errors.New("auth: no bearer token in Authorization header")

// contextKey is an unexported type used for context keys in this package.
// A package-private key type means only this package can read or write the
// identity value — no other package can collide with or shadow it.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth is the request authorization guard for protected routes.
//
// It extracts the bearer token from the Authorization header, validates it
// via the TokenService, and stores the caller's Identity in the request
// context. Requests with a missing, malformed, or expired token are
// rejected with 401 before the handler runs — no mutation handler ever
// executes without a verified identity in context.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := extractIdentity(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid_token","message":"valid authentication required"}` + "\n"))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the authenticated caller's identity.
//
// Returns (Identity{}, false) if the request is anonymous. On routes
// protected by RequireAuth the second return is always true.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	return ident, ok && ident.UserID != ""
}

// extractIdentity reads and validates the bearer token.
// Expected header shape: "Authorization: Bearer <jwt>".
func extractIdentity(r *http.Request, tokens *TokenService) (Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return Identity{}, errNoToken
	}

	return tokens.Validate(token)
}
