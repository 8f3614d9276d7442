package middleware

import (
	"net/http"
	"strings"

	"github.com/isdelr/private-leagues-api/internal/auth"
)

// TokenVerifier checks a bearer token and returns the identity it carries.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, bool)
}

// AuthenticationGate admits requests with an "Authorization: Bearer <token>"
// header whose token tokens accepts, storing the identity in the context.
func AuthenticationGate(tokens TokenVerifier) Stage {
	return func(r *http.Request) (*http.Request, *Rejection) {
		rej := &Rejection{Stage: "authentication", Status: http.StatusUnauthorized, Message: "Unauthenticated user"}

		parts := strings.Split(r.Header.Get("Authorization"), " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return r, rej
		}
		id, ok := tokens.Verify(parts[1])
		if !ok {
			return r, rej
		}
		return r.WithContext(auth.WithIdentity(r.Context(), id)), nil
	}
}
