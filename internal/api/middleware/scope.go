package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/private-leagues-api/internal/auth"
	"github.com/isdelr/private-leagues-api/internal/services"
	"github.com/isdelr/private-leagues-api/internal/validation"
)

// LeagueScopeStage builds the services.Scope for a league sub-resource from the
// app key, the identity and the league id in URL parameter param. It must run
// after AppKeyGate and AuthenticationGate.
func LeagueScopeStage(param string) Stage {
	return func(r *http.Request) (*http.Request, *Rejection) {
		appKey, okKey := AppKeyFromContext(r.Context())
		id, okID := auth.IdentityFromContext(r.Context())
		// Guards against mounting the stage without the earlier gates; the
		// router always runs AppKeyGate and AuthenticationGate first.
		if !okKey || !okID {
			return r, &Rejection{Stage: "scope", Status: http.StatusUnauthorized, Message: "Unauthenticated user"}
		}

		leagueID := chi.URLParam(r, param)
		if err := validation.ID(leagueID); err != nil {
			return r, &Rejection{Stage: "scope", Status: http.StatusUnprocessableEntity, Message: "Invalid league ID"}
		}

		scope := services.NewScope(appKey, id.ID).ForLeague(leagueID)
		return r.WithContext(context.WithValue(r.Context(), scopeKey, scope)), nil
	}
}

// ScopeFromContext returns the scope stored by LeagueScopeStage.
func ScopeFromContext(ctx context.Context) (services.Scope, bool) {
	s, ok := ctx.Value(scopeKey).(services.Scope)
	return s, ok
}
