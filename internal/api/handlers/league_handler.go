package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/isdelr/private-leagues-api/internal/api/middleware"
	"github.com/isdelr/private-leagues-api/internal/auth"
	"github.com/isdelr/private-leagues-api/internal/models"
	"github.com/isdelr/private-leagues-api/internal/services"
	"github.com/isdelr/private-leagues-api/internal/validation"
	"github.com/rs/zerolog/log"
)

// LeagueHandler handles HTTP requests for leagues and their membership.
type LeagueHandler struct {
	service services.LeagueServiceProvider
}

// NewLeagueHandler creates a new LeagueHandler.
func NewLeagueHandler(service services.LeagueServiceProvider) *LeagueHandler {
	return &LeagueHandler{service: service}
}

const msgNotAdmin = "League with ID where you are admin not found"

// collectionScope builds the scope for routes above a single league.
func collectionScope(w http.ResponseWriter, r *http.Request) (services.Scope, bool) {
	appKey, okKey := middleware.AppKeyFromContext(r.Context())
	id, okID := auth.IdentityFromContext(r.Context())
	if !okKey || !okID {
		writeError(w, http.StatusUnauthorized, "Unauthenticated user")
		return services.Scope{}, false
	}
	return services.NewScope(appKey, id.ID), true
}

// leagueScope returns the scope attached by the league scope stage.
func leagueScope(w http.ResponseWriter, r *http.Request) (services.Scope, bool) {
	scope, ok := middleware.ScopeFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthenticated user")
	}
	return scope, ok
}

// List returns the caller's leagues for the app, without events.
func (h *LeagueHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := collectionScope(w, r)
	if !ok {
		return
	}

	leagues, err := h.service.ListLeagues(r.Context(), scope)
	if err != nil {
		log.Error().Err(err).Str("user_id", scope.UserID).Msg("Failed to list leagues")
		writeError(w, http.StatusInternalServerError, "Failed to list leagues")
		return
	}
	writeJSON(w, http.StatusOK, leagues)
}

// Create adds a league with the caller as its only admin.
func (h *LeagueHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := collectionScope(w, r)
	if !ok {
		return
	}
	body, err := decodeFields(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	name, ok := stringField(body, models.KeyName)
	if !ok || validation.Name(name) != nil {
		writeError(w, http.StatusUnprocessableEntity, "Name is missing")
		return
	}

	league, err := h.service.CreateLeague(r.Context(), scope.AppKey, scope.UserID, name, body)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			writeError(w, http.StatusUnprocessableEntity, "Name is missing")
			return
		}
		log.Error().Err(err).Str("user_id", scope.UserID).Msg("Failed to create league")
		writeError(w, http.StatusInternalServerError, "League creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": league.ID})
}

// Get returns a league the caller belongs to, events included.
func (h *LeagueHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := leagueScope(w, r)
	if !ok {
		return
	}

	league, err := h.service.GetLeague(r.Context(), scope)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "League not found")
			return
		}
		log.Error().Err(err).Str("league_id", scope.LeagueID).Msg("Failed to get league")
		writeError(w, http.StatusInternalServerError, "Failed to get league")
		return
	}
	writeJSON(w, http.StatusOK, league)
}

// Update changes the name and extra fields of a league the caller administers.
// Reserved keys in the body are ignored.
func (h *LeagueHandler) Update(w http.ResponseWriter, r *http.Request) {
	scope, ok := leagueScope(w, r)
	if !ok {
		return
	}
	body, err := decodeFields(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	var name *string
	if _, present := body[models.KeyName]; present {
		s, isString := stringField(body, models.KeyName)
		if !isString {
			writeError(w, http.StatusUnprocessableEntity, "Invalid name")
			return
		}
		name = &s
	}

	err = h.service.UpdateLeague(r.Context(), scope, name, body)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, models.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "Invalid name")
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotAdmin)
	default:
		log.Error().Err(err).Str("league_id", scope.LeagueID).Msg("Failed to update league")
		writeError(w, http.StatusInternalServerError, "Failed to update league")
	}
}

// Delete removes a league the caller administers.
func (h *LeagueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := leagueScope(w, r)
	if !ok {
		return
	}

	err := h.service.DeleteLeague(r.Context(), scope)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotAdmin)
	default:
		log.Error().Err(err).Str("league_id", scope.LeagueID).Msg("Failed to delete league")
		writeError(w, http.StatusInternalServerError, "Failed to delete league")
	}
}

// AddMember returns a handler granting role to the user named in the body.
func (h *LeagueHandler) AddMember(role models.Role) http.HandlerFunc {
	return h.changeMember(role, true)
}

// RemoveMember returns a handler revoking role from the user named in the body.
func (h *LeagueHandler) RemoveMember(role models.Role) http.HandlerFunc {
	return h.changeMember(role, false)
}

func (h *LeagueHandler) changeMember(role models.Role, add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := leagueScope(w, r)
		if !ok {
			return
		}
		body, err := decodeFields(r)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
			return
		}
		userID, _ := stringField(body, "userId")
		if err := validation.ID(userID); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "Invalid user ID")
			return
		}

		if add {
			err = h.service.AddMember(r.Context(), scope, role, userID)
		} else {
			err = h.service.RemoveMember(r.Context(), scope, role, userID)
		}
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, services.ErrUnknownUser):
			writeError(w, http.StatusNotFound, fmt.Sprintf("New %s ID does not exist", role))
		case errors.Is(err, models.ErrNotFound):
			writeError(w, http.StatusNotFound, msgNotAdmin)
		default:
			log.Error().Err(err).
				Str("league_id", scope.LeagueID).
				Str("member_id", userID).
				Str("role", string(role)).
				Msg("Failed to change league membership")
			writeError(w, http.StatusInternalServerError, "Failed to update league")
		}
	}
}
