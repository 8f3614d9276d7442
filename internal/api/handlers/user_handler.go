package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/private-leagues-api/internal/auth"
	"github.com/isdelr/private-leagues-api/internal/models"
	"github.com/isdelr/private-leagues-api/internal/services"
	"github.com/isdelr/private-leagues-api/internal/validation"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for user profiles.
type UserHandler struct {
	service services.UserServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

func currentIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthenticated user")
	}
	return id, ok
}

// GetMe returns the caller's own profile.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUserByID(r.Context(), id.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", id.ID).Msg("Failed to get user")
		writeError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Get returns the public profile of the user in the URL.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if err := validation.ID(userID); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid user ID")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Provided ID not found")
			return
		}
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get user")
		writeError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe applies a partial update to the caller's profile.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	patch, err := decodeFields(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	err = h.service.UpdateUser(r.Context(), id.ID, patch)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, services.ErrEmptyUpdate):
		writeError(w, http.StatusUnprocessableEntity, "ID cannot be updated")
	case errors.Is(err, services.ErrInvalidUsername):
		writeError(w, http.StatusUnprocessableEntity, "Invalid username formatting")
	case errors.Is(err, services.ErrInvalidPassword):
		writeError(w, http.StatusUnprocessableEntity, "Invalid password formatting")
	case errors.Is(err, models.ErrConflict):
		writeError(w, http.StatusConflict, "Username already taken")
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		log.Error().Err(err).Str("user_id", id.ID).Msg("Failed to update user")
		writeError(w, http.StatusInternalServerError, "Failed to update user")
	}
}

// DeleteMe removes the caller's account. It answers 204 whether or not the
// account still existed.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), id.ID); err != nil {
		log.Error().Err(err).Str("user_id", id.ID).Msg("Failed to delete user")
		writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
