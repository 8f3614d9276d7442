package handlers

import (
	"errors"
	"net/http"

	"github.com/isdelr/private-leagues-api/internal/auth"
	"github.com/isdelr/private-leagues-api/internal/models"
	"github.com/isdelr/private-leagues-api/internal/services"
	"github.com/rs/zerolog/log"
)

// TokenService issues and checks bearer tokens.
type TokenService interface {
	Issue(id auth.Identity) (string, error)
	Verify(token string) (auth.Identity, bool)
}

// AuthHandler handles login, registration and token checks.
type AuthHandler struct {
	users  services.UserServiceProvider
	tokens TokenService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users services.UserServiceProvider, tokens TokenService) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

const msgInvalidCredentialsShape = "Provide valid username and password"

// Login checks the credentials and returns the user's public profile with a
// new token. An unknown username and a wrong password answer identically.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := decodeFields(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidCredentialsShape)
		return
	}
	username, okUser := stringField(body, models.KeyUsername)
	password, okPass := stringField(body, models.KeyPassword)
	if !okUser || !okPass {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidCredentialsShape)
		return
	}

	user, err := h.users.Authenticate(r.Context(), username, password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrValidation):
			writeError(w, http.StatusUnprocessableEntity, msgInvalidCredentialsShape)
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusNotFound, "Invalid credentials")
		default:
			log.Error().Err(err).Msg("Failed to authenticate user")
			writeError(w, http.StatusInternalServerError, "Failed to authenticate user")
		}
		return
	}

	token, err := h.tokens.Issue(auth.Identity{ID: user.ID, Username: user.Username})
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate token")
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{User: user, Token: token})
}

// Register creates a user. Body keys other than username and password are kept
// as profile fields.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	body, err := decodeFields(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidCredentialsShape)
		return
	}
	username, okUser := stringField(body, models.KeyUsername)
	password, okPass := stringField(body, models.KeyPassword)
	if !okUser || !okPass {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidCredentialsShape)
		return
	}

	profile := body.Without(models.KeyUsername, models.KeyPassword, models.KeyID, models.KeyMongoID)
	user, err := h.users.Register(r.Context(), username, password, profile)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrValidation):
			writeError(w, http.StatusUnprocessableEntity, msgInvalidCredentialsShape)
		case errors.Is(err, models.ErrConflict):
			writeError(w, http.StatusConflict, "Username already taken")
		default:
			log.Error().Err(err).Str("username", username).Msg("Failed to register user")
			writeError(w, http.StatusInternalServerError, "Failed to register user")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": user.ID})
}

// CheckToken answers 204 when the token in the body is valid.
func (h *AuthHandler) CheckToken(w http.ResponseWriter, r *http.Request) {
	body, err := decodeFields(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Provide token")
		return
	}
	token, ok := stringField(body, "token")
	if !ok || token == "" {
		writeError(w, http.StatusUnprocessableEntity, "Provide token")
		return
	}

	if _, ok := h.tokens.Verify(token); !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
