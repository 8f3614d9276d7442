package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/private-leagues-api/internal/models"
	"github.com/isdelr/private-leagues-api/internal/services"
	"github.com/isdelr/private-leagues-api/internal/validation"
	"github.com/rs/zerolog/log"
)

// EventHandler handles HTTP requests for the events of a league.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// eventError writes the response for a failed event operation. notFound is the
// message for a missing league or event.
func eventError(w http.ResponseWriter, err error, scope services.Scope, notFound string) {
	status, known := statusFor(err)
	switch {
	case errors.Is(err, services.ErrEmptyEvent):
		writeError(w, status, "No valid fields")
	case errors.Is(err, models.ErrNotModified):
		writeError(w, status, "Event not updated")
	case errors.Is(err, models.ErrNotFound):
		writeError(w, status, notFound)
	case errors.Is(err, models.ErrPersistence):
		log.Error().Err(err).Str("league_id", scope.LeagueID).Msg("Failed to store event")
		writeError(w, http.StatusBadRequest, "Event not created")
	case known:
		writeError(w, status, "Invalid event")
	default:
		log.Error().Err(err).Str("league_id", scope.LeagueID).Msg("Event operation failed")
		writeError(w, http.StatusInternalServerError, "Event operation failed")
	}
}

func eventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "eventID")
	if err := validation.ID(id); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid event ID")
		return "", false
	}
	return id, true
}

// List returns the league's events in order.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := leagueScope(w, r)
	if !ok {
		return
	}

	events, err := h.service.ListEvents(r.Context(), scope)
	if err != nil {
		eventError(w, err, scope, "No league with provided ID")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Create appends an event to the league.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := leagueScope(w, r)
	if !ok {
		return
	}
	body, err := decodeFields(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	event, err := h.service.CreateEvent(r.Context(), scope, body)
	if err != nil {
		eventError(w, err, scope, "No league with provided ID")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": event.ID})
}

// Get returns one event of the league.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := leagueScope(w, r)
	if !ok {
		return
	}
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	event, err := h.service.GetEvent(r.Context(), scope, id)
	if err != nil {
		eventError(w, err, scope, "No league or event found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Update merges the body into the event.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	scope, ok := leagueScope(w, r)
	if !ok {
		return
	}
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	body, err := decodeFields(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	if err := h.service.UpdateEvent(r.Context(), scope, id, body); err != nil {
		eventError(w, err, scope, "No league or event found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes the event from the league.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := leagueScope(w, r)
	if !ok {
		return
	}
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteEvent(r.Context(), scope, id); err != nil {
		eventError(w, err, scope, "No league with provided ID")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
