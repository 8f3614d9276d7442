package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/isdelr/private-leagues-api/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends the {"error": msg} body used by every failure response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps the models failure categories to HTTP status codes. ok is
// false for errors outside every category.
func statusFor(err error) (status int, ok bool) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, true
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, true
	case errors.Is(err, models.ErrNotModified):
		return http.StatusBadRequest, true
	default:
		return http.StatusInternalServerError, false
	}
}

// decodeFields reads a JSON object body. Numbers are kept as json.Number so
// they are stored exactly as sent. An empty body is an empty object.
func decodeFields(r *http.Request) (models.Fields, error) {
	fields := models.Fields{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return models.Fields{}, nil
		}
		return nil, fmt.Errorf("%w: invalid request body: %v", models.ErrValidation, err)
	}
	return fields, nil
}

// stringField returns f[key] when it is a string.
func stringField(f models.Fields, key string) (string, bool) {
	s, ok := f[key].(string)
	return s, ok
}
