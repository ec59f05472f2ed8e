package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/casus-belli/api/internal/service"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses:
// rule violations are 409 with the hint included, not-found is 404,
// permission problems are 403, lobby-state problems are 400.
func writeServiceError(w http.ResponseWriter, err error) {
	if re, ok := service.AsRuleError(err); ok {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": re.Message,
			"hint":  re.Hint,
		})
		return
	}
	switch {
	case errors.Is(err, service.ErrGameNotFound),
		errors.Is(err, service.ErrPlayerNotFound),
		errors.Is(err, service.ErrTerritoryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotCreator):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrGameNotWaiting),
		errors.Is(err, service.ErrGameNotActive),
		errors.Is(err, service.ErrNationTaken),
		errors.Is(err, service.ErrNoOpenSeat),
		errors.Is(err, service.ErrAlreadyJoined):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
