package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Prajwal-k-tech/Battle-CP/internal/service"
	"github.com/Prajwal-k-tech/Battle-CP/pkg/battle"
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

// writeServiceError maps err's kind to a status code. Internal errors are
// logged and reported without their text.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrArchiveDisabled) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	status := statusFor(battle.KindOf(err))
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeError(w, status, battle.ErrInternal.Msg)
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(k battle.Kind) int {
	switch k {
	case battle.KindValidation:
		return http.StatusBadRequest
	case battle.KindStateConflict:
		return http.StatusConflict
	case battle.KindNotFound:
		return http.StatusNotFound
	case battle.KindExternalService:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
