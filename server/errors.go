package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arkpunks/punks-core/core"
)

// writeError maps a core error kind to an HTTP status and writes a JSON
// error body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, core.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrPreconditionFailed):
		status = http.StatusPreconditionFailed
	case errors.Is(err, core.ErrDepositUnverified):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUpstreamFailure):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(core.ErrInvalidArgument, err)
	}
	return nil
}
