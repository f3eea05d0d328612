package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cashflow/internal/log"
	"cashflow/internal/records"
	"cashflow/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps a store or service error to a status code. Unexpected
// errors are logged and reported without detail.
func writeFailure(w http.ResponseWriter, r *http.Request, err error, op string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		writeError(w, reqErr.status, reqErr.Error())
	case errors.Is(err, records.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, records.ErrInvalid), errors.Is(err, services.ErrInvalidConfiguration):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		fields := log.NewFields().WithError(err).WithOperation(op)
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
