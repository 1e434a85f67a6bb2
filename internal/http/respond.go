package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fatura/internal/core"
	"fatura/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeDomainError maps service errors onto HTTP statuses: missing records
// are 404, illegal invoice transitions are 409, validation failures are 422
// and anything else is a 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"url", r.URL.Path,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDay,
		core.ErrInvalidMonth,
		core.ErrInvalidAmount,
		core.ErrInvalidDueDay,
		core.ErrInvalidClosingDay,
		core.ErrInvalidInstallmentCount,
		core.ErrInvalidInstallment,
		core.ErrInvalidStatus,
		core.ErrInvalidKind,
		core.ErrEmptyName,
		core.ErrEmptyPeriodKey,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
