package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"kakeibo/internal/core"
	"kakeibo/internal/insight"
	"kakeibo/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses: validation failures are
// 422, missing documents 404, upstream adapter failures 502.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case isValidationError(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, insight.ErrUpstream):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidDate,
		core.ErrInvalidAmount,
		core.ErrEmptyDescription,
		core.ErrInvalidType,
		core.ErrUnknownCategory,
		core.ErrCategoryKindMismatch,
		core.ErrInvalidPayday,
		core.ErrInvalidRollover,
		core.ErrInvalidBonusMonth,
		core.ErrNegativeMoney,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
