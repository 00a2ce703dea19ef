package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/solatis/alertkeeper/internal/types"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrRuleNotFound), errors.Is(err, types.ErrHandlerNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrDuplicateRuleID), errors.Is(err, types.ErrDuplicateHandlerID):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{"error": message}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
