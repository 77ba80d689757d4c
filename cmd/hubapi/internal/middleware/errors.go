package middleware

import (
	"encoding/json"
	"net/http"
)

// APIError is the JSON error body returned by every route.
type APIError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSONError writes a consistent JSON error response.
func WriteJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIError{Error: message, Code: code})
}

func unauthenticated(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
}

func forbidden(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
}

func internalError(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusInternalServerError, "internal", "internal server error")
}
