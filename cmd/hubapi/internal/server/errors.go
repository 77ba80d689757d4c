package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/credstore"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/middleware"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/calendar"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/onboarding"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/session"
)

// errBadRequest marks request decoding and validation failures raised by handlers.
var errBadRequest = errors.New("bad request")

// writeError maps service errors onto the response taxonomy. Only messages of
// client errors reach the body; everything else is logged and answered with
// a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, onboarding.ErrInvalidInput),
		errors.Is(err, session.ErrInvalidAssignment),
		errors.Is(err, calendar.ErrNoRefreshToken):
		middleware.WriteJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, onboarding.ErrInvalidActivation):
		middleware.WriteJSONError(w, http.StatusUnauthorized, "invalid_activation", onboarding.ErrInvalidActivation.Error())
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, credstore.ErrNotFound):
		middleware.WriteJSONError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, repository.ErrConflict), errors.Is(err, credstore.ErrConflict):
		middleware.WriteJSONError(w, http.StatusConflict, "conflict", "already exists")
	default:
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		middleware.WriteJSONError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
