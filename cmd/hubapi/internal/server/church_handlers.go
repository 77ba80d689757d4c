package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/middleware"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
)

// defaultEventRange is the span listed when the request gives no "to".
const defaultEventRange = 30 * 24 * time.Hour

// HandleMyChurch returns the caller's primary church.
func HandleMyChurch(churches repository.ChurchRepository, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := auth.SessionFromContext(r.Context())
		churchID, ok := auth.PrimaryChurch(s)
		if !ok {
			middleware.WriteJSONError(w, http.StatusNotFound, "not_found", "no church is associated with this account")
			return
		}
		church, err := churches.GetByID(r.Context(), churchID)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, churchResponse{ID: church.ID, Name: church.Name, CalendarKeyword: church.CalendarKeyword})
	}
}

// HandleChurchEvents lists a church's calendar events starting in [from, to).
// Both bounds are RFC 3339; from defaults to now and to to thirty days later.
func HandleChurchEvents(churches repository.ChurchRepository, events calendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		churchID := chi.URLParam(r, "churchID")

		from, to, err := parseRange(r, time.Now().UTC())
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		if _, err := churches.GetByID(ctx, churchID); err != nil {
			writeError(w, r, logger, err)
			return
		}
		list, err := events.ChurchEvents(ctx, churchID, from, to)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		out := make([]eventResponse, 0, len(list))
		for i := range list {
			out = append(out, newEventResponse(&list[i]))
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": out})
	}
}

func parseRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	from, to := now, time.Time{}
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, fmt.Errorf("%w: from must be RFC 3339", errBadRequest)
		}
		from = t.UTC()
	}
	to = from.Add(defaultEventRange)
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, fmt.Errorf("%w: to must be RFC 3339", errBadRequest)
		}
		to = t.UTC()
	}
	if !to.After(from) {
		return from, to, fmt.Errorf("%w: to must be after from", errBadRequest)
	}
	return from, to, nil
}
