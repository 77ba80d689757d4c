package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/middleware"
)

func calendarDisabled(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSONError(w, http.StatusNotFound, "calendar_disabled", "calendar integration is not configured")
}

// HandleCalendarConnect starts the calendar OAuth flow.
func HandleCalendarConnect(connector calendarConnector) http.HandlerFunc {
	if connector == nil {
		return calendarDisabled
	}
	return connector.AuthURLHandler()
}

// HandleCalendarCallback completes the calendar OAuth flow and reports the
// connected account.
func HandleCalendarCallback(connector calendarConnector, logger *zap.Logger) http.HandlerFunc {
	if connector == nil {
		return calendarDisabled
	}
	return connector.CallbackHandler(func(w http.ResponseWriter, r *http.Request, conn *models.CalendarConnection, err error) {
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		logger.Info("calendar connected",
			zap.String("account", conn.AccountEmail),
			zap.String("connected_by", conn.ConnectedBy),
		)
		writeJSON(w, http.StatusOK, map[string]any{
			"accountEmail": conn.AccountEmail,
			"calendarId":   conn.CalendarID,
		})
	})
}

// HandleCalendarSync runs a reconciliation pass over every connected account.
func HandleCalendarSync(events calendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := events.SyncAll(r.Context())
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// HandleListUnmatched lists events waiting for a manual church assignment.
func HandleListUnmatched(events calendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := events.ListUnmatched(r.Context())
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		out := make([]unmatchedEventResponse, 0, len(rows))
		for _, e := range rows {
			out = append(out, unmatchedEventResponse{
				ExternalID:   e.ExternalID,
				AccountEmail: e.AccountEmail,
				Title:        e.Title,
				Description:  e.Description,
				Location:     e.Location,
				StartsAt:     e.StartsAt,
				EndsAt:       e.EndsAt,
				FirstSeenAt:  e.FirstSeenAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": out})
	}
}

type resolveUnmatchedRequest struct {
	ChurchID string `json:"churchId"`
}

// HandleResolveUnmatched assigns an unmatched event to a church and pins the
// choice for future syncs.
func HandleResolveUnmatched(events calendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resolveUnmatchedRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		churchID := strings.TrimSpace(req.ChurchID)
		if churchID == "" {
			middleware.WriteJSONError(w, http.StatusBadRequest, "invalid_request", "churchId is required")
			return
		}
		event, err := events.ResolveUnmatched(r.Context(), actorID(r), chi.URLParam(r, "externalID"), churchID)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newEventResponse(event))
	}
}
