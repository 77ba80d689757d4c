package calendar

import (
	"context"
	"encoding/json"
	"iter"
	"time"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
)

// Event is an external calendar event as seen by the reconciler.
type Event struct {
	ExternalID  string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// Cancelled is set for events deleted upstream
	Cancelled bool
	// Raw is the provider payload, kept for unmatched events
	Raw json.RawMessage
}

// Window bounds an events-list call.
type Window struct {
	From time.Time
	To   time.Time
}

// Provider lists events for a connected account. The sequence is lazy and
// finite; a non-nil error ends the account's sync.
type Provider interface {
	Events(ctx context.Context, conn *models.CalendarConnection, w Window) iter.Seq2[Event, error]
}
