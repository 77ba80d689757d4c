package calendar

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
)

const defaultPageSize = 250

// GoogleProvider reads events with the Google Calendar API.
type GoogleProvider struct {
	oauth       *oauth2.Config
	connections repository.CalendarConnectionRepository
	pageSize    int64
	endpoint    string
	httpClient  *http.Client
	logger      *zap.Logger
}

// GoogleOption customizes a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) GoogleOption {
	return func(p *GoogleProvider) { p.endpoint = endpoint }
}

// WithAPIHTTPClient makes API calls through hc instead of an OAuth client.
// Stored tokens are not used.
func WithAPIHTTPClient(hc *http.Client) GoogleOption {
	return func(p *GoogleProvider) { p.httpClient = hc }
}

// WithPageSize sets the events-list page size.
func WithPageSize(n int64) GoogleOption {
	return func(p *GoogleProvider) { p.pageSize = n }
}

// NewGoogleProvider creates a provider. oauth refreshes stored tokens and
// refreshed tokens are written back through connections.
func NewGoogleProvider(oauth *oauth2.Config, connections repository.CalendarConnectionRepository, logger *zap.Logger, opts ...GoogleOption) *GoogleProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &GoogleProvider{
		oauth:       oauth,
		connections: connections,
		pageSize:    defaultPageSize,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Events implements Provider. Recurring events are expanded into instances
// and deleted instances are reported as cancelled.
func (p *GoogleProvider) Events(ctx context.Context, conn *models.CalendarConnection, w Window) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		svc, err := p.service(ctx, conn)
		if err != nil {
			yield(Event{}, err)
			return
		}

		calendarID := conn.CalendarID
		if calendarID == "" {
			calendarID = "primary"
		}
		call := svc.Events.List(calendarID).
			TimeMin(w.From.UTC().Format(time.RFC3339)).
			TimeMax(w.To.UTC().Format(time.RFC3339)).
			SingleEvents(true).
			ShowDeleted(true).
			MaxResults(p.pageSize).
			Context(ctx)

		for {
			page, err := call.Do()
			if err != nil {
				yield(Event{}, fmt.Errorf("list events for %s: %w", conn.AccountEmail, err))
				return
			}
			for _, item := range page.Items {
				ev, ok := p.convert(item)
				if !ok {
					continue
				}
				if !yield(ev, nil) {
					return
				}
			}
			if page.NextPageToken == "" {
				return
			}
			call.PageToken(page.NextPageToken)
		}
	}
}

func (p *GoogleProvider) service(ctx context.Context, conn *models.CalendarConnection) (*gcal.Service, error) {
	var opts []option.ClientOption
	if p.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(p.httpClient))
	} else {
		base := p.oauth.TokenSource(ctx, tokenFromConnection(conn))
		ts := newPersistingTokenSource(ctx, base, conn, p.connections, p.logger)
		opts = append(opts, option.WithTokenSource(oauth2.ReuseTokenSource(nil, ts)))
	}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}
	return svc, nil
}

// convert maps an API event. Events without a usable start are skipped.
func (p *GoogleProvider) convert(item *gcal.Event) (Event, bool) {
	ev := Event{
		ExternalID:  item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Cancelled:   item.Status == "cancelled",
	}
	if raw, err := item.MarshalJSON(); err == nil {
		ev.Raw = raw
	}
	if ev.Cancelled {
		return ev, ev.ExternalID != ""
	}

	start, err := eventTime(item.Start)
	if err != nil {
		p.logger.Warn("skipping calendar event", zap.String("external_id", item.Id), zap.Error(err))
		return ev, false
	}
	end, err := eventTime(item.End)
	if err != nil {
		end = start
	}
	ev.Start, ev.End = start, end
	return ev, ev.ExternalID != ""
}

// eventTime reads a timed or all-day boundary. All-day dates are midnight UTC.
func eventTime(t *gcal.EventDateTime) (time.Time, error) {
	switch {
	case t == nil:
		return time.Time{}, fmt.Errorf("missing time")
	case t.DateTime != "":
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date-time %q: %w", t.DateTime, err)
		}
		return parsed.UTC(), nil
	case t.Date != "":
		parsed, err := time.Parse(time.DateOnly, t.Date)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", t.Date, err)
		}
		return parsed, nil
	default:
		return time.Time{}, fmt.Errorf("empty time")
	}
}
