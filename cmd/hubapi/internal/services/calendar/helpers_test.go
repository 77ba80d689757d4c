package calendar

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/testdb"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
)

var syncNow = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

// fakeProvider serves a fixed event list per account.
type fakeProvider struct {
	mu     sync.Mutex
	events map[string][]Event
	errs   map[string]error
	calls  map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{events: map[string][]Event{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (p *fakeProvider) set(account string, events ...Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[account] = events
}

func (p *fakeProvider) Events(ctx context.Context, conn *models.CalendarConnection, w Window) iter.Seq2[Event, error] {
	p.mu.Lock()
	p.calls[conn.AccountEmail]++
	events := append([]Event(nil), p.events[conn.AccountEmail]...)
	err := p.errs[conn.AccountEmail]
	p.mu.Unlock()

	return func(yield func(Event, error) bool) {
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
		if err != nil {
			yield(Event{}, err)
		}
	}
}

type env struct {
	db         *bun.DB
	stores     Stores
	provider   *fakeProvider
	reconciler *Reconciler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testdb.New(t)
	e := &env{
		db: db,
		stores: Stores{
			Churches:    repository.NewBunChurchRepository(db),
			Connections: repository.NewBunCalendarConnectionRepository(db),
			Events:      repository.NewBunCalendarEventRepository(db),
			Mappings:    repository.NewBunCalendarMappingRepository(db),
			Unmatched:   repository.NewBunUnmatchedEventRepository(db),
		},
		provider: newFakeProvider(),
	}
	e.reconciler = NewReconciler(e.provider, e.stores, Options{
		WindowPast:   30 * 24 * time.Hour,
		WindowFuture: 180 * 24 * time.Hour,
		Concurrency:  2,
	}, nil)
	e.reconciler.now = func() time.Time { return syncNow }

	e.church(t, "c1", "Grace", "grace")
	e.church(t, "c2", "Hope", "hope")
	e.church(t, "c3", "Quiet", "")
	return e
}

func (e *env) church(t *testing.T, id, name, keyword string) {
	t.Helper()
	c := &models.Church{ID: id, Name: name}
	if keyword != "" {
		c.CalendarKeyword = &keyword
	}
	require.NoError(t, e.stores.Churches.Create(context.Background(), c))
}

func (e *env) connect(t *testing.T, account string) *models.CalendarConnection {
	t.Helper()
	conn := &models.CalendarConnection{
		AccountEmail: account,
		CalendarID:   "primary",
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       syncNow.Add(time.Hour),
	}
	require.NoError(t, e.stores.Connections.Upsert(context.Background(), conn))
	return conn
}

func (e *env) event(t *testing.T, externalID string) *models.CalendarEvent {
	t.Helper()
	ev, err := e.stores.Events.GetByExternalID(context.Background(), externalID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	require.NoError(t, err)
	return ev
}

func (e *env) unmatched(t *testing.T) []models.UnmatchedCalendarEvent {
	t.Helper()
	rows, err := e.stores.Unmatched.List(context.Background())
	require.NoError(t, err)
	return rows
}

func event(id, title string) Event {
	start := syncNow.Add(48 * time.Hour)
	return Event{
		ExternalID: id,
		Title:      title,
		Start:      start,
		End:        start.Add(90 * time.Minute),
		Raw:        []byte(`{"id":"` + id + `"}`),
	}
}
