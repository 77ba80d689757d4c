package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/bunx"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/telemetry"
)

const tracerName = "hubapi/services/calendar"

// Stores groups the repositories the reconciler reads and writes.
type Stores struct {
	Churches    repository.ChurchRepository
	Connections repository.CalendarConnectionRepository
	Events      repository.CalendarEventRepository
	Mappings    repository.CalendarMappingRepository
	Unmatched   repository.UnmatchedEventRepository
}

// Options bounds the sync window and fan-out.
type Options struct {
	WindowPast   time.Duration
	WindowFuture time.Duration
	// Concurrency caps how many accounts sync at once
	Concurrency int
}

// Result is the outcome of syncing one account.
type Result struct {
	Account   string `json:"account"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Processed int    `json:"processed"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Unmatched int    `json:"unmatched"`
	Removed   int    `json:"removed"`
}

// Summary aggregates a batch sync.
type Summary struct {
	Accounts  int      `json:"accounts"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Processed int      `json:"processed"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Unmatched int      `json:"unmatched"`
	Removed   int      `json:"removed"`
	Results   []Result `json:"results"`
}

func (s *Summary) add(r Result) {
	s.Accounts++
	if r.Success {
		s.Succeeded++
	} else {
		s.Failed++
	}
	s.Processed += r.Processed
	s.Created += r.Created
	s.Updated += r.Updated
	s.Unchanged += r.Unchanged
	s.Unmatched += r.Unmatched
	s.Removed += r.Removed
	s.Results = append(s.Results, r)
}

// Reconciler syncs connected calendar accounts into church events.
type Reconciler struct {
	provider Provider
	stores   Stores
	opts     Options
	now      func() time.Time
	logger   *zap.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(provider Provider, stores Stores, opts Options, logger *zap.Logger) *Reconciler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		provider: provider,
		stores:   stores,
		opts:     opts,
		now:      time.Now,
		logger:   logger,
	}
}

// SyncAll syncs every connected account. Account failures are reported in
// the summary; only failing to list connections returns an error.
func (r *Reconciler) SyncAll(ctx context.Context) (*Summary, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "calendar.SyncAll")
	defer span.End()

	conns, err := r.stores.Connections.List(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("list calendar connections: %w", err)
	}

	results := make([]Result, len(conns))
	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i := range conns {
		g.Go(func() error {
			results[i] = r.SyncAccount(ctx, &conns[i])
			return nil
		})
	}
	_ = g.Wait()

	summary := &Summary{Results: make([]Result, 0, len(results))}
	for _, res := range results {
		summary.add(res)
	}
	r.logger.Info("calendar sync finished",
		zap.Int("accounts", summary.Accounts),
		zap.Int("failed", summary.Failed),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("unmatched", summary.Unmatched),
	)
	return summary, nil
}

// SyncAccount syncs one account. Errors end the account's sync and are
// returned in the Result.
func (r *Reconciler) SyncAccount(ctx context.Context, conn *models.CalendarConnection) Result {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "calendar.SyncAccount",
		attribute.String(telemetry.AttrCalendarAccount, conn.AccountEmail))
	defer span.End()

	started := time.Now()
	res := Result{Account: conn.AccountEmail}
	err := r.syncAccount(ctx, conn, &res)
	if err != nil {
		telemetry.RecordError(span, err)
		res.Error = err.Error()
		r.logger.Warn("calendar account sync failed",
			zap.String("account", conn.AccountEmail),
			zap.Int("processed", res.Processed),
			zap.Error(err),
		)
	} else {
		res.Success = true
	}

	telemetry.RecordCalendarSync(res.Success, telemetry.CalendarSyncCounts{
		Created:   res.Created,
		Updated:   res.Updated,
		Unchanged: res.Unchanged,
		Unmatched: res.Unmatched,
		Removed:   res.Removed,
	}, time.Since(started))
	return res
}

func (r *Reconciler) syncAccount(ctx context.Context, conn *models.CalendarConnection, res *Result) error {
	churches, err := r.stores.Churches.ListWithKeyword(ctx)
	if err != nil {
		return fmt.Errorf("load church keywords: %w", err)
	}
	matcher := NewMatcher(r.stores.Mappings, r.stores.Events, churches)

	now := r.now().UTC()
	window := Window{From: now.Add(-r.opts.WindowPast), To: now.Add(r.opts.WindowFuture)}

	for ev, err := range r.provider.Events(ctx, conn, window) {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.apply(ctx, conn, matcher, ev, res); err != nil {
			return fmt.Errorf("event %s: %w", ev.ExternalID, err)
		}
	}

	if err := r.stores.Connections.MarkSynced(ctx, conn.AccountEmail, now); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// apply reconciles a single event.
func (r *Reconciler) apply(ctx context.Context, conn *models.CalendarConnection, matcher *Matcher, ev Event, res *Result) error {
	res.Processed++

	if ev.Cancelled {
		removedEvent, err := r.stores.Events.DeleteByExternalID(ctx, ev.ExternalID)
		if err != nil {
			return err
		}
		removedUnmatched, err := r.stores.Unmatched.Delete(ctx, ev.ExternalID)
		if err != nil {
			return err
		}
		if removedEvent || removedUnmatched {
			res.Removed++
		}
		return nil
	}

	match, err := matcher.Match(ctx, ev)
	if err != nil {
		return err
	}
	if !match.Matched() {
		if _, err := r.stores.Unmatched.InsertIfAbsent(ctx, unmatchedFromEvent(conn.AccountEmail, ev, r.now().UTC())); err != nil {
			return err
		}
		res.Unmatched++
		return nil
	}

	if err := r.store(ctx, conn.AccountEmail, match, ev, res); err != nil {
		return err
	}

	if _, err := r.stores.Unmatched.Delete(ctx, ev.ExternalID); err != nil {
		return err
	}
	return nil
}

// store writes a matched event. When another account's sync inserted the same
// external id first, the stored row is reloaded and updated instead.
func (r *Reconciler) store(ctx context.Context, account string, match Match, ev Event, res *Result) error {
	if record := match.Existing; record != nil {
		return r.update(ctx, record, account, match.ChurchID, ev, res)
	}

	now := r.now().UTC()
	record := &models.CalendarEvent{
		ID:         bunx.NewUUIDv7(),
		ExternalID: ev.ExternalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyEventFields(record, account, match.ChurchID, ev)
	err := r.stores.Events.Create(ctx, record)
	if err == nil {
		res.Created++
		return nil
	}
	if !errors.Is(err, repository.ErrConflict) {
		return err
	}

	stored, err := r.stores.Events.GetByExternalID(ctx, ev.ExternalID)
	if err != nil {
		return err
	}
	churchID := stored.ChurchID
	if match.Reason == MatchMapping {
		churchID = match.ChurchID
	}
	return r.update(ctx, stored, account, churchID, ev, res)
}

func (r *Reconciler) update(ctx context.Context, record *models.CalendarEvent, account, churchID string, ev Event, res *Result) error {
	if !applyEventFields(record, account, churchID, ev) {
		res.Unchanged++
		return nil
	}
	record.UpdatedAt = r.now().UTC()
	if err := r.stores.Events.Update(ctx, record); err != nil {
		return err
	}
	res.Updated++
	return nil
}

// ResolveUnmatched pins an unmatched event to a church: the mapping is stored
// so later syncs keep the choice, and the event moves out of the holding area.
func (r *Reconciler) ResolveUnmatched(ctx context.Context, actorID, externalID, churchID string) (*models.CalendarEvent, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "calendar.ResolveUnmatched",
		attribute.String(telemetry.AttrCalendarExternalID, externalID),
		attribute.String(telemetry.AttrCalendarChurchID, churchID))
	defer span.End()

	pending, err := r.stores.Unmatched.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if _, err := r.stores.Churches.GetByID(ctx, churchID); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	if err := r.stores.Mappings.Upsert(ctx, &models.CalendarEventMapping{
		ExternalID: externalID,
		ChurchID:   churchID,
		CreatedBy:  actorID,
		CreatedAt:  now,
	}); err != nil {
		return nil, err
	}

	ev := Event{
		ExternalID:  pending.ExternalID,
		Title:       pending.Title,
		Description: pending.Description,
		Location:    pending.Location,
		Start:       pending.StartsAt,
		End:         pending.EndsAt,
	}
	record, err := r.stores.Events.GetByExternalID(ctx, externalID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		record = &models.CalendarEvent{ID: bunx.NewUUIDv7(), ExternalID: externalID, CreatedAt: now, UpdatedAt: now}
		applyEventFields(record, pending.AccountEmail, churchID, ev)
		if err := r.stores.Events.Create(ctx, record); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if applyEventFields(record, pending.AccountEmail, churchID, ev) {
			record.UpdatedAt = now
			if err := r.stores.Events.Update(ctx, record); err != nil {
				return nil, err
			}
		}
	}

	if _, err := r.stores.Unmatched.Delete(ctx, externalID); err != nil {
		return nil, err
	}
	r.logger.Info("unmatched calendar event resolved",
		zap.String("external_id", externalID),
		zap.String("church_id", churchID),
		zap.String("actor", actorID),
	)
	return record, nil
}

// ListUnmatched returns the holding area.
func (r *Reconciler) ListUnmatched(ctx context.Context) ([]models.UnmatchedCalendarEvent, error) {
	return r.stores.Unmatched.List(ctx)
}

// ChurchEvents returns a church's events starting inside [from, to).
func (r *Reconciler) ChurchEvents(ctx context.Context, churchID string, from, to time.Time) ([]models.CalendarEvent, error) {
	return r.stores.Events.ListByChurch(ctx, churchID, from, to)
}

// applyEventFields copies ev onto record and reports whether anything changed.
// The account that first stored an event stays its owner.
func applyEventFields(record *models.CalendarEvent, account, churchID string, ev Event) bool {
	start, end := ev.Start.UTC(), ev.End.UTC()
	changed := record.ChurchID != churchID ||
		record.Title != ev.Title ||
		record.Description != ev.Description ||
		record.Location != ev.Location ||
		!record.StartsAt.Equal(start) ||
		!record.EndsAt.Equal(end)

	record.ChurchID = churchID
	if record.AccountEmail == "" {
		record.AccountEmail = account
	}
	record.Title = ev.Title
	record.Description = ev.Description
	record.Location = ev.Location
	record.StartsAt = start
	record.EndsAt = end
	return changed
}

func unmatchedFromEvent(account string, ev Event, seen time.Time) *models.UnmatchedCalendarEvent {
	raw := "{}"
	if len(ev.Raw) > 0 {
		raw = string(ev.Raw)
	}
	return &models.UnmatchedCalendarEvent{
		ExternalID:   ev.ExternalID,
		AccountEmail: account,
		Title:        ev.Title,
		Description:  ev.Description,
		Location:     ev.Location,
		StartsAt:     ev.Start.UTC(),
		EndsAt:       ev.End.UTC(),
		Raw:          raw,
		FirstSeenAt:  seen,
	}
}
