package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/bunx"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/uptrace/bun"
)

// ========================================
// CalendarConnection Repository
// ========================================

// BunCalendarConnectionRepository implements CalendarConnectionRepository using Bun ORM
type BunCalendarConnectionRepository struct {
	db *bun.DB
}

// NewBunCalendarConnectionRepository creates a new Bun-based connection repository
func NewBunCalendarConnectionRepository(db *bun.DB) CalendarConnectionRepository {
	return &BunCalendarConnectionRepository{db: db}
}

// Upsert stores the connection keyed by account email. Providers only return a
// refresh token on first consent, so an empty one keeps the stored value.
func (r *BunCalendarConnectionRepository) Upsert(ctx context.Context, conn *models.CalendarConnection) error {
	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	if conn.RefreshToken == "" {
		existing, err := r.Get(ctx, conn.AccountEmail)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if existing != nil {
			conn.RefreshToken = existing.RefreshToken
		}
	}

	_, err := r.db.NewInsert().
		Model(conn).
		On("CONFLICT (account_email) DO UPDATE").
		Set("connected_by = EXCLUDED.connected_by").
		Set("calendar_id = EXCLUDED.calendar_id").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("token_type = EXCLUDED.token_type").
		Set("expiry = EXCLUDED.expiry").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert calendar connection: %w", err)
	}
	return nil
}

// Get retrieves a connection by account email
func (r *BunCalendarConnectionRepository) Get(ctx context.Context, accountEmail string) (*models.CalendarConnection, error) {
	conn := new(models.CalendarConnection)
	err := r.db.NewSelect().
		Model(conn).
		Where("account_email = ?", accountEmail).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("calendar connection %s: %w", accountEmail, ErrNotFound)
		}
		return nil, fmt.Errorf("get calendar connection: %w", err)
	}
	return conn, nil
}

// List retrieves all connections ordered by account email
func (r *BunCalendarConnectionRepository) List(ctx context.Context) ([]models.CalendarConnection, error) {
	var conns []models.CalendarConnection
	err := r.db.NewSelect().
		Model(&conns).
		Order("account_email ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list calendar connections: %w", err)
	}
	return conns, nil
}

// UpdateToken writes back a refreshed token
func (r *BunCalendarConnectionRepository) UpdateToken(ctx context.Context, accountEmail string, token models.OAuthToken) error {
	q := r.db.NewUpdate().
		Model((*models.CalendarConnection)(nil)).
		Set("access_token = ?", token.AccessToken).
		Set("token_type = ?", token.TokenType).
		Set("expiry = ?", token.Expiry.UTC()).
		Set("updated_at = ?", time.Now().UTC()).
		Where("account_email = ?", accountEmail)
	if token.RefreshToken != "" {
		q = q.Set("refresh_token = ?", token.RefreshToken)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update calendar token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("calendar connection %s: %w", accountEmail, ErrNotFound)
	}
	return nil
}

// MarkSynced records the time of the last successful sync
func (r *BunCalendarConnectionRepository) MarkSynced(ctx context.Context, accountEmail string, at time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*models.CalendarConnection)(nil)).
		Set("last_synced_at = ?", at.UTC()).
		Where("account_email = ?", accountEmail).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark calendar synced: %w", err)
	}
	return nil
}

// ========================================
// CalendarEvent Repository
// ========================================

// BunCalendarEventRepository implements CalendarEventRepository using Bun ORM
type BunCalendarEventRepository struct {
	db *bun.DB
}

// NewBunCalendarEventRepository creates a new Bun-based calendar event repository
func NewBunCalendarEventRepository(db *bun.DB) CalendarEventRepository {
	return &BunCalendarEventRepository{db: db}
}

// GetByExternalID retrieves an event by its provider id
func (r *BunCalendarEventRepository) GetByExternalID(ctx context.Context, externalID string) (*models.CalendarEvent, error) {
	event := new(models.CalendarEvent)
	err := r.db.NewSelect().
		Model(event).
		Where("external_id = ?", externalID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("calendar event %s: %w", externalID, ErrNotFound)
		}
		return nil, fmt.Errorf("get calendar event: %w", err)
	}
	return event, nil
}

// Create inserts a new event
func (r *BunCalendarEventRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	if event.ID == "" {
		event.ID = bunx.NewUUIDv7()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(event).
		Exec(ctx)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("calendar event %s: %w", event.ExternalID, ErrConflict)
		case isForeignKeyViolation(err):
			return fmt.Errorf("church %s: %w", event.ChurchID, ErrNotFound)
		}
		return fmt.Errorf("create calendar event: %w", err)
	}
	return nil
}

// Update writes the mutable fields of an existing event
func (r *BunCalendarEventRepository) Update(ctx context.Context, event *models.CalendarEvent) error {
	event.UpdatedAt = time.Now().UTC()
	result, err := r.db.NewUpdate().
		Model(event).
		Column("church_id", "account_email", "title", "description", "location", "starts_at", "ends_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update calendar event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("calendar event %s: %w", event.ExternalID, ErrNotFound)
	}
	return nil
}

// DeleteByExternalID removes an event by its provider id
func (r *BunCalendarEventRepository) DeleteByExternalID(ctx context.Context, externalID string) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*models.CalendarEvent)(nil)).
		Where("external_id = ?", externalID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete calendar event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListByChurch retrieves a church's events starting in [from, to)
func (r *BunCalendarEventRepository) ListByChurch(ctx context.Context, churchID string, from, to time.Time) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	err := r.db.NewSelect().
		Model(&events).
		Where("church_id = ?", churchID).
		Where("starts_at >= ?", from.UTC()).
		Where("starts_at < ?", to.UTC()).
		Order("starts_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return events, nil
}

// ========================================
// CalendarMapping Repository
// ========================================

// BunCalendarMappingRepository implements CalendarMappingRepository using Bun ORM
type BunCalendarMappingRepository struct {
	db *bun.DB
}

// NewBunCalendarMappingRepository creates a new Bun-based mapping repository
func NewBunCalendarMappingRepository(db *bun.DB) CalendarMappingRepository {
	return &BunCalendarMappingRepository{db: db}
}

// Get retrieves the explicit mapping for an external event
func (r *BunCalendarMappingRepository) Get(ctx context.Context, externalID string) (*models.CalendarEventMapping, error) {
	m := new(models.CalendarEventMapping)
	err := r.db.NewSelect().
		Model(m).
		Where("external_id = ?", externalID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("calendar mapping %s: %w", externalID, ErrNotFound)
		}
		return nil, fmt.Errorf("get calendar mapping: %w", err)
	}
	return m, nil
}

// Upsert creates or repoints a mapping
func (r *BunCalendarMappingRepository) Upsert(ctx context.Context, m *models.CalendarEventMapping) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NewInsert().
		Model(m).
		On("CONFLICT (external_id) DO UPDATE").
		Set("church_id = EXCLUDED.church_id").
		Set("created_by = EXCLUDED.created_by").
		Exec(ctx)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("church %s: %w", m.ChurchID, ErrNotFound)
		}
		return fmt.Errorf("upsert calendar mapping: %w", err)
	}
	return nil
}

// ========================================
// UnmatchedEvent Repository
// ========================================

// BunUnmatchedEventRepository implements UnmatchedEventRepository using Bun ORM
type BunUnmatchedEventRepository struct {
	db *bun.DB
}

// NewBunUnmatchedEventRepository creates a new Bun-based unmatched event repository
func NewBunUnmatchedEventRepository(db *bun.DB) UnmatchedEventRepository {
	return &BunUnmatchedEventRepository{db: db}
}

// InsertIfAbsent adds an event to the holding area unless it is already there
func (r *BunUnmatchedEventRepository) InsertIfAbsent(ctx context.Context, e *models.UnmatchedCalendarEvent) (bool, error) {
	if e.FirstSeenAt.IsZero() {
		e.FirstSeenAt = time.Now().UTC()
	}
	result, err := r.db.NewInsert().
		Model(e).
		On("CONFLICT (external_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert unmatched calendar event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// GetByExternalID retrieves a held event
func (r *BunUnmatchedEventRepository) GetByExternalID(ctx context.Context, externalID string) (*models.UnmatchedCalendarEvent, error) {
	e := new(models.UnmatchedCalendarEvent)
	err := r.db.NewSelect().
		Model(e).
		Where("external_id = ?", externalID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("unmatched calendar event %s: %w", externalID, ErrNotFound)
		}
		return nil, fmt.Errorf("get unmatched calendar event: %w", err)
	}
	return e, nil
}

// Delete removes a held event
func (r *BunUnmatchedEventRepository) Delete(ctx context.Context, externalID string) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*models.UnmatchedCalendarEvent)(nil)).
		Where("external_id = ?", externalID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete unmatched calendar event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// List retrieves held events, soonest first
func (r *BunUnmatchedEventRepository) List(ctx context.Context) ([]models.UnmatchedCalendarEvent, error) {
	var events []models.UnmatchedCalendarEvent
	err := r.db.NewSelect().
		Model(&events).
		Order("starts_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unmatched calendar events: %w", err)
	}
	return events, nil
}
