package repository

import (
	"context"
	"time"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
)

// ChurchRepository exposes persistence operations for churches.
type ChurchRepository interface {
	Create(ctx context.Context, church *models.Church) error
	GetByID(ctx context.Context, id string) (*models.Church, error)
	List(ctx context.Context) ([]models.Church, error)
	// ListWithKeyword returns churches that have a non-empty calendar keyword.
	ListWithKeyword(ctx context.Context) ([]models.Church, error)
}

// ChurchLeaderRepository exposes persistence operations for church leaders.
type ChurchLeaderRepository interface {
	Create(ctx context.Context, leader *models.ChurchLeader) error
	GetByID(ctx context.Context, id string) (*models.ChurchLeader, error)
	GetByEmail(ctx context.Context, email string) (*models.ChurchLeader, error)
}

// RoleAssignmentRepository exposes persistence operations for role grants.
type RoleAssignmentRepository interface {
	// Create returns ErrConflict when the (user, role, church) grant exists.
	Create(ctx context.Context, ra *models.RoleAssignment) error
	// ListByUser returns the user's grants in creation order.
	ListByUser(ctx context.Context, userID string) ([]models.RoleAssignment, error)
	// Delete removes one grant. A nil churchID addresses the global grant.
	Delete(ctx context.Context, userID, role string, churchID *string) error
	List(ctx context.Context) ([]models.RoleAssignment, error)
}

// LegacySessionRepository exposes persistence operations for legacy cookies.
type LegacySessionRepository interface {
	Create(ctx context.Context, s *models.LegacySession) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.LegacySession, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// DeleteByLeader removes every session the leader holds for churchID.
	DeleteByLeader(ctx context.Context, leaderID, churchID string) (int64, error)
}

// LegacyActivationRepository exposes persistence operations for one-time
// legacy activation tokens.
type LegacyActivationRepository interface {
	Create(ctx context.Context, a *models.LegacyActivation) error
	// Consume marks the activation used. Missing, used and expired tokens all
	// return ErrNotFound.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*models.LegacyActivation, error)
}

// CalendarConnectionRepository exposes persistence operations for connected
// calendar accounts.
type CalendarConnectionRepository interface {
	Upsert(ctx context.Context, conn *models.CalendarConnection) error
	Get(ctx context.Context, accountEmail string) (*models.CalendarConnection, error)
	List(ctx context.Context) ([]models.CalendarConnection, error)
	UpdateToken(ctx context.Context, accountEmail string, token models.OAuthToken) error
	MarkSynced(ctx context.Context, accountEmail string, at time.Time) error
}

// CalendarEventRepository exposes persistence operations for matched events.
type CalendarEventRepository interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.CalendarEvent, error)
	Create(ctx context.Context, event *models.CalendarEvent) error
	Update(ctx context.Context, event *models.CalendarEvent) error
	// DeleteByExternalID reports whether a row was removed.
	DeleteByExternalID(ctx context.Context, externalID string) (bool, error)
	ListByChurch(ctx context.Context, churchID string, from, to time.Time) ([]models.CalendarEvent, error)
}

// CalendarMappingRepository exposes persistence operations for explicit
// event-to-church mappings.
type CalendarMappingRepository interface {
	Get(ctx context.Context, externalID string) (*models.CalendarEventMapping, error)
	Upsert(ctx context.Context, m *models.CalendarEventMapping) error
}

// UnmatchedEventRepository exposes persistence operations for the holding area
// of events no church could be matched to.
type UnmatchedEventRepository interface {
	// InsertIfAbsent reports whether a row was inserted. Existing rows are
	// left untouched.
	InsertIfAbsent(ctx context.Context, e *models.UnmatchedCalendarEvent) (bool, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.UnmatchedCalendarEvent, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, externalID string) (bool, error)
	List(ctx context.Context) ([]models.UnmatchedCalendarEvent, error)
}
