package server

import (
	"context"
	"net/http"
	"time"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/credstore"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/calendar"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/onboarding"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/session"
)

// The interfaces below list exactly the service methods the handlers use.
// The assertions at the bottom prove the concrete services satisfy them.

type sessionService interface {
	Resolve(ctx context.Context, req session.AuthRequest) (*auth.Session, error)
	ClearSessionCache(s *auth.Session)
}

type roleService interface {
	Assign(ctx context.Context, actorID, userID string, a auth.Assignment) (*models.RoleAssignment, error)
	Revoke(ctx context.Context, actorID, userID string, a auth.Assignment) error
	List(ctx context.Context, userID string) ([]models.RoleAssignment, error)
}

type onboardingService interface {
	ProvisionLeader(ctx context.Context, actorID string, in onboarding.ProvisionLeaderInput) (*onboarding.ProvisionResult, error)
	RequestMagicLink(ctx context.Context, email string) error
	UpdateUserEmail(ctx context.Context, actorID, userID, email string) (*credstore.Identity, error)
	IssueActivation(ctx context.Context, actorID, leaderID string) (*onboarding.Activation, error)
	ActivateLegacy(ctx context.Context, token string) (*onboarding.LegacyLogin, error)
}

type calendarService interface {
	SyncAll(ctx context.Context) (*calendar.Summary, error)
	ResolveUnmatched(ctx context.Context, actorID, externalID, churchID string) (*models.CalendarEvent, error)
	ListUnmatched(ctx context.Context) ([]models.UnmatchedCalendarEvent, error)
	ChurchEvents(ctx context.Context, churchID string, from, to time.Time) ([]models.CalendarEvent, error)
}

type calendarConnector interface {
	AuthURLHandler() http.HandlerFunc
	CallbackHandler(done calendar.ConnectedFunc) http.HandlerFunc
}

type signOutService interface {
	SignOut(ctx context.Context, accessToken string) error
}

var (
	_ sessionService    = (*session.Resolver)(nil)
	_ roleService       = (*session.RoleAdmin)(nil)
	_ onboardingService = (*onboarding.Service)(nil)
	_ calendarService   = (*calendar.Reconciler)(nil)
	_ calendarConnector = (*calendar.Connector)(nil)
	_ signOutService    = (*credstore.Client)(nil)
)
