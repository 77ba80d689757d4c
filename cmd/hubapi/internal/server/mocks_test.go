package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/credstore"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/calendar"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/onboarding"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/session"
)

// mockSessions resolves bearer tokens from a fixed table. The token "broken"
// simulates an upstream failure.
type mockSessions struct {
	byToken map[string]*auth.Session
	cleared []*auth.Session
}

func (m *mockSessions) Resolve(_ context.Context, req session.AuthRequest) (*auth.Session, error) {
	token := auth.BearerToken(req.Headers)
	if token == "broken" {
		return nil, credstore.ErrUpstream
	}
	if token == "" {
		if v := req.Cookie("dna_leader_session"); v != "" {
			token = "legacy:" + v
		}
	}
	return m.byToken[token], nil
}

func (m *mockSessions) ClearSessionCache(s *auth.Session) {
	m.cleared = append(m.cleared, s)
}

type mockRoles struct {
	assignFunc func(ctx context.Context, actorID, userID string, a auth.Assignment) (*models.RoleAssignment, error)
	revokeFunc func(ctx context.Context, actorID, userID string, a auth.Assignment) error
	listFunc   func(ctx context.Context, userID string) ([]models.RoleAssignment, error)
}

func (m *mockRoles) Assign(ctx context.Context, actorID, userID string, a auth.Assignment) (*models.RoleAssignment, error) {
	if m.assignFunc != nil {
		return m.assignFunc(ctx, actorID, userID, a)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRoles) Revoke(ctx context.Context, actorID, userID string, a auth.Assignment) error {
	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, actorID, userID, a)
	}
	return errors.New("not implemented")
}

func (m *mockRoles) List(ctx context.Context, userID string) ([]models.RoleAssignment, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID)
	}
	return nil, nil
}

type mockOnboarding struct {
	provisionFunc       func(ctx context.Context, actorID string, in onboarding.ProvisionLeaderInput) (*onboarding.ProvisionResult, error)
	magicLinkFunc       func(ctx context.Context, email string) error
	updateEmailFunc     func(ctx context.Context, actorID, userID, email string) (*credstore.Identity, error)
	issueActivationFunc func(ctx context.Context, actorID, leaderID string) (*onboarding.Activation, error)
	activateFunc        func(ctx context.Context, token string) (*onboarding.LegacyLogin, error)
}

func (m *mockOnboarding) ProvisionLeader(ctx context.Context, actorID string, in onboarding.ProvisionLeaderInput) (*onboarding.ProvisionResult, error) {
	if m.provisionFunc != nil {
		return m.provisionFunc(ctx, actorID, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockOnboarding) RequestMagicLink(ctx context.Context, email string) error {
	if m.magicLinkFunc != nil {
		return m.magicLinkFunc(ctx, email)
	}
	return nil
}

func (m *mockOnboarding) UpdateUserEmail(ctx context.Context, actorID, userID, email string) (*credstore.Identity, error) {
	if m.updateEmailFunc != nil {
		return m.updateEmailFunc(ctx, actorID, userID, email)
	}
	return nil, errors.New("not implemented")
}

func (m *mockOnboarding) IssueActivation(ctx context.Context, actorID, leaderID string) (*onboarding.Activation, error) {
	if m.issueActivationFunc != nil {
		return m.issueActivationFunc(ctx, actorID, leaderID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockOnboarding) ActivateLegacy(ctx context.Context, token string) (*onboarding.LegacyLogin, error) {
	if m.activateFunc != nil {
		return m.activateFunc(ctx, token)
	}
	return nil, errors.New("not implemented")
}

type mockCalendar struct {
	syncAllFunc       func(ctx context.Context) (*calendar.Summary, error)
	resolveFunc       func(ctx context.Context, actorID, externalID, churchID string) (*models.CalendarEvent, error)
	listUnmatchedFunc func(ctx context.Context) ([]models.UnmatchedCalendarEvent, error)
	churchEventsFunc  func(ctx context.Context, churchID string, from, to time.Time) ([]models.CalendarEvent, error)
}

func (m *mockCalendar) SyncAll(ctx context.Context) (*calendar.Summary, error) {
	if m.syncAllFunc != nil {
		return m.syncAllFunc(ctx)
	}
	return &calendar.Summary{}, nil
}

func (m *mockCalendar) ResolveUnmatched(ctx context.Context, actorID, externalID, churchID string) (*models.CalendarEvent, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, actorID, externalID, churchID)
	}
	return nil, repository.ErrNotFound
}

func (m *mockCalendar) ListUnmatched(ctx context.Context) ([]models.UnmatchedCalendarEvent, error) {
	if m.listUnmatchedFunc != nil {
		return m.listUnmatchedFunc(ctx)
	}
	return nil, nil
}

func (m *mockCalendar) ChurchEvents(ctx context.Context, churchID string, from, to time.Time) ([]models.CalendarEvent, error) {
	if m.churchEventsFunc != nil {
		return m.churchEventsFunc(ctx, churchID, from, to)
	}
	return nil, nil
}

type mockConnector struct{}

func (mockConnector) AuthURLHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://accounts.example.com/o/oauth2/auth", http.StatusFound)
	}
}

func (mockConnector) CallbackHandler(done calendar.ConnectedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") == "" {
			done(w, r, nil, calendar.ErrNoRefreshToken)
			return
		}
		done(w, r, &models.CalendarConnection{
			AccountEmail: "events@church.example",
			ConnectedBy:  "admin-1",
			CalendarID:   "primary",
		}, nil)
	}
}

// mockChurches serves a fixed set of churches.
type mockChurches struct {
	churches map[string]*models.Church
}

func (m *mockChurches) Create(_ context.Context, c *models.Church) error {
	m.churches[c.ID] = c
	return nil
}

func (m *mockChurches) GetByID(_ context.Context, id string) (*models.Church, error) {
	if c, ok := m.churches[id]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockChurches) List(context.Context) ([]models.Church, error) {
	out := make([]models.Church, 0, len(m.churches))
	for _, c := range m.churches {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockChurches) ListWithKeyword(ctx context.Context) ([]models.Church, error) {
	return m.List(ctx)
}

type mockLegacySessions struct {
	deleted []string
}

func (m *mockLegacySessions) Create(context.Context, *models.LegacySession) error { return nil }

func (m *mockLegacySessions) GetByTokenHash(context.Context, string) (*models.LegacySession, error) {
	return nil, repository.ErrNotFound
}

func (m *mockLegacySessions) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	m.deleted = append(m.deleted, tokenHash)
	return nil
}

func (m *mockLegacySessions) DeleteExpired(context.Context, time.Time) (int64, error) { return 0, nil }

func (m *mockLegacySessions) DeleteByLeader(context.Context, string, string) (int64, error) {
	return 0, nil
}

type mockSignOut struct {
	tokens []string
}

func (m *mockSignOut) SignOut(_ context.Context, accessToken string) error {
	m.tokens = append(m.tokens, accessToken)
	return nil
}
