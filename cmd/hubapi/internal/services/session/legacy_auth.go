package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
)

// LegacyAuthenticator authenticates requests carrying the deprecated
// church-leader cookie.
//
//  1. Extract and decode the legacy cookie
//  2. Reject payloads older than the cookie max age
//  3. Look the token hash up in legacy_sessions
//  4. Validate: leader and church match the payload, row not expired
//  5. Load the leader, who must still belong to the church
//  6. Return a Session with a single church_leader role for that church
type LegacyAuthenticator struct {
	sessions   repository.LegacySessionRepository
	leaders    repository.ChurchLeaderRepository
	cookieName string
	maxAge     time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewLegacyAuthenticator creates a legacy cookie authenticator.
func NewLegacyAuthenticator(
	sessions repository.LegacySessionRepository,
	leaders repository.ChurchLeaderRepository,
	cookieName string,
	maxAge time.Duration,
	logger *zap.Logger,
) *LegacyAuthenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LegacyAuthenticator{
		sessions:   sessions,
		leaders:    leaders,
		cookieName: cookieName,
		maxAge:     maxAge,
		now:        time.Now,
		logger:     logger,
	}
}

// Source implements Authenticator.
func (a *LegacyAuthenticator) Source() auth.SessionSource { return auth.SourceLegacy }

// Authenticate implements Authenticator.
func (a *LegacyAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*auth.Session, error) {
	value := req.Cookie(a.cookieName)
	if value == "" {
		return nil, nil
	}

	payload, err := auth.DecodeLegacyCookie(value)
	if err != nil {
		a.logger.Debug("legacy cookie rejected", zap.Error(err))
		return nil, nil
	}

	now := a.now()
	if payload.Expired(now, a.maxAge) {
		a.logger.Debug("legacy cookie past max age", zap.String("leader_id", payload.LeaderID))
		return nil, nil
	}

	tokenHash := auth.HashToken(payload.Token)
	row, err := a.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load legacy session: %w", err)
	}
	if row.LeaderID != payload.LeaderID || row.ChurchID != payload.ChurchID {
		a.logger.Warn("legacy cookie does not match its session",
			zap.String("leader_id", payload.LeaderID),
			zap.String("church_id", payload.ChurchID),
		)
		return nil, nil
	}
	if !now.Before(row.ExpiresAt) {
		return nil, nil
	}

	leader, err := a.leaders.GetByID(ctx, row.LeaderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load church leader: %w", err)
	}
	if leader.ChurchID != row.ChurchID {
		return nil, nil
	}

	roles := []auth.Assignment{{Role: auth.RoleChurchLeader, Scope: auth.ChurchScope(row.ChurchID)}}
	return auth.NewSession(leader.ID, leader.Email, leader.Name, auth.SourceLegacy, tokenHash, roles), nil
}
