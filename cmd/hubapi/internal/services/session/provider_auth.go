package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/credstore"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/telemetry"
)

// IdentityVerifier resolves a provider access token into an identity.
// credstore.Client implements it.
type IdentityVerifier interface {
	Authenticate(ctx context.Context, accessToken string) (*credstore.Identity, error)
}

// ProviderAuthenticator authenticates requests carrying a credential-store
// access token.
//
//  1. Take the token from "Authorization: Bearer" or the provider session cookie
//  2. Return (nil, nil) if neither is present
//  3. Look the token hash up in the role cache
//  4. On a miss, verify the token with the credential store
//  5. Load the user's role assignments
//  6. Cache and return the Session
type ProviderAuthenticator struct {
	verifier   IdentityVerifier
	roles      repository.RoleAssignmentRepository
	cache      RoleCache
	cookieName string
	now        func() time.Time
	logger     *zap.Logger
}

// NewProviderAuthenticator creates a provider authenticator. A nil cache
// disables caching.
func NewProviderAuthenticator(
	verifier IdentityVerifier,
	roles repository.RoleAssignmentRepository,
	cache RoleCache,
	cookieName string,
	logger *zap.Logger,
) *ProviderAuthenticator {
	if cache == nil {
		cache = NopRoleCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderAuthenticator{
		verifier:   verifier,
		roles:      roles,
		cache:      cache,
		cookieName: cookieName,
		now:        time.Now,
		logger:     logger,
	}
}

// Source implements Authenticator.
func (a *ProviderAuthenticator) Source() auth.SessionSource { return auth.SourceProvider }

// AccessToken extracts the provider access token from the request, header first.
func (a *ProviderAuthenticator) AccessToken(req AuthRequest) string {
	if token := auth.BearerToken(req.Headers); token != "" {
		return token
	}
	if a.cookieName == "" {
		return ""
	}
	if value := req.Cookie(a.cookieName); value != "" {
		return auth.ProviderAccessToken(value)
	}
	return ""
}

// Authenticate implements Authenticator.
func (a *ProviderAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*auth.Session, error) {
	token := a.AccessToken(req)
	if token == "" {
		return nil, nil
	}
	key := auth.HashToken(token)

	if entry, ok := a.cache.Get(key); ok {
		telemetry.RecordRoleCacheLookup(true)
		return auth.NewSession(entry.UserID, entry.Email, entry.Name, auth.SourceProvider, key, entry.Roles), nil
	}
	telemetry.RecordRoleCacheLookup(false)

	identity, err := a.verifier.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, credstore.ErrInvalidCredential) {
			a.logger.Debug("provider credential rejected", zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("verify provider credential: %w", err)
	}

	rows, err := a.roles.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("load role assignments: %w", err)
	}
	roles := assignmentsFromRows(rows, a.logger)

	a.cache.Add(key, CacheEntry{
		UserID:     identity.UserID,
		Email:      identity.Email,
		Name:       identity.Name,
		Roles:      roles,
		ResolvedAt: a.now(),
	})
	return auth.NewSession(identity.UserID, identity.Email, identity.Name, auth.SourceProvider, key, roles), nil
}

// assignmentsFromRows maps stored grants to assignments, skipping role names
// this build does not know.
func assignmentsFromRows(rows []models.RoleAssignment, logger *zap.Logger) []auth.Assignment {
	out := make([]auth.Assignment, 0, len(rows))
	for _, row := range rows {
		role, err := auth.ParseRole(row.Role)
		if err != nil {
			logger.Warn("skipping unknown role assignment",
				zap.String("assignment_id", row.ID),
				zap.String("user_id", row.UserID),
				zap.String("role", row.Role),
			)
			continue
		}
		out = append(out, auth.NewAssignment(role, auth.ScopeFromNullable(row.ChurchID)))
	}
	return out
}
