package session

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/telemetry"
)

const tracerName = "hubapi/services/session"

// Resolver runs authenticators in precedence order and returns the first
// session produced.
type Resolver struct {
	authenticators []Authenticator
	cache          RoleCache
	logger         *zap.Logger
}

// NewResolver creates a resolver. Authenticators are tried in the order
// given, so the provider authenticator goes before the legacy one.
func NewResolver(cache RoleCache, logger *zap.Logger, authenticators ...Authenticator) *Resolver {
	if cache == nil {
		cache = NopRoleCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		authenticators: authenticators,
		cache:          cache,
		logger:         logger,
	}
}

// Resolve returns the session for the request, or (nil, nil) when no
// authenticator accepts a credential. Errors mean an upstream failure.
func (r *Resolver) Resolve(ctx context.Context, req AuthRequest) (*auth.Session, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "session.Resolve")
	defer span.End()

	for _, a := range r.authenticators {
		s, err := a.Authenticate(ctx, req)
		if err != nil {
			telemetry.RecordError(span, err)
			telemetry.RecordSessionResolution(string(a.Source()), "error")
			r.logger.Error("session resolution failed",
				zap.String("source", string(a.Source())),
				zap.Error(err),
			)
			return nil, err
		}
		if s != nil {
			span.SetAttributes(
				attribute.String(telemetry.AttrSessionSource, string(s.Source)),
				attribute.String(telemetry.AttrSessionUserID, s.UserID),
			)
			telemetry.RecordSessionResolution(string(s.Source), "resolved")
			return s, nil
		}
	}

	telemetry.RecordSessionResolution("none", "anonymous")
	return nil, nil
}

// ClearSessionCache forgets the cached roles for the session's credential.
// Called on logout.
func (r *Resolver) ClearSessionCache(s *auth.Session) {
	if s == nil || s.CredentialKey == "" {
		return
	}
	r.cache.Remove(s.CredentialKey)
}

// InvalidateUser forgets every cached credential of userID. Called after
// role writes.
func (r *Resolver) InvalidateUser(userID string) {
	if userID == "" {
		return
	}
	r.cache.RemoveUser(userID)
	r.logger.Debug("role cache invalidated", zap.String("user_id", userID))
}
