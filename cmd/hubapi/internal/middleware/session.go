package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/session"
)

// SessionResolver resolves the credentials on a request. session.Resolver
// implements it.
type SessionResolver interface {
	Resolve(ctx context.Context, req session.AuthRequest) (*auth.Session, error)
}

type resolveErrorKey struct{}

// NewSessionMiddleware resolves the session for every request and stores it
// on the context. Anonymous requests pass through untouched. A resolution
// failure is recorded on the context so that gated routes answer 500 while
// public routes keep working.
func NewSessionMiddleware(resolver SessionResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			s, err := resolver.Resolve(ctx, session.RequestFromHTTP(r))
			switch {
			case err != nil:
				logger.Error("session resolution failed",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				ctx = context.WithValue(ctx, resolveErrorKey{}, err)
			case s != nil:
				ctx = auth.SetSessionContext(ctx, s)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResolveError returns the session resolution failure for the request, if any.
func ResolveError(ctx context.Context) error {
	err, _ := ctx.Value(resolveErrorKey{}).(error)
	return err
}
