package auth

import "context"

type sessionContextKey struct{}

// SetSessionContext stores the resolved session on the context for downstream consumers.
func SetSessionContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext retrieves the resolved session from the context.
// Returns nil, false for unauthenticated requests.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*Session)
	return s, ok && s != nil
}
