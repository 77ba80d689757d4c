package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
)

// Predicate decides whether a resolved session may proceed.
type Predicate func(r *http.Request, s *auth.Session) bool

// Require gates a handler: 500 when resolution failed, 401 without a
// session, 403 when the predicate rejects it.
func Require(allow Predicate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ResolveError(r.Context()) != nil {
				internalError(w)
				return
			}
			s, ok := auth.SessionFromContext(r.Context())
			if !ok {
				unauthenticated(w)
				return
			}
			if allow != nil && !allow(r, s) {
				forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession admits any resolved session.
func RequireSession(next http.Handler) http.Handler {
	return Require(nil)(next)
}

// RequireAdmin admits admins only.
func RequireAdmin(next http.Handler) http.Handler {
	return Require(func(_ *http.Request, s *auth.Session) bool {
		return auth.IsAdmin(s)
	})(next)
}

// RequireChurchLeader admits leaders of the church named by the URL
// parameter, and admins.
func RequireChurchLeader(param string) func(http.Handler) http.Handler {
	return Require(func(r *http.Request, s *auth.Session) bool {
		return auth.IsChurchLeader(s, chi.URLParam(r, param))
	})
}
