package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/session"
)

type stubResolver struct {
	session *auth.Session
	err     error
}

func (s stubResolver) Resolve(context.Context, session.AuthRequest) (*auth.Session, error) {
	return s.session, s.err
}

func newTestRouter(resolver SessionResolver) chi.Router {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	r := chi.NewRouter()
	r.Use(RequestLogger(nil))
	r.Use(NewSessionMiddleware(resolver, nil))
	r.Get("/public", ok)
	r.With(RequireSession).Get("/me", ok)
	r.With(RequireAdmin).Get("/admin", ok)
	r.With(RequireChurchLeader("churchID")).Get("/churches/{churchID}", ok)
	return r
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGates(t *testing.T) {
	leader := auth.NewSession("u1", "l@grace.org", "", auth.SourceLegacy, "k",
		[]auth.Assignment{{Role: auth.RoleChurchLeader, Scope: auth.ChurchScope("c1")}})
	dnaLeader := auth.NewSession("u2", "d@grace.org", "", auth.SourceProvider, "k",
		[]auth.Assignment{{Role: auth.RoleDNALeader, Scope: auth.ChurchScope("c1")}})
	admin := auth.NewSession("u3", "a@hub.org", "", auth.SourceProvider, "k",
		[]auth.Assignment{{Role: auth.RoleAdmin}})

	tests := []struct {
		name    string
		session *auth.Session
		path    string
		want    int
	}{
		{"anonymous public", nil, "/public", http.StatusNoContent},
		{"anonymous me", nil, "/me", http.StatusUnauthorized},
		{"anonymous church", nil, "/churches/c1", http.StatusUnauthorized},
		{"leader me", leader, "/me", http.StatusNoContent},
		{"leader own church", leader, "/churches/c1", http.StatusNoContent},
		{"leader other church", leader, "/churches/c2", http.StatusForbidden},
		{"leader admin", leader, "/admin", http.StatusForbidden},
		{"dna leader church", dnaLeader, "/churches/c1", http.StatusForbidden},
		{"admin any church", admin, "/churches/c9", http.StatusNoContent},
		{"admin admin", admin, "/admin", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestRouter(stubResolver{session: tt.session}), tt.path)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestResolveFailure(t *testing.T) {
	h := newTestRouter(stubResolver{err: errors.New("credential store unavailable")})

	assert.Equal(t, http.StatusNoContent, do(t, h, "/public").Code)

	rec := do(t, h, "/me")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "credential store")
	assert.JSONEq(t, `{"error":"internal server error","code":"internal"}`, rec.Body.String())
}

func TestUnauthenticatedBody(t *testing.T) {
	rec := do(t, newTestRouter(stubResolver{}), "/admin")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"authentication required","code":"unauthenticated"}`, rec.Body.String())
}
