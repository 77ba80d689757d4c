package session

import (
	"context"
	"net/http"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
)

// Authenticator validates one kind of credential and returns a Session.
//
// Return values:
//   - (session, nil): Credential present and valid
//   - (nil, nil): Credential absent, malformed, expired or rejected (try next authenticator)
//   - (nil, error): Upstream failure (credential store or database unavailable)
type Authenticator interface {
	Authenticate(ctx context.Context, req AuthRequest) (*auth.Session, error)
	// Source names the credential kind, used for metrics and logs.
	Source() auth.SessionSource
}

// AuthRequest wraps HTTP request data for authenticator implementations.
type AuthRequest struct {
	// Headers contains HTTP headers (including Authorization)
	Headers http.Header

	// Cookies contains parsed cookies
	Cookies []*http.Cookie
}

// RequestFromHTTP captures the credential-bearing parts of r.
func RequestFromHTTP(r *http.Request) AuthRequest {
	return AuthRequest{Headers: r.Header, Cookies: r.Cookies()}
}

// Cookie returns the value of the named cookie, or "".
func (r AuthRequest) Cookie(name string) string {
	for _, c := range r.Cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
