package server

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/config"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
)

// HandleSession returns the caller's resolved session.
func HandleSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := auth.SessionFromContext(r.Context())
		writeJSON(w, http.StatusOK, newSessionResponse(s))
	}
}

// HandleLogout forgets the caller's session and clears both session cookies.
// Clearing is best-effort: the response is 204 whether or not a session was
// present.
func HandleLogout(
	sessions sessionService,
	legacy repository.LegacySessionRepository,
	signOut signOutService,
	cfg *config.Config,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s, ok := auth.SessionFromContext(ctx); ok {
			sessions.ClearSessionCache(s)

			switch s.Source {
			case auth.SourceLegacy:
				if err := legacy.DeleteByTokenHash(ctx, s.CredentialKey); err != nil {
					logger.Warn("delete legacy session", zap.String("user_id", s.UserID), zap.Error(err))
				}
			case auth.SourceProvider:
				if signOut != nil {
					if token := providerToken(r, cfg.CredentialStore.SessionCookieName); token != "" {
						if err := signOut.SignOut(ctx, token); err != nil {
							logger.Warn("credential store sign-out", zap.String("user_id", s.UserID), zap.Error(err))
						}
					}
				}
			}
			logger.Info("logout", zap.String("user_id", s.UserID), zap.String("source", string(s.Source)))
		}

		secure := cfg.Session.SecureCookies
		http.SetCookie(w, auth.ExpiredCookie(cfg.Session.LegacyCookieName, secure))
		if name := cfg.CredentialStore.SessionCookieName; name != "" {
			http.SetCookie(w, auth.ExpiredCookie(name, secure))
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type magicLinkRequest struct {
	Email string `json:"email"`
}

// HandleMagicLink requests a provider login link. The answer is always 202
// so the route cannot be used to discover accounts.
func HandleMagicLink(onboard onboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req magicLinkRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		if err := onboard.RequestMagicLink(r.Context(), req.Email); err != nil {
			logger.Warn("magic link request failed", zap.Error(err))
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

type legacyActivateRequest struct {
	Token string `json:"token"`
}

// HandleLegacyActivate consumes a one-time activation token and sets the
// legacy session cookie.
func HandleLegacyActivate(onboard onboardingService, cfg *config.Config, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req legacyActivateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		login, err := onboard.ActivateLegacy(r.Context(), strings.TrimSpace(req.Token))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		http.SetCookie(w, auth.NewLegacyCookie(cfg.Session.LegacyCookieName, login.CookieValue, cfg.Session.LegacyMaxAge, cfg.Session.SecureCookies))
		writeJSON(w, http.StatusOK, newSessionResponse(login.Session))
	}
}

func providerToken(r *http.Request, cookieName string) string {
	if token := auth.BearerToken(r.Header); token != "" {
		return token
	}
	if cookieName == "" {
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return auth.ProviderAccessToken(c.Value)
	}
	return ""
}
