package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/config"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/middleware"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/telemetry"
)

// RouterOptions controls the construction of the hub HTTP router.
// Sessions, Roles, Onboarding, Calendar, Churches, LegacySessions and Cfg are
// required. Connector and SignOut are optional.
type RouterOptions struct {
	Sessions       sessionService
	Roles          roleService
	Onboarding     onboardingService
	Calendar       calendarService
	Connector      calendarConnector
	Churches       repository.ChurchRepository
	LegacySessions repository.LegacySessionRepository
	SignOut        signOutService
	Cfg            *config.Config
	Logger         *zap.Logger
	CORSOptions    *cors.Options
	HealthHandler  http.HandlerFunc
}

// DefaultCORSOptions returns the CORS policy for the configured origins.
// Credentials are allowed so browsers send the session cookies.
func DefaultCORSOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, the CORS policy
// and every hub route mounted behind its gate.
func NewRouter(opts RouterOptions) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	corsCfg := DefaultCORSOptions(opts.Cfg.CORSOrigins)
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.HandlerFor(telemetry.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(opts.Sessions, logger))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RequireSession).Get("/session", HandleSession())
			r.Post("/logout", HandleLogout(opts.Sessions, opts.LegacySessions, opts.SignOut, opts.Cfg, logger))
			r.Post("/magic-link", HandleMagicLink(opts.Onboarding, logger))
			r.Post("/legacy/activate", HandleLegacyActivate(opts.Onboarding, opts.Cfg, logger))
		})

		r.With(middleware.RequireSession).Get("/me/church", HandleMyChurch(opts.Churches, logger))
		r.With(middleware.RequireChurchLeader("churchID")).
			Get("/churches/{churchID}/events", HandleChurchEvents(opts.Churches, opts.Calendar, logger))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Route("/users/{userID}", func(r chi.Router) {
				r.Get("/roles", HandleListUserRoles(opts.Roles, logger))
				r.Post("/roles", HandleAssignUserRole(opts.Roles, logger))
				r.Delete("/roles", HandleRevokeUserRole(opts.Roles, logger))
				r.Put("/email", HandleUpdateUserEmail(opts.Onboarding, logger))
			})

			r.Post("/leaders", HandleProvisionLeader(opts.Onboarding, logger))
			r.Post("/leaders/{leaderID}/activation", HandleIssueActivation(opts.Onboarding, logger))

			r.Route("/calendar", func(r chi.Router) {
				r.Get("/connect", HandleCalendarConnect(opts.Connector))
				r.Get("/callback", HandleCalendarCallback(opts.Connector, logger))
				r.Post("/sync", HandleCalendarSync(opts.Calendar, logger))
				r.Get("/unmatched", HandleListUnmatched(opts.Calendar, logger))
				r.Post("/unmatched/{externalID}/resolve", HandleResolveUnmatched(opts.Calendar, logger))
			})
		})
	})

	return r
}
