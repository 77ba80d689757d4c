package cmd

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/credstore"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/calendar"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/onboarding"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/session"
)

// app holds the wired services shared by serve and the admin commands.
type app struct {
	churches       repository.ChurchRepository
	legacySessions repository.LegacySessionRepository

	credstore  *credstore.Client
	resolver   *session.Resolver
	roles      *session.RoleAdmin
	onboarding *onboarding.Service
	reconciler *calendar.Reconciler
	// connector is nil when calendar OAuth is not configured.
	connector *calendar.Connector
}

func buildApp(ctx context.Context, db *bun.DB) (*app, error) {
	churchRepo := repository.NewBunChurchRepository(db)
	leaderRepo := repository.NewBunChurchLeaderRepository(db)
	roleRepo := repository.NewBunRoleAssignmentRepository(db)
	legacyRepo := repository.NewBunLegacySessionRepository(db)
	activationRepo := repository.NewBunLegacyActivationRepository(db)
	connRepo := repository.NewBunCalendarConnectionRepository(db)

	a := &app{
		churches:       churchRepo,
		legacySessions: legacyRepo,
		credstore:      credstore.NewClient(cfg.CredentialStore),
	}

	// Provider tokens are tried before legacy cookies.
	var authenticators []session.Authenticator
	cache := session.NewExpirableRoleCache(cfg.Session.RoleCacheSize, cfg.Session.RoleCacheTTL)
	if cfg.CredentialStore.URL != "" {
		authenticators = append(authenticators, session.NewProviderAuthenticator(
			a.credstore, roleRepo, cache, cfg.CredentialStore.SessionCookieName, logger,
		))
	} else {
		logger.Warn("credential store not configured; only legacy cookies will resolve")
	}
	authenticators = append(authenticators, session.NewLegacyAuthenticator(
		legacyRepo, leaderRepo, cfg.Session.LegacyCookieName, cfg.Session.LegacyMaxAge, logger,
	))
	a.resolver = session.NewResolver(cache, logger, authenticators...)
	a.roles = session.NewRoleAdmin(roleRepo, a.resolver, logger).WithLegacySessions(legacyRepo)

	a.onboarding = onboarding.NewService(a.credstore, churchRepo, leaderRepo, a.roles, onboarding.Options{
		ServerURL:     cfg.ServerURL,
		ActivationTTL: cfg.Session.ActivationTTL,
		LegacyMaxAge:  cfg.Session.LegacyMaxAge,
	}, logger).
		WithLegacyRepositories(activationRepo, legacyRepo).
		WithNotifier(onboarding.NewLogNotifier(logger.Named("notify"), cfg.Debug)).
		WithInvalidator(a.resolver)

	oauthCfg := &oauth2.Config{}
	if cfg.Calendar.Enabled() {
		connector, err := calendar.NewConnector(ctx, cfg.Calendar, cfg.Session.SecureCookies, connRepo, logger.Named("calendar"))
		if err != nil {
			return nil, fmt.Errorf("configure calendar connector: %w", err)
		}
		a.connector = connector
		oauthCfg = connector.OAuthConfig()
	} else {
		logger.Info("calendar integration disabled", zap.String("reason", "HUB_CALENDAR_CLIENT_ID not set"))
	}

	provider := calendar.NewGoogleProvider(oauthCfg, connRepo, logger.Named("calendar"))
	a.reconciler = calendar.NewReconciler(provider, calendar.Stores{
		Churches:    churchRepo,
		Connections: connRepo,
		Events:      repository.NewBunCalendarEventRepository(db),
		Mappings:    repository.NewBunCalendarMappingRepository(db),
		Unmatched:   repository.NewBunUnmatchedEventRepository(db),
	}, calendar.Options{
		WindowPast:   cfg.Calendar.WindowPast,
		WindowFuture: cfg.Calendar.WindowFuture,
		Concurrency:  cfg.Calendar.SyncConcurrency,
	}, logger.Named("calendar"))

	return a, nil
}
