package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/bunx"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/server"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/telemetry"
)

// legacyCleanupSchedule prunes expired legacy sessions.
const legacyCleanupSchedule = "@hourly"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hub API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Observability, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer bunx.Close(db)
	logger.Info("connected to database", zap.String("type", string(bunx.DetectDatabaseType(cfg.DatabaseURL))))

	a, err := buildApp(ctx, db)
	if err != nil {
		return err
	}

	jobs, err := startJobs(ctx, a)
	if err != nil {
		return err
	}
	defer func() { <-jobs.Stop().Done() }()

	opts := server.RouterOptions{
		Sessions:       a.resolver,
		Roles:          a.roles,
		Onboarding:     a.onboarding,
		Calendar:       a.reconciler,
		Churches:       a.churches,
		LegacySessions: a.legacySessions,
		Cfg:            cfg,
		Logger:         logger.Named("http"),
		HealthHandler:  healthHandler(db),
	}
	if a.connector != nil {
		opts.Connector = a.connector
	}
	if cfg.CredentialStore.URL != "" {
		opts.SignOut = a.credstore
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      server.NewRouter(opts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.ServerAddr), zap.String("url", cfg.ServerURL))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// startJobs schedules the calendar sync (when configured) and the legacy
// session cleanup. Overlapping runs of the same job are skipped.
func startJobs(ctx context.Context, a *app) (*cron.Cron, error) {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	if schedule := cfg.Calendar.SyncSchedule; schedule != "" {
		if _, err := c.AddFunc(schedule, func() { runScheduledSync(ctx, a) }); err != nil {
			return nil, fmt.Errorf("invalid calendar sync schedule %q: %w", schedule, err)
		}
		logger.Info("scheduled calendar sync", zap.String("schedule", schedule))
	}

	if _, err := c.AddFunc(legacyCleanupSchedule, func() {
		n, err := a.legacySessions.DeleteExpired(ctx, time.Now())
		if err != nil {
			logger.Error("legacy session cleanup failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("pruned expired legacy sessions", zap.Int64("count", n))
		}
	}); err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}

func runScheduledSync(ctx context.Context, a *app) {
	summary, err := a.reconciler.SyncAll(ctx)
	if err != nil {
		logger.Error("scheduled calendar sync failed", zap.Error(err))
		return
	}
	logger.Info("scheduled calendar sync complete",
		zap.Int("accounts", summary.Accounts),
		zap.Int("failed", summary.Failed),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("unmatched", summary.Unmatched),
	)
}

func healthHandler(db *bun.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			status, code = "database unavailable", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":           status,
			"calendar_enabled": cfg.Calendar.Enabled(),
		})
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
