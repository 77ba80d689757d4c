package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/bunx"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/migrations"
)

// openDB connects with the configured pool size.
func openDB() (*bun.DB, error) {
	db, err := bunx.NewDB(cfg.DatabaseURL, bunx.Options{MaxOpenConns: cfg.MaxDBConnections})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// withMigrator runs fn against a migrator. When locked is set the migration
// lock is held for the duration of fn.
func withMigrator(ctx context.Context, locked bool, fn func(*migrate.Migrator) error) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer bunx.Close(db)

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if locked {
		if err := migrator.Lock(ctx); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		defer func() {
			if err := migrator.Unlock(ctx); err != nil {
				logger.Warn("failed to release migration lock", zap.Error(err))
			}
		}()
	}
	return fn(migrator)
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the migration tracking tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), false, func(m *migrate.Migrator) error {
			if err := m.Init(cmd.Context()); err != nil {
				return fmt.Errorf("failed to initialize migrator: %w", err)
			}
			logger.Info("migration tables initialized")
			return nil
		})
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withMigrator(ctx, true, func(m *migrate.Migrator) error {
			if err := m.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize migrator: %w", err)
			}
			group, err := m.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			if group.ID == 0 {
				logger.Info("no new migrations to apply")
				return nil
			}
			logger.Info("applied migrations", zap.Int64("group", group.ID), zap.Int("count", len(group.Migrations)))
			return nil
		})
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), false, func(m *migrate.Migrator) error {
			ms, err := m.MigrationsWithStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MIGRATION\tSTATUS")
			for _, mig := range ms {
				status := "pending"
				if mig.GroupID > 0 {
					status = fmt.Sprintf("applied (group %d)", mig.GroupID)
				}
				fmt.Fprintf(w, "%s\t%s\n", mig.Name, status)
			}
			return w.Flush()
		})
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back the last migration group",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withMigrator(ctx, true, func(m *migrate.Migrator) error {
			group, err := m.Rollback(ctx)
			if err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			if group.ID == 0 {
				logger.Info("no migrations to roll back")
				return nil
			}
			logger.Info("rolled back migrations", zap.Int64("group", group.ID), zap.Int("count", len(group.Migrations)))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd, dbMigrateCmd, dbStatusCmd, dbRollbackCmd)
}
