// Package testdb opens migrated in-memory SQLite databases for tests.
package testdb

import (
	"context"
	"testing"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/bunx"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// New returns a fresh in-memory database with every migration applied. The
// database is closed when the test ends.
func New(t testing.TB) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = bunx.Close(db) })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("init migrator: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
