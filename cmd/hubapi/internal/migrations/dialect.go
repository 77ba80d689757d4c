package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// IsSQLite checks if the database is SQLite
func IsSQLite(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.SQLite
}

// IsPostgreSQL checks if the database is PostgreSQL
func IsPostgreSQL(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.PG
}

// dropTables drops each table in order. CASCADE is PostgreSQL only.
func dropTables(ctx context.Context, db *bun.DB, tables ...string) error {
	for _, table := range tables {
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
		if IsPostgreSQL(db) {
			stmt += " CASCADE"
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	return nil
}
