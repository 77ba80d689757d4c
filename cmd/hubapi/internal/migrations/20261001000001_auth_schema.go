package migrations

import (
	"context"
	"fmt"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20261001000001, down_20261001000001)
}

// up_20261001000001 creates churches, leaders, role assignments and the
// legacy session tables.
func up_20261001000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating churches table...")
	_, err := db.NewCreateTable().
		Model((*models.Church)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create churches table: %w", err)
	}
	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_churches_calendar_keyword ON churches(LOWER(calendar_keyword))`)
	if err != nil {
		return fmt.Errorf("failed to create index on calendar_keyword: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating church_leaders table...")
	_, err = db.NewCreateTable().
		Model((*models.ChurchLeader)(nil)).
		IfNotExists().
		ForeignKey(`(church_id) REFERENCES churches(id) ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create church_leaders table: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_church_leaders_church_id ON church_leaders(church_id)`)
	if err != nil {
		return fmt.Errorf("failed to create index on church_leaders.church_id: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating user_roles table...")
	_, err = db.NewCreateTable().
		Model((*models.RoleAssignment)(nil)).
		IfNotExists().
		ForeignKey(`(church_id) REFERENCES churches(id) ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create user_roles table: %w", err)
	}

	// NULL church_id means global, and NULLs never collide in a plain unique
	// index, so the global grant is folded to '' for uniqueness.
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_user_roles_unique
		ON user_roles(user_id, role, COALESCE(church_id, ''))
	`)
	if err != nil {
		return fmt.Errorf("failed to create unique index on user_roles: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_user_roles_user_id ON user_roles(user_id)`)
	if err != nil {
		return fmt.Errorf("failed to create index on user_roles.user_id: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating legacy_sessions table...")
	_, err = db.NewCreateTable().
		Model((*models.LegacySession)(nil)).
		IfNotExists().
		ForeignKey(`(leader_id) REFERENCES church_leaders(id) ON DELETE CASCADE`).
		ForeignKey(`(church_id) REFERENCES churches(id) ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create legacy_sessions table: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_legacy_sessions_expires_at ON legacy_sessions(expires_at)`)
	if err != nil {
		return fmt.Errorf("failed to create index on legacy_sessions.expires_at: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating legacy_activations table...")
	_, err = db.NewCreateTable().
		Model((*models.LegacyActivation)(nil)).
		IfNotExists().
		ForeignKey(`(leader_id) REFERENCES church_leaders(id) ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create legacy_activations table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20261001000001 drops the auth tables in reverse dependency order
func down_20261001000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping auth tables...")
	if err := dropTables(ctx, db,
		"legacy_activations",
		"legacy_sessions",
		"user_roles",
		"church_leaders",
		"churches",
	); err != nil {
		return err
	}
	fmt.Println(" OK")
	return nil
}
