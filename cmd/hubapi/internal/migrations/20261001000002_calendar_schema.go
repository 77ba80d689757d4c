package migrations

import (
	"context"
	"fmt"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20261001000002, down_20261001000002)
}

// up_20261001000002 creates the calendar connection and reconciliation tables
func up_20261001000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating calendar_connections table...")
	_, err := db.NewCreateTable().
		Model((*models.CalendarConnection)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create calendar_connections table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating calendar_events table...")
	_, err = db.NewCreateTable().
		Model((*models.CalendarEvent)(nil)).
		IfNotExists().
		ForeignKey(`(church_id) REFERENCES churches(id) ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create calendar_events table: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_calendar_events_church_starts ON calendar_events(church_id, starts_at)`)
	if err != nil {
		return fmt.Errorf("failed to create index on calendar_events(church_id, starts_at): %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating calendar_event_mappings table...")
	_, err = db.NewCreateTable().
		Model((*models.CalendarEventMapping)(nil)).
		IfNotExists().
		ForeignKey(`(church_id) REFERENCES churches(id) ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create calendar_event_mappings table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating unmatched_calendar_events table...")
	_, err = db.NewCreateTable().
		Model((*models.UnmatchedCalendarEvent)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create unmatched_calendar_events table: %w", err)
	}
	if IsPostgreSQL(db) {
		_, err = db.Exec(`ALTER TABLE unmatched_calendar_events ALTER COLUMN raw TYPE JSONB USING raw::jsonb`)
		if err != nil {
			return fmt.Errorf("failed to ensure raw column is jsonb: %w", err)
		}
	}
	fmt.Println(" OK")

	return nil
}

// down_20261001000002 drops the calendar tables
func down_20261001000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping calendar tables...")
	if err := dropTables(ctx, db,
		"unmatched_calendar_events",
		"calendar_event_mappings",
		"calendar_events",
		"calendar_connections",
	); err != nil {
		return err
	}
	fmt.Println(" OK")
	return nil
}
