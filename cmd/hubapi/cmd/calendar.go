package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/bunx"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Calendar sync commands",
}

var calendarSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync every connected calendar account once",
	Long: `Runs one reconciliation pass and prints the summary as JSON. The exit
status is non-zero when any account failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer bunx.Close(db)

		a, err := buildApp(cmd.Context(), db)
		if err != nil {
			return err
		}
		summary, err := a.reconciler.SyncAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("calendar sync failed: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d accounts failed", summary.Failed, summary.Accounts)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(calendarCmd)
	calendarCmd.AddCommand(calendarSyncCmd)
}
