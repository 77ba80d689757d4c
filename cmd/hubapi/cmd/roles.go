package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/bunx"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/session"
)

// cliActor is recorded as the creator of grants made from the command line.
const cliActor = "cli"

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage user role assignments",
	Long: `Grant, revoke and list roles directly against the database. A running
server picks changes up once its role cache entries expire.`,
}

// withRoleAdmin opens the database and runs fn with a role admin that has no
// cache to invalidate.
func withRoleAdmin(fn func(*session.RoleAdmin) error) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer bunx.Close(db)
	admin := session.NewRoleAdmin(repository.NewBunRoleAssignmentRepository(db), nil, logger).
		WithLegacySessions(repository.NewBunLegacySessionRepository(db))
	return fn(admin)
}

func assignmentFromFlags(cmd *cobra.Command, role string) (auth.Assignment, error) {
	r, err := auth.ParseRole(role)
	if err != nil {
		return auth.Assignment{}, err
	}
	churchID, _ := cmd.Flags().GetString("church")
	return auth.NewAssignment(r, auth.ChurchScope(churchID)), nil
}

var rolesListCmd = &cobra.Command{
	Use:   "list [user-id]",
	Short: "List role assignments, optionally for one user",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoleAdmin(func(admin *session.RoleAdmin) error {
			var (
				rows []models.RoleAssignment
				err  error
			)
			if len(args) == 1 {
				rows, err = admin.List(cmd.Context(), args[0])
			} else {
				rows, err = admin.ListAll(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("failed to list roles: %w", err)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USER\tROLE\tCHURCH\tCREATED_AT\tCREATED_BY")
			for _, ra := range rows {
				church := "-"
				if ra.ChurchID != nil {
					church = *ra.ChurchID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ra.UserID, ra.Role, church, ra.CreatedAt.Format("2006-01-02 15:04"), ra.CreatedBy)
			}
			return w.Flush()
		})
	},
}

var rolesAssignCmd = &cobra.Command{
	Use:   "assign <user-id> <role>",
	Short: "Grant a role (church-bound roles need --church)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := assignmentFromFlags(cmd, args[1])
		if err != nil {
			return err
		}
		return withRoleAdmin(func(admin *session.RoleAdmin) error {
			if _, err := admin.Assign(cmd.Context(), cliActor, args[0], a); err != nil {
				return fmt.Errorf("failed to assign %s: %w", a, err)
			}
			fmt.Printf("Assigned %s to %s\n", a, args[0])
			return nil
		})
	},
}

var rolesRevokeCmd = &cobra.Command{
	Use:   "revoke <user-id> <role>",
	Short: "Revoke a role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := assignmentFromFlags(cmd, args[1])
		if err != nil {
			return err
		}
		return withRoleAdmin(func(admin *session.RoleAdmin) error {
			if err := admin.Revoke(cmd.Context(), cliActor, args[0], a); err != nil {
				return fmt.Errorf("failed to revoke %s: %w", a, err)
			}
			fmt.Printf("Revoked %s from %s\n", a, args[0])
			return nil
		})
	},
}

func init() {
	rolesAssignCmd.Flags().String("church", "", "Church ID the role is scoped to")
	rolesRevokeCmd.Flags().String("church", "", "Church ID the role is scoped to")

	rootCmd.AddCommand(rolesCmd)
	rolesCmd.AddCommand(rolesListCmd, rolesAssignCmd, rolesRevokeCmd)
}
