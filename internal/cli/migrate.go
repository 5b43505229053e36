package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/GalitskyKK/kirakira-sub003/internal/bootstrap"
	"github.com/spf13/cobra"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	var seedAdmin bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed default roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				if err := bootstrap.Migrate(app.DB); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				if err := bootstrap.SeedRoles(app.DB); err != nil {
					return fmt.Errorf("seed roles: %w", err)
				}

				result := map[string]any{"migrated": true}
				if seedAdmin {
					admin, err := bootstrap.SeedAdminUser(ctx, app.DB, app.Log)
					if err != nil {
						return fmt.Errorf("seed admin: %w", err)
					}
					result["admin_id"] = admin.ID
				}

				return newFormatter(opts, cmd.OutOrStdout()).Success(result, func(w io.Writer) {
					fmt.Fprintln(w, "schema up to date")
					if id, ok := result["admin_id"]; ok {
						fmt.Fprintf(w, "admin user: %v\n", id)
					}
				})
			})
		},
	}

	cmd.Flags().BoolVar(&seedAdmin, "seed-admin", false, "also create the admin user")
	return cmd
}
