package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func NewRewardsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewards",
		Short: "Milestone reward maintenance",
	}
	cmd.AddCommand(newRewardsResumeCommand(opts))
	return cmd
}

// newRewardsResumeCommand finishes milestone payouts that stopped part way,
// for example when the server died between crediting freezes and adding
// points.
func newRewardsResumeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Settle interrupted milestone payouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				n, err := app.Rewards.ResumePending(ctx)
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd.OutOrStdout()).Success(map[string]int{"resumed": n}, func(w io.Writer) {
					fmt.Fprintf(w, "resumed %d payout(s)\n", n)
				})
			})
		},
	}
}
