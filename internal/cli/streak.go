package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/dto"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/spf13/cobra"
)

// NewInspectCommand prints a user's streak as the API would report it. It
// never creates a record.
func NewInspectCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <user>",
		Short: "Show a user's streak, state and freeze balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				user, err := app.FindUser(ctx, args[0])
				if err != nil {
					return err
				}

				out := newFormatter(opts, cmd.OutOrStdout())
				lookup, err := app.Streaks.Lookup(ctx, user.ID)
				if err != nil {
					return err
				}
				if _, ok := lookup.Get(); !ok {
					return out.Success(map[string]any{"user_id": user.ID, "record": nil}, func(w io.Writer) {
						fmt.Fprintf(w, "%s has no streak record yet\n", user.Username)
					})
				}

				status, err := app.Streaks.CheckStreak(ctx, user.ID)
				if err != nil {
					return err
				}
				resp := status.Response()
				return out.Success(resp, func(w io.Writer) { printStatus(w, user.Username, resp) })
			})
		},
	}
}

func printStatus(w io.Writer, username string, s dto.StreakStatusResponse) {
	fmt.Fprintf(w, "user:     %s\n", username)
	fmt.Fprintf(w, "state:    %s", s.State)
	if s.MissedDays > 0 {
		fmt.Fprintf(w, " (%d missed)", s.MissedDays)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "streak:   %d (longest %d)\n", s.CurrentStreak, s.LongestStreak)
	fmt.Fprintf(w, "last day: %s, today %s\n", s.LastCheckinDay, s.Today)
	fmt.Fprintf(w, "freezes:  manual %d/%d, auto %d\n", s.Freezes.Manual, s.Freezes.MaxManual, s.Freezes.Auto)
}

func NewResetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <user>",
		Short: "Zero a user's current streak; the longest streak is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				user, err := app.FindUser(ctx, args[0])
				if err != nil {
					return err
				}
				res, err := app.Streaks.ResetStreak(ctx, user.ID)
				if errors.Is(err, apperror.ErrRecordNotFound) {
					return WrapExitError(ExitFailure, "nothing to reset", err)
				}
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd.OutOrStdout()).Success(res.Response(), func(w io.Writer) {
					if !res.Changed {
						fmt.Fprintf(w, "%s already at 0 (longest %d)\n", user.Username, res.LongestStreak)
						return
					}
					fmt.Fprintf(w, "%s reset to 0 (longest %d)\n", user.Username, res.LongestStreak)
				})
			})
		},
	}
}
