package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// grantConcurrency bounds parallel row updates during bulk grants.
const grantConcurrency = 4

type creditOptions struct {
	Kind   string
	Amount int
}

type GrantOutcome struct {
	UserID    uuid.UUID            `json:"user_id"`
	Username  string               `json:"username"`
	Accepted  int                  `json:"accepted"`
	Discarded int                  `json:"discarded"`
	Balance   entity.FreezeBalance `json:"balance"`
}

func NewCreditsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Grant or revoke freeze credits",
	}
	cmd.AddCommand(newCreditsGrantCommand(opts))
	cmd.AddCommand(newCreditsRevokeCommand(opts))
	return cmd
}

func (o *creditOptions) validate() (entity.FreezeKind, error) {
	kind := entity.FreezeKind(o.Kind)
	if !kind.Valid() {
		return "", NewExitError(ExitCommandError, fmt.Sprintf("invalid --kind %q: must be manual or auto", o.Kind))
	}
	if o.Amount < 1 {
		return "", NewExitError(ExitCommandError, "--amount must be positive")
	}
	return kind, nil
}

func newCreditsGrantCommand(opts *RootOptions) *cobra.Command {
	copts := &creditOptions{}

	cmd := &cobra.Command{
		Use:   "grant <user>...",
		Short: "Credit freezes to one or more users",
		Long: `Credit freezes to one or more users, given by id or username.

Manual credits saturate at the configured capacity; the overflow is
reported as discarded.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := copts.validate()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				outcomes, err := grantAll(ctx, app, args, kind, copts.Amount)
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd.OutOrStdout()).Success(outcomes, func(w io.Writer) {
					for _, o := range outcomes {
						fmt.Fprintf(w, "%s: +%d %s (discarded %d) -> manual=%d auto=%d\n",
							o.Username, o.Accepted, kind, o.Discarded, o.Balance.ManualCredits, o.Balance.AutoCredits)
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&copts.Kind, "kind", string(entity.FreezeManual), "credit kind (manual|auto)")
	cmd.Flags().IntVar(&copts.Amount, "amount", 1, "credits per user")
	return cmd
}

// grantAll resolves every user first so a typo aborts before any credit is
// written, then credits them concurrently. Outcomes keep argument order.
func grantAll(ctx context.Context, app *App, refs []string, kind entity.FreezeKind, amount int) ([]GrantOutcome, error) {
	users := make([]*entity.User, len(refs))
	for i, ref := range refs {
		u, err := app.FindUser(ctx, ref)
		if err != nil {
			return nil, err
		}
		users[i] = u
	}

	outcomes := make([]GrantOutcome, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(grantConcurrency)
	for i, u := range users {
		g.Go(func() error {
			res, err := app.Ledger.Credit(gctx, u.ID, kind, amount)
			if err != nil {
				return fmt.Errorf("credit %s: %w", u.Username, err)
			}
			outcomes[i] = GrantOutcome{
				UserID:    u.ID,
				Username:  u.Username,
				Accepted:  res.Accepted,
				Discarded: res.Discarded,
				Balance:   res.Balance,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func newCreditsRevokeCommand(opts *RootOptions) *cobra.Command {
	copts := &creditOptions{}

	cmd := &cobra.Command{
		Use:   "revoke <user>",
		Short: "Remove freeze credits from a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := copts.validate()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				user, err := app.FindUser(ctx, args[0])
				if err != nil {
					return err
				}
				balance, err := app.Ledger.Debit(ctx, user.ID, kind, copts.Amount)
				if err != nil {
					if errors.Is(err, apperror.ErrInsufficientCredits) {
						return WrapExitError(ExitFailure, "revoke refused", err)
					}
					return err
				}
				return newFormatter(opts, cmd.OutOrStdout()).Success(balance, func(w io.Writer) {
					fmt.Fprintf(w, "%s: -%d %s -> manual=%d auto=%d\n",
						user.Username, copts.Amount, kind, balance.ManualCredits, balance.AutoCredits)
				})
			})
		},
	}

	cmd.Flags().StringVar(&copts.Kind, "kind", string(entity.FreezeManual), "credit kind (manual|auto)")
	cmd.Flags().IntVar(&copts.Amount, "amount", 1, "credits to remove")
	return cmd
}
