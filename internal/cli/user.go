package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/spf13/cobra"
)

type userCreateOptions struct {
	Username string
	Timezone string
	Role     string
}

func NewUserCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserCreateCommand(opts))
	return cmd
}

func newUserCreateCommand(opts *RootOptions) *cobra.Command {
	uopts := &userCreateOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Example: `  streakctl user create --username hana --timezone Asia/Tokyo
  streakctl user create --username ops --role admin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				user, err := app.Accounts.CreateUser(ctx, uopts.Username, uopts.Timezone, uopts.Role)
				if err != nil {
					if errors.Is(err, apperror.ErrInvalidInput) {
						return WrapExitError(ExitCommandError, "cannot create user", err)
					}
					return err
				}
				return newFormatter(opts, cmd.OutOrStdout()).Success(user, func(w io.Writer) {
					fmt.Fprintf(w, "created %s (%s)\n", user.Username, user.ID)
				})
			})
		},
	}

	cmd.Flags().StringVar(&uopts.Username, "username", "", "username (required)")
	cmd.Flags().StringVar(&uopts.Timezone, "timezone", "", "IANA timezone; empty uses the service default")
	cmd.Flags().StringVar(&uopts.Role, "role", entity.RoleMember, "role name")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func NewTokenCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user>",
		Short: "Issue an access token for a user id or username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				user, err := app.FindUser(ctx, args[0])
				if err != nil {
					return err
				}
				token, err := app.Accounts.IssueToken(user)
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd.OutOrStdout()).Success(token, func(w io.Writer) {
					fmt.Fprintln(w, token.AccessToken)
				})
			})
		},
	}
}
