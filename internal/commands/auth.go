package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaborage/taskclient/app"
)

func newLoginCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Save a bearer token",
		Long: `Saves the token given with --token in the configured token store.
Later commands send it as "Authorization: Bearer <token>" until the API
rejects it or you run logout.`,
		Example: `  taskctl login --token eyJhbGciOi...
  taskctl login --token dev-token --store redis`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if s.opts.Token == "" {
				return errors.New("login requires --token")
			}
			return s.run(cmd, func(_ context.Context, _ *app.App) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Token saved")
				return err
			})
		},
	}
}

func newLogoutCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.TokenStore().RemoveToken(ctx); err != nil {
					return fmt.Errorf("remove token: %w", err)
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Token removed")
				return err
			})
		},
	}
}
