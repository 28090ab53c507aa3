package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kartoza/cplus-plugin/internal/domain"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Trends.Earth credentials",
	}

	cmd.AddCommand(newAuthLoginCmd(app), newAuthStatusCmd(app), newAuthRemoveCmd(app))

	return cmd
}

func newAuthLoginCmd(app *app) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store credentials and verify them against the identity service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			credentials := domain.LoginCredentials{Email: email, Password: password}
			if err := app.credentialStore.Save(cmd.Context(), credentials); err != nil {
				return fmt.Errorf("store credentials: %w", err)
			}

			app.auth.Invalidate()
			if _, err := app.auth.Token(cmd.Context()); err != nil {
				// A rejected login should not leave bad credentials behind.
				_ = app.credentialStore.Clear(cmd.Context())
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Login successful, credentials stored.")
			return err
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Trends.Earth account email")
	cmd.Flags().StringVar(&password, "password", "", "Trends.Earth account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newAuthStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether credentials are stored and usable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			credentials, err := app.credentialStore.Credentials(cmd.Context())
			if err != nil {
				if errors.Is(err, domain.ErrMissingCredentials) {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), "No credentials stored. Run: cplus auth login")
					return err
				}
				return err
			}

			if _, err := app.auth.Token(cmd.Context()); err != nil {
				return fmt.Errorf("credentials for %s stored but rejected: %w", credentials.Email, err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Authenticated as %s\n", credentials.Email)
			return err
		},
	}
}

func newAuthRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.credentialStore.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear credentials: %w", err)
			}
			app.auth.Invalidate()

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Credentials removed.")
			return err
		},
	}
}
