package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change client settings",
	}

	cmd.AddCommand(newConfigShowCmd(app), newConfigSetCmd(app))

	return cmd
}

func newConfigShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.settingsRepo.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"debug: %t\nbase_url: %s\neffective_base_url: %s\n",
				settings.Debug, settings.BaseURL, effectiveBaseURL(settings))
			return err
		},
	}
}

func newConfigSetCmd(app *app) *cobra.Command {
	var debug bool
	var baseURL string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.settingsRepo.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			if cmd.Flags().Changed("debug") {
				settings.Debug = debug
			}
			if cmd.Flags().Changed("base-url") {
				settings.BaseURL = baseURL
			}

			if err := app.settingsRepo.Save(cmd.Context(), settings); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}

			if settings.BaseURL != "" && !settings.Debug {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(),
					"Note: base_url override only takes effect with debug enabled.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging and the base URL override")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Override API base URL (debug mode only)")

	return cmd
}
