package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cplus",
		Short:         "CPLUS API client: upload layers, run scenarios, fetch outputs",
		Long:          "cplus talks to the CPLUS scenario API: it stores Trends.Earth credentials, uploads layer files in chunks, submits and executes scenarios, tracks their status, and downloads the results.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAuthCmd(app),
		newConfigCmd(app),
		newLayerCmd(app),
		newScenarioCmd(app),
	)

	return rootCmd
}
