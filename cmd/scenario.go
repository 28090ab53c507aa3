package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kartoza/cplus-plugin/internal/adapters/api"
	"github.com/kartoza/cplus-plugin/internal/application"
	"github.com/kartoza/cplus-plugin/internal/domain"
)

func newScenarioCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Submit, run, and track analysis scenarios",
	}

	cmd.AddCommand(
		newScenarioSubmitCmd(app),
		newScenarioExecuteCmd(app),
		newScenarioCancelCmd(app),
		newScenarioStatusCmd(app),
		newScenarioDetailCmd(app),
		newScenarioOutputsCmd(app),
		newScenarioRunCmd(app),
	)

	return cmd
}

func newScenarioSubmitCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <detail.json>",
		Short: "Submit a scenario detail document for later execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := readScenarioDetail(args[0])
			if err != nil {
				return err
			}

			scenarioUUID, err := app.client.SubmitScenario(cmd.Context(), detail)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), scenarioUUID)
			return err
		},
	}
}

func newScenarioExecuteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "execute <uuid>",
		Short: "Start execution of a submitted scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateUUIDs(args); err != nil {
				return err
			}

			if err := app.client.ExecuteScenario(cmd.Context(), args[0]); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Scenario execution started")
			return err
		},
	}
}

func newScenarioCancelCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <uuid>",
		Short: "Cancel a running scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateUUIDs(args); err != nil {
				return err
			}

			if err := app.client.CancelScenario(cmd.Context(), args[0]); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Scenario cancelled")
			return err
		},
	}
}

func newScenarioStatusCmd(app *app) *cobra.Command {
	var (
		watch        bool
		pollInterval time.Duration
		pollLimit    int
	)

	cmd := &cobra.Command{
		Use:   "status <uuid>",
		Short: "Show a scenario's execution status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateUUIDs(args); err != nil {
				return err
			}

			if !watch {
				// Limit 2 yields a single status request before the poller
				// gives up on a non-terminal scenario.
				var last api.Document
				poller := app.client.FetchScenarioStatus(args[0], api.WithPollLimit(2), api.WithPollInterval(time.Millisecond))
				poller.OnResponse = func(doc api.Document) { last = doc }
				doc, err := poller.Poll(cmd.Context())
				if err != nil {
					var pollErr *api.PollError
					if !errors.As(err, &pollErr) || last == nil {
						return err
					}
					doc = last
				}
				return printDocument(cmd, doc)
			}

			return runPollSpinner(cmd.Context(), cmd.OutOrStdout(), "Scenario",
				func(ctx context.Context, onStatus func(string, float64)) error {
					poller := app.client.FetchScenarioStatus(args[0],
						api.WithPollLimit(pollLimit),
						api.WithPollInterval(pollInterval),
					)
					poller.OnResponse = func(doc api.Document) {
						onStatus(statusFields(doc))
					}
					doc, err := poller.Poll(ctx)
					if err != nil {
						return err
					}
					return printDocument(cmd, doc)
				})
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Poll until the scenario reaches a terminal status")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", api.DefaultPollInterval, "Delay between status requests while watching")
	cmd.Flags().IntVar(&pollLimit, "poll-limit", api.DefaultPollLimit, "Maximum status requests while watching, -1 for unbounded")

	return cmd
}

func newScenarioDetailCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detail <uuid>",
		Short: "Print a scenario's full detail document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateUUIDs(args); err != nil {
				return err
			}

			doc, err := app.client.FetchScenarioDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printDocument(cmd, doc)
		},
	}
}

func newScenarioOutputsCmd(app *app) *cobra.Command {
	var (
		download bool
		dir      string
	)

	cmd := &cobra.Command{
		Use:   "outputs <uuid>",
		Short: "List a scenario's outputs, optionally downloading them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateUUIDs(args); err != nil {
				return err
			}

			if !download {
				outputs, err := app.client.FetchScenarioOutputs(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, output := range outputs {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", output.Group, output.Filename)
				}
				return nil
			}

			result, err := app.service.FetchScenarioOutputs(cmd.Context(), args[0], dir, nil)
			if err != nil {
				return err
			}
			return printDownloadResult(cmd, result)
		},
	}

	cmd.Flags().BoolVar(&download, "download", false, "Download the outputs instead of listing them")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to download outputs into")

	return cmd
}

func newScenarioRunCmd(app *app) *cobra.Command {
	var (
		dir          string
		pollInterval time.Duration
		pollLimit    int
	)

	cmd := &cobra.Command{
		Use:   "run <detail.json>",
		Short: "Submit, execute, and track a scenario, downloading its outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := readScenarioDetail(args[0])
			if err != nil {
				return err
			}

			var final api.Document
			err = runPollSpinner(cmd.Context(), cmd.OutOrStdout(), "Scenario",
				func(ctx context.Context, onStatus func(string, float64)) error {
					run, err := app.service.StartRun(ctx, detail, application.RunOptions{
						PollInterval: pollInterval,
						PollLimit:    pollLimit,
						OnStatus: func(doc api.Document) {
							onStatus(statusFields(doc))
						},
					})
					if err != nil {
						return err
					}

					final, err = run.Wait(ctx)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Scenario %s finished: %s\n",
						run.ScenarioUUID, documentStatus(final))

					if documentStatus(final) != domain.StatusCompleted {
						return nil
					}

					result, err := app.service.FetchScenarioOutputs(ctx, run.ScenarioUUID, dir, nil)
					if err != nil {
						return err
					}
					return printDownloadResult(cmd, result)
				})
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to download outputs into")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", api.DefaultPollInterval, "Delay between status requests")
	cmd.Flags().IntVar(&pollLimit, "poll-limit", api.DefaultPollLimit, "Maximum status requests, -1 for unbounded")

	return cmd
}

func readScenarioDetail(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario detail: %w", err)
	}

	var detail map[string]any
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("parse scenario detail: %w", err)
	}
	return detail, nil
}

func printDocument(cmd *cobra.Command, doc api.Document) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func printDownloadResult(cmd *cobra.Command, result api.DownloadResult) error {
	for _, path := range result.Paths {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), path); err != nil {
			return err
		}
	}
	return nil
}

func documentStatus(doc api.Document) string {
	status, _ := doc["status"].(string)
	return status
}

func statusFields(doc api.Document) (string, float64) {
	progress, _ := doc["progress"].(float64)
	return documentStatus(doc), progress
}
