package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kartoza/cplus-plugin/internal/application"
)

func newLayerCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layer",
		Short: "Check and upload layer files",
	}

	cmd.AddCommand(newLayerCheckCmd(app), newLayerDetailCmd(app), newLayerUploadCmd(app))

	return cmd
}

func newLayerCheckCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <uuid>...",
		Short: "Check which layer UUIDs are available on the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateUUIDs(args); err != nil {
				return err
			}

			result, err := app.client.CheckLayers(cmd.Context(), args)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

func newLayerDetailCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detail <uuid>",
		Short: "Print a layer's stored metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateUUIDs(args); err != nil {
				return err
			}

			doc, err := app.client.GetLayerDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
}

func newLayerUploadCmd(app *app) *cobra.Command {
	var componentType string

	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a layer file in chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			onProgress := func(p application.UploadProgress) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Uploaded part %d/%d\n", p.PartNumber, p.TotalParts)
			}

			result, err := app.service.UploadLayer(cmd.Context(), args[0], componentType, onProgress)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"Layer uploaded: %s (%s, %d bytes)\n", result.UUID, result.Name, result.Size)
			return err
		},
	}

	cmd.Flags().StringVar(&componentType, "component-type", "", "Layer component type, e.g. ncs_pathway")
	_ = cmd.MarkFlagRequired("component-type")

	return cmd
}

func validateUUIDs(values []string) error {
	for _, value := range values {
		if _, err := uuid.Parse(value); err != nil {
			return fmt.Errorf("invalid uuid %q: %w", value, err)
		}
	}
	return nil
}
