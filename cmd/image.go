package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/readshelf/shelfscan/internal/config"
)

func newImageCmd(configPath *string) *cobra.Command {
	var savePath string

	cmd := &cobra.Command{
		Use:   "image <path>",
		Short: "Decode a barcode from a photo and resolve it",
		Long: `Decodes the barcode in a still image and looks the code up against the
catalog. The photo is tried with the in-process decoder first, then the
decode sidecar when one is configured, then the OCR rescue.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctrl, _, err := newController(cfg)
			if err != nil {
				return err
			}
			defer ctrl.Shutdown()

			ctrl.SubmitImage(cmd.Context(), args[0])

			result := ctrl.Active()
			if result == nil {
				return fmt.Errorf("no book resolved from %s", args[0])
			}
			if savePath != "" {
				return saveRecord(result, ctrl.View().Cover.URL, savePath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&savePath, "save", "", "Write the resolved record to this YAML file")

	return cmd
}
