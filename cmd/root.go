package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "shelfscan",
		Short: "Barcode scanner that resolves book metadata from a library catalog",
		Long: `Shelfscan reads barcodes from photos or a camera stream, looks the code up
against a library catalog backend, and prints the resolved book record with
its candidate matches and cover image.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")

	cmd.AddCommand(newLookupCmd(&configPath))
	cmd.AddCommand(newImageCmd(&configPath))
	cmd.AddCommand(newScanCmd(&configPath))
	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newEvalCmd(&configPath))

	return cmd
}
