package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/readshelf/shelfscan/internal/config"
)

func newLookupCmd(configPath *string) *cobra.Command {
	var (
		candidate int
		savePath  string
	)

	cmd := &cobra.Command{
		Use:   "lookup <code>",
		Short: "Resolve a manually entered barcode against the catalog",
		Example: `  # Look up an ISBN (punctuation is stripped automatically)
  shelfscan lookup 978-0-13-468599-1

  # Merge the second candidate match and save the record
  shelfscan lookup 9780134685991 --candidate 1 --save book.yaml`,
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

			ctx := cmd.Context()
			ctrl.Submit(ctx, args[0])
			if candidate >= 0 {
				ctrl.PickCandidate(ctx, candidate)
			}

			result := ctrl.Active()
			if result == nil {
				return fmt.Errorf("no match for code %q", args[0])
			}
			if savePath != "" {
				return saveRecord(result, ctrl.View().Cover.URL, savePath)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&candidate, "candidate", -1, "Merge the candidate with this index into the result")
	cmd.Flags().StringVar(&savePath, "save", "", "Write the resolved record to this YAML file")

	return cmd
}
