package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/readshelf/shelfscan/internal/config"
)

func newScanCmd(configPath *string) *cobra.Command {
	var loop bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan barcodes live from the configured camera stream",
		Long: `Opens the configured MJPEG camera stream and polls frames until a barcode
decodes, then resolves it against the catalog. With --loop, keeps scanning
until interrupted and prints the session's resolutions on exit.`,
		Example: `  # Scan one barcode and resolve it
  shelfscan scan

  # Keep scanning until Ctrl+C
  shelfscan scan --loop`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Camera.StreamURL == "" {
				return fmt.Errorf("no camera stream configured (set camera.stream_url or SHELFSCAN_CAMERA_URL)")
			}

			ctrl, store, err := newController(cfg)
			if err != nil {
				return err
			}
			defer ctrl.Shutdown()

			ctx := cmd.Context()
			for {
				ctrl.Scan(ctx)
				if err := ctx.Err(); err != nil {
					if errors.Is(err, context.Canceled) {
						break
					}
					return err
				}
				if !loop {
					break
				}
			}

			if loop {
				entries := store.Recent()
				if len(entries) > 0 {
					fmt.Printf("\nResolved %d code(s) this session:\n", len(entries))
					for _, e := range entries {
						fmt.Printf("  %s  %s\n", e.Code, e.Result.Title)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&loop, "loop", false, "Keep scanning until interrupted")

	return cmd
}
