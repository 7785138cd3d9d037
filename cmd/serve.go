package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/readshelf/shelfscan/internal/config"
	"github.com/readshelf/shelfscan/internal/handlers"
)

func newServeCmd(configPath *string) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the decode service over HTTP",
		Long: `Serves the configured decode stack as an HTTP service with a readiness
probe and a single-image decode endpoint. Another shelfscan instance can use
this service as its decode sidecar.`,
		Example: `  # Serve on the default port 8890
  shelfscan serve

  # Serve on a custom port
  shelfscan serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			decoder, err := newDecoder(cfg)
			if err != nil {
				return err
			}
			handler := handlers.New(decoder)

			mux := http.NewServeMux()
			mux.HandleFunc("/decode", handler.HandleDecode)
			mux.HandleFunc("/readyz", handler.HandleReady)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Decode service listening", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down decode service...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8890", "Port to listen on")

	return cmd
}
