package cmd

import (
	"fmt"

	"github.com/readshelf/shelfscan/internal/capture"
	"github.com/readshelf/shelfscan/internal/config"
	"github.com/readshelf/shelfscan/internal/covers"
	"github.com/readshelf/shelfscan/internal/decode"
	"github.com/readshelf/shelfscan/internal/history"
	"github.com/readshelf/shelfscan/internal/lookup"
	"github.com/readshelf/shelfscan/internal/ocr"
	"github.com/readshelf/shelfscan/internal/scan"
)

// newDecoder assembles the decode backend stack from configuration: the
// in-process decoder unless disabled, an HTTP sidecar when configured, and an
// optional OCR digit rescue.
func newDecoder(cfg *config.Config) (*decode.Selector, error) {
	var opts []decode.Option
	if cfg.Decode.NativeEnabled() {
		opts = append(opts, decode.WithNative(decode.NewZXingBackend()))
	}
	if cfg.Decode.SidecarURL != "" {
		opts = append(opts, decode.WithFallback(decode.NewSidecarBackend(cfg.Decode.SidecarURL)))
	}

	switch cfg.Rescue.Provider {
	case "":
	case "gemini":
		g := ocr.NewGemini(cfg.Rescue.Model)
		opts = append(opts, decode.WithRescue(ocr.NewReader(g)))
	case "ollama":
		o := ocr.NewOllama(cfg.Rescue.Model)
		opts = append(opts, decode.WithRescue(ocr.NewReader(o)))
	default:
		return nil, fmt.Errorf("unknown rescue provider: %s", cfg.Rescue.Provider)
	}

	return decode.NewSelector(opts...), nil
}

// newController wires a complete widget controller from configuration. The
// camera device is only attached when a stream URL is set.
func newController(cfg *config.Config) (*scan.Controller, *history.Store, error) {
	if cfg.Catalog.BaseURL == "" {
		return nil, nil, fmt.Errorf("no catalog base URL configured (set catalog.base_url or SHELFSCAN_CATALOG_URL)")
	}

	decoder, err := newDecoder(cfg)
	if err != nil {
		return nil, nil, err
	}

	var device capture.Device
	if cfg.Camera.StreamURL != "" {
		device = capture.NewMJPEGDevice(cfg.Camera.StreamURL)
	}

	store := history.New(cfg.History.Limit)
	ctrl := scan.NewController(
		lookup.NewClient(cfg.Catalog.BaseURL),
		capture.NewManager(device, decoder, nil),
		covers.NewResolver(nil),
		scan.WithHistory(store),
		scan.WithNotify(printView),
	)
	return ctrl, store, nil
}
