package decode

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	// readinessTimeout bounds the one-time wait for the sidecar to come up.
	// After it elapses the backend is terminally unsupported; it never
	// hangs a caller.
	readinessTimeout  = 4500 * time.Millisecond
	readinessInterval = 50 * time.Millisecond
)

// SidecarBackend decodes through a separate decode service. The service is
// probed for readiness exactly once, no matter how many decodes race the
// first call; until it is ready every decode soft-fails.
type SidecarBackend struct {
	baseURL    string
	httpClient *http.Client

	probeOnce sync.Once
	ready     bool
}

// NewSidecarBackend returns a backend for the decode service at baseURL.
func NewSidecarBackend(baseURL string) *SidecarBackend {
	return &SidecarBackend{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ensureReady performs the guarded one-time readiness poll: every 50ms up to
// the bounded timeout, then gives up for good.
func (b *SidecarBackend) ensureReady(ctx context.Context) bool {
	b.probeOnce.Do(func() {
		deadline := time.Now().Add(readinessTimeout)
		for time.Now().Before(deadline) {
			if ctx.Err() != nil {
				return
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/readyz", nil)
			if err != nil {
				return
			}
			resp, err := b.httpClient.Do(req)
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					b.ready = true
					return
				}
			}
			time.Sleep(readinessInterval)
		}
		slog.Warn("Decode sidecar never became ready", "url", b.baseURL)
	})
	return b.ready
}

// DecodeImage posts the PNG-encoded frame to the sidecar. An unavailable
// sidecar is ErrUnsupported; everything else that goes wrong is ErrNoCode.
func (b *SidecarBackend) DecodeImage(ctx context.Context, img image.Image) (string, error) {
	if img == nil {
		return "", ErrNoCode
	}
	if !b.ensureReady(ctx) {
		return "", ErrUnsupported
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", ErrNoCode
	}

	payload, err := json.Marshal(map[string]string{
		"image": base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	if err != nil {
		return "", ErrNoCode
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/decode", bytes.NewReader(payload))
	if err != nil {
		return "", ErrNoCode
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", ErrNoCode
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", ErrNoCode
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", ErrNoCode
	}
	if result.Text == "" {
		return "", ErrNoCode
	}
	return result.Text, nil
}
