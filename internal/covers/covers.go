// Package covers resolves a cover image out of an ordered fallback chain of
// candidate URLs: try each in turn, advance on load failure, give up when the
// chain is exhausted.
package covers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// minImageBytes guards against cover services that answer 200 with a tiny
// placeholder instead of a real image.
const minImageBytes = 1000

// BuildChain builds a fallback chain from the given URLs in order,
// discarding empty entries and de-duplicating by exact URL while preserving
// first-seen order.
func BuildChain(urls ...string) []string {
	seen := make(map[string]struct{}, len(urls))
	chain := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		chain = append(chain, u)
	}
	return chain
}

// Probe reports whether the image at url actually loads.
type Probe func(ctx context.Context, url string) error

// View is the rendered outcome of a chain resolution. An empty URL means the
// cover element is hidden and "add cover" is disabled.
type View struct {
	URL     string
	Visible bool
}

// Resolver walks fallback chains. It is re-entrant: Resolve may be invoked
// repeatedly as the chain changes after candidate merges.
type Resolver struct {
	probe Probe
}

// NewResolver returns a resolver using the given probe, or the HTTP probe
// when nil.
func NewResolver(probe Probe) *Resolver {
	if probe == nil {
		probe = HTTPProbe(&http.Client{Timeout: 15 * time.Second})
	}
	return &Resolver{probe: probe}
}

// Resolve tries each chain URL in order and returns the first that loads. An
// exhausted chain yields an invisible view.
func (r *Resolver) Resolve(ctx context.Context, chain []string) View {
	for _, u := range chain {
		if err := r.probe(ctx, u); err != nil {
			slog.Debug("Cover URL failed, advancing chain", "url", u, "err", err)
			continue
		}
		return View{URL: u, Visible: true}
	}
	return View{}
}

// HTTPProbe fetches the URL and applies the placeholder-size heuristic:
// cover services often return a valid but tiny stand-in image for unknown
// books.
func HTTPProbe(client *http.Client) Probe {
	return func(ctx context.Context, url string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create cover request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch cover: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("cover returned status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, minImageBytes+1))
		if err != nil {
			return fmt.Errorf("failed to read cover data: %w", err)
		}
		if len(data) < minImageBytes {
			return fmt.Errorf("cover image too small (likely placeholder)")
		}
		return nil
	}
}
