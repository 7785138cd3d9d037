// Package scan owns one barcode widget instance: the single active capture
// session, the single current lookup result, the user-facing status line and
// the handoffs into the reconcile and apply layers.
package scan

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/readshelf/shelfscan/internal/barcode"
	"github.com/readshelf/shelfscan/internal/capture"
	"github.com/readshelf/shelfscan/internal/covers"
	"github.com/readshelf/shelfscan/internal/decode"
	"github.com/readshelf/shelfscan/internal/history"
	"github.com/readshelf/shelfscan/internal/lookup"
	"github.com/readshelf/shelfscan/internal/reconcile"
)

// User-facing status messages. Decode and lookup failures share a recovery
// path and differ by text only.
const (
	StatusSearching     = "Looking up the code…"
	StatusNotFound      = "Could not find data for this code."
	StatusDecodeFailed  = "Could not read a barcode. Try another photo or the camera, or enter the code manually."
	StatusReadingImage  = "Reading the barcode in the photo…"
	StatusRequesting    = "Requesting camera…"
	StatusScanPrompt    = "Point the camera at the barcode…"
	StatusNoCamera      = "Could not open the camera."
	StatusUnsupported   = "Scanning is not supported here. Enter the code manually."
	StatusCoverManually = "Could not add the cover automatically. Download it and upload it by hand."
)

// Looker issues the remote lookup; the lookup client satisfies it.
type Looker interface {
	Lookup(ctx context.Context, code barcode.Code) (*lookup.Result, error)
}

// View is the widget's rendered state. ShowPanel false means no result panel
// and an empty candidate list, regardless of what the raw result held.
type View struct {
	Code       barcode.Code
	Result     *lookup.Result
	ShowPanel  bool
	Candidates []reconcile.CandidateView
	Cover      covers.View
	Status     string
}

// Controller coordinates the pipeline for one widget instance. All state
// transitions happen under one lock so the view never mixes fields from two
// different lookups.
type Controller struct {
	looker   Looker
	capture  *capture.Manager
	resolver *covers.Resolver
	history  *history.Store

	mu     sync.Mutex
	gen    uint64 // current lookup generation
	active *lookup.Result
	view   View

	notify func(View)
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotify registers a render callback invoked after every view change.
func WithNotify(fn func(View)) Option {
	return func(c *Controller) { c.notify = fn }
}

// WithHistory attaches a resolution history store.
func WithHistory(h *history.Store) Option {
	return func(c *Controller) { c.history = h }
}

// NewController wires a widget controller.
func NewController(looker Looker, captureMgr *capture.Manager, resolver *covers.Resolver, opts ...Option) *Controller {
	c := &Controller{
		looker:   looker,
		capture:  captureMgr,
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// View returns a snapshot of the current rendered state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Active returns the tracked active result. It always matches what the view
// displays.
func (c *Controller) Active() *lookup.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Controller) render(v View) {
	c.view = v
	if c.notify != nil {
		c.notify(v)
	}
}

func (c *Controller) setStatus(msg string) {
	c.mu.Lock()
	v := c.view
	v.Status = msg
	c.render(v)
	c.mu.Unlock()
}

// Submit is one fresh lookup attempt for raw user input: manual text, a
// decoded photo, or a camera hit. Empty-after-normalization input is "no
// code" and does nothing. A newer Submit supersedes this one's result for
// display purposes.
func (c *Controller) Submit(ctx context.Context, raw string) {
	code := barcode.Normalize(raw)
	if code.IsZero() {
		return
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	v := c.view
	v.Code = code
	v.Status = StatusSearching
	c.render(v)
	c.mu.Unlock()

	result, err := c.looker.Lookup(ctx, code)

	// Cover resolution happens outside the lock; the generation check
	// below discards the whole render if a newer lookup raced past us.
	var coverView covers.View
	if err == nil && result != nil && result.OK {
		coverView = c.resolver.Resolve(ctx, reconcile.Chain(result))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		slog.Debug("Lookup superseded, discarding result", "code", code)
		return
	}

	if err != nil || result == nil || !result.OK {
		// Stale results never stay displayed after a failure.
		c.active = nil
		c.render(View{Code: code, Status: StatusNotFound})
		return
	}

	c.active = result
	if c.history != nil {
		c.history.Record(code, result)
	}
	c.render(View{
		Code:       code,
		Result:     result,
		ShowPanel:  true,
		Candidates: reconcile.Views(result),
		Cover:      coverView,
	})
}

// SubmitImage runs the still-image path: preview, one-shot decode, then a
// lookup. A photo with no readable barcode gets its own failure message,
// distinct from camera errors.
func (c *Controller) SubmitImage(ctx context.Context, path string) {
	c.setStatus(StatusReadingImage)
	code, err := c.capture.DecodeFile(ctx, path)
	if err != nil || code == "" {
		c.setStatus(StatusDecodeFailed)
		return
	}
	c.Submit(ctx, code)
}

// Scan runs one camera scan to completion: open the capture surface, acquire
// the device, poll frames, look up the decoded code. The session can be
// cancelled through ctx or the returned session's Close.
func (c *Controller) Scan(ctx context.Context) {
	c.setStatus(StatusRequesting)
	session := c.capture.Start(ctx)
	c.setStatus(StatusScanPrompt)

	code, err := session.Wait(ctx)
	if err != nil {
		switch {
		case errors.Is(err, decode.ErrUnsupported):
			c.setStatus(StatusUnsupported)
		case errors.Is(err, context.Canceled):
			c.setStatus("")
		default:
			c.setStatus(StatusNoCamera)
		}
		return
	}
	if session.State() == capture.StateCancelled || code == "" {
		c.setStatus("")
		return
	}
	c.Submit(ctx, code)
}

// PickCandidate merges candidate i into the active result. The merged result
// replaces the active one wholesale and the cover chain is re-resolved.
func (c *Controller) PickCandidate(ctx context.Context, i int) {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	if active == nil {
		return
	}

	merged, chain := reconcile.Merge(active, i)
	coverView := c.resolver.Resolve(ctx, chain)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != active {
		// A fresh lookup superseded the result being merged.
		return
	}
	c.active = merged
	v := c.view
	v.Result = merged
	v.Cover = coverView
	v.Status = ""
	c.render(v)
}

// Shutdown tears down the capture side, releasing any stream and previews.
func (c *Controller) Shutdown() {
	c.capture.Shutdown()
}
