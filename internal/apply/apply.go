// Package apply pushes a finally-chosen lookup result into the collaborators
// that own the item form and the upload previews. Both collaborators are
// external: apply only writes through their contracts.
package apply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/readshelf/shelfscan/internal/lookup"
)

// ErrCoverNotAdded is the non-fatal "add it manually" outcome of a failed
// cover fetch. The rest of the applied metadata stays intact.
var ErrCoverNotAdded = errors.New("cover could not be added automatically")

// Form is the externally-owned item form: a title input and a description
// input. Apply never blanks a field the user already filled.
type Form interface {
	SetTitle(string)
	SetDescription(string)
}

// UploadFile is a fetched image wrapped for the upload component.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadSink is the externally-owned upload-preview component. Append adds
// to the managed file set (never replaces existing selections) and returns
// the new file's handle; MarkPrimary promotes that file to cover.
type UploadSink interface {
	Append(UploadFile) (id string)
	MarkPrimary(id string)
}

// ImageFetcher retrieves a cover image server-side, bypassing cross-origin
// restrictions. The lookup client implements it.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// settleDelay gives the upload component time to re-render its thumbnails
// before the new one is promoted.
const settleDelay = 30 * time.Millisecond

// Applier performs the two apply operations.
type Applier struct {
	fetcher ImageFetcher
	settle  time.Duration
}

// NewApplier wires an applier over the image-fetch endpoint.
func NewApplier(fetcher ImageFetcher) *Applier {
	return &Applier{fetcher: fetcher, settle: settleDelay}
}

// Apply copies the result's title and description into the form, overwriting
// a field only when the result provides a non-empty value.
func (a *Applier) Apply(result *lookup.Result, form Form) {
	if result == nil || form == nil {
		return
	}
	if result.Title != "" {
		form.SetTitle(result.Title)
	}
	if result.Description != "" {
		form.SetDescription(result.Description)
	}
}

// AddCover fetches the result's chosen cover through the server, wraps the
// bytes as an uploadable file, appends it to the sink and, after a short
// settle delay, marks it primary. Every failure collapses to the non-fatal
// ErrCoverNotAdded; nothing is thrown out of the handler.
func (a *Applier) AddCover(ctx context.Context, result *lookup.Result, sink UploadSink) error {
	if result == nil || result.CoverURL == "" || sink == nil {
		return ErrCoverNotAdded
	}

	data, contentType, err := a.fetcher.FetchImage(ctx, result.CoverURL)
	if err != nil {
		slog.Warn("Cover fetch failed", "url", result.CoverURL, "err", err)
		return fmt.Errorf("%w: %v", ErrCoverNotAdded, err)
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	id := sink.Append(UploadFile{
		Name:        "cover.jpg",
		ContentType: contentType,
		Data:        data,
	})

	timer := time.NewTimer(a.settle)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	sink.MarkPrimary(id)
	return nil
}
