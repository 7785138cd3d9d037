// Package decode turns still images and live video frames into raw barcode
// strings. Two interchangeable backends sit behind one Backend interface: an
// in-process ZXing engine and a remote decode sidecar that is brought up
// lazily. The Selector picks between them at call time so callers never
// branch on capability themselves.
package decode

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrNoCode means the image or frame contained no recognizable barcode.
	// Decode failures are soft: corrupt input, unsupported formats and
	// engine errors all collapse to ErrNoCode.
	ErrNoCode = errors.New("no code found")

	// ErrUnsupported means no decode backend is usable at all. Live
	// scanning must report this terminally instead of spinning.
	ErrUnsupported = errors.New("barcode decoding unsupported")
)

// Backend decodes one still image into a raw code string. Implementations
// return ErrNoCode when nothing is found and ErrUnsupported when the backend
// itself is unavailable; they never propagate engine internals.
type Backend interface {
	DecodeImage(ctx context.Context, img image.Image) (string, error)
}

// FrameSource supplies successive live video frames. The capture layer's
// stream satisfies this.
type FrameSource interface {
	ReadFrame(ctx context.Context) (image.Image, error)
}

// Rescue is an optional last-chance reader for still images, used after both
// backends come up empty. The OCR digit reader implements it.
type Rescue interface {
	ReadDigits(ctx context.Context, img image.Image) (string, error)
}

// frameInterval paces live decoding at display-refresh cadence.
const frameInterval = time.Second / 60

// Selector owns the capability choice between the native engine and the
// fallback sidecar and exposes uniform still and live decode operations.
type Selector struct {
	native   Backend // nil when the in-process engine is disabled
	fallback Backend // nil when no sidecar is configured
	rescue   Rescue  // nil unless digit rescue is enabled
	limiter  *rate.Limiter
}

// Option configures a Selector.
type Option func(*Selector)

// WithNative installs the in-process engine.
func WithNative(b Backend) Option {
	return func(s *Selector) { s.native = b }
}

// WithFallback installs the sidecar backend.
func WithFallback(b Backend) Option {
	return func(s *Selector) { s.fallback = b }
}

// WithRescue installs the optional OCR digit rescue.
func WithRescue(r Rescue) Option {
	return func(s *Selector) { s.rescue = r }
}

// NewSelector builds a Selector. With no options it is permanently
// unsupported, which is a valid terminal state.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		limiter: rate.NewLimiter(rate.Every(frameInterval), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pick returns the backend to use for this call: native when present, the
// fallback otherwise.
func (s *Selector) pick() (Backend, error) {
	if s.native != nil {
		return s.native, nil
	}
	if s.fallback != nil {
		return s.fallback, nil
	}
	return nil, ErrUnsupported
}

// DecodeImage runs one still-image decode. Anything the backend cannot read
// is reported as ErrNoCode, never an exception to the caller. When both the
// chosen backend and the optional rescue find nothing the result is
// ("", ErrNoCode).
func (s *Selector) DecodeImage(ctx context.Context, img image.Image) (string, error) {
	backend, err := s.pick()
	if err != nil {
		return "", err
	}

	text, err := backend.DecodeImage(ctx, img)
	if err == nil && text != "" {
		return text, nil
	}
	if errors.Is(err, ErrUnsupported) && backend == s.native && s.fallback != nil {
		text, err = s.fallback.DecodeImage(ctx, img)
		if err == nil && text != "" {
			return text, nil
		}
	}

	if s.rescue != nil {
		if digits, rerr := s.rescue.ReadDigits(ctx, img); rerr == nil && digits != "" {
			slog.Debug("Digit rescue recovered a code", "code", digits)
			return digits, nil
		}
	}
	if errors.Is(err, ErrUnsupported) {
		return "", ErrUnsupported
	}
	return "", ErrNoCode
}

// DecodeStream samples live frames at display cadence until a code is found
// or the context is cancelled. Each empty frame is a silent retry, not an
// error. When no backend is usable it returns ErrUnsupported immediately
// rather than entering the loop.
func (s *Selector) DecodeStream(ctx context.Context, src FrameSource) (string, error) {
	backend, err := s.pick()
	if err != nil {
		return "", err
	}

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}

		frame, err := src.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", err
		}
		if frame == nil {
			continue
		}

		text, err := backend.DecodeImage(ctx, frame)
		if err == nil && text != "" {
			return text, nil
		}
		if errors.Is(err, ErrUnsupported) {
			if backend == s.native && s.fallback != nil {
				backend = s.fallback
				continue
			}
			return "", ErrUnsupported
		}
		// ErrNoCode: retry on the next frame.
	}
}
