// Package ocr reads the human-readable digits printed beneath a barcode when
// the decode backends come up empty. It is an optional rescue: failures here
// never change the decode contract.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/readshelf/shelfscan/internal/barcode"
)

// Provider is a vision model that can transcribe printed digits from an
// image.
type Provider interface {
	ReadText(ctx context.Context, imagePNG []byte, prompt string) (string, error)
}

// Reader implements the decode layer's digit rescue on top of a Provider.
type Reader struct {
	provider Provider
}

// NewReader wraps a vision provider.
func NewReader(p Provider) *Reader {
	return &Reader{provider: p}
}

func digitPrompt() string {
	return `The image shows a retail or book barcode. Transcribe ONLY the ` +
		`human-readable digits printed with the barcode (typically 10 or 13 ` +
		`digits, possibly ending in X). Reply with the digits and nothing else. ` +
		`If no digits are visible, reply with an empty string.`
}

// ReadDigits transcribes and normalizes the printed code. An unusable reply
// comes back as ("", nil): the rescue stays silent so the decode layer can
// report its own "no code found".
func (r *Reader) ReadDigits(ctx context.Context, img image.Image) (string, error) {
	if img == nil {
		return "", nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}

	text, err := r.provider.ReadText(ctx, buf.Bytes(), digitPrompt())
	if err != nil {
		slog.Debug("Digit rescue provider failed", "err", err)
		return "", nil
	}

	code := barcode.Normalize(text)
	if len(code) < 8 {
		// Shorter strings are almost always transcription noise.
		return "", nil
	}
	return code.String(), nil
}
