package decode

import (
	"context"
	"image"

	"github.com/liyue201/goqr"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ZXingBackend is the in-process decode engine. A fresh reader set is
// constructed per decode call, scoped to the fixed symbologies the catalog
// cares about: EAN-13, EAN-8, UPC-A, Code-128 and QR.
type ZXingBackend struct{}

// NewZXingBackend returns the in-process engine.
func NewZXingBackend() *ZXingBackend {
	return &ZXingBackend{}
}

func supportedReaders() []gozxing.Reader {
	return []gozxing.Reader{
		oned.NewEAN13Reader(),
		oned.NewEAN8Reader(),
		oned.NewUPCAReader(),
		oned.NewCode128Reader(),
		qrcode.NewQRCodeReader(),
	}
}

func decodeHints() map[gozxing.DecodeHintType]interface{} {
	return map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_POSSIBLE_FORMATS: []gozxing.BarcodeFormat{
			gozxing.BarcodeFormat_EAN_13,
			gozxing.BarcodeFormat_EAN_8,
			gozxing.BarcodeFormat_UPC_A,
			gozxing.BarcodeFormat_CODE_128,
			gozxing.BarcodeFormat_QR_CODE,
		},
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
}

// DecodeImage tries each reader until one matches, then falls back to a
// second-chance QR pass which tolerates frames the primary QR reader
// rejects. Every engine failure collapses to ErrNoCode.
func (b *ZXingBackend) DecodeImage(ctx context.Context, img image.Image) (string, error) {
	if img == nil {
		return "", ErrNoCode
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", ErrNoCode
	}

	hints := decodeHints()
	for _, reader := range supportedReaders() {
		result, err := reader.Decode(bmp, hints)
		if err == nil && result != nil && result.GetText() != "" {
			return result.GetText(), nil
		}
	}

	if codes, err := goqr.Recognize(img); err == nil {
		for _, code := range codes {
			if len(code.Payload) > 0 {
				return string(code.Payload), nil
			}
		}
	}

	return "", ErrNoCode
}
