package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
)

// DefaultRegionPadding is the margin added around an element before it is
// cropped for OCR. Tight boxes clip ascenders and descenders.
const DefaultRegionPadding = 5

// PadCrop returns the region b grown by pad pixels on every side and clipped to
// the image. It fails when the padded region does not intersect the image.
func PadCrop(img image.Image, b detection.Bounds, pad int) (*image.NRGBA, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid crop region %s", b)
	}
	r := image.Rect(b.X1-pad, b.Y1-pad, b.X2+pad, b.Y2+pad).Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("crop region %s outside image bounds %v", b, img.Bounds())
	}
	return imaging.Crop(img, r), nil
}

// Encoded is a PNG image ready to embed in a JSON response.
type Encoded struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as base64 PNG, optionally scaling it first.
func EncodePNG(img image.Image, scale float64) (*Encoded, error) {
	if scale != 1.0 && scale > 0 {
		w := int(float64(img.Bounds().Dx()) * scale)
		h := int(float64(img.Bounds().Dy()) * scale)
		if w > 0 && h > 0 {
			img = imaging.Resize(img, w, h, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &Encoded{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
