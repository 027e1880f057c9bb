package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
	"github.com/ironsheep/screen-coords-mcp/internal/imaging"
)

// ErrUnavailable is returned when the binary was built without Tesseract support.
var ErrUnavailable = errors.New("tesseract OCR is not available in this build")

// Level is the Tesseract page iterator level a region was read at.
type Level int

const (
	// Word regions cover a single word.
	Word Level = iota
	// Line regions cover a text line, which usually matches a whole UI label.
	Line
)

// Region is a piece of recognized text with its location and confidence.
type Region struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box in the coordinates of the recognized image.
	Bounds detection.Bounds `json:"bounds"`

	// Level is the iterator level that produced the region.
	Level Level `json:"level"`
}

// Options configures an Engine.
type Options struct {
	// Language is the Tesseract language code, e.g. "slk+eng".
	Language string

	// MinConfidence drops regions below this confidence (0.0 to 1.0).
	MinConfidence float64

	// Upscale enlarges images before recognition. Values <= 1 disable it.
	Upscale float64

	// Contrast is the bild contrast change applied before recognition.
	Contrast float64

	// RegionPadding is added around a region before it is read on its own.
	RegionPadding int
}

// DefaultOptions returns settings tuned for Slovak and English UI screenshots.
func DefaultOptions() Options {
	return Options{
		Language:      "slk+eng",
		MinConfidence: 0.5,
		Upscale:       2,
		Contrast:      0.3,
		RegionPadding: imaging.DefaultRegionPadding,
	}
}

// Engine is a vision collaborator backed by Tesseract.
//
// Each call creates its own Tesseract client, so an Engine may be shared, but the
// underlying library is heavy; the watch cycle wraps it in vision.Serial.
type Engine struct {
	opts  Options
	cache *imaging.ImageCache
	log   logrus.FieldLogger
}

// NewEngine creates an Engine. cache may be nil.
func NewEngine(opts Options, cache *imaging.ImageCache, log logrus.FieldLogger) *Engine {
	if cache == nil {
		cache = imaging.NewImageCache()
	}
	if opts.Language == "" {
		opts.Language = DefaultOptions().Language
	}
	return &Engine{opts: opts, cache: cache, log: log}
}

// Detect recognizes word and line regions in the screenshot at imagePath and
// returns them as detections in screenshot pixel coordinates.
//
// Element types are left as unknown; vision.Classifying assigns them.
func (e *Engine) Detect(ctx context.Context, imagePath string) ([]detection.Detection, error) {
	img, err := e.cache.Load(imagePath)
	if err != nil {
		return nil, err
	}

	regions, err := e.Recognize(ctx, img)
	if err != nil {
		return nil, err
	}

	dets := make([]detection.Detection, 0, len(regions))
	for _, r := range regions {
		dets = append(dets, detection.Detection{
			Bounds:      r.Bounds,
			OCRText:     r.Text,
			Confidence:  r.Confidence,
			ElementType: detection.TypeUnknown,
		})
	}

	e.log.WithFields(logrus.Fields{
		"image":      imagePath,
		"regions":    len(regions),
		"detections": len(dets),
	}).Debug("OCR detection finished")

	return dets, nil
}

// Recognize runs OCR on img and returns word and line regions in img coordinates,
// filtered by MinConfidence.
func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scale := e.opts.Upscale
	if scale < 1 {
		scale = 1
	}
	data, err := encode(Preprocess(img, scale, e.opts.Contrast))
	if err != nil {
		return nil, err
	}

	raw, err := recognize(data, e.opts.Language, []Level{Word, Line})
	if err != nil {
		return nil, err
	}

	origin := img.Bounds().Min
	regions := make([]Region, 0, len(raw))
	for _, r := range raw {
		r.Text = strings.TrimSpace(r.Text)
		if r.Text == "" || r.Confidence < e.opts.MinConfidence {
			continue
		}
		r.Bounds = unscale(r.Bounds, scale, origin)
		if !r.Bounds.Valid() {
			continue
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// ReadRegion recognizes the text inside b, padded by RegionPadding. It returns
// the text and its mean confidence.
func (e *Engine) ReadRegion(ctx context.Context, img image.Image, b detection.Bounds) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	crop, err := imaging.PadCrop(img, b, e.opts.RegionPadding)
	if err != nil {
		return "", 0, err
	}
	data, err := encode(Preprocess(crop, max(e.opts.Upscale, 1), e.opts.Contrast))
	if err != nil {
		return "", 0, err
	}

	text, conf, err := readText(data, e.opts.Language)
	if err != nil {
		return "", 0, err
	}
	return strings.Join(strings.Fields(text), " "), conf, nil
}

// unscale maps a box from the preprocessed image back to source coordinates.
func unscale(b detection.Bounds, scale float64, origin image.Point) detection.Bounds {
	if scale == 1 {
		return detection.Bounds{
			X1: b.X1 + origin.X, Y1: b.Y1 + origin.Y,
			X2: b.X2 + origin.X, Y2: b.Y2 + origin.Y,
		}
	}
	return detection.Bounds{
		X1: int(float64(b.X1)/scale) + origin.X,
		Y1: int(float64(b.Y1)/scale) + origin.Y,
		X2: int(float64(b.X2)/scale+0.999) + origin.X,
		Y2: int(float64(b.Y2)/scale+0.999) + origin.Y,
	}
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode OCR input: %w", err)
	}
	return buf.Bytes(), nil
}

// Info describes the OCR backend.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
	Backend   string `json:"backend"`
	Language  string `json:"language"`
}

// Info reports whether Tesseract can be used and which version is linked.
func (e *Engine) Info() Info {
	version, err := Version()
	if err != nil {
		return Info{Available: false, Error: err.Error(), Backend: backendName, Language: e.opts.Language}
	}
	return Info{Available: true, Version: version, Backend: backendName, Language: e.opts.Language}
}
