package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
	"github.com/ironsheep/screen-coords-mcp/internal/imaging"
)

// SidecarSuffix is appended to a screenshot's stem to name its detection file.
const SidecarSuffix = ".detections.json"

// ErrNoSidecar is returned when a screenshot has no detection file next to it.
var ErrNoSidecar = errors.New("no sidecar detection file")

// RegionReader reads the text inside one region of an image.
type RegionReader interface {
	ReadRegion(ctx context.Context, img image.Image, b detection.Bounds) (string, float64, error)
}

// sidecarElement is one element as written by an external detection model.
type sidecarElement struct {
	BBox        []int    `json:"bbox"`
	Label       string   `json:"label"`
	OCRText     string   `json:"ocr_text"`
	Confidence  *float64 `json:"confidence"`
	ElementType string   `json:"element_type"`
}

type sidecarFile struct {
	Detections []sidecarElement `json:"detections"`
}

// SidecarDetector reads detections produced by an external model and stored as
// JSON next to the screenshot: for shot.png it reads shot.detections.json.
//
// The file holds either a JSON array of elements or an object with a
// "detections" array. Each element has "bbox" as [x1, y1, x2, y2] plus optional
// "label", "ocr_text", "confidence" (1 when absent) and "element_type".
//
// When a RegionReader is set, elements that carry no text are read from the
// screenshot itself.
type SidecarDetector struct {
	reader RegionReader
	cache  *imaging.ImageCache
	log    logrus.FieldLogger
}

// NewSidecarDetector creates a SidecarDetector. reader may be nil to skip
// region OCR; cache may be nil.
func NewSidecarDetector(reader RegionReader, cache *imaging.ImageCache, log logrus.FieldLogger) *SidecarDetector {
	if cache == nil {
		cache = imaging.NewImageCache()
	}
	return &SidecarDetector{reader: reader, cache: cache, log: log}
}

// SidecarPath returns the detection file path for a screenshot.
func SidecarPath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + SidecarSuffix
}

// Detect loads and validates the sidecar file for imagePath.
func (s *SidecarDetector) Detect(ctx context.Context, imagePath string) ([]detection.Detection, error) {
	path := SidecarPath(imagePath)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoSidecar, path)
		}
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}

	dets, err := ParseSidecar(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if s.reader != nil {
		if err := s.fillText(ctx, imagePath, dets); err != nil {
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"image":      imagePath,
		"sidecar":    path,
		"detections": len(dets),
	}).Debug("sidecar detections loaded")

	return dets, nil
}

func (s *SidecarDetector) fillText(ctx context.Context, imagePath string, dets []detection.Detection) error {
	var img image.Image
	for i := range dets {
		if dets[i].Label != "" || dets[i].OCRText != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if img == nil {
			var err error
			if img, err = s.cache.Load(imagePath); err != nil {
				return err
			}
		}
		text, _, err := s.reader.ReadRegion(ctx, img, dets[i].Bounds)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			s.log.WithError(err).WithField("bounds", dets[i].Bounds.String()).Debug("region OCR failed")
			continue
		}
		dets[i].OCRText = text
	}
	return nil
}

// ParseSidecar decodes and validates sidecar JSON.
func ParseSidecar(data []byte) ([]detection.Detection, error) {
	var elements []sidecarElement
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return nil, err
		}
	} else {
		var file sidecarFile
		if err := json.Unmarshal(trimmed, &file); err != nil {
			return nil, err
		}
		elements = file.Detections
	}

	dets := make([]detection.Detection, 0, len(elements))
	for i, e := range elements {
		if len(e.BBox) != 4 {
			return nil, fmt.Errorf("%w: element %d: bbox needs 4 values, got %d",
				detection.ErrInvalidDetection, i, len(e.BBox))
		}
		conf := 1.0
		if e.Confidence != nil {
			conf = *e.Confidence
		}
		typ := detection.ElementType(strings.ToLower(strings.TrimSpace(e.ElementType)))
		if typ == "" {
			typ = detection.TypeUnknown
		}
		d := detection.Detection{
			Bounds:      detection.Bounds{X1: e.BBox[0], Y1: e.BBox[1], X2: e.BBox[2], Y2: e.BBox[3]},
			Label:       strings.TrimSpace(e.Label),
			OCRText:     strings.TrimSpace(e.OCRText),
			Confidence:  conf,
			ElementType: typ,
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		dets = append(dets, d)
	}
	return dets, nil
}
