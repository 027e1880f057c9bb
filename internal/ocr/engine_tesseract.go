//go:build cgo

package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
)

const backendName = "gosseract"

func newClient(data []byte, language string) (*gosseract.Client, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	return client, nil
}

func recognize(data []byte, language string, levels []Level) ([]Region, error) {
	client, err := newClient(data, language)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	var regions []Region
	for _, level := range levels {
		ril := gosseract.RIL_WORD
		if level == Line {
			ril = gosseract.RIL_TEXTLINE
		}

		boxes, err := client.GetBoundingBoxes(ril)
		if err != nil {
			return nil, fmt.Errorf("OCR failed: %w", err)
		}
		for _, box := range boxes {
			if box.Word == "" {
				continue
			}
			regions = append(regions, Region{
				Text:       box.Word,
				Confidence: box.Confidence / 100.0,
				Bounds: detection.Bounds{
					X1: box.Box.Min.X,
					Y1: box.Box.Min.Y,
					X2: box.Box.Max.X,
					Y2: box.Box.Max.Y,
				},
				Level: level,
			})
		}
	}
	return regions, nil
}

func readText(data []byte, language string) (string, float64, error) {
	client, err := newClient(data, language)
	if err != nil {
		return "", 0, err
	}
	defer client.Close()

	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", 0, fmt.Errorf("failed to set page segmentation: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return text, 0, nil
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return text, sum / float64(len(boxes)) / 100.0, nil
}

// Version returns the linked Tesseract version.
func Version() (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version(), nil
}
