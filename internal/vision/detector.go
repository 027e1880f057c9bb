package vision

import (
	"context"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
)

// Detector is the boundary to a vision collaborator: it reports candidate UI
// elements for one screenshot. Implementations may be slow and may return no
// detections at all; unless documented otherwise they must not be called
// concurrently (see Serial).
type Detector interface {
	Detect(ctx context.Context, imagePath string) ([]detection.Detection, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, imagePath string) ([]detection.Detection, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, imagePath string) ([]detection.Detection, error) {
	return f(ctx, imagePath)
}
