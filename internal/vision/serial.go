package vision

import (
	"context"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
)

// Serial guards a Detector so that at most one Detect call runs at a time.
//
// Waiting for the guard honors ctx. A call whose ctx ends while the wrapped
// detector is still running returns ctx.Err() at once; the detector keeps the
// guard until it really returns, so the next call waits for it.
type Serial struct {
	next Detector
	sem  chan struct{}
}

// NewSerial wraps d.
func NewSerial(d Detector) *Serial {
	return &Serial{next: d, sem: make(chan struct{}, 1)}
}

type detectResult struct {
	dets []detection.Detection
	err  error
}

// Detect runs the wrapped detector once the guard is free.
func (s *Serial) Detect(ctx context.Context, imagePath string) ([]detection.Detection, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	done := make(chan detectResult, 1)
	go func() {
		defer func() { <-s.sem }()
		dets, err := s.next.Detect(ctx, imagePath)
		done <- detectResult{dets: dets, err: err}
	}()

	select {
	case r := <-done:
		return r.dets, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
