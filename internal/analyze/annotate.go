package analyze

import (
	"fmt"
	"image"

	"github.com/ironsheep/screen-coords-mcp/internal/imaging"
)

// Boxes returns one box per element, captioned with its index and type. Elements
// chosen for a step are highlighted and captioned with the step index instead.
func (r *Report) Boxes() []imaging.Box {
	matched := make(map[int]int)
	for _, s := range r.Steps {
		if !s.Result.Found {
			continue
		}
		for i, e := range r.Elements {
			if e.Bounds == s.Result.Element.Bounds {
				matched[i] = s.Step.Index
				break
			}
		}
	}

	boxes := make([]imaging.Box, len(r.Elements))
	for i, e := range r.Elements {
		boxes[i] = imaging.Box{
			Bounds:      e.Bounds,
			ElementType: e.ElementType,
			Caption:     fmt.Sprintf("%d %s", i, e.ElementType),
		}
		if step, ok := matched[i]; ok {
			boxes[i].Highlight = true
			boxes[i].Caption = fmt.Sprintf("step %d", step)
		}
	}
	return boxes
}

// Image returns the decoded screenshot from the shared cache.
func (a *Analyzer) Image(screenshot string) (image.Image, error) {
	return a.images.Load(screenshot)
}

// Annotate draws boxes on the screenshot.
func (a *Analyzer) Annotate(screenshot string, boxes []imaging.Box) (*image.NRGBA, error) {
	img, err := a.Image(screenshot)
	if err != nil {
		return nil, err
	}
	return imaging.Annotate(img, boxes), nil
}

// Forget drops the cached decode of a screenshot once it is no longer needed.
func (a *Analyzer) Forget(screenshot string) {
	a.images.Evict(screenshot)
}
