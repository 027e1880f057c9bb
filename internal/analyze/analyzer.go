package analyze

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/screen-coords-mcp/internal/coords"
	"github.com/ironsheep/screen-coords-mcp/internal/detection"
	"github.com/ironsheep/screen-coords-mcp/internal/flow"
	"github.com/ironsheep/screen-coords-mcp/internal/imaging"
	"github.com/ironsheep/screen-coords-mcp/internal/matcher"
	"github.com/ironsheep/screen-coords-mcp/internal/vision"
)

// Scene is the deduplicated view of one screenshot.
type Scene struct {
	Screenshot string             `json:"screenshot"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Raw        int                `json:"raw_detections"`
	Elements   []detection.Merged `json:"elements"`
}

// StepResult is the match outcome for one coordinate step.
type StepResult struct {
	Step   flow.Step      `json:"step"`
	Target matcher.Target `json:"target"`
	Result matcher.Result `json:"result"`
	Point  *coords.Point  `json:"point,omitempty"`
}

// Report is the outcome of analyzing a screenshot against a flow.
type Report struct {
	Scene
	Steps []StepResult `json:"steps"`

	// Results is keyed by step index and ready for flow.Update. Steps whose
	// description is empty have no entry.
	Results map[int]flow.Resolution `json:"-"`
}

// Found returns how many steps matched an element.
func (r *Report) Found() int {
	n := 0
	for _, s := range r.Steps {
		if s.Result.Found {
			n++
		}
	}
	return n
}

// Location is the outcome of looking up a single description.
type Location struct {
	Scene
	Target     matcher.Target   `json:"target"`
	Result     matcher.Result   `json:"result"`
	Point      *coords.Point    `json:"point,omitempty"`
	Candidates []matcher.Scored `json:"candidates,omitempty"`
}

// Analyzer runs the detect, merge, match and resolve pipeline.
type Analyzer struct {
	detector       vision.Detector
	matcher        *matcher.Matcher
	mergeThreshold float64
	images         *imaging.ImageCache
	log            logrus.FieldLogger
}

// New creates an Analyzer. A mergeThreshold outside (0,1] falls back to
// detection.DefaultMergeThreshold.
//
// images should be the cache the detector decodes into, so that Forget
// releases every decode of a screenshot. A nil cache gets a private one.
func New(d vision.Detector, m *matcher.Matcher, mergeThreshold float64, images *imaging.ImageCache, log logrus.FieldLogger) *Analyzer {
	if mergeThreshold <= 0 || mergeThreshold > 1 {
		mergeThreshold = detection.DefaultMergeThreshold
	}
	if images == nil {
		images = imaging.NewImageCache()
	}
	return &Analyzer{
		detector:       d,
		matcher:        m,
		mergeThreshold: mergeThreshold,
		images:         images,
		log:            log,
	}
}

// Detect reads the screenshot size, runs the detector and merges its output.
func (a *Analyzer) Detect(ctx context.Context, screenshot string) (Scene, error) {
	size, err := imaging.Dimensions(screenshot)
	if err != nil {
		return Scene{}, err
	}

	raw, err := a.detector.Detect(ctx, screenshot)
	if err != nil {
		return Scene{}, fmt.Errorf("failed to detect elements: %w", err)
	}
	elements, err := detection.Merge(raw, a.mergeThreshold)
	if err != nil {
		return Scene{}, err
	}

	a.log.WithFields(logrus.Fields{
		"screenshot": screenshot,
		"raw":        len(raw),
		"elements":   len(elements),
	}).Debug("detections merged")

	return Scene{
		Screenshot: screenshot,
		Width:      size.Width,
		Height:     size.Height,
		Raw:        len(raw),
		Elements:   elements,
	}, nil
}

// Analyze matches every coordinate step of doc against the screenshot.
func (a *Analyzer) Analyze(ctx context.Context, screenshot string, doc *flow.Document) (*Report, error) {
	scene, err := a.Detect(ctx, screenshot)
	if err != nil {
		return nil, err
	}

	report := &Report{Scene: scene, Results: make(map[int]flow.Resolution)}
	for _, step := range doc.Coordinate() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if step.Target == "" {
			a.log.WithField("step", step.Index).Warn("coordinate step has no description, skipped")
			continue
		}

		sr := a.resolve(step.Target, scene)
		sr.Step = step
		report.Steps = append(report.Steps, sr)

		res := flow.Resolution{Found: sr.Result.Found}
		if sr.Point != nil {
			res.Point = *sr.Point
			res.Score = sr.Result.Score
			res.MatchedText = sr.Result.MatchedText
		}
		report.Results[step.Index] = res

		entry := a.log.WithFields(logrus.Fields{
			"step":   step.Index,
			"target": sr.Target.Text,
		})
		if sr.Point != nil {
			entry.WithFields(logrus.Fields{
				"point":   sr.Point.String(),
				"score":   sr.Result.Score,
				"matched": sr.Result.MatchedText,
			}).Info("step resolved")
		} else {
			entry.Warn("no element matched")
		}
	}
	return report, nil
}

// Locate finds the element described by instruction. When candidates > 0 the
// best scoring elements are listed as well.
func (a *Analyzer) Locate(ctx context.Context, screenshot, instruction string, candidates int) (*Location, error) {
	scene, err := a.Detect(ctx, screenshot)
	if err != nil {
		return nil, err
	}
	sr := a.resolve(instruction, scene)
	loc := &Location{Scene: scene, Target: sr.Target, Result: sr.Result, Point: sr.Point}
	if candidates > 0 {
		loc.Candidates = a.matcher.Rank(sr.Target, scene.Elements, candidates)
	}
	return loc, nil
}

func (a *Analyzer) resolve(description string, scene Scene) StepResult {
	target := matcher.ParseTarget(description)
	result := a.matcher.Match(target, scene.Elements)
	sr := StepResult{Target: target, Result: result}
	if result.Found {
		p := coords.Resolve(result.Element.Bounds, scene.Width, scene.Height)
		sr.Point = &p
	}
	return sr
}
