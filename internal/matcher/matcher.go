package matcher

import (
	"sort"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
	"github.com/ironsheep/screen-coords-mcp/internal/textnorm"
)

// Defaults for Options.
const (
	DefaultAcceptThreshold  = 70
	DefaultDiacriticPenalty = 5
)

// Options tunes matching.
type Options struct {
	// AcceptThreshold is the minimum score (0-100) a candidate needs to be Found.
	AcceptThreshold int

	// DiacriticPenalty is subtracted from scores obtained only after stripping
	// diacritics, so an exact diacritic match always ranks higher.
	DiacriticPenalty int
}

// DefaultOptions returns the standard acceptance threshold and diacritic penalty.
func DefaultOptions() Options {
	return Options{
		AcceptThreshold:  DefaultAcceptThreshold,
		DiacriticPenalty: DefaultDiacriticPenalty,
	}
}

// Result is the outcome of matching one target against a screenshot's elements.
//
// Found is false when no candidate reached the acceptance threshold. That is a
// normal outcome, not an error.
type Result struct {
	Found       bool             `json:"found"`
	Element     detection.Merged `json:"element"`
	Score       int              `json:"score"`
	MatchedText string           `json:"matched_text,omitempty"`
}

// Scored is one candidate with its score, as returned by Rank.
type Scored struct {
	Element     detection.Merged `json:"element"`
	Score       int              `json:"score"`
	MatchedText string           `json:"matched_text,omitempty"`
	TypeMatch   bool             `json:"type_match"`
}

// Matcher scores merged detections against targets. It holds no mutable state
// and is safe for concurrent use.
type Matcher struct {
	norm *textnorm.Normalizer
	opts Options
}

// New creates a Matcher that normalizes text with n.
func New(n *textnorm.Normalizer, opts Options) *Matcher {
	return &Matcher{norm: n, opts: opts}
}

// Match selects the best candidate for target.
//
// Every textual variant of every candidate is compared against the normalized
// target and its synonym expansions; the candidate's score is its best field.
// Among candidates with the top score the winner is chosen by, in order:
//
//  1. element type compatible with target.TypeHint
//  2. higher confidence
//  3. smaller vertical center (higher on screen)
//  4. smaller horizontal center
//  5. bounding box, then text
//
// The result depends only on the candidate multiset, never on slice order.
func (m *Matcher) Match(target Target, candidates []detection.Merged) Result {
	ranked := m.Rank(target, candidates, 1)
	if len(ranked) == 0 || ranked[0].Score < m.opts.AcceptThreshold {
		return Result{}
	}
	best := ranked[0]
	return Result{
		Found:       true,
		Element:     best.Element,
		Score:       best.Score,
		MatchedText: best.MatchedText,
	}
}

// Rank scores every candidate and returns the n best in Match order, whether or
// not they reach the acceptance threshold. n <= 0 returns all candidates.
func (m *Matcher) Rank(target Target, candidates []detection.Merged, n int) []Scored {
	targets := m.norm.Variants(target.Text)
	if len(targets) == 0 || len(candidates) == 0 {
		return nil
	}
	stripped := stripAll(targets)

	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		score, text := m.score(targets, stripped, c)
		scored = append(scored, Scored{
			Element:     c,
			Score:       score,
			MatchedText: text,
			TypeMatch:   c.ElementType.Compatible(target.TypeHint),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return ranksBefore(scored[i], scored[j])
	})

	if n > 0 && n < len(scored) {
		scored = scored[:n]
	}
	return scored
}

// Score returns the score of a single candidate and the field that produced it.
func (m *Matcher) Score(target Target, candidate detection.Merged) (int, string) {
	targets := m.norm.Variants(target.Text)
	if len(targets) == 0 {
		return 0, ""
	}
	return m.score(targets, stripAll(targets), candidate)
}

func (m *Matcher) score(targets, stripped []string, c detection.Merged) (int, string) {
	best, bestText := 0, ""
	for _, field := range fields(c) {
		variants := m.norm.Variants(field)
		if len(variants) == 0 {
			continue
		}

		s := bestOf(targets, variants)
		if s < 100 {
			fallback := bestOf(stripped, stripAll(variants)) - m.opts.DiacriticPenalty
			if fallback > s {
				s = fallback
			}
		}
		if s > best {
			best, bestText = s, field
		}
	}
	return clamp(best), bestText
}

// fields lists the candidate's text variants, falling back to the joined texts
// for detections that did not go through Merge.
func fields(c detection.Merged) []string {
	if f := c.Texts(); len(f) > 0 {
		return f
	}
	var out []string
	if c.Label != "" {
		out = append(out, c.Label)
	}
	if c.OCRText != "" {
		out = append(out, c.OCRText)
	}
	return out
}

func bestOf(as, bs []string) int {
	best := 0
	for _, a := range as {
		for _, b := range bs {
			if s := Similarity(a, b); s > best {
				best = s
				if best == 100 {
					return best
				}
			}
		}
	}
	return best
}

func stripAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = textnorm.StripDiacritics(s)
	}
	return out
}

func ranksBefore(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.TypeMatch != b.TypeMatch {
		return a.TypeMatch
	}
	ea, eb := a.Element, b.Element
	if ea.Confidence != eb.Confidence {
		return ea.Confidence > eb.Confidence
	}
	if cy1, cy2 := ea.Bounds.CenterY2(), eb.Bounds.CenterY2(); cy1 != cy2 {
		return cy1 < cy2
	}
	if cx1, cx2 := ea.Bounds.CenterX2(), eb.Bounds.CenterX2(); cx1 != cx2 {
		return cx1 < cx2
	}
	switch {
	case ea.Bounds.Y1 != eb.Bounds.Y1:
		return ea.Bounds.Y1 < eb.Bounds.Y1
	case ea.Bounds.X1 != eb.Bounds.X1:
		return ea.Bounds.X1 < eb.Bounds.X1
	case ea.Bounds.Y2 != eb.Bounds.Y2:
		return ea.Bounds.Y2 < eb.Bounds.Y2
	case ea.Bounds.X2 != eb.Bounds.X2:
		return ea.Bounds.X2 < eb.Bounds.X2
	case a.MatchedText != b.MatchedText:
		return a.MatchedText < b.MatchedText
	case ea.OCRText != eb.OCRText:
		return ea.OCRText < eb.OCRText
	case ea.Label != eb.Label:
		return ea.Label < eb.Label
	}
	return ea.ElementType < eb.ElementType
}

func clamp(s int) int {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}
