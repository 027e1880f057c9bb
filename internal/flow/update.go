package flow

import (
	"fmt"
	"sort"

	"github.com/ironsheep/screen-coords-mcp/internal/coords"
)

// Resolution is the match outcome for one step.
type Resolution struct {
	// Found is false when no element matched; the step is then left untouched.
	Found bool `json:"found"`

	// Point is the resolved coordinate. Only meaningful when Found.
	Point coords.Point `json:"point"`

	// Score and MatchedText describe the winning element, for reporting.
	Score       int    `json:"score,omitempty"`
	MatchedText string `json:"matched_text,omitempty"`
}

// Summary counts what an Update did.
type Summary struct {
	// Updated is the number of points written (Resolved + Reupdated).
	Updated int `json:"updated"`

	// Resolved is the number of placeholders replaced by a point.
	Resolved int `json:"resolved"`

	// Reupdated is the number of already resolved steps given a fresh point.
	Reupdated int `json:"reupdated"`

	// NotFound is the number of coordinate steps whose result was not found.
	NotFound int `json:"not_found"`
}

// Add accumulates another summary into s.
func (s *Summary) Add(o Summary) {
	s.Updated += o.Updated
	s.Resolved += o.Resolved
	s.Reupdated += o.Reupdated
	s.NotFound += o.NotFound
}

type patch struct {
	start, end int
	text       string
}

// Update applies results to doc and returns the new snapshot.
//
// results is keyed by Step.Index. For a coordinate step with a Found result the
// point token is replaced in place, keeping its quoting style; a NotFound result
// leaves the step as it is, placeholder included. Steps without a result and
// steps that carry no point are never touched. Every byte outside the replaced
// tokens is preserved, so an empty results map returns identical bytes.
//
// doc itself is not modified.
func Update(doc *Document, results map[int]Resolution) (*Document, Summary, error) {
	var sum Summary
	if len(results) == 0 {
		return doc, sum, nil
	}

	var patches []patch
	for _, step := range doc.Steps {
		if step.Kind == Unrelated {
			continue
		}
		res, ok := results[step.Index]
		if !ok {
			continue
		}
		if !res.Found {
			sum.NotFound++
			continue
		}

		patches = append(patches, patch{
			start: step.start,
			end:   step.end,
			text:  quoted(res.Point.String(), step.quote),
		})
		sum.Updated++
		if step.Kind == Placeholder {
			sum.Resolved++
		} else {
			sum.Reupdated++
		}
	}

	if len(patches) == 0 {
		return doc, sum, nil
	}

	sort.Slice(patches, func(i, j int) bool { return patches[i].start < patches[j].start })

	out := make([]byte, 0, len(doc.src)+8*len(patches))
	prev := 0
	for _, p := range patches {
		out = append(out, doc.src[prev:p.start]...)
		out = append(out, p.text...)
		prev = p.end
	}
	out = append(out, doc.src[prev:]...)

	next, err := Parse(out)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("failed to reparse updated flow: %w", err)
	}
	return next, sum, nil
}

func quoted(s string, quote byte) string {
	if quote == 0 {
		return s
	}
	return string(quote) + s + string(quote)
}
