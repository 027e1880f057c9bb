package detection

import (
	"sort"
	"strings"
)

// DefaultMergeThreshold is the IoU above which two detections are treated as
// the same visual element.
const DefaultMergeThreshold = 0.5

// Merged is the surviving representative of a cluster of overlapping detections.
//
// The embedded Detection carries the bounding box and confidence of the
// highest-confidence member. Label and OCRText hold the space-joined text
// variants of the whole cluster; Labels and OCRTexts keep them separately so
// a matcher can compare against every variant on its own.
type Merged struct {
	Detection

	// Labels are the distinct non-empty labels of all members, representative first.
	Labels []string `json:"labels,omitempty"`

	// OCRTexts are the distinct non-empty OCR strings of all members, representative first.
	OCRTexts []string `json:"ocr_texts,omitempty"`

	// Members are the raw detections that collapsed into this element.
	Members []Detection `json:"-"`
}

// Size returns the number of raw detections in the cluster.
func (m Merged) Size() int { return len(m.Members) }

// Texts returns every textual variant of the element: labels first, then OCR text.
func (m Merged) Texts() []string {
	out := make([]string, 0, len(m.Labels)+len(m.OCRTexts))
	out = append(out, m.Labels...)
	out = append(out, m.OCRTexts...)
	return out
}

// Merge collapses overlapping detections into one Merged per visual element.
//
// Two detections are linked when their IoU exceeds threshold. Clustering is
// transitive: if A links to B and B links to C, all three form one cluster even
// when A and C do not overlap enough on their own. Every input detection ends up
// in exactly one cluster, so the sum of cluster sizes equals len(dets).
//
// Parameters:
//   - dets: raw detections for one screenshot, in any order.
//   - threshold: IoU ratio in [0, 1]; pairs strictly above it are merged.
//
// Returns:
//   - []Merged: one entry per cluster, ordered top-to-bottom then left-to-right.
//   - error: ErrInvalidDetection if any detection has an empty box or a
//     confidence outside [0, 1].
//
// # Representative
//
// The representative is the highest-confidence member. Ties are broken by the
// top-most, then left-most, then smallest box, so the result never depends on
// the order of the input slice.
//
// Because survivors keep a member's own box and every overlapping pair is
// linked, no two survivors overlap above the threshold and merging the output
// again returns the same set.
func Merge(dets []Detection, threshold float64) ([]Merged, error) {
	for _, d := range dets {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	if len(dets) == 0 {
		return []Merged{}, nil
	}

	parent := make([]int, len(dets))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := 0; i < len(dets); i++ {
		for j := i + 1; j < len(dets); j++ {
			if IoU(dets[i].Bounds, dets[j].Bounds) > threshold {
				ri, rj := find(i), find(j)
				if ri != rj {
					parent[rj] = ri
				}
			}
		}
	}

	clusters := make(map[int][]Detection)
	for i, d := range dets {
		root := find(i)
		clusters[root] = append(clusters[root], d)
	}

	merged := make([]Merged, 0, len(clusters))
	for _, members := range clusters {
		merged = append(merged, mergeCluster(members))
	}

	sort.Slice(merged, func(i, j int) bool {
		return lessPosition(merged[i].Detection, merged[j].Detection)
	})

	return merged, nil
}

// mergeCluster builds the representative of one cluster.
func mergeCluster(members []Detection) Merged {
	sorted := make([]Detection, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		return ranksHigher(sorted[i], sorted[j])
	})

	rep := sorted[0]
	labels := make([]string, 0, len(sorted))
	ocrTexts := make([]string, 0, len(sorted))
	for _, d := range sorted {
		labels = appendUnique(labels, d.Label)
		ocrTexts = appendUnique(ocrTexts, d.OCRText)
	}

	// Prefer a specific element type when the representative has none.
	elementType := rep.ElementType
	if !elementType.Specific() {
		for _, d := range sorted {
			if d.ElementType.Specific() {
				elementType = d.ElementType
				break
			}
		}
	}
	if elementType == "" {
		elementType = TypeUnknown
	}

	return Merged{
		Detection: Detection{
			Bounds:      rep.Bounds,
			Label:       strings.Join(labels, " "),
			OCRText:     strings.Join(ocrTexts, " "),
			Confidence:  rep.Confidence,
			ElementType: elementType,
		},
		Labels:   labels,
		OCRTexts: ocrTexts,
		Members:  sorted,
	}
}

// ranksHigher orders cluster members for representative selection.
func ranksHigher(a, b Detection) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Bounds.Y1 != b.Bounds.Y1 {
		return a.Bounds.Y1 < b.Bounds.Y1
	}
	if a.Bounds.X1 != b.Bounds.X1 {
		return a.Bounds.X1 < b.Bounds.X1
	}
	if a.Bounds.Area() != b.Bounds.Area() {
		return a.Bounds.Area() < b.Bounds.Area()
	}
	return lessPosition(a, b)
}

// lessPosition is a total order over detections: reading order first, then
// box size, then text.
func lessPosition(a, b Detection) bool {
	switch {
	case a.Bounds.Y1 != b.Bounds.Y1:
		return a.Bounds.Y1 < b.Bounds.Y1
	case a.Bounds.X1 != b.Bounds.X1:
		return a.Bounds.X1 < b.Bounds.X1
	case a.Bounds.Y2 != b.Bounds.Y2:
		return a.Bounds.Y2 < b.Bounds.Y2
	case a.Bounds.X2 != b.Bounds.X2:
		return a.Bounds.X2 < b.Bounds.X2
	case a.OCRText != b.OCRText:
		return a.OCRText < b.OCRText
	case a.Label != b.Label:
		return a.Label < b.Label
	case a.Confidence != b.Confidence:
		return a.Confidence > b.Confidence
	}
	return a.ElementType < b.ElementType
}

func appendUnique(list []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return list
	}
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
