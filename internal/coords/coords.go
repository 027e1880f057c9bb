package coords

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
)

// Placeholder is the sentinel written for a point that has not been resolved yet.
const Placeholder = "TODO%,TODO%"

// Point is a resolution-independent position, in whole percent of the image
// width and height.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// String formats the point as "<x>%,<y>%" with no whitespace.
func (p Point) String() string {
	return fmt.Sprintf("%d%%,%d%%", p.X, p.Y)
}

// Resolve converts the center of b into a percentage point of a width x height
// image.
//
// Each axis is round-half-up(100 * center / size), clamped to [0, 100]. The
// arithmetic is done on integers with the doubled center (x1 + x2), so exact
// halves are never subject to floating point error: a center of 42.5% becomes 43.
//
// Resolve panics when width or height is not positive.
func Resolve(b detection.Bounds, width, height int) Point {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("coords: image dimensions must be positive, got %dx%d", width, height))
	}
	return Point{
		X: percent(b.CenterX2(), width),
		Y: percent(b.CenterY2(), height),
	}
}

// percent returns round-half-up(100 * (center2 / 2) / size), clamped.
func percent(center2, size int) int {
	// 100*c2/(2*size) + 1/2 == (100*c2 + size) / (2*size)
	num := 100*int64(center2) + int64(size)
	den := 2 * int64(size)
	var p int64
	if num >= 0 {
		p = num / den
	} else {
		p = -((-num + den - 1) / den)
	}
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}

var pointPattern = regexp.MustCompile(`^(\d{1,3})%,(\d{1,3})%$`)

// Parse reads a resolved point in the exact "<x>%,<y>%" form. The placeholder,
// whitespace, signs and values above 100 are rejected.
func Parse(s string) (Point, error) {
	m := pointPattern.FindStringSubmatch(s)
	if m == nil {
		return Point{}, fmt.Errorf("invalid point %q: want \"<x>%%,<y>%%\"", s)
	}
	x, _ := strconv.Atoi(m[1])
	y, _ := strconv.Atoi(m[2])
	if x > 100 || y > 100 {
		return Point{}, fmt.Errorf("invalid point %q: percentages must be within 0-100", s)
	}
	return Point{X: x, Y: y}, nil
}

// IsPlaceholder reports whether s is the unresolved sentinel.
func IsPlaceholder(s string) bool {
	return s == Placeholder
}

// IsResolved reports whether s is a well-formed resolved point.
func IsResolved(s string) bool {
	_, err := Parse(s)
	return err == nil
}
