package coords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name          string
		bounds        detection.Bounds
		width, height int
		want          Point
	}{
		{"heslo field", detection.Bounds{X1: 600, Y1: 400, X2: 700, Y2: 450}, 1000, 1000, Point{65, 43}},
		{"exact half rounds up", detection.Bounds{X1: 0, Y1: 0, X2: 5, Y2: 5}, 100, 100, Point{3, 3}},
		{"just below half", detection.Bounds{X1: 600, Y1: 400, X2: 699, Y2: 449}, 1000, 1000, Point{65, 42}},
		{"full image", detection.Bounds{X1: 0, Y1: 0, X2: 1080, Y2: 2400}, 1080, 2400, Point{50, 50}},
		{"bottom right corner", detection.Bounds{X1: 1070, Y1: 2390, X2: 1080, Y2: 2400}, 1080, 2400, Point{100, 100}},
		{"outside image clamps high", detection.Bounds{X1: 1200, Y1: 2500, X2: 1300, Y2: 2600}, 1080, 2400, Point{100, 100}},
		{"negative clamps low", detection.Bounds{X1: -300, Y1: -300, X2: -100, Y2: -100}, 1080, 2400, Point{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.bounds, tt.width, tt.height))
		})
	}
}

func TestResolvePanicsOnBadDimensions(t *testing.T) {
	b := detection.Bounds{X1: 0, Y1: 0, X2: 10, Y2: 10}
	assert.Panics(t, func() { Resolve(b, 0, 100) })
	assert.Panics(t, func() { Resolve(b, 100, -1) })
}

func TestResolveMonotonic(t *testing.T) {
	const w, h = 1080, 2400
	prev := Resolve(detection.Bounds{X1: 0, Y1: 0, X2: 40, Y2: 40}, w, h)
	for shift := 1; shift < 1400; shift += 7 {
		p := Resolve(detection.Bounds{X1: shift, Y1: shift, X2: shift + 40, Y2: shift + 40}, w, h)
		assert.GreaterOrEqual(t, p.X, prev.X)
		assert.GreaterOrEqual(t, p.Y, prev.Y)
		assert.True(t, p.X >= 0 && p.X <= 100)
		assert.True(t, p.Y >= 0 && p.Y <= 100)
		prev = p
	}
}

func TestPointString(t *testing.T) {
	assert.Equal(t, "65%,43%", Point{65, 43}.String())
	assert.Equal(t, "0%,100%", Point{0, 100}.String())
}

func TestParse(t *testing.T) {
	p, err := Parse("65%,43%")
	require.NoError(t, err)
	assert.Equal(t, Point{65, 43}, p)

	p, err = Parse(Point{7, 100}.String())
	require.NoError(t, err)
	assert.Equal(t, Point{7, 100}, p)

	for _, bad := range []string{Placeholder, "65%, 43%", " 65%,43%", "65,43", "101%,5%", "-1%,5%", "65%,43", `"65%,43%"`, ""} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder("TODO%,TODO%"))
	assert.False(t, IsPlaceholder("50%,50%"))
	assert.False(t, IsResolved(Placeholder))
	assert.True(t, IsResolved("50%,50%"))
}
