package matcher

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
	"github.com/ironsheep/screen-coords-mcp/internal/textnorm"
)

func newTestMatcher() *Matcher {
	return New(textnorm.New(textnorm.DefaultTables()), DefaultOptions())
}

func element(t *testing.T, text string, conf float64, x1, y1, x2, y2 int, et detection.ElementType) detection.Merged {
	t.Helper()
	merged, err := detection.Merge([]detection.Detection{{
		Bounds:      detection.Bounds{X1: x1, Y1: y1, X2: x2, Y2: y2},
		OCRText:     text,
		Confidence:  conf,
		ElementType: et,
	}}, detection.DefaultMergeThreshold)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	return merged[0]
}

func TestMatchExact(t *testing.T) {
	m := newTestMatcher()
	heslo := element(t, "Heslo", 0.95, 600, 400, 700, 450, detection.TypeUnknown)

	result := m.Match(Target{Text: "Heslo"}, []detection.Merged{heslo})

	require.True(t, result.Found)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, "Heslo", result.MatchedText)
	assert.Equal(t, heslo.Bounds, result.Element.Bounds)
}

func TestMatchOCRConfusion(t *testing.T) {
	m := newTestMatcher()
	cand := element(t, "Vyhiadat Iekara", 0.8, 10, 10, 200, 40, detection.TypeButton)

	result := m.Match(Target{Text: "Vyhladat Lekara"}, []detection.Merged{cand})

	require.True(t, result.Found)
	assert.Equal(t, 100, result.Score)
}

func TestMatchNotFound(t *testing.T) {
	m := newTestMatcher()
	cands := []detection.Merged{
		element(t, "Heslo", 0.9, 0, 0, 100, 20, detection.TypeTextInput),
		element(t, "Meno", 0.9, 0, 40, 100, 60, detection.TypeTextInput),
		element(t, "Prihlasit", 0.9, 0, 80, 100, 100, detection.TypeButton),
	}

	result := m.Match(Target{Text: "Nonexistent Button"}, cands)

	assert.False(t, result.Found)
	assert.Zero(t, result.Score)
	assert.Empty(t, result.MatchedText)
}

func TestMatchEmptyInputs(t *testing.T) {
	m := newTestMatcher()
	assert.False(t, m.Match(Target{Text: "Heslo"}, nil).Found)

	cands := []detection.Merged{element(t, "Heslo", 0.9, 0, 0, 10, 10, detection.TypeUnknown)}
	assert.False(t, m.Match(Target{Text: "   "}, cands).Found)
}

func TestMatchSynonyms(t *testing.T) {
	m := newTestMatcher()
	cand := element(t, "Search btn", 0.7, 0, 0, 100, 30, detection.TypeButton)

	result := m.Match(Target{Text: "search button"}, []detection.Merged{cand})

	require.True(t, result.Found)
	assert.Equal(t, 100, result.Score)
}

func TestMatchDiacriticFallback(t *testing.T) {
	m := newTestMatcher()
	plain := element(t, "Vyhladat", 0.9, 0, 0, 100, 30, detection.TypeButton)
	exact := element(t, "Vyhľadať", 0.5, 0, 200, 100, 230, detection.TypeButton)

	score, _ := m.Score(Target{Text: "Vyhľadať"}, plain)
	assert.Equal(t, 100-DefaultDiacriticPenalty, score)

	result := m.Match(Target{Text: "Vyhľadať"}, []detection.Merged{plain, exact})
	require.True(t, result.Found)
	assert.Equal(t, exact.Bounds, result.Element.Bounds, "exact diacritics beat higher confidence")
	assert.Equal(t, 100, result.Score)
}

func TestMatchRespectsThreshold(t *testing.T) {
	opts := DefaultOptions()
	opts.AcceptThreshold = 96
	m := New(textnorm.New(textnorm.DefaultTables()), opts)
	plain := element(t, "Vyhladat", 0.9, 0, 0, 100, 30, detection.TypeButton)

	result := m.Match(Target{Text: "Vyhľadať"}, []detection.Merged{plain})
	assert.False(t, result.Found)
}

func TestMatchTieBreaks(t *testing.T) {
	m := newTestMatcher()

	t.Run("type hint first", func(t *testing.T) {
		label := element(t, "Heslo", 0.99, 0, 0, 100, 20, detection.TypeLabel)
		input := element(t, "Heslo", 0.60, 0, 30, 100, 50, detection.TypeTextInput)

		result := m.Match(Target{Text: "Heslo", TypeHint: detection.TypeTextInput}, []detection.Merged{label, input})
		require.True(t, result.Found)
		assert.Equal(t, input.Bounds, result.Element.Bounds)
	})

	t.Run("input family counts as compatible", func(t *testing.T) {
		label := element(t, "Email", 0.99, 0, 0, 100, 20, detection.TypeLabel)
		email := element(t, "Email", 0.60, 0, 30, 100, 50, detection.TypeEmail)

		result := m.Match(Target{Text: "Email", TypeHint: detection.TypeTextInput}, []detection.Merged{label, email})
		assert.Equal(t, email.Bounds, result.Element.Bounds)
	})

	t.Run("confidence second", func(t *testing.T) {
		low := element(t, "Heslo", 0.6, 0, 0, 100, 20, detection.TypeUnknown)
		high := element(t, "Heslo", 0.9, 0, 30, 100, 50, detection.TypeUnknown)

		result := m.Match(Target{Text: "Heslo"}, []detection.Merged{low, high})
		assert.Equal(t, high.Bounds, result.Element.Bounds)
	})

	t.Run("higher on screen third", func(t *testing.T) {
		lower := element(t, "Heslo", 0.9, 0, 300, 100, 320, detection.TypeUnknown)
		upper := element(t, "Heslo", 0.9, 0, 100, 100, 120, detection.TypeUnknown)

		result := m.Match(Target{Text: "Heslo"}, []detection.Merged{lower, upper})
		assert.Equal(t, upper.Bounds, result.Element.Bounds)
	})

	t.Run("left of same row last", func(t *testing.T) {
		right := element(t, "OK", 0.9, 300, 100, 400, 120, detection.TypeButton)
		left := element(t, "OK", 0.9, 0, 100, 100, 120, detection.TypeButton)

		result := m.Match(Target{Text: "OK"}, []detection.Merged{right, left})
		assert.Equal(t, left.Bounds, result.Element.Bounds)
	})
}

func TestMatchDeterministic(t *testing.T) {
	m := newTestMatcher()
	cands := []detection.Merged{
		element(t, "Heslo", 0.9, 0, 100, 100, 120, detection.TypeTextInput),
		element(t, "Heslo", 0.9, 200, 100, 300, 120, detection.TypeTextInput),
		element(t, "Zabudli ste heslo?", 0.9, 0, 140, 200, 160, detection.TypeLink),
		element(t, "Hesio", 0.95, 0, 200, 100, 220, detection.TypeUnknown),
		element(t, "Meno", 0.9, 0, 50, 100, 70, detection.TypeTextInput),
	}
	target := Target{Text: "Heslo", TypeHint: detection.TypeTextInput}

	want := m.Match(target, cands)
	require.True(t, want.Found)
	assert.Equal(t, 0, want.Element.Bounds.X1)
	assert.Equal(t, 100, want.Element.Bounds.Y1)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := make([]detection.Merged, len(cands))
		copy(shuffled, cands)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := m.Match(target, shuffled)
		assert.Equal(t, want.Element.Detection, got.Element.Detection)
		assert.Equal(t, want.Score, got.Score)
		assert.Equal(t, want.MatchedText, got.MatchedText)
	}
}

func TestMatchPrefersLiteralOverContainment(t *testing.T) {
	m := newTestMatcher()
	long := element(t, "Zabudli ste heslo?", 0.99, 0, 0, 200, 20, detection.TypeLink)
	exact := element(t, "Heslo", 0.5, 0, 300, 100, 320, detection.TypeTextInput)

	result := m.Match(Target{Text: "Heslo"}, []detection.Merged{long, exact})
	require.True(t, result.Found)
	assert.Equal(t, exact.Bounds, result.Element.Bounds)
}

func TestMatchUsesLabels(t *testing.T) {
	m := newTestMatcher()
	merged, err := detection.Merge([]detection.Detection{{
		Bounds:      detection.Bounds{X1: 0, Y1: 0, X2: 100, Y2: 40},
		Label:       "password field",
		Confidence:  0.8,
		ElementType: detection.TypeTextInput,
	}}, detection.DefaultMergeThreshold)
	require.NoError(t, err)

	result := m.Match(Target{Text: "password input"}, merged)
	require.True(t, result.Found)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, "password field", result.MatchedText)
}

func TestRank(t *testing.T) {
	m := newTestMatcher()
	cands := []detection.Merged{
		element(t, "Meno", 0.9, 0, 50, 100, 70, detection.TypeTextInput),
		element(t, "Heslo", 0.9, 0, 100, 100, 120, detection.TypeTextInput),
		element(t, "Hesio", 0.9, 0, 200, 100, 220, detection.TypeTextInput),
	}

	ranked := m.Rank(Target{Text: "Heslo"}, cands, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Heslo", ranked[0].MatchedText)
	assert.Equal(t, 100, ranked[0].Score)
	assert.Equal(t, "Hesio", ranked[1].MatchedText)
	assert.Less(t, ranked[1].Score, 100)

	all := m.Rank(Target{Text: "Heslo"}, cands, 0)
	assert.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
	}
}
