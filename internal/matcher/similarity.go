package matcher

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Weights applied to the looser scores so that a literal match always outranks
// a containment or word-subset match of the same strings.
const (
	partialWeight  = 90
	tokenSetWeight = 95

	// minPartialLen is the shortest string partial matching is attempted for.
	// Shorter strings occur inside almost anything.
	minPartialLen = 3
)

// Similarity returns a score in [0, 100] for two normalized strings.
//
// It is the maximum of:
//   - Ratio: whole-string edit similarity
//   - PartialRatio (weighted 0.90): best window of the longer string
//   - TokenSortRatio: Ratio over sorted words, ignoring word order
//   - TokenSetRatio (weighted 0.95): Ratio over shared and remaining words
//
// Identical strings score 100; an empty string scores 0 against anything.
func Similarity(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	best := Ratio(a, b)
	if s := PartialRatio(a, b) * partialWeight / 100; s > best {
		best = s
	}
	if s := TokenSortRatio(a, b); s > best {
		best = s
	}
	if s := TokenSetRatio(a, b) * tokenSetWeight / 100; s > best {
		best = s
	}
	return best
}

// Ratio is 100 * (1 - distance / longer length), rounded half up, where distance
// is the Levenshtein distance in runes.
func Ratio(a, b string) int {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return (200*(longest-d) + longest) / (2 * longest)
}

// PartialRatio slides the shorter string over the longer one and returns the best
// Ratio of any equally long window. Returns 0 when the shorter string has fewer
// than three runes.
func PartialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) < minPartialLen {
		return 0
	}
	if len(short) == len(long) {
		return Ratio(a, b)
	}

	s := string(short)
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		if r := Ratio(s, string(long[i:i+len(short)])); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio compares the strings after sorting their words.
func TokenSortRatio(a, b string) int {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	sort.Strings(ta)
	sort.Strings(tb)
	return Ratio(strings.Join(ta, " "), strings.Join(tb, " "))
}

// TokenSetRatio compares the shared words of both strings against each string's
// shared-plus-remaining words. A string whose words are a subset of the other's
// scores 100.
func TokenSetRatio(a, b string) int {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	for w := range ta {
		if tb[w] {
			common = append(common, w)
		} else {
			onlyA = append(onlyA, w)
		}
	}
	for w := range tb {
		if !ta[w] {
			onlyB = append(onlyB, w)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := Ratio(withA, withB)
	if base != "" {
		best = max(best, Ratio(base, withA), Ratio(base, withB))
	}
	return best
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokens(s) {
		set[t] = true
	}
	return set
}
