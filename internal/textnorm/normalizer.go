package textnorm

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes target and detected text before comparison.
//
// A Normalizer is immutable after construction and safe for concurrent use.
type Normalizer struct {
	fixes    *strings.Replacer
	fixCount int
	groups   [][][]string // group -> member phrase -> words
}

// New builds a Normalizer from the given tables.
//
// OCR fix keys are lower-cased and whitespace-collapsed; when two keys collapse to
// the same string the later one in sorted order wins. Keys are applied longest
// first in a single left-to-right pass, so a replacement is never rewritten by
// another rule.
func New(tables Tables) *Normalizer {
	raw := make([]string, 0, len(tables.OCRFixes))
	for from := range tables.OCRFixes {
		raw = append(raw, from)
	}
	sort.Strings(raw)

	fixes := make(map[string]string, len(raw))
	for _, from := range raw {
		key := collapse(strings.ToLower(from))
		if key == "" {
			continue
		}
		fixes[key] = collapse(strings.ToLower(tables.OCRFixes[from]))
	}

	keys := make([]string, 0, len(fixes))
	for k := range fixes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, fixes[k])
	}

	n := &Normalizer{
		fixes:    strings.NewReplacer(pairs...),
		fixCount: len(keys),
	}

	for _, group := range tables.Synonyms {
		var members [][]string
		seen := make(map[string]bool)
		for _, phrase := range group {
			p := collapse(strings.ToLower(phrase))
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			members = append(members, strings.Fields(p))
		}
		if len(members) > 1 {
			n.groups = append(n.groups, members)
		}
	}

	return n
}

// Normalize returns the canonical form of text: trimmed, lower-cased, runs of
// whitespace collapsed to a single space, then OCR confusions corrected.
//
// Diacritics are preserved. Use StripDiacritics for the fallback comparison.
func (n *Normalizer) Normalize(text string) string {
	s := collapse(strings.ToLower(text))
	if n.fixCount == 0 || s == "" {
		return s
	}
	return n.fixes.Replace(s)
}

// Synonyms returns alternate phrasings of an already normalized text.
//
// Each variant swaps exactly one whole-word occurrence of a synonym group member
// for another member of the same group. Swaps work in both directions, so
// "login btn" yields "login button" and "login button" yields "login btn".
// The result is sorted, deduplicated and never contains text itself.
func (n *Normalizer) Synonyms(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 || len(n.groups) == 0 {
		return nil
	}

	self := strings.Join(words, " ")
	seen := make(map[string]bool)
	var out []string

	for _, group := range n.groups {
		for _, member := range group {
			for start := 0; start+len(member) <= len(words); start++ {
				if !wordsEqual(words[start:start+len(member)], member) {
					continue
				}
				for _, alt := range group {
					if wordsEqual(alt, member) {
						continue
					}
					variant := make([]string, 0, len(words)-len(member)+len(alt))
					variant = append(variant, words[:start]...)
					variant = append(variant, alt...)
					variant = append(variant, words[start+len(member):]...)
					v := strings.Join(variant, " ")
					if v != self && !seen[v] {
						seen[v] = true
						out = append(out, v)
					}
				}
			}
		}
	}

	sort.Strings(out)
	return out
}

// Variants returns the normalized text followed by its synonym expansions.
func (n *Normalizer) Variants(text string) []string {
	canon := n.Normalize(text)
	if canon == "" {
		return nil
	}
	return append([]string{canon}, n.Synonyms(canon)...)
}

// StripDiacritics removes combining marks: "vyhľadať" becomes "vyhladat".
func StripDiacritics(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func wordsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
