package matcher

import (
	"strings"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
)

// Target is what a test step wants to interact with.
type Target struct {
	// Text is the description to match, e.g. "Heslo" or "Vyhladat Lekara".
	Text string `json:"text"`

	// TypeHint is the kind of element the step names ("text field", "button").
	// Only used to break ties between equally scored candidates.
	TypeHint detection.ElementType `json:"type_hint,omitempty"`
}

// typeWords maps trailing words of an instruction to a type hint. Multi-word
// phrases are listed before their suffixes.
var typeWords = []struct {
	phrase []string
	hint   detection.ElementType
}{
	{[]string{"text", "field"}, detection.TypeTextInput},
	{[]string{"input", "field"}, detection.TypeTextInput},
	{[]string{"text", "box"}, detection.TypeTextInput},
	{[]string{"check", "box"}, detection.TypeCheckbox},
	{[]string{"field"}, detection.TypeTextInput},
	{[]string{"input"}, detection.TypeTextInput},
	{[]string{"textbox"}, detection.TypeTextInput},
	{[]string{"button"}, detection.TypeButton},
	{[]string{"btn"}, detection.TypeButton},
	{[]string{"link"}, detection.TypeLink},
	{[]string{"dropdown"}, detection.TypeDropdown},
	{[]string{"menu"}, detection.TypeDropdown},
	{[]string{"checkbox"}, detection.TypeCheckbox},
	{[]string{"icon"}, detection.TypeIcon},
}

var leadingVerbs = map[string]bool{
	"click": true, "tap": true, "press": true, "find": true,
	"select": true, "choose": true, "open": true, "enter": true, "type": true,
}

var fillerWords = map[string]bool{
	"on": true, "the": true, "into": true, "in": true, "at": true, "a": true, "an": true,
}

// quotePairs are the quote characters recognized around a target name.
var quotePairs = [][2]string{
	{"'", "'"},
	{`"`, `"`},
	{"„", "“"},
	{"“", "”"},
	{"‘", "’"},
}

// ParseTarget extracts a Target from a step instruction.
//
// A quoted segment is taken verbatim as the text ("click on 'Heslo' field" gives
// "Heslo" with a text-input hint). Otherwise leading verbs and filler words are
// dropped and a trailing element word becomes the hint ("Search button" gives
// "Search" with a button hint). When stripping would leave nothing, the words are
// kept as the text.
func ParseTarget(instruction string) Target {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return Target{}
	}

	if quoted, rest, ok := firstQuoted(instruction); ok {
		_, hint := splitHint(strings.Fields(rest))
		return Target{Text: quoted, TypeHint: hint}
	}

	words := strings.Fields(instruction)
	i := 0
	for i < len(words)-1 && leadingVerbs[strings.ToLower(words[i])] {
		i++
	}
	for i < len(words)-1 && fillerWords[strings.ToLower(words[i])] {
		i++
	}
	words = words[i:]

	text, hint := splitHint(words)
	if len(text) == 0 {
		text = words
	}
	return Target{Text: strings.Join(text, " "), TypeHint: hint}
}

// splitHint removes a trailing element word and returns it as a hint.
func splitHint(words []string) ([]string, detection.ElementType) {
	for _, tw := range typeWords {
		n := len(tw.phrase)
		if len(words) < n {
			continue
		}
		tail := words[len(words)-n:]
		match := true
		for k := range tail {
			if strings.ToLower(strings.Trim(tail[k], ".,:;!?")) != tw.phrase[k] {
				match = false
				break
			}
		}
		if match {
			return words[:len(words)-n], tw.hint
		}
	}
	return words, ""
}

// firstQuoted returns the first non-empty quoted segment and the instruction
// text that follows it.
func firstQuoted(s string) (quoted, rest string, ok bool) {
	bestStart := -1
	var bestPair [2]string
	for _, qp := range quotePairs {
		start := strings.Index(s, qp[0])
		if start < 0 {
			continue
		}
		end := strings.Index(s[start+len(qp[0]):], qp[1])
		if end < 0 {
			continue
		}
		if bestStart < 0 || start < bestStart {
			bestStart = start
			bestPair = qp
		}
	}
	if bestStart < 0 {
		return "", "", false
	}

	body := s[bestStart+len(bestPair[0]):]
	end := strings.Index(body, bestPair[1])
	quoted = strings.TrimSpace(body[:end])
	if quoted == "" {
		return "", "", false
	}
	return quoted, body[end+len(bestPair[1]):], true
}
