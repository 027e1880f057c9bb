package flow

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/screen-coords-mcp/internal/coords"
)

// ErrNoCommands is returned when a flow file has no command list.
var ErrNoCommands = errors.New("flow has no command list")

// Kind classifies a step for coordinate resolution.
type Kind int

const (
	// Unrelated steps carry no point (launchApp, inputText, tapOn by text, ...).
	Unrelated Kind = iota
	// Placeholder steps carry the unresolved sentinel.
	Placeholder
	// Resolved steps already carry a concrete point.
	Resolved
)

func (k Kind) String() string {
	switch k {
	case Placeholder:
		return "placeholder"
	case Resolved:
		return "resolved"
	default:
		return "unrelated"
	}
}

// MarshalText lets Kind appear by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// coordinateCommands are the Maestro commands whose point this package manages.
var coordinateCommands = map[string]bool{
	"tapOn":       true,
	"doubleTapOn": true,
	"longPressOn": true,
}

// Step is one entry of a flow's command list.
type Step struct {
	// Index is the step's position in the command list, counting from 0. It is
	// the identity used to address results.
	Index int `json:"index"`

	// Command is the Maestro command name ("tapOn", "inputText", ...).
	Command string `json:"command"`

	// Kind says whether the step has a point and whether it is resolved.
	Kind Kind `json:"kind"`

	// Point is the current point value, verbatim, for coordinate steps.
	Point string `json:"point,omitempty"`

	// Target is the element description: the step's label, or the description
	// in the comment next to the point.
	Target string `json:"target,omitempty"`

	// Line is the 1-based line of the point value.
	Line int `json:"line,omitempty"`

	// span of the point scalar token in the source, quotes included.
	start, end int
	quote      byte
}

// Document is an immutable snapshot of a flow file.
type Document struct {
	src   []byte
	Steps []Step
}

// Bytes returns a copy of the document source.
func (d *Document) Bytes() []byte {
	return bytes.Clone(d.src)
}

// Coordinate returns the steps that carry a point, placeholders and resolved.
func (d *Document) Coordinate() []Step {
	var out []Step
	for _, s := range d.Steps {
		if s.Kind != Unrelated {
			out = append(out, s)
		}
	}
	return out
}

// Pending returns the steps still carrying the placeholder.
func (d *Document) Pending() []Step {
	var out []Step
	for _, s := range d.Steps {
		if s.Kind == Placeholder {
			out = append(out, s)
		}
	}
	return out
}

// Parse reads a Maestro flow.
//
// Every YAML document is decoded; sequence documents are command lists (the
// usual layout is an `appId` header document followed by the commands). Step
// indexes run across all command lists in file order.
func Parse(src []byte) (*Document, error) {
	doc := &Document{src: bytes.Clone(src)}
	lines := lineStarts(doc.src)

	dec := yaml.NewDecoder(bytes.NewReader(doc.src))
	found := false
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse flow: %w", err)
		}
		if node.Kind != yaml.DocumentNode || len(node.Content) == 0 {
			continue
		}
		root := node.Content[0]
		if root.Kind != yaml.SequenceNode {
			continue
		}
		found = true
		for _, item := range root.Content {
			step, err := parseStep(doc.src, lines, len(doc.Steps), item)
			if err != nil {
				return nil, err
			}
			doc.Steps = append(doc.Steps, step)
		}
	}

	if !found {
		return nil, ErrNoCommands
	}
	return doc, nil
}

func parseStep(src []byte, lines []int, index int, item *yaml.Node) (Step, error) {
	step := Step{Index: index, Kind: Unrelated}

	switch item.Kind {
	case yaml.ScalarNode:
		step.Command = item.Value
		return step, nil
	case yaml.MappingNode:
	default:
		return step, nil
	}
	if len(item.Content) < 2 {
		return step, nil
	}

	key, body := item.Content[0], item.Content[1]
	step.Command = key.Value
	if !coordinateCommands[key.Value] || body.Kind != yaml.MappingNode {
		return step, nil
	}

	var point *yaml.Node
	for i := 0; i+1 < len(body.Content); i += 2 {
		k, v := body.Content[i], body.Content[i+1]
		switch k.Value {
		case "point":
			if v.Kind == yaml.ScalarNode {
				point = v
			}
		case "label":
			if v.Kind == yaml.ScalarNode {
				step.Target = strings.TrimSpace(v.Value)
			}
		}
	}
	if point == nil {
		return step, nil
	}

	start, err := offset(src, lines, point.Line, point.Column)
	if err != nil {
		return step, err
	}
	end, quote, err := scalarEnd(src, start, point)
	if err != nil {
		return step, fmt.Errorf("step %d: %w", index, err)
	}

	step.Point = point.Value
	step.Line = point.Line
	step.start, step.end, step.quote = start, end, quote
	if coords.IsPlaceholder(point.Value) {
		step.Kind = Placeholder
	} else {
		step.Kind = Resolved
	}

	if step.Target == "" {
		step.Target = targetFromComment(lineComment(src, end))
	}
	if step.Target == "" {
		if kstart, err := offset(src, lines, key.Line, key.Column); err == nil {
			step.Target = targetFromComment(lineComment(src, kstart+len(key.Value)))
		}
	}
	return step, nil
}

// lineStarts returns the byte offset of the first byte of every line.
func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// offset converts a 1-based line and rune column into a byte offset.
func offset(src []byte, lines []int, line, column int) (int, error) {
	if line < 1 || line > len(lines) {
		return 0, fmt.Errorf("line %d out of range", line)
	}
	pos := lines[line-1]
	for c := 1; c < column; c++ {
		if pos >= len(src) || src[pos] == '\n' {
			return 0, fmt.Errorf("column %d out of range on line %d", column, line)
		}
		_, size := utf8.DecodeRune(src[pos:])
		pos += size
	}
	return pos, nil
}

// scalarEnd returns the end offset of the scalar token starting at start.
func scalarEnd(src []byte, start int, n *yaml.Node) (int, byte, error) {
	if start >= len(src) {
		return 0, 0, fmt.Errorf("point value out of range")
	}

	switch {
	case n.Style&yaml.DoubleQuotedStyle != 0:
		if src[start] != '"' {
			return 0, 0, fmt.Errorf("line %d: expected opening quote", n.Line)
		}
		for i := start + 1; i < len(src); i++ {
			switch src[i] {
			case '\\':
				i++
			case '"':
				return i + 1, '"', nil
			}
		}
	case n.Style&yaml.SingleQuotedStyle != 0:
		if src[start] != '\'' {
			return 0, 0, fmt.Errorf("line %d: expected opening quote", n.Line)
		}
		for i := start + 1; i < len(src); i++ {
			if src[i] != '\'' {
				continue
			}
			if i+1 < len(src) && src[i+1] == '\'' {
				i++
				continue
			}
			return i + 1, '\'', nil
		}
	case n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0:
		return 0, 0, fmt.Errorf("line %d: block scalar points are not supported", n.Line)
	default:
		if bytes.HasPrefix(src[start:], []byte(n.Value)) {
			return start + len(n.Value), 0, nil
		}
		return 0, 0, fmt.Errorf("line %d: multi-line point values are not supported", n.Line)
	}
	return 0, 0, fmt.Errorf("line %d: unterminated quoted point", n.Line)
}

// lineComment returns the text of a "#" comment between from and the end of its line.
func lineComment(src []byte, from int) string {
	if from > len(src) {
		return ""
	}
	rest := src[from:]
	if nl := bytes.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	idx := bytes.IndexByte(rest, '#')
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(string(rest[idx+1:]))
}

// targetFromComment extracts the element description from a step comment.
//
// A quoted name wins (`PROSIM NAJDI SURADNICE PRE "Heslo"`); otherwise the text
// before an " (OCR: ...)" annotation is used.
func targetFromComment(comment string) string {
	if comment == "" {
		return ""
	}
	for _, q := range []string{`"`, "'"} {
		open := strings.Index(comment, q)
		if open < 0 {
			continue
		}
		closing := strings.Index(comment[open+1:], q)
		if closing < 0 {
			continue
		}
		if name := strings.TrimSpace(comment[open+1 : open+1+closing]); name != "" {
			return name
		}
	}
	if i := strings.Index(comment, " (OCR:"); i >= 0 {
		comment = comment[:i]
	}
	return strings.TrimSpace(comment)
}
