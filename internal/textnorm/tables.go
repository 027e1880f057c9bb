package textnorm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tables is the injected configuration of a Normalizer.
type Tables struct {
	// OCRFixes maps commonly misrecognized character sequences to their intended
	// form. Keys match as substrings of the lower-cased text.
	OCRFixes map[string]string `yaml:"ocr_fixes"`

	// Synonyms lists groups of interchangeable words or phrases.
	Synonyms [][]string `yaml:"synonyms"`
}

// DefaultTables returns the built-in Slovak OCR fixes and UI synonym groups.
func DefaultTables() Tables {
	return Tables{
		OCRFixes: map[string]string{
			"iekara":    "lekara", // l read as i
			"vyhiadat":  "vyhladat",
			"vyhiadať":  "vyhľadať",
			"prihiasit": "prihlasit",
			"heslo:":    "heslo",
		},
		Synonyms: [][]string{
			{"button", "btn"},
			{"field", "input", "textbox", "text field", "entry"},
			{"link", "hyperlink"},
			{"image", "img", "picture", "photo"},
			{"icon", "ico"},
			{"menu", "dropdown"},
			{"checkbox", "check box"},
			{"login", "log in", "sign in"},
			{"prihlasit", "prihlásiť"},
		},
	}
}

// ParseTables decodes a YAML tables document and layers it over DefaultTables.
//
// OCR fixes in data override or extend the defaults; synonym groups are appended.
// Setting `replace_defaults: true` at the top level discards the defaults.
func ParseTables(data []byte) (Tables, error) {
	var doc struct {
		Tables          `yaml:",inline"`
		ReplaceDefaults bool `yaml:"replace_defaults"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Tables{}, fmt.Errorf("failed to parse normalization tables: %w", err)
	}

	base := DefaultTables()
	if doc.ReplaceDefaults {
		base = Tables{OCRFixes: map[string]string{}}
	}
	for from, to := range doc.OCRFixes {
		base.OCRFixes[from] = to
	}
	base.Synonyms = append(base.Synonyms, doc.Synonyms...)
	return base, nil
}

// LoadTables reads a YAML tables file. An empty path yields DefaultTables.
func LoadTables(path string) (Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read normalization tables: %w", err)
	}
	return ParseTables(data)
}
