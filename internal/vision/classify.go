package vision

import (
	"context"
	"strings"
	"unicode"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
)

var (
	buttonWords = wordSet(
		"prihlásiť", "prihlasit", "login", "submit", "send", "odoslať", "odoslat",
		"potvrdiť", "potvrdit", "confirm", "ok", "cancel", "zrušiť", "zrusit",
		"uložiť", "ulozit", "save", "delete", "vymazať", "vymazat", "edit",
		"upraviť", "upravit", "add", "pridať", "pridat", "remove", "odstrániť",
		"odstranit", "close", "zatvoriť", "zatvorit", "open", "otvoriť", "otvorit",
	)
	inputWords = wordSet(
		"meno", "name", "heslo", "password", "email", "telefón", "telefon", "phone",
		"adresa", "address", "správa", "sprava", "message", "komentár", "komentar",
		"comment", "hľadať", "hladat", "vyhľadať", "vyhladat", "search",
	)
	linkWords = wordSet(
		"http", "https", "www", "link", "odkaz", "viac", "more", "info", "informácie",
		"informacie", "detail", "podrobnosti", "manual", "manuál", "návod", "navod",
		"help", "pomoc", "kontakt", "contact",
	)
	checkboxWords = wordSet(
		"checkbox", "check", "vybrať", "vybrat", "označiť", "oznacit", "súhlas",
		"suhlas", "súhlasím", "suhlasim", "agree", "podmienky", "terms", "privacy",
		"súkromie", "sukromie",
	)
	languageCodes = wordSet("sk", "en", "de", "cz")
)

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Classify guesses an element type from its text and box shape.
//
// Text is checked against Slovak and English keyword lists word by word, in the
// order button, text input, link, checkbox. Text without keywords falls back to
// patterns (phone number, e-mail, language code, number, long text) and then to
// the box shape. Elements with no text are classified by shape alone.
func Classify(text string, b detection.Bounds) detection.ElementType {
	text = strings.ToLower(strings.TrimSpace(text))
	width, height := float64(b.Width()), float64(b.Height())
	aspect := 1.0
	if height > 0 {
		aspect = width / height
	}
	area := b.Area()

	if text == "" {
		switch {
		case aspect > 3:
			return detection.TypeBanner
		case aspect < 0.5, area < 2000:
			return detection.TypeIcon
		default:
			return detection.TypeContainer
		}
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	switch {
	case anyIn(words, buttonWords):
		return detection.TypeButton
	case anyIn(words, inputWords):
		return detection.TypeTextInput
	case anyIn(words, linkWords):
		return detection.TypeLink
	case anyIn(words, checkboxWords):
		return detection.TypeCheckbox
	case looksLikePhone(text):
		return detection.TypePhoneNumber
	case strings.Contains(text, "@") && strings.Contains(text, "."):
		return detection.TypeEmail
	case len(words) == 1 && languageCodes[words[0]] && len(text) == 2:
		return detection.TypeDropdown
	case len(strings.Fields(text)) > 5:
		return detection.TypeTextBlock
	case isDigits(text):
		return detection.TypeNumber
	case area < 1000:
		return detection.TypeIcon
	case aspect > 2:
		return detection.TypeTextField
	}
	return detection.TypeLabel
}

func anyIn(words []string, set map[string]bool) bool {
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}

func looksLikePhone(text string) bool {
	digits := 0
	for _, r := range text {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits > 0 && (strings.Contains(text, "+") || digits >= 6)
}

func isDigits(text string) bool {
	for _, r := range text {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return text != ""
}

// Classifying wraps a Detector and fills in the element type of detections
// reported as unknown, using Classify on their text.
type Classifying struct {
	next Detector
}

// NewClassifying wraps d.
func NewClassifying(d Detector) *Classifying {
	return &Classifying{next: d}
}

// Detect runs the wrapped detector and classifies untyped detections.
func (c *Classifying) Detect(ctx context.Context, imagePath string) ([]detection.Detection, error) {
	dets, err := c.next.Detect(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	for i := range dets {
		if dets[i].ElementType == "" || dets[i].ElementType == detection.TypeUnknown {
			text := dets[i].OCRText
			if text == "" {
				text = dets[i].Label
			}
			dets[i].ElementType = Classify(text, dets[i].Bounds)
		}
	}
	return dets, nil
}
