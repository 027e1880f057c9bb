package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
)

func box(x1, y1, x2, y2 int) detection.Bounds {
	return detection.Bounds{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		bounds detection.Bounds
		want   detection.ElementType
	}{
		{"button keyword", "Prihlásiť", box(0, 0, 120, 40), detection.TypeButton},
		{"button without diacritics", "prihlasit", box(0, 0, 120, 40), detection.TypeButton},
		{"input keyword", "Heslo", box(0, 0, 300, 40), detection.TypeTextInput},
		{"input inside phrase", "Zadajte heslo", box(0, 0, 300, 40), detection.TypeTextInput},
		{"link keyword", "Viac info", box(0, 0, 120, 30), detection.TypeLink},
		{"checkbox keyword", "Súhlasím s podmienkami", box(0, 0, 300, 30), detection.TypeCheckbox},
		{"phone", "+421 900 123 456", box(0, 0, 200, 30), detection.TypePhoneNumber},
		{"long digit run is a phone", "0900123456", box(0, 0, 200, 30), detection.TypePhoneNumber},
		{"email", "jan@firma.sk", box(0, 0, 200, 30), detection.TypeEmail},
		{"language switch", "SK", box(0, 0, 40, 30), detection.TypeDropdown},
		{"long text", "Toto je veľmi dlhý odsek na obrazovke", box(0, 0, 600, 80), detection.TypeTextBlock},
		{"number", "42", box(0, 0, 40, 30), detection.TypeNumber},
		{"small text", "x", box(0, 0, 20, 20), detection.TypeIcon},
		{"wide text", "Vitajte", box(0, 0, 200, 40), detection.TypeTextField},
		{"plain text", "Vitajte", box(0, 0, 100, 80), detection.TypeLabel},
		{"keyword needs whole word", "Okno", box(0, 0, 100, 80), detection.TypeLabel},
		{"empty wide", "", box(0, 0, 400, 50), detection.TypeBanner},
		{"empty tall", "", box(0, 0, 40, 200), detection.TypeIcon},
		{"empty small", "", box(0, 0, 30, 30), detection.TypeIcon},
		{"empty large", "", box(0, 0, 200, 200), detection.TypeContainer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text, tt.bounds))
		})
	}
}

func TestClassifyingFillsUnknownOnly(t *testing.T) {
	inner := DetectorFunc(func(ctx context.Context, imagePath string) ([]detection.Detection, error) {
		return []detection.Detection{
			{Bounds: box(0, 0, 120, 40), OCRText: "Login", Confidence: 0.9, ElementType: detection.TypeUnknown},
			{Bounds: box(0, 50, 120, 90), Label: "Heslo", Confidence: 0.9},
			{Bounds: box(0, 100, 120, 140), OCRText: "Login", Confidence: 0.9, ElementType: detection.TypeLink},
		}, nil
	})

	dets, err := NewClassifying(inner).Detect(context.Background(), "shot.png")
	require.NoError(t, err)
	require.Len(t, dets, 3)
	assert.Equal(t, detection.TypeButton, dets[0].ElementType)
	assert.Equal(t, detection.TypeTextInput, dets[1].ElementType)
	assert.Equal(t, detection.TypeLink, dets[2].ElementType)
}
