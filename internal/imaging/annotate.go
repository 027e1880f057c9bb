package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
)

// paletteTypes fixes the hue assigned to each element type.
var paletteTypes = []detection.ElementType{
	detection.TypeButton,
	detection.TypeTextInput,
	detection.TypeTextField,
	detection.TypeDropdown,
	detection.TypeLink,
	detection.TypeCheckbox,
	detection.TypeIcon,
	detection.TypeLabel,
	detection.TypeTextBlock,
	detection.TypeEmail,
	detection.TypePhoneNumber,
	detection.TypeNumber,
	detection.TypeBanner,
	detection.TypeContainer,
}

// highlightColor marks the matched element.
var highlightColor = colorful.Color{R: 1, G: 0.1, B: 0.1}

// TypeColor returns the box color used for an element type. Types are spread
// evenly around the HCL hue circle so neighbouring types stay distinguishable;
// unknown types are drawn grey.
func TypeColor(t detection.ElementType) color.Color {
	for i, pt := range paletteTypes {
		if pt == t {
			hue := 360 * float64(i) / float64(len(paletteTypes))
			return colorful.Hcl(hue, 0.7, 0.6).Clamped()
		}
	}
	return colorful.Color{R: 0.5, G: 0.5, B: 0.5}
}

// Box is one rectangle to draw on an annotated image.
type Box struct {
	Bounds      detection.Bounds
	ElementType detection.ElementType
	Caption     string
	Highlight   bool
}

// Annotate draws every box on a copy of img, with its caption above it.
// Highlighted boxes are drawn last, thicker and in red.
func Annotate(img image.Image, boxes []Box) *image.NRGBA {
	out := imaging.Clone(img)

	ordered := make([]Box, len(boxes))
	copy(ordered, boxes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return !ordered[i].Highlight && ordered[j].Highlight
	})

	for _, b := range ordered {
		c, thickness := TypeColor(b.ElementType), 2
		if b.Highlight {
			c, thickness = highlightColor, 4
		}
		drawRect(out, b.Bounds, c, thickness)
		if b.Caption != "" {
			drawCaption(out, b.Bounds.X1, b.Bounds.Y1, b.Caption, c)
		}
	}
	return out
}

// AnnotateElements builds boxes for merged elements, captioned with their index
// and type, highlighting the element at index highlight (-1 for none).
func AnnotateElements(img image.Image, elements []detection.Merged, highlight int) *image.NRGBA {
	boxes := make([]Box, len(elements))
	for i, e := range elements {
		boxes[i] = Box{
			Bounds:      e.Bounds,
			ElementType: e.ElementType,
			Caption:     fmt.Sprintf("%d %s", i, e.ElementType),
			Highlight:   i == highlight,
		}
	}
	return Annotate(img, boxes)
}

// Save writes img to path; the format follows the file extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

func drawRect(dst *image.NRGBA, b detection.Bounds, c color.Color, thickness int) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(b.X1, b.Y1, b.X2, b.Y1+thickness),
		image.Rect(b.X1, b.Y2-thickness, b.X2, b.Y2),
		image.Rect(b.X1, b.Y1, b.X1+thickness, b.Y2),
		image.Rect(b.X2-thickness, b.Y1, b.X2, b.Y2),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

func drawCaption(dst *image.NRGBA, x, y int, text string, bg color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil() + 4
	height := face.Height + 2

	top := y - height
	if top < dst.Bounds().Min.Y {
		top = y
	}
	box := image.Rect(x, top, x+width, top+height).Intersect(dst.Bounds())
	draw.Draw(dst, box, image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(x+2, top+face.Ascent+1),
	}
	d.DrawString(text)
}
