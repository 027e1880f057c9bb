package detection

import (
	"errors"
	"fmt"
)

// ErrInvalidDetection is returned when a detection violates the input contract
// (empty or inverted bounding box, confidence outside [0, 1]).
var ErrInvalidDetection = errors.New("invalid detection")

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner
//   - (X2, Y2) is the bottom-right corner, with X1 < X2 and Y1 < Y2
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Width returns the horizontal extent in pixels.
func (b Bounds) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent in pixels.
func (b Bounds) Height() int { return b.Y2 - b.Y1 }

// Area returns the box area in square pixels, or 0 for an empty box.
func (b Bounds) Area() int {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

// Valid reports whether the box has a positive area.
func (b Bounds) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// CenterX2 returns twice the horizontal center (X1+X2). Doubling keeps the
// center exact in integer arithmetic.
func (b Bounds) CenterX2() int { return b.X1 + b.X2 }

// CenterY2 returns twice the vertical center (Y1+Y2).
func (b Bounds) CenterY2() int { return b.Y1 + b.Y2 }

// Intersect returns the overlapping area of two boxes, or an empty Bounds.
func (b Bounds) Intersect(o Bounds) Bounds {
	r := Bounds{
		X1: max(b.X1, o.X1),
		Y1: max(b.Y1, o.Y1),
		X2: min(b.X2, o.X2),
		Y2: min(b.Y2, o.Y2),
	}
	if !r.Valid() {
		return Bounds{}
	}
	return r
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%d,%d,%d,%d]", b.X1, b.Y1, b.X2, b.Y2)
}

// IoU returns the intersection-over-union ratio of two boxes in [0, 1].
func IoU(a, b Bounds) float64 {
	inter := a.Intersect(b).Area()
	if inter == 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// ElementType is the categorical tag a vision collaborator assigns to a detection.
type ElementType string

const (
	TypeUnknown     ElementType = "unknown"
	TypeButton      ElementType = "button"
	TypeTextInput   ElementType = "text_input"
	TypeTextField   ElementType = "text_field"
	TypeDropdown    ElementType = "dropdown"
	TypeLink        ElementType = "link"
	TypeCheckbox    ElementType = "checkbox"
	TypeIcon        ElementType = "icon"
	TypeLabel       ElementType = "label"
	TypeTextBlock   ElementType = "text_block"
	TypeEmail       ElementType = "email"
	TypePhoneNumber ElementType = "phone_number"
	TypeNumber      ElementType = "number"
	TypeBanner      ElementType = "banner"
	TypeContainer   ElementType = "container"
)

// Specific reports whether the type says something about the element beyond
// "there is a box here".
func (t ElementType) Specific() bool {
	return t != "" && t != TypeUnknown && t != TypeContainer
}

// Compatible reports whether a detection of type t satisfies a hint. Input-like
// types form one family because detectors disagree on how to label them.
func (t ElementType) Compatible(hint ElementType) bool {
	if hint == "" || hint == TypeUnknown {
		return false
	}
	if t == hint {
		return true
	}
	return inputFamily(t) && inputFamily(hint)
}

func inputFamily(t ElementType) bool {
	switch t {
	case TypeTextInput, TypeTextField, TypeEmail, TypePhoneNumber:
		return true
	}
	return false
}

// Detection is one candidate UI element reported by a vision collaborator.
type Detection struct {
	// Bounds is the element's bounding box in screenshot pixels.
	Bounds Bounds `json:"bounds"`

	// Label is the free-text description produced by the vision model. May be empty.
	Label string `json:"label,omitempty"`

	// OCRText is the text recognized inside the region. May be empty and may
	// contain recognition errors.
	OCRText string `json:"ocr_text,omitempty"`

	// Confidence is the detector's confidence (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// ElementType is the categorical tag (button, text_input, ...).
	ElementType ElementType `json:"element_type"`
}

// Validate checks the detection against the input contract.
func (d Detection) Validate() error {
	if !d.Bounds.Valid() {
		return fmt.Errorf("%w: bounding box %s has no area", ErrInvalidDetection, d.Bounds)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: confidence %.3f outside [0,1]", ErrInvalidDetection, d.Confidence)
	}
	return nil
}
