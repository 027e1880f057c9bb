// Package ocr is the Tesseract-backed vision collaborator.
//
// Engine reads a screenshot, preprocesses it with bild (grayscale, contrast,
// upscale) and asks Tesseract (via gosseract/v2) for word and line boxes. Each box
// becomes a detection.Detection whose OCRText is the recognized text; word and
// line boxes of the same label overlap and are collapsed later by
// detection.Merge. ReadRegion reads a single padded element, which the sidecar
// detector uses for elements an external model reported without text.
//
// # Prerequisites
//
// Tesseract and its language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-slk tesseract-ocr-eng
//   - macOS: brew install tesseract tesseract-lang
//
// Binaries built with CGO_ENABLED=0 compile against a stub whose calls return
// ErrUnavailable; the sidecar detector still works in that configuration.
//
// # Languages
//
// The default language is "slk+eng". Any Tesseract language expression works.
//
// # Coordinates
//
// Regions are reported in the coordinates of the image passed in, after undoing
// the preprocessing upscale.
package ocr
