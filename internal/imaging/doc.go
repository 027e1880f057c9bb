// Package imaging provides the screenshot helpers used around element detection.
//
// It covers three jobs:
//
//   - Loading: ImageCache decodes screenshots once and notices when a file is
//     rewritten; Dimensions reads only the image header.
//   - Cropping: PadCrop cuts an element region with a safety margin so OCR sees
//     whole glyphs.
//   - Annotation: Annotate and AnnotateElements draw detected elements, colored by
//     element type, for the archived analysis image and the MCP preview.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Annotate and PadCrop never
// modify their input image and can be called concurrently.
//
// # Error Handling
//
// Functions return errors for:
//   - File I/O errors during image loading or saving
//   - Regions that do not intersect the image
//   - Encoding errors during image output
package imaging
