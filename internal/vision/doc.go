// Package vision is the boundary to whatever produces raw element detections.
//
// A Detector turns a screenshot path into detections. Two implementations
// exist: ocr.Engine reads text with Tesseract, and SidecarDetector loads the
// output of an external model from a JSON file next to the screenshot.
//
// Wrappers compose around any Detector:
//   - Classifying assigns element types to detections reported as unknown.
//   - Serial makes sure the wrapped detector never runs twice at once.
package vision
