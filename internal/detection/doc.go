// Package detection defines the detection model and collapses overlapping
// detections into one element per visual region.
//
// A vision collaborator (Tesseract, an external model writing sidecar JSON, ...)
// reports candidate UI elements as Detection values. The same on-screen element
// is often reported several times: once per word, once per line, once by the
// model and once by OCR. Merge clusters these reports so downstream matching
// sees each element exactly once while keeping every textual variant.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// # Overlap Metric
//
// Overlap is measured as intersection over union (IoU). Two detections are linked
// when IoU is strictly greater than the threshold (DefaultMergeThreshold = 0.5).
// Clustering is transitive: the clusters are the connected components of the
// "linked" relation.
//
// # Determinism
//
// Merge is a pure function of the multiset of its inputs. The representative of
// each cluster and the order of the output never depend on the order in which
// detections were supplied.
//
// # Confidence Scores
//
// Confidence is in [0.0, 1.0]. Anything outside that range, or a box with no
// area, is a contract violation and Merge fails with ErrInvalidDetection.
package detection
