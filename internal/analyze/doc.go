// Package analyze ties the engine together for one screenshot: it asks the
// vision collaborator for detections, merges them, matches every coordinate
// step of a flow against the merged elements and resolves the winners to
// percentage points ready for flow.Update.
package analyze
