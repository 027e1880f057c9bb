// Package coords turns a bounding box into the percentage point a flow file
// expects, and recognizes the placeholder written for unresolved steps.
//
// The wire format is fixed: "65%,43%" for a resolved point and "TODO%,TODO%"
// for a pending one. No spaces, no quotes.
package coords
