// Package flow reads Maestro flow files and patches their tap coordinates.
//
// A flow written by the test generator looks like:
//
//	appId: sk.example.portal
//	---
//	- launchApp
//	- tapOn:
//	    point: TODO%,TODO%  # PROSIM NAJDI SURADNICE PRE "Heslo"
//	- inputText: tajne123
//	- tapOn:
//	    point: 65%,43%  # Vyhľadať Lekára (OCR: Vyhiadat Iekara)
//
// Parse finds the coordinate steps (tapOn, doubleTapOn and longPressOn with a
// point) and the element each one targets. Update rewrites only the point
// tokens, byte for byte, so comments, ordering, quoting and every unrelated step
// survive untouched.
//
// Documents are immutable snapshots: Update returns a new Document and Store
// writes it to disk with a temp file and rename.
package flow
