// Package textnorm canonicalizes UI text before fuzzy comparison.
//
// OCR misreads are systematic rather than random: on Slovak screens a lower-case
// "l" is routinely read as "i" ("Vyhiadat Iekara" for "Vyhladat Lekara"). A small
// substitution table fixes these confusions reliably, and the matcher's fuzzy
// score handles whatever noise is left.
//
// The pipeline is:
//
//  1. Trim, lower-case and collapse whitespace
//  2. Apply the OCR confusion table (longest key first, single pass)
//  3. Expand synonym groups ("button" and "btn") in both directions
//  4. Strip diacritics, only as a fallback comparison
//
// Tables are plain data (see Tables and DefaultTables) and can be loaded from a
// YAML file:
//
//	ocr_fixes:
//	  iekara: lekara
//	synonyms:
//	  - [button, btn]
package textnorm
