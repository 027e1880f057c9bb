// Package matcher finds the on-screen element a test step refers to.
//
// A Target ("Heslo", "Search button") is compared against every merged
// detection of a screenshot. Both sides are normalized with textnorm, expanded
// with synonyms and scored with Levenshtein-based similarity (see Similarity).
// The best candidate at or above the acceptance threshold wins; otherwise the
// result is NotFound (Result.Found == false), which callers must handle by
// leaving the step unresolved.
//
// # Scores
//
// Scores are integers in [0, 100]. 100 means the normalized strings (or one of
// their synonym variants) are identical. Containment and word-subset matches are
// weighted slightly lower so a literal match always wins over a longer label that
// merely contains the target. Comparisons that only succeed after removing
// diacritics lose DiacriticPenalty points.
//
// # Determinism
//
// Equal scores are resolved by an explicit tie-break chain (type hint,
// confidence, vertical then horizontal position, box, text). Match and Rank are
// pure functions of the candidate multiset.
package matcher
