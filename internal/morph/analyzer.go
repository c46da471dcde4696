// Package morph provides morphological analysis for Russian words: given a
// normalized word form it returns the parse candidates known for that form,
// each carrying the normal form (lemma) and a grammatical tag.
//
// The package exposes a narrow Analyzer interface so callers never depend on
// the concrete dictionary; tests substitute stub analyzers freely.
package morph

// Parse is one analysis candidate for a word form.
type Parse struct {
	NormalForm string
	Tag        string
}

// Analyzer resolves a normalized word form into its parse candidates,
// ordered by the analyzer's own ranking (best first). The candidate list is
// never empty on a nil error. Implementations must be safe for concurrent
// use after construction.
type Analyzer interface {
	Parse(word string) ([]Parse, error)
}
