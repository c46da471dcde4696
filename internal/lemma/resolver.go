// Package lemma turns tokens into dictionary normal forms. It owns the two
// request shapes of the service: token-list resolution (a mapping keyed by
// the caller's original strings) and full-text annotation (ordered records
// with offsets and display quotes).
package lemma

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"rutext/internal/morph"
	"rutext/internal/text"
)

const defaultCacheSize = 4096

// Record is one annotated token occurrence in full-text mode. Lemma is nil
// when resolution failed for that token; the occurrence itself is never
// dropped, so offsets stay complete for downstream highlighting.
type Record struct {
	Token string  `json:"token"`
	Lemma *string `json:"lemma"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Quote string  `json:"quote"`
}

// Resolver maps a single token to its best lemma. It takes the analyzer's
// first-ranked candidate as-is: no part-of-speech or context disambiguation
// happens here, which is a documented limitation of the service.
type Resolver struct {
	analyzer morph.Analyzer
	cache    *lru.Cache[string, string]
}

// New builds a Resolver over the given analyzer with a small LRU of
// normalized form -> lemma. The cache is an optimization only; a cache
// failure at construction is impossible with a positive size.
func New(analyzer morph.Analyzer) *Resolver {
	cache, _ := lru.New[string, string](defaultCacheSize)
	return &Resolver{analyzer: analyzer, cache: cache}
}

// Resolve returns the lemma for one token and whether resolution succeeded.
// Failure covers both unresolvable tokens (normalization yields nothing) and
// analyzer errors; either way the failure stays local to this token.
func (r *Resolver) Resolve(token string) (string, bool) {
	normalized := text.Normalize(token)
	if normalized == "" {
		return "", false
	}
	if lemma, ok := r.cache.Get(normalized); ok {
		return lemma, true
	}
	candidates, err := r.analyzer.Parse(normalized)
	if err != nil || len(candidates) == 0 {
		return "", false
	}
	lemma := candidates[0].NormalForm
	r.cache.Add(normalized, lemma)
	return lemma, true
}

// ResolveAll resolves a caller-supplied token list into a mapping keyed by
// the ORIGINAL token strings. Duplicate originals are last-write-wins;
// unresolvable tokens are omitted. Offsets are not tracked in this mode.
func (r *Resolver) ResolveAll(tokens []string) map[string]string {
	out := make(map[string]string, len(tokens))
	for _, token := range tokens {
		if lemma, ok := r.Resolve(token); ok {
			out[token] = lemma
		}
	}
	return out
}

// AnnotateText tokenizes raw text and resolves every token occurrence in
// order. Each occurrence keeps its own offsets and context quote; duplicate
// words are all retained. A failed resolution yields a nil Lemma, never a
// missing record.
func (r *Resolver) AnnotateText(input string, window int) []Record {
	tokens := text.Tokenize(input)
	items := make([]Record, 0, len(tokens))
	for _, tok := range tokens {
		rec := Record{
			Token: tok.Text,
			Start: tok.Start,
			End:   tok.End,
			Quote: text.Quote(input, tok.Start, tok.End, window),
		}
		if lemma, ok := r.Resolve(tok.Text); ok {
			rec.Lemma = &lemma
		}
		items = append(items, rec)
	}
	return items
}
