package ner

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"rutext/internal/morph"
	"rutext/internal/text"
)

// Vocab rewrites an entity span's surface form to a canonical one: each word
// is replaced by its dictionary normal form, recased to match the original.
// Offsets are never touched, so "в Москве" still points at the source while
// the mention reads "в Москва".
type Vocab struct {
	analyzer morph.Analyzer
}

func NewVocab(analyzer morph.Analyzer) *Vocab {
	return &Vocab{analyzer: analyzer}
}

// NormalizeSpan returns the canonical surface form for a span's raw text.
// The separators between words (spaces, hyphens) are carried over from the
// source, so "Санкт-Петербурге" keeps its hyphen. Words the analyzer cannot
// resolve keep their original form; only an analyzer infrastructure error
// fails the call.
func (v *Vocab) NormalizeSpan(raw string) (string, error) {
	tokens := text.Tokenize(raw)
	if len(tokens) == 0 {
		return raw, nil
	}
	var b strings.Builder
	last := 0
	for _, tok := range tokens {
		b.WriteString(raw[last:tok.Start])
		b.WriteString(v.normalizeWord(tok.Text))
		last = tok.End
	}
	b.WriteString(raw[last:])
	return b.String(), nil
}

// normalizeWord swaps one word for its recased dictionary normal form. A
// predicted candidate is a stemmer guess, not a citation form, so
// out-of-vocabulary words stay exactly as written.
func (v *Vocab) normalizeWord(word string) string {
	norm := text.Normalize(word)
	if norm == "" {
		return word
	}
	candidates, err := v.analyzer.Parse(norm)
	if err != nil || len(candidates) == 0 || candidates[0].Tag == morph.PredictedTag {
		return word
	}
	return recase(candidates[0].NormalForm, word)
}

// recase transfers the casing pattern of the original word onto the lemma:
// ALL-CAPS stays all-caps, Title stays Title, anything else is left lower.
func recase(lemma, original string) string {
	if lemma == "" || original == "" {
		return lemma
	}
	if isAllUpper(original) && utf8.RuneCountInString(original) > 1 {
		return strings.ToUpper(lemma)
	}
	if first, _ := utf8.DecodeRuneInString(original); unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(lemma)
		return string(unicode.ToUpper(r)) + lemma[size:]
	}
	return lemma
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		hasLetter = true
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return hasLetter
}
