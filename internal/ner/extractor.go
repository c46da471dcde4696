package ner

import (
	"context"
	"fmt"
	"strings"
)

// Extract runs the fixed three-stage pipeline over text: segment the
// document, tag entity spans, then normalize each span's surface form
// through the vocabulary. Any stage failure fails the whole request — a
// partially tagged document has no meaningful interpretation because entity
// boundaries depend on whole-sentence context.
func Extract(ctx context.Context, input string, h *Handle) ([]Span, error) {
	doc := h.Segmenter.Segment(input)
	spans, err := h.Tagger.Tag(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}
	for i := range spans {
		normalized, err := h.Vocab.NormalizeSpan(spans[i].Text)
		if err != nil {
			return nil, fmt.Errorf("normalize: %w", err)
		}
		spans[i].Text = normalized
	}
	return spans, nil
}

// JoinTokens synthesizes a text for the token-oriented request variant:
// non-empty tokens joined by a single space. Span offsets produced from the
// result are relative to this synthesized string, not to the caller's token
// list; callers that need a token index must re-derive the join themselves.
func JoinTokens(tokens []string) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
