package ner

import "rutext/internal/text"

// Sentence is one segment of the source text. Token offsets are absolute
// (relative to the whole source, not the sentence).
type Sentence struct {
	Start, End int
	Tokens     []text.Token
}

// Document is the segmented form of one input text.
type Document struct {
	Source    string
	Sentences []Sentence
}

// Segmenter splits raw text into sentences and word tokens. Tagging runs per
// sentence because entity boundaries depend on sentence context.
type Segmenter struct{}

func NewSegmenter() *Segmenter { return &Segmenter{} }

// Segment cuts text at sentence terminators (. ! ? …) and tokenizes each
// sentence. A terminator run belongs to the sentence it closes. Sentences
// with no word tokens are dropped.
func (s *Segmenter) Segment(input string) *Document {
	doc := &Document{Source: input}
	start := 0
	inTerminator := false
	for i, r := range input {
		if isSentenceTerminator(r) {
			inTerminator = true
			continue
		}
		if inTerminator {
			inTerminator = false
			s.appendSentence(doc, input, start, i)
			start = i
		}
	}
	s.appendSentence(doc, input, start, len(input))
	return doc
}

func (s *Segmenter) appendSentence(doc *Document, input string, start, end int) {
	if start >= end {
		return
	}
	tokens := text.Tokenize(input[start:end])
	if len(tokens) == 0 {
		return
	}
	for i := range tokens {
		tokens[i].Start += start
		tokens[i].End += start
	}
	doc.Sentences = append(doc.Sentences, Sentence{Start: start, End: end, Tokens: tokens})
}

func isSentenceTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}
