package ner

import (
	"context"
	"strings"
	"unicode"

	"rutext/internal/morph"
	"rutext/internal/text"
)

// Tagger labels entity spans over a segmented document. Span.Text is the raw
// source slice at this stage; vocabulary normalization happens later in the
// pipeline.
type Tagger interface {
	Tag(ctx context.Context, doc *Document) ([]Span, error)
}

// mergeBIO folds per-token BIO labels ("B-PER", "I-LOC", "O") into spans.
// An I- label that does not continue a span of the same type opens a new one.
func mergeBIO(src string, tokens []text.Token, labels []string) []Span {
	spans := make([]Span, 0)
	var cur *Span
	for i, tok := range tokens {
		label := labels[i]
		if label == "O" || label == "" {
			if cur != nil {
				spans = append(spans, *cur)
				cur = nil
			}
			continue
		}
		prefix, name, ok := strings.Cut(label, "-")
		if !ok || (prefix != "B" && prefix != "I") {
			continue
		}
		typ, known := typeFromName[name]
		if !known {
			continue
		}
		if prefix == "B" || cur == nil || cur.Type != typ {
			if cur != nil {
				spans = append(spans, *cur)
			}
			cur = &Span{Type: typ, Start: tok.Start, End: tok.End}
			continue
		}
		cur.End = tok.End
	}
	if cur != nil {
		spans = append(spans, *cur)
	}
	for i := range spans {
		spans[i].Text = src[spans[i].Start:spans[i].End]
	}
	return spans
}

// RuleTagger is the default tagger backend: gazetteers plus capitalization
// and surname-suffix rules. It needs no model artifacts, which keeps the
// endpoint usable on hosts where the ONNX stack is not provisioned.
// Gazetteer matching goes through the analyzer so inflected forms
// ("Москве") hit their lemma's entry.
type RuleTagger struct {
	analyzer morph.Analyzer
}

// NewRuleTagger builds the rule backend. A nil analyzer disables
// lemma-based gazetteer matching; surface forms still match.
func NewRuleTagger(analyzer morph.Analyzer) *RuleTagger {
	return &RuleTagger{analyzer: analyzer}
}

var locGazetteer = stringSet(
	"москва", "россия", "петербург", "санкт-петербург", "киев", "минск",
	"новосибирск", "екатеринбург", "казань", "сочи", "крым", "урал",
	"сибирь", "волга", "байкал", "кавказ", "европа", "азия", "америка",
	"лондон", "париж", "берлин", "украина", "беларусь", "казахстан",
)

var orgGazetteer = stringSet(
	"газпром", "сбербанк", "яндекс", "роснефть", "ростех", "ржд",
	"кремль", "дума", "минфин", "цб",
)

// Legal-form abbreviations open an ORG span; the capitalized words after
// them continue it.
var orgLegalForms = stringSet("ооо", "оао", "зао", "ао", "пао", "ип", "нко", "фгуп")

var orgKeywords = stringSet(
	"банк", "университет", "институт", "завод", "театр", "музей",
	"министерство", "компания", "агентство", "фонд", "клуб",
)

var firstNames = stringSet(
	"иван", "петр", "сергей", "алексей", "владимир", "дмитрий", "андрей",
	"николай", "михаил", "александр", "юрий", "павел", "олег", "игорь",
	"мария", "анна", "елена", "ольга", "наталья", "татьяна", "ирина",
	"светлана", "екатерина", "анастасия",
)

var surnameSuffixes = []string{
	"ов", "ова", "ев", "ева", "ёв", "ёва", "ин", "ина", "ын", "ына",
	"ский", "ская", "цкий", "цкая", "енко", "ук", "юк", "ич",
}

func stringSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Tag labels each sentence independently and merges the BIO sequence into
// spans. The rules are deliberately precision-leaning: an unknown
// capitalized word alone is not enough to open a span.
func (t *RuleTagger) Tag(ctx context.Context, doc *Document) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spans := make([]Span, 0)
	for _, sent := range doc.Sentences {
		labels := t.labelSentence(sent)
		spans = append(spans, mergeBIO(doc.Source, sent.Tokens, labels)...)
	}
	return spans, nil
}

func (t *RuleTagger) labelSentence(sent Sentence) []string {
	labels := make([]string, len(sent.Tokens))
	for i := range labels {
		labels[i] = "O"
	}
	for i, tok := range sent.Tokens {
		norm := text.Normalize(tok.Text)
		lemma := t.lemma(norm)
		switch {
		case inSet(norm, locGazetteer) || inSet(lemma, locGazetteer):
			labels[i] = "B-LOC"
		case inSet(norm, orgGazetteer) || inSet(lemma, orgGazetteer):
			labels[i] = "B-ORG"
		case inSet(norm, orgLegalForms):
			labels[i] = "B-ORG"
		case (inSet(norm, orgKeywords) || inSet(lemma, orgKeywords)) && isCapitalized(tok.Text):
			labels[i] = "B-ORG"
		case (inSet(norm, firstNames) || inSet(lemma, firstNames)) && isCapitalized(tok.Text):
			labels[i] = "B-PER"
		case hasSurnameSuffix(norm) && isCapitalized(tok.Text):
			if i > 0 && strings.HasPrefix(labels[i-1], "B-PER") || i > 0 && strings.HasPrefix(labels[i-1], "I-PER") {
				labels[i] = "I-PER"
			} else {
				labels[i] = "B-PER"
			}
		default:
			// A capitalized word right after a legal form or a first name
			// continues that span.
			if i > 0 && isCapitalized(tok.Text) {
				prev := labels[i-1]
				if prev == "B-ORG" || prev == "I-ORG" {
					prevNorm := text.Normalize(sent.Tokens[i-1].Text)
					if inSet(prevNorm, orgLegalForms) || inSet(prevNorm, orgKeywords) || labels[i-1] == "I-ORG" {
						labels[i] = "I-ORG"
					}
				}
				if prev == "B-PER" {
					labels[i] = "I-PER"
				}
			}
		}
	}
	return labels
}

// lemma resolves the dictionary normal form for gazetteer matching. Any
// analyzer failure degrades to surface-form matching.
func (t *RuleTagger) lemma(norm string) string {
	if t.analyzer == nil || norm == "" {
		return norm
	}
	candidates, err := t.analyzer.Parse(norm)
	if err != nil || len(candidates) == 0 {
		return norm
	}
	return candidates[0].NormalForm
}

func inSet(w string, set map[string]struct{}) bool {
	_, ok := set[w]
	return ok
}

func hasSurnameSuffix(norm string) bool {
	if len([]rune(norm)) < 4 {
		return false
	}
	for _, suffix := range surnameSuffixes {
		if strings.HasSuffix(norm, suffix) {
			return true
		}
	}
	return false
}

func isCapitalized(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}
