package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ONNXTagger runs a token-classification model over each sentence and folds
// the per-word labels into spans. Artifacts expected under the model dir:
// model.onnx, labels.json (index -> BIO label), tokenizer.json.
type ONNXTagger struct {
	session nerSession
	encoder *WordPieceEncoder
	labels  map[int]string
}

func newONNXTagger(modelDir string) (*ONNXTagger, error) {
	modelPath := filepath.Join(modelDir, "model.onnx")
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model missing: %w", err)
	}
	labels, err := loadLabels(filepath.Join(modelDir, "labels.json"))
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	encoder, err := NewWordPieceEncoder(filepath.Join(modelDir, "tokenizer.json"))
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	session, err := createONNXSession(modelPath)
	if err != nil {
		return nil, err
	}
	return &ONNXTagger{session: session, encoder: encoder, labels: labels}, nil
}

func loadLabels(path string) (map[int]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var byName map[string]string
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, err
	}
	labels := make(map[int]string, len(byName))
	for k, v := range byName {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("label index %q: %w", k, err)
		}
		labels[idx] = v
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels.json is empty")
	}
	return labels, nil
}

func (t *ONNXTagger) Tag(ctx context.Context, doc *Document) ([]Span, error) {
	spans := make([]Span, 0)
	for _, sent := range doc.Sentences {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		labels, err := t.tagSentence(ctx, sent)
		if err != nil {
			return nil, err
		}
		spans = append(spans, mergeBIO(doc.Source, sent.Tokens, labels)...)
	}
	return spans, nil
}

// tagSentence runs inference for one sentence and picks, per word, the
// argmax label of its first subword piece.
func (t *ONNXTagger) tagSentence(ctx context.Context, sent Sentence) ([]string, error) {
	enc := t.encoder.Encode(sent.Tokens)
	logits, err := t.session.Run(ctx, enc.InputIDs, enc.AttentionMask, enc.TokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	labels := make([]string, len(sent.Tokens))
	for i := range labels {
		labels[i] = "O"
	}
	seen := make(map[int]bool, len(sent.Tokens))
	for pos, wordIdx := range enc.TokenToWordIdx {
		if wordIdx < 0 || seen[wordIdx] || pos >= len(logits) {
			continue
		}
		seen[wordIdx] = true
		probs := softmax(logits[pos])
		best := 0
		for j, p := range probs {
			if p > probs[best] {
				best = j
			}
		}
		labels[wordIdx] = canonicalLabel(t.labels[best])
	}
	return labels, nil
}

// canonicalLabel maps model label vocabularies onto the service's BIO set.
// Anything outside PER/ORG/LOC becomes O.
func canonicalLabel(label string) string {
	prefix, name, ok := strings.Cut(label, "-")
	if !ok {
		return "O"
	}
	switch strings.ToUpper(name) {
	case "PER", "PERSON":
		name = "PER"
	case "ORG", "ORGANIZATION":
		name = "ORG"
	case "LOC", "GPE", "LOCATION":
		name = "LOC"
	default:
		return "O"
	}
	return prefix + "-" + name
}

func softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	probs := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		probs[i] = math.Exp(float64(v - max))
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
