package ner

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	probs := softmax([]float32{1.0, 2.0, 3.0})
	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("probabilities sum to %f", sum)
	}
	if !(probs[2] > probs[1] && probs[1] > probs[0]) {
		t.Fatalf("ordering not preserved: %v", probs)
	}
}

func TestSoftmaxLargeLogitsStayFinite(t *testing.T) {
	probs := softmax([]float32{1000, 1001, 999})
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("probs[%d] = %f", i, p)
		}
	}
	if probs[1] <= probs[0] || probs[1] <= probs[2] {
		t.Fatalf("argmax lost: %v", probs)
	}
}

func TestSoftmaxEmpty(t *testing.T) {
	if got := softmax(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestCanonicalLabel(t *testing.T) {
	cases := []struct{ in, want string }{
		{"B-PER", "B-PER"},
		{"I-PERSON", "I-PER"},
		{"B-GPE", "B-LOC"},
		{"B-LOCATION", "B-LOC"},
		{"I-ORGANIZATION", "I-ORG"},
		{"B-MISC", "O"},
		{"O", "O"},
		{"", "O"},
	}
	for _, tc := range cases {
		if got := canonicalLabel(tc.in); got != tc.want {
			t.Fatalf("canonicalLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.json")
	if err := os.WriteFile(path, []byte(`{"0":"O","1":"B-PER","2":"I-PER"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	labels, err := loadLabels(path)
	if err != nil {
		t.Fatal(err)
	}
	if labels[1] != "B-PER" || labels[2] != "I-PER" {
		t.Fatalf("unexpected labels %v", labels)
	}
	if err := os.WriteFile(path, []byte(`{"x":"O"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadLabels(path); err == nil {
		t.Fatal("expected error for non-numeric index")
	}
}

func TestNewONNXTaggerMissingModel(t *testing.T) {
	if _, err := newONNXTagger(t.TempDir()); err == nil {
		t.Fatal("expected error for empty model dir")
	}
}
