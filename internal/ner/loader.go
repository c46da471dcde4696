package ner

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"rutext/internal/morph"
)

// Config selects the tagger backend and where its artifacts live.
type Config struct {
	// Backend is "rule" (default, no artifacts needed) or "onnx".
	Backend string
	// ModelDir holds model.onnx, labels.json and tokenizer.json for the
	// onnx backend.
	ModelDir string
}

// Handle bundles the constructed model stack: segmenter, embedding-backed
// tagger, and normalization vocabulary. Built at most once per process,
// immutable after construction, shared read-only across requests.
type Handle struct {
	Segmenter *Segmenter
	Tagger    Tagger
	Vocab     *Vocab
}

// Loader owns the deferred construction of the model stack.
//
// The stack is expensive to build (model load takes seconds and real
// memory), so nothing is constructed at process start: the lemmatization
// endpoints stay available even when the NER artifacts are broken or not
// yet provisioned. The first Get builds the stack; concurrent first callers
// are collapsed into a single construction via singleflight. A construction
// failure is returned to the callers that waited on it and is NOT cached —
// the next request retries from scratch. Once built, the handle is served
// lock-free for the rest of the process lifetime.
type Loader struct {
	build  func() (*Handle, error)
	group  singleflight.Group
	handle atomic.Pointer[Handle]
	builds atomic.Int64
}

// NewLoader builds a Loader for the configured backend. The analyzer backs
// the normalization vocabulary.
func NewLoader(cfg Config, analyzer morph.Analyzer) *Loader {
	return NewLoaderFunc(func() (*Handle, error) {
		return buildStack(cfg, analyzer)
	})
}

// NewLoaderFunc wires a custom constructor; tests use it to simulate
// construction failures and to count construction attempts.
func NewLoaderFunc(build func() (*Handle, error)) *Loader {
	return &Loader{build: build}
}

// Get returns the shared handle, constructing it on first demand.
func (l *Loader) Get(ctx context.Context) (*Handle, error) {
	if h := l.handle.Load(); h != nil {
		return h, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err, _ := l.group.Do("stack", func() (any, error) {
		if h := l.handle.Load(); h != nil {
			return h, nil
		}
		l.builds.Add(1)
		h, err := l.build()
		if err != nil {
			return nil, err
		}
		l.handle.Store(h)
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// Ready reports whether the handle has been constructed.
func (l *Loader) Ready() bool { return l.handle.Load() != nil }

// Builds reports how many construction attempts ran.
func (l *Loader) Builds() int64 { return l.builds.Load() }

// buildStack constructs the model stack in its fixed order: segmenter,
// embedding-backed tagger, vocabulary. Errors name the failing stage.
func buildStack(cfg Config, analyzer morph.Analyzer) (*Handle, error) {
	segmenter := NewSegmenter()

	var tagger Tagger
	switch cfg.Backend {
	case "", "rule":
		tagger = NewRuleTagger(analyzer)
	case "onnx":
		t, err := newONNXTagger(cfg.ModelDir)
		if err != nil {
			return nil, fmt.Errorf("tagger: %w", err)
		}
		tagger = t
	default:
		return nil, fmt.Errorf("tagger: unknown backend %q", cfg.Backend)
	}

	if analyzer == nil {
		return nil, fmt.Errorf("vocabulary: no analyzer")
	}
	return &Handle{Segmenter: segmenter, Tagger: tagger, Vocab: NewVocab(analyzer)}, nil
}
