package ner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"rutext/internal/morph"
)

func TestLoaderBuildsOnce(t *testing.T) {
	l := NewLoaderFunc(func() (*Handle, error) {
		return &Handle{Segmenter: NewSegmenter()}, nil
	})
	if l.Ready() {
		t.Fatal("handle must not exist before first Get")
	}
	for i := 0; i < 3; i++ {
		h, err := l.Get(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if h == nil {
			t.Fatal("nil handle")
		}
	}
	if got := l.Builds(); got != 1 {
		t.Fatalf("expected 1 build, got %d", got)
	}
	if !l.Ready() {
		t.Fatal("handle must be ready after Get")
	}
}

func TestLoaderFailureIsNotCached(t *testing.T) {
	boom := errors.New("model file truncated")
	calls := 0
	l := NewLoaderFunc(func() (*Handle, error) {
		calls++
		if calls < 3 {
			return nil, boom
		}
		return &Handle{Segmenter: NewSegmenter()}, nil
	})
	for i := 0; i < 2; i++ {
		if _, err := l.Get(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: expected build error, got %v", i, err)
		}
		if l.Ready() {
			t.Fatal("failed build must not be cached")
		}
	}
	if _, err := l.Get(context.Background()); err != nil {
		t.Fatalf("third attempt should succeed: %v", err)
	}
	if got := l.Builds(); got != 3 {
		t.Fatalf("expected 3 builds, got %d", got)
	}
}

func TestLoaderCollapsesConcurrentFirstCallers(t *testing.T) {
	release := make(chan struct{})
	l := NewLoaderFunc(func() (*Handle, error) {
		<-release
		return &Handle{Segmenter: NewSegmenter()}, nil
	})

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Get(context.Background())
		}(i)
	}
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if got := l.Builds(); got != 1 {
		t.Fatalf("expected a single collapsed build, got %d", got)
	}
}

func TestLoaderHonorsCancelledContext(t *testing.T) {
	l := NewLoaderFunc(func() (*Handle, error) {
		t.Fatal("build must not run for a cancelled context")
		return nil, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Get(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildStackRejectsUnknownBackend(t *testing.T) {
	d, err := morph.NewEmbedded()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := buildStack(Config{Backend: "tensorflow"}, d); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestBuildStackRequiresAnalyzer(t *testing.T) {
	if _, err := buildStack(Config{}, nil); err == nil {
		t.Fatal("expected error without analyzer")
	}
}

func TestBuildStackRuleBackend(t *testing.T) {
	d, err := morph.NewEmbedded()
	if err != nil {
		t.Fatal(err)
	}
	h, err := buildStack(Config{}, d)
	if err != nil {
		t.Fatal(err)
	}
	if h.Segmenter == nil || h.Tagger == nil || h.Vocab == nil {
		t.Fatalf("incomplete handle %+v", h)
	}
}
