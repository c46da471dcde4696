//go:build onnxruntime

package ner

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortOnce    sync.Once
	ortInitErr error
)

// createONNXSession opens the model through the in-process onnxruntime
// shared library. RUTEXT_ONNXRUNTIME_LIB overrides the library path when
// it is not on the default search path.
func createONNXSession(modelPath string) (nerSession, error) {
	ortOnce.Do(func() {
		if lib := os.Getenv("RUTEXT_ONNXRUNTIME_LIB"); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", ortInitErr)
	}
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"}, nil)
	if err != nil {
		return nil, fmt.Errorf("open onnx model: %w", err)
	}
	return &nativeSession{session: session}, nil
}

// nativeSession wraps one DynamicAdvancedSession. The runtime does not
// promise concurrent Run safety on a single session, so passes serialize.
type nativeSession struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

func (s *nativeSession) Run(ctx context.Context, inputIDs, attentionMask, tokenTypeIDs []int64) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shape := ort.NewShape(1, int64(len(inputIDs)))
	ids, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer ids.Destroy()
	mask, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer mask.Destroy()
	types, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer types.Destroy()

	outputs := []ort.Value{nil}
	s.mu.Lock()
	err = s.session.Run([]ort.Value{ids, mask, types}, outputs)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		outputs[0].Destroy()
		return nil, fmt.Errorf("unexpected logits tensor type %T", outputs[0])
	}
	defer out.Destroy()

	dims := out.GetShape()
	if len(dims) != 3 || dims[0] != 1 {
		return nil, fmt.Errorf("unexpected logits shape %v", dims)
	}
	seqLen, labels := int(dims[1]), int(dims[2])
	data := out.GetData()
	if len(data) < seqLen*labels {
		return nil, fmt.Errorf("short logits buffer: %d values for shape %v", len(data), dims)
	}
	logits := make([][]float32, seqLen)
	for i := range logits {
		row := make([]float32, labels)
		copy(row, data[i*labels:(i+1)*labels])
		logits[i] = row
	}
	return logits, nil
}
