//go:build !onnxruntime

package ner

import (
	"fmt"
	"os"
	"strings"
)

func createONNXSession(modelPath string) (nerSession, error) {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("RUTEXT_ONNX_BACKEND")))
	if backend == "native" {
		return nil, fmt.Errorf("native ONNX backend requires build tag 'onnxruntime'")
	}
	return newPythonSession(modelPath), nil
}
