package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// nerSession abstracts the ONNX runtime behind the tagger: one forward pass
// over a single encoded sentence, returning per-position logits.
type nerSession interface {
	Run(ctx context.Context, inputIDs, attentionMask, tokenTypeIDs []int64) ([][]float32, error)
}

// pythonSession runs inference through the host python interpreter. It is
// the backend on builds without the onnxruntime tag: one subprocess per
// sentence, but no cgo and no shared library to locate.
type pythonSession struct {
	modelPath string
}

func newPythonSession(modelPath string) nerSession {
	return &pythonSession{modelPath: modelPath}
}

type sessionRequest struct {
	Model         string  `json:"model"`
	InputIDs      []int64 `json:"input_ids"`
	AttentionMask []int64 `json:"attention_mask"`
	TokenTypeIDs  []int64 `json:"token_type_ids"`
}

type sessionReply struct {
	Logits [][]float32 `json:"logits"`
	Error  string      `json:"error"`
}

func (s *pythonSession) Run(ctx context.Context, inputIDs, attentionMask, tokenTypeIDs []int64) ([][]float32, error) {
	payload, err := json.Marshal(sessionRequest{
		Model:         s.modelPath,
		InputIDs:      inputIDs,
		AttentionMask: attentionMask,
		TokenTypeIDs:  tokenTypeIDs,
	})
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, "python3", "-c", inferScript)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("onnx subprocess: %v: %s", err, stderr.String())
		}
		return nil, fmt.Errorf("onnx subprocess: %w", err)
	}

	var reply sessionReply
	if err := json.Unmarshal(stdout.Bytes(), &reply); err != nil {
		return nil, fmt.Errorf("decode onnx subprocess reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("onnx inference: %s", reply.Error)
	}
	return reply.Logits, nil
}

// inferScript reads one request from stdin and writes one reply to stdout.
// Errors, including missing python packages, come back as the reply's error
// field so the Go side sees a single failure shape.
const inferScript = `
import json
import sys


def reply(payload):
    sys.stdout.write(json.dumps(payload))


def infer(req):
    import numpy as np
    import onnxruntime

    session = onnxruntime.InferenceSession(
        req["model"], providers=["CPUExecutionProvider"])
    columns = {
        "input_ids": req["input_ids"],
        "attention_mask": req["attention_mask"],
        "token_type_ids": req["token_type_ids"],
    }
    seq_len = len(req["input_ids"])
    feed = {}
    for inp in session.get_inputs():
        for key, values in columns.items():
            if key in inp.name:
                feed[inp.name] = np.array([values], dtype=np.int64)
                break
        else:
            # Exports that drop token_type_ids still declare odd inputs
            # sometimes; feed zeros of the right width.
            feed[inp.name] = np.zeros((1, seq_len), dtype=np.int64)
    logits = session.run(None, feed)[0][0]
    return logits.astype("float32").tolist()


try:
    request = json.load(sys.stdin)
    reply({"logits": infer(request)})
except Exception as exc:
    reply({"error": "%s: %s" % (type(exc).__name__, exc)})
`
