package ner

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"rutext/internal/text"
)

// WordPieceEncoder turns word tokens into BERT-style subword ids for the
// ONNX tagger. It reads the HuggingFace tokenizer.json shipped next to the
// model.
type WordPieceEncoder struct {
	vocab      map[string]int
	unkID      int
	clsID      int
	sepID      int
	maxWordLen int
	maxSeqLen  int
	lowercase  bool
}

// Encoding is the model input for one sentence plus the mapping from each
// subword back to the word it came from (-1 for [CLS]/[SEP]).
type Encoding struct {
	InputIDs       []int64
	AttentionMask  []int64
	TokenTypeIDs   []int64
	TokenToWordIdx []int
}

type tokenizerJSON struct {
	Model struct {
		Vocab map[string]int `json:"vocab"`
	} `json:"model"`
	Normalizer struct {
		Lowercase *bool `json:"lowercase"`
	} `json:"normalizer"`
}

func NewWordPieceEncoder(path string) (*WordPieceEncoder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg tokenizerJSON
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer.json model.vocab is empty")
	}
	lowercase := true
	if cfg.Normalizer.Lowercase != nil {
		lowercase = *cfg.Normalizer.Lowercase
	}
	enc := &WordPieceEncoder{vocab: cfg.Model.Vocab, maxWordLen: 100, maxSeqLen: 512, lowercase: lowercase}
	for name, dst := range map[string]*int{"[UNK]": &enc.unkID, "[CLS]": &enc.clsID, "[SEP]": &enc.sepID} {
		id, ok := cfg.Model.Vocab[name]
		if !ok {
			return nil, fmt.Errorf("tokenizer vocab is missing %s", name)
		}
		*dst = id
	}
	return enc, nil
}

// Encode converts one sentence's word tokens into model input.
func (e *WordPieceEncoder) Encode(words []text.Token) *Encoding {
	out := &Encoding{
		InputIDs:       []int64{int64(e.clsID)},
		AttentionMask:  []int64{1},
		TokenTypeIDs:   []int64{0},
		TokenToWordIdx: []int{-1},
	}
	for wi, word := range words {
		for _, pieceID := range e.wordToPieces(word.Text) {
			if len(out.InputIDs) >= e.maxSeqLen-1 {
				break
			}
			out.InputIDs = append(out.InputIDs, int64(pieceID))
			out.AttentionMask = append(out.AttentionMask, 1)
			out.TokenTypeIDs = append(out.TokenTypeIDs, 0)
			out.TokenToWordIdx = append(out.TokenToWordIdx, wi)
		}
		if len(out.InputIDs) >= e.maxSeqLen-1 {
			break
		}
	}
	out.InputIDs = append(out.InputIDs, int64(e.sepID))
	out.AttentionMask = append(out.AttentionMask, 1)
	out.TokenTypeIDs = append(out.TokenTypeIDs, 0)
	out.TokenToWordIdx = append(out.TokenToWordIdx, -1)
	return out
}

// wordToPieces applies greedy longest-match-first wordpiece splitting. A
// word that cannot be covered by the vocab collapses to [UNK].
func (e *WordPieceEncoder) wordToPieces(word string) []int {
	if word == "" {
		return []int{e.unkID}
	}
	if e.lowercase {
		word = strings.ToLower(word)
	}
	runes := []rune(word)
	if len(runes) > e.maxWordLen {
		return []int{e.unkID}
	}
	if id, ok := e.vocab[string(runes)]; ok {
		return []int{id}
	}
	ids := make([]int, 0)
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := -1
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := e.vocab[piece]; ok {
				found = id
				break
			}
			end--
		}
		if found == -1 {
			return []int{e.unkID}
		}
		ids = append(ids, found)
		start = end
	}
	if len(ids) == 0 {
		return []int{e.unkID}
	}
	return ids
}
