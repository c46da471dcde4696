package morph

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// The embedded starter dictionary keeps lemmatization working when no
// compiled artifact has been provisioned. It covers high-frequency forms
// only; everything else goes through the suffix predictor.
//
//go:embed dict.tsv.gz
var embeddedDict []byte

// NewEmbedded builds the in-memory dictionary from the embedded word table.
func NewEmbedded() (*Dictionary, error) {
	zr, err := gzip.NewReader(bytes.NewReader(embeddedDict))
	if err != nil {
		return nil, fmt.Errorf("open embedded dictionary: %w", err)
	}
	defer zr.Close()
	forms, err := ParseTSV(zr)
	if err != nil {
		return nil, fmt.Errorf("parse embedded dictionary: %w", err)
	}
	return NewInMemory(forms), nil
}

// Load opens the compiled dictionary under dir when both artifact files are
// present, and falls back to the embedded dictionary otherwise.
func Load(dir string) (*Dictionary, error) {
	if dir != "" && artifactPresent(dir) {
		return Open(dir)
	}
	return NewEmbedded()
}

func artifactPresent(dir string) bool {
	for _, name := range []string{IndexFile, PoolFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}
