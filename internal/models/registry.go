package models

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

//go:embed registry.json
var embeddedRegistry []byte

// Artifact kinds. A "ner" artifact carries the ONNX tagger files, a "dict"
// artifact carries the compiled morphological dictionary.
const (
	KindNER  = "ner"
	KindDict = "dict"
)

type Registry struct {
	Version string      `json:"version"`
	Models  []ModelSpec `json:"models"`
}

type ModelSpec struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Version     string   `json:"version"`
	Kind        string   `json:"kind"`
	Language    string   `json:"language"`
	URL         string   `json:"url"`
	Checksum    string   `json:"checksum"`
	SizeBytes   int64    `json:"size_bytes"`
	EntityTypes []string `json:"entity_types,omitempty"`
	Description string   `json:"description"`
	License     string   `json:"license"`
	Recommended bool     `json:"recommended"`
}

// RequiredFiles lists the files an installed artifact of this kind must
// contain.
func (m ModelSpec) RequiredFiles() []string {
	if m.Kind == KindDict {
		return []string{"index.fst", "lemmas.pool"}
	}
	return []string{"model.onnx", "labels.json", "tokenizer.json"}
}

func LoadEmbeddedRegistry() (Registry, error) {
	return parseRegistry(embeddedRegistry)
}

func parseRegistry(data []byte) (Registry, error) {
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return Registry{}, fmt.Errorf("parse model registry: %w", err)
	}
	sort.Slice(reg.Models, func(i, j int) bool { return reg.Models[i].Name < reg.Models[j].Name })
	return reg, nil
}

func (r Registry) Find(name string) (ModelSpec, bool) {
	for _, m := range r.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelSpec{}, false
}

func DefaultModelsRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rutext", "models"), nil
}

func ModelInstallPath(root string, name string) string {
	return filepath.Join(root, name)
}

func IsInstalled(root string, model ModelSpec) bool {
	base := ModelInstallPath(root, model.Name)
	for _, f := range model.RequiredFiles() {
		if _, err := os.Stat(filepath.Join(base, f)); err != nil {
			return false
		}
	}
	return true
}
