package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseYAMLLiteFlatKeys(t *testing.T) {
	cfg := Default()
	err := parseYAMLLite(strings.NewReader(`port: 9100
log_file: /var/log/rutext/audit.log
dict_dir: /opt/rutext/dict
window: 120
`), &cfg)
	if err != nil {
		t.Fatalf("parseYAMLLite() error = %v", err)
	}
	if cfg.Port != 9100 || cfg.Window != 120 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.LogFile != "/var/log/rutext/audit.log" || cfg.DictDir != "/opt/rutext/dict" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
}

func TestParseYAMLLiteNERSection(t *testing.T) {
	cfg := Default()
	err := parseYAMLLite(strings.NewReader(`port: 8000
ner:
  backend: onnx
  model_dir: /opt/rutext/ner
`), &cfg)
	if err != nil {
		t.Fatalf("parseYAMLLite() error = %v", err)
	}
	if cfg.NER.Backend != "onnx" || cfg.NER.ModelDir != "/opt/rutext/ner" {
		t.Fatalf("unexpected ner config: %+v", cfg.NER)
	}
}

func TestParseYAMLLiteInvalidPort(t *testing.T) {
	cfg := Default()
	if err := parseYAMLLite(strings.NewReader("port: eighty\n"), &cfg); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestLoadJSONConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `{"port": 9200, "window": 0, "ner": {"backend": "rule"}}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9200 || cfg.Window != 0 || cfg.NER.Backend != "rule" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8000 || cfg.Window != 40 || cfg.NER.Backend != "rule" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if strings.HasPrefix(cfg.LogFile, "~/") || strings.HasPrefix(cfg.DictDir, "~/") {
		t.Fatalf("home not expanded: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RUTEXT_DICT_DIR", "/srv/dict")
	t.Setenv("RUTEXT_MODEL_DIR", "/srv/ner")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DictDir != "/srv/dict" || cfg.NER.ModelDir != "/srv/ner" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsWindowOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("window: 501\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for window > 500")
	}
}
