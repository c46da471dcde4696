package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rutext/internal/text"
)

const (
	defaultPort    = 8000
	defaultWindow  = 40
	defaultLogFile = "~/.rutext/audit.log"
	defaultDictDir = "~/.rutext/dict"
)

// NER selects the tagger backend and the directory its artifacts live in.
type NER struct {
	Backend  string `json:"backend"`
	ModelDir string `json:"model_dir"`
}

type Config struct {
	Port    int    `json:"port"`
	LogFile string `json:"log_file"`
	DictDir string `json:"dict_dir"`
	Window  int    `json:"window"`
	NER     NER    `json:"ner"`
}

func Default() Config {
	return Config{
		Port:    defaultPort,
		LogFile: defaultLogFile,
		DictDir: defaultDictDir,
		Window:  defaultWindow,
		NER:     NER{Backend: "rule"},
	}
}

func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rutext", "config.yaml"), nil
}

func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnvOverrides(&cfg)
			return expanded(cfg), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := parseConfig(data, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.LogFile == "" {
		cfg.LogFile = defaultLogFile
	}
	if cfg.DictDir == "" {
		cfg.DictDir = defaultDictDir
	}
	if cfg.Window < 0 || cfg.Window > text.MaxQuoteWindow {
		return Config{}, fmt.Errorf("window %d out of range [0, %d]", cfg.Window, text.MaxQuoteWindow)
	}
	if cfg.NER.Backend == "" {
		cfg.NER.Backend = "rule"
	}
	applyEnvOverrides(&cfg)

	return expanded(cfg), nil
}

// Artifact paths can be overridden per process without editing the config
// file, which the service scripts rely on.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RUTEXT_DICT_DIR"); v != "" {
		cfg.DictDir = v
	}
	if v := os.Getenv("RUTEXT_MODEL_DIR"); v != "" {
		cfg.NER.ModelDir = v
	}
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func expanded(cfg Config) Config {
	cfg.LogFile = expandHome(cfg.LogFile)
	cfg.DictDir = expandHome(cfg.DictDir)
	cfg.NER.ModelDir = expandHome(cfg.NER.ModelDir)
	return cfg
}

func parseConfig(data []byte, cfg *Config) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse json config: %w", err)
		}
		return nil
	}
	return parseYAMLLite(strings.NewReader(trimmed), cfg)
}

func parseYAMLLite(r *strings.Reader, cfg *Config) error {
	s := bufio.NewScanner(r)
	inNER := false

	for s.Scan() {
		raw := s.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		indented := raw != line

		switch {
		case line == "ner:":
			inNER = true
		case strings.HasPrefix(line, "port:"):
			v := strings.TrimSpace(strings.TrimPrefix(line, "port:"))
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid port: %s", v)
			}
			cfg.Port = port
			inNER = false
		case strings.HasPrefix(line, "log_file:"):
			cfg.LogFile = strings.TrimSpace(strings.TrimPrefix(line, "log_file:"))
			inNER = false
		case strings.HasPrefix(line, "dict_dir:"):
			cfg.DictDir = strings.TrimSpace(strings.TrimPrefix(line, "dict_dir:"))
			inNER = false
		case strings.HasPrefix(line, "window:"):
			v := strings.TrimSpace(strings.TrimPrefix(line, "window:"))
			window, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid window: %s", v)
			}
			cfg.Window = window
			inNER = false
		case strings.HasPrefix(line, "backend:") && inNER && indented:
			cfg.NER.Backend = strings.TrimSpace(strings.TrimPrefix(line, "backend:"))
		case strings.HasPrefix(line, "model_dir:") && inNER && indented:
			cfg.NER.ModelDir = strings.TrimSpace(strings.TrimPrefix(line, "model_dir:"))
		}
	}

	if err := s.Err(); err != nil {
		return fmt.Errorf("scan config: %w", err)
	}
	return nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
