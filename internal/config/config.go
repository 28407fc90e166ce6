// Package config resolves bluebook settings from the config file,
// environment, and CLI flags, in that order of increasing precedence.
// Every resolved value remembers where it came from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries CLI overrides into resolution.
type ResolveOptions struct {
	ConfigPath string
	CLIDBPath  string
	CLITextDir string
	CLILogDir  string
}

// ResolvedConfig is the effective configuration.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath  ResolvedValue `json:"db_path"`
	TextDir ResolvedValue `json:"text_dir"`
	LogDir  ResolvedValue `json:"log_dir"`

	SimilarityThreshold float64 `json:"similarity_threshold"`
}

type fileConfig struct {
	DBPath              string  `yaml:"db_path"`
	TextDir             string  `yaml:"text_dir"`
	LogDir              string  `yaml:"log_dir"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// DefaultConfigPath is ~/.bluebook/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".bluebook", "config.yaml")
}

// Resolve loads the config file (if any), applies env overrides, then
// CLI overrides, and fills defaults.
func Resolve(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.TextDir, cfg.TextDir, SourceConfig, path)
		apply(&out.LogDir, cfg.LogDir, SourceConfig, path)
		if cfg.SimilarityThreshold > 0 {
			out.SimilarityThreshold = cfg.SimilarityThreshold
		}
	}

	applyEnv(&out.DBPath, "BLUEBOOK_DB")
	applyEnv(&out.TextDir, "BLUEBOOK_TEXT_DIR")
	applyEnv(&out.LogDir, "BLUEBOOK_LOG_DIR")
	if v := strings.TrimSpace(os.Getenv("BLUEBOOK_SIMILARITY")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			out.SimilarityThreshold = f
		}
	}

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.TextDir, opts.CLITextDir, SourceCLI, "--dir")
	apply(&out.LogDir, opts.CLILogDir, SourceCLI, "--logs")

	if out.DBPath.Value == "" {
		out.DBPath = ResolvedValue{Value: "", Source: SourceDefault, From: "store default"}
	} else {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}
	if out.TextDir.Value == "" {
		out.TextDir = ResolvedValue{Value: "data/budget/text", Source: SourceDefault, From: "built-in default"}
	}
	if out.LogDir.Value == "" {
		out.LogDir = ResolvedValue{Value: "logs", Source: SourceDefault, From: "built-in default"}
	}
	if out.SimilarityThreshold <= 0 {
		out.SimilarityThreshold = 85
	}

	return out, nil
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
