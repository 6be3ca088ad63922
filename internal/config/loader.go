package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults applied to fields the config file leaves unset.
const (
	DefaultTool          = "claude"
	DefaultMaxIterations = 50
	DefaultMaxReview     = 3
	DefaultMaxQA         = 3
	DefaultSandboxImage  = "node:22-bookworm"
	DefaultStatePath     = ".forge/state.json"
	DefaultRequirements  = "requirements.json"
	DefaultDBPath        = ".forge/forge.db"
)

// Load reads and parses an orchestrator configuration from the given YAML
// file path, then applies defaults to unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./forge.yaml, ~/.forge/config.yaml.
// When none exists, a default config is returned rather than an error so
// a flag-driven run needs no file at all.
func LoadDefault() (*Config, error) {
	candidates := []string{"forge.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".forge", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &Config{}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills in every unset field with its default.
func applyDefaults(cfg *Config) {
	if cfg.Tool == "" {
		cfg.Tool = DefaultTool
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Cycles.MaxReview == 0 {
		cfg.Cycles.MaxReview = DefaultMaxReview
	}
	if cfg.Cycles.MaxQA == 0 {
		cfg.Cycles.MaxQA = DefaultMaxQA
	}
	if cfg.Sandbox.Image == "" {
		cfg.Sandbox.Image = DefaultSandboxImage
	}
	if cfg.Paths.State == "" {
		cfg.Paths.State = DefaultStatePath
	}
	if cfg.Paths.Requirements == "" {
		cfg.Paths.Requirements = DefaultRequirements
	}
	if cfg.Paths.DB == "" {
		cfg.Paths.DB = DefaultDBPath
	}
}
