// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"plan-pricing/internal/errors"
	"plan-pricing/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" yaml:"version"`

	// Output contains output configuration
	Output OutputConfig `json:"output" yaml:"output"`

	// Evaluation contains engine behaviour switches
	Evaluation EvaluationConfig `json:"evaluation" yaml:"evaluation"`

	// Catalog contains plan catalog configuration
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default output format (cli, json)
	DefaultFormat string `json:"default_format" yaml:"default_format"`

	// ShowDetails prints line item descriptions
	ShowDetails bool `json:"show_details" yaml:"show_details"`
}

// EvaluationConfig contains engine settings
type EvaluationConfig struct {
	// WarnOnTierGaps logs a warning when tiered usage falls outside every tier.
	// Uncovered usage is billed at zero either way.
	WarnOnTierGaps bool `json:"warn_on_tier_gaps" yaml:"warn_on_tier_gaps"`
}

// CatalogConfig contains plan catalog settings
type CatalogConfig struct {
	// Directory holds .hcl and .json plan version definitions
	Directory string `json:"directory" yaml:"directory"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Version: "1.0",
		Output: OutputConfig{
			DefaultFormat: "cli",
			ShowDetails:   true,
		},
		Evaluation: EvaluationConfig{
			WarnOnTierGaps: true,
		},
		Catalog: CatalogConfig{
			Directory: filepath.Join(homeDir, ".plan-pricing", "plans"),
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a JSON or YAML file. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Config("failed to read config", err)
	}

	config := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, errors.Config("failed to decode "+filepath.Base(path), err)
	}

	return config, nil
}

// Save saves configuration to a file, in YAML when the extension asks for it
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
