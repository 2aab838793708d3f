// Package config loads scriptindex settings from .scriptindex/config.yaml
// and merges them with command line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the per-project settings directory.
const DirName = ".scriptindex"

// validLevels mirrors the logger package levels.
var validLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Config represents scriptindex configuration options
type Config struct {
	// IE also scans Internet Explorer conditional comments
	IE bool `yaml:"ie"`

	// SearchPaths are searched after each document's base directory
	SearchPaths []string `yaml:"search_paths"`

	// Concurrency bounds parallel file lookups per document
	Concurrency int `yaml:"concurrency"`

	// Stream emits resolved files as streams instead of buffers
	Stream bool `yaml:"stream"`

	// Timeout bounds a whole run (0 = no limit)
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is where run logs are written ("" = no file log)
	LogDir string `yaml:"log_dir"`

	// Dest is the folder resolved files are copied to ("" = print only)
	Dest string `yaml:"dest"`

	// Manifest is the path of the ordered manifest ("" = none)
	Manifest string `yaml:"manifest"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		IE:          false,
		SearchPaths: []string{},
		Concurrency: 8,
		Stream:      false,
		Timeout:     0,
		LogLevel:    "info",
		LogDir:      filepath.Join(DirName, "logs"),
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are kept as strings so "30s" style values parse.
	type yamlConfig struct {
		IE          bool     `yaml:"ie"`
		SearchPaths []string `yaml:"search_paths"`
		Concurrency int      `yaml:"concurrency"`
		Stream      bool     `yaml:"stream"`
		Timeout     string   `yaml:"timeout"`
		LogLevel    string   `yaml:"log_level"`
		LogDir      string   `yaml:"log_dir"`
		Dest        string   `yaml:"dest"`
		Manifest    string   `yaml:"manifest"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Presence matters for keys whose zero value is meaningful.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	has := func(key string) bool {
		_, ok := rawMap[key]
		return ok
	}

	if has("ie") {
		cfg.IE = yamlCfg.IE
	}
	if has("search_paths") {
		cfg.SearchPaths = append([]string{}, yamlCfg.SearchPaths...)
	}
	if has("concurrency") {
		cfg.Concurrency = yamlCfg.Concurrency
	}
	if has("stream") {
		cfg.Stream = yamlCfg.Stream
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(yamlCfg.LogLevel)
	}
	if has("log_dir") {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.Dest != "" {
		cfg.Dest = yamlCfg.Dest
	}
	if yamlCfg.Manifest != "" {
		cfg.Manifest = yamlCfg.Manifest
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .scriptindex/config.yaml in the
// specified directory.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, DirName, "config.yaml"))
}

// Flags holds command line overrides. Nil fields were not set on the
// command line.
type Flags struct {
	IE          *bool
	SearchPaths *[]string
	Concurrency *int
	Stream      *bool
	Timeout     *time.Duration
	LogLevel    *string
	LogDir      *string
	Dest        *string
	Manifest    *string
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values. Search paths given on
// the command line are appended to the configured ones.
func (c *Config) MergeWithFlags(f Flags) {
	if f.IE != nil {
		c.IE = *f.IE
	}
	if f.SearchPaths != nil {
		c.SearchPaths = append(c.SearchPaths, *f.SearchPaths...)
	}
	if f.Concurrency != nil {
		c.Concurrency = *f.Concurrency
	}
	if f.Stream != nil {
		c.Stream = *f.Stream
	}
	if f.Timeout != nil {
		c.Timeout = *f.Timeout
	}
	if f.LogLevel != nil {
		c.LogLevel = strings.ToLower(*f.LogLevel)
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.Dest != nil {
		c.Dest = *f.Dest
	}
	if f.Manifest != nil {
		c.Manifest = *f.Manifest
	}
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0, got %d", c.Concurrency)
	}

	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	// Timeout can be 0 (no timeout) or positive, negative is invalid
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	for i, sp := range c.SearchPaths {
		if strings.TrimSpace(sp) == "" {
			return fmt.Errorf("search_paths[%d] is empty", i)
		}
	}

	if c.Manifest != "" {
		switch strings.ToLower(filepath.Ext(c.Manifest)) {
		case ".yaml", ".yml", ".json":
		default:
			return fmt.Errorf("manifest %q must end in .yaml, .yml or .json", c.Manifest)
		}
	}

	return nil
}
