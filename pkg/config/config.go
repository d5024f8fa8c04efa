// Package config handles Yggdrasil configuration via environment variables
// and optional YAML files.
//
// Configuration is environment-first: LoadFromEnv() reads YGG_* variables
// over built-in defaults, and LoadFile() layers a YAML file on top of a
// Config. Validate() checks the result before use.
//
// Environment Variables:
//   - YGG_DATA_DIR: directory for the persistent store (default "./data")
//   - YGG_IN_MEMORY: "true" to run the store in memory only
//   - YGG_SYNC_WRITES: "true" to fsync after each write
//   - YGG_MAX_RETRIES: transaction conflict retry bound
//   - YGG_GRAPH: default graph namespace (default "default")
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all Yggdrasil configuration.
type Config struct {
	// DataDir is the directory for the persistent store's data files.
	DataDir string `yaml:"data_dir"`

	// InMemory runs the backing store in memory only. Data is not persisted.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites forces fsync after each write. Slower but more durable.
	SyncWrites bool `yaml:"sync_writes"`

	// MaxRetries bounds the transaction conflict-retry loop.
	MaxRetries int `yaml:"max_retries"`

	// DefaultGraph is the graph namespace used when none is given.
	DefaultGraph string `yaml:"default_graph"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:      "./data",
		InMemory:     false,
		SyncWrites:   false,
		MaxRetries:   32,
		DefaultGraph: "default",
	}
}

// LoadFromEnv builds a Config from YGG_* environment variables layered over
// the defaults. Unset variables keep their default values; malformed
// booleans and integers are ignored rather than fatal, matching the
// behavior of container entrypoints that pass everything through.
func LoadFromEnv() *Config {
	cfg := Default()

	if v := os.Getenv("YGG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("YGG_IN_MEMORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.InMemory = b
		}
	}
	if v := os.Getenv("YGG_SYNC_WRITES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SyncWrites = b
		}
	}
	if v := os.Getenv("YGG_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("YGG_GRAPH"); v != "" {
		cfg.DefaultGraph = v
	}

	return cfg
}

// LoadFile layers a YAML configuration file over c and returns the result.
// Fields absent from the file keep their current values.
func LoadFile(c *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	merged := *c
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &merged, nil
}

// Validate checks the configuration for usability.
func (c *Config) Validate() error {
	if !c.InMemory && c.DataDir == "" {
		return fmt.Errorf("data_dir is required unless in_memory is set")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.DefaultGraph == "" {
		return fmt.Errorf("default_graph must not be empty")
	}
	return nil
}
