// Package config provides unified configuration loading for percept.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/percept/internal/constants"
)

// PerceptConfig contains all percept configuration settings.
type PerceptConfig struct {
	// Store contains settings for the graph store backend.
	Store StoreConfig `json:"store" yaml:"store"`

	// Query contains default similarity query parameters.
	Query QueryConfig `json:"query" yaml:"query"`

	// Embedding contains settings for local text embedding.
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`

	// Logging contains settings for operational and query logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// StoreConfig selects and configures the graph store backend.
type StoreConfig struct {
	// Backend identifies the store implementation: "sqlite" (default) or "memory".
	Backend string `json:"backend" yaml:"backend"`
}

// QueryConfig holds default parameters for similarity queries.
type QueryConfig struct {
	// Threshold is the minimum dot-product similarity a perception must
	// strictly exceed to be returned. Range: 0.0 and up (raw dot products
	// are unbounded).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Limit is the maximum number of matches returned.
	Limit int `json:"limit" yaml:"limit"`
}

// EmbeddingConfig configures the optional local GGUF embedding model used
// to derive vectors from text.
type EmbeddingConfig struct {
	// ModelPath is the path to a GGUF embedding model file.
	// Empty disables text embedding; vector input always works.
	ModelPath string `json:"model_path,omitempty" yaml:"model_path,omitempty"`

	// GPULayers is the number of model layers to offload to GPU (0 = CPU only).
	GPULayers int `json:"gpu_layers,omitempty" yaml:"gpu_layers,omitempty"`

	// ContextSize is the context window size in tokens. Defaults to 512.
	ContextSize int `json:"context_size,omitempty" yaml:"context_size,omitempty"`
}

// LoggingConfig configures percept's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables query logging to .percept/queries.jsonl.
	// "trace" additionally includes full embedding vectors.
	Level string `json:"level" yaml:"level"`
}

// Default returns a PerceptConfig with sensible defaults.
func Default() *PerceptConfig {
	return &PerceptConfig{
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Query: QueryConfig{
			Threshold: constants.DefaultQueryThreshold,
			Limit:     constants.DefaultQueryLimit,
		},
		Embedding: EmbeddingConfig{
			ContextSize: 512,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.percept/config.yaml -> environment variables
func Load() (*PerceptConfig, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".percept", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*PerceptConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *PerceptConfig) Validate() error {
	validBackends := map[string]bool{"": true, "sqlite": true, "memory": true}
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store backend: %s (valid: sqlite, memory, or empty for default)", c.Store.Backend)
	}

	if c.Query.Limit < 0 {
		return fmt.Errorf("query limit must be non-negative, got %d", c.Query.Limit)
	}

	if c.Embedding.GPULayers < 0 {
		return fmt.Errorf("gpu_layers must be non-negative, got %d", c.Embedding.GPULayers)
	}
	if c.Embedding.ContextSize < 0 {
		return fmt.Errorf("context_size must be non-negative, got %d", c.Embedding.ContextSize)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *PerceptConfig) {
	if v := os.Getenv("PERCEPT_STORE_BACKEND"); v != "" {
		config.Store.Backend = v
	}

	if v := os.Getenv("PERCEPT_QUERY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Query.Threshold = f
		}
	}
	if v := os.Getenv("PERCEPT_QUERY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Query.Limit = n
		}
	}

	if v := os.Getenv("PERCEPT_EMBEDDING_MODEL_PATH"); v != "" {
		config.Embedding.ModelPath = v
	}
	if v := os.Getenv("PERCEPT_EMBEDDING_GPU_LAYERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Embedding.GPULayers = n
		}
	}
	if v := os.Getenv("PERCEPT_EMBEDDING_CONTEXT_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Embedding.ContextSize = n
		}
	}

	if v := os.Getenv("PERCEPT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
