// Package config loads grantwright configuration from
// .grantwright/config.json with environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all grantwright configuration.
type Config struct {
	// Core settings
	Name    string `json:"name"`
	Version string `json:"version"`

	// Embedding provider configuration
	Embedding EmbeddingConfig `json:"embedding"`

	// Retrieval configuration
	Retrieval RetrievalConfig `json:"retrieval"`

	// Generation engine configuration
	Generation GenerationConfig `json:"generation"`

	// Storage configuration
	Store StoreConfig `json:"store"`

	// Logging
	Logging LoggingConfig `json:"logging"`
}

// EmbeddingConfig configures the embedding provider client.
type EmbeddingConfig struct {
	// Provider: "service", "ollama", or "genai"
	Provider string `json:"provider"`

	// Embedding service (HTTP POST {content} -> {embedding, text})
	ServiceURL string `json:"service_url"`

	// Ollama configuration
	OllamaEndpoint string `json:"ollama_endpoint"`
	OllamaModel    string `json:"ollama_model"`

	// GenAI configuration
	GenAIAPIKey string `json:"genai_api_key"`
	GenAIModel  string `json:"genai_model"`
	TaskType    string `json:"task_type"`
}

// Retrieval strategies.
const (
	RetrievalStrategyStore  = "store"
	RetrievalStrategyClient = "client"
)

// RetrievalConfig configures context retrieval.
type RetrievalConfig struct {
	// Strategy: "store" (storage-layer ranking) or "client" (fetch + rank in process)
	Strategy string `json:"strategy"`

	// Maximum chunks returned per retrieval
	MatchCount int `json:"match_count"`

	// Bounded sample size for client-side ranking
	SampleLimit int `json:"sample_limit"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	DatabasePath string `json:"database_path"`
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories,omitempty"`
	Level      string          `json:"level"`
	JSONFormat bool            `json:"json_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "grantwright",
		Version: "1.0.0",

		Embedding: EmbeddingConfig{
			Provider:       "service",
			ServiceURL:     "http://localhost:8000/embed",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "RETRIEVAL_QUERY",
		},

		Retrieval: RetrievalConfig{
			Strategy:    "client",
			MatchCount:  20,
			SampleLimit: 256,
		},

		Generation: DefaultGenerationConfig(),

		Store: StoreConfig{
			DatabasePath: filepath.Join(".grantwright", "grantwright.db"),
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a JSON file. A missing file returns defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// LoadFromWorkspace loads .grantwright/config.json relative to the workspace.
func LoadFromWorkspace(workspace string) (*Config, error) {
	return Load(filepath.Join(workspace, ".grantwright", "config.json"))
}

// Save saves configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// Embedding service endpoint
	if url := os.Getenv("EMBED_SERVICE_URL"); url != "" {
		c.Embedding.ServiceURL = url
	}
	if key := os.Getenv("GENAI_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
	}

	// Provider API keys (role-specific keys win over shared keys)
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if c.Generation.Direct.Provider == "gemini" {
			c.Generation.Direct.APIKey = key
		}
		if c.Generation.Proposer.Provider == "gemini" {
			c.Generation.Proposer.APIKey = key
		}
		if c.Generation.Challenger.Provider == "gemini" {
			c.Generation.Challenger.APIKey = key
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.Generation.Direct.Provider == "openai" {
			c.Generation.Direct.APIKey = key
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		if c.Generation.Direct.Provider == "anthropic" {
			c.Generation.Direct.APIKey = key
		}
		if c.Generation.Judge.Provider == "anthropic" {
			c.Generation.Judge.APIKey = key
		}
	}
	if key := os.Getenv("GEMINI_PROPOSER_KEY"); key != "" {
		c.Generation.Proposer.APIKey = key
	}
	if key := os.Getenv("GEMINI_CHALLENGER_KEY"); key != "" {
		c.Generation.Challenger.APIKey = key
	}
	if key := os.Getenv("CLAUDE_JUDGE_KEY"); key != "" {
		c.Generation.Judge.APIKey = key
	}

	// Database path from environment
	if path := os.Getenv("GRANTWRIGHT_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// parseTimeout parses a duration string with a fallback.
func parseTimeout(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
