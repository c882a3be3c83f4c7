// Package config provides configuration loading and management for Draftforge.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Draftforge configuration
type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Providers ProvidersConfig `yaml:"providers"`
	LLM       LLMConfig       `yaml:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Images    ImagesConfig    `yaml:"images"`
	Mirror    MirrorConfig    `yaml:"mirror"`
}

// OutputConfig configures the artifact store location
type OutputConfig struct {
	// Dir is the root directory for the artifact store and flat exports
	Dir string `yaml:"dir"`
}

// ProvidersConfig configures the research provider adapters
type ProvidersConfig struct {
	// Timeout is the maximum time for a single live provider call
	Timeout time.Duration `yaml:"timeout"`
	// MinInterval is the minimum pause between successive live calls to the
	// same provider
	MinInterval time.Duration `yaml:"min_interval"`
	// MaxRetries is how many times the orchestrator re-runs a failed stage
	MaxRetries int `yaml:"max_retries"`
	// SERPEndpoint selects the SERP vendor endpoint. Empty uses the adapter
	// default; both supported vendors share the same query shape
	SERPEndpoint string `yaml:"serp_endpoint"`
}

// LLMConfig configures the LLM client
type LLMConfig struct {
	// Endpoint is the OpenAI-compatible API endpoint (default: http://localhost:11434/v1)
	Endpoint string `yaml:"endpoint"`
	// Model is the default model to use (e.g., "qwen2.5-coder:32b")
	Model string `yaml:"model"`
	// Temperature controls randomness (0.0-1.0, default: 0.2)
	Temperature float64 `yaml:"temperature"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
	// MaxTokens caps a single completion; responses cut off at this ceiling
	// are treated as truncated
	MaxTokens int `yaml:"max_tokens"`
}

// PipelineConfig configures orchestration behavior
type PipelineConfig struct {
	// MinScore is the composite SEO score the refinement loop aims for (1-100)
	MinScore int `yaml:"min_score"`
	// MaxIterations bounds the refinement loop
	MaxIterations int `yaml:"max_iterations"`
	// StageTimeout is the maximum wall time for a single stage
	StageTimeout time.Duration `yaml:"stage_timeout"`
	// BatchConcurrency is how many keyword pipelines a batch run executes in
	// parallel
	BatchConcurrency int `yaml:"batch_concurrency"`
}

// ImagesConfig configures image planning
type ImagesConfig struct {
	// Count is the number of images to plan; 0 means auto (evaluator
	// recommendation, else 5). Hard cap is 10.
	Count int `yaml:"count"`
}

// MirrorConfig configures the optional remote artifact mirror
type MirrorConfig struct {
	// URL is the NATS server URL (empty = mirror disabled unless embedded)
	URL string `yaml:"url"`
	// Embedded starts an in-process NATS server instead of dialing URL
	Embedded bool `yaml:"embedded"`
}

// Enabled reports whether a mirror should be wired at all.
func (m MirrorConfig) Enabled() bool {
	return m.URL != "" || m.Embedded
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Dir: "output",
		},
		Providers: ProvidersConfig{
			Timeout:     30 * time.Second,
			MinInterval: time.Second,
			MaxRetries:  3,
		},
		LLM: LLMConfig{
			Endpoint:    "http://localhost:11434/v1",
			Model:       "qwen2.5-coder:32b",
			Temperature: 0.2,
			Timeout:     60 * time.Second,
			MaxTokens:   4096,
		},
		Pipeline: PipelineConfig{
			MinScore:         85,
			MaxIterations:    3,
			StageTimeout:     10 * time.Minute,
			BatchConcurrency: 2,
		},
		Images: ImagesConfig{
			Count: 0, // Auto
		},
		Mirror: MirrorConfig{
			URL: "",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("providers.timeout must be positive")
	}
	if c.Providers.MinInterval < 0 {
		return fmt.Errorf("providers.min_interval must not be negative")
	}
	if c.Providers.MaxRetries < 1 {
		return fmt.Errorf("providers.max_retries must be at least 1")
	}
	if c.LLM.Endpoint == "" {
		return fmt.Errorf("llm.endpoint is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return fmt.Errorf("llm.temperature must be between 0 and 1")
	}
	if c.Pipeline.MinScore < 1 || c.Pipeline.MinScore > 100 {
		return fmt.Errorf("pipeline.min_score must be between 1 and 100")
	}
	if c.Pipeline.MaxIterations < 1 {
		return fmt.Errorf("pipeline.max_iterations must be at least 1")
	}
	if c.Pipeline.StageTimeout <= 0 {
		return fmt.Errorf("pipeline.stage_timeout must be positive")
	}
	if c.Pipeline.BatchConcurrency < 1 {
		return fmt.Errorf("pipeline.batch_concurrency must be at least 1")
	}
	if c.Images.Count < 0 || c.Images.Count > 10 {
		return fmt.Errorf("images.count must be between 0 and 10")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Output
	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}

	// Providers
	if other.Providers.Timeout != 0 {
		c.Providers.Timeout = other.Providers.Timeout
	}
	if other.Providers.MinInterval != 0 {
		c.Providers.MinInterval = other.Providers.MinInterval
	}
	if other.Providers.MaxRetries != 0 {
		c.Providers.MaxRetries = other.Providers.MaxRetries
	}
	if other.Providers.SERPEndpoint != "" {
		c.Providers.SERPEndpoint = other.Providers.SERPEndpoint
	}

	// LLM
	if other.LLM.Endpoint != "" {
		c.LLM.Endpoint = other.LLM.Endpoint
	}
	if other.LLM.Model != "" {
		c.LLM.Model = other.LLM.Model
	}
	if other.LLM.Temperature != 0 {
		c.LLM.Temperature = other.LLM.Temperature
	}
	if other.LLM.Timeout != 0 {
		c.LLM.Timeout = other.LLM.Timeout
	}
	if other.LLM.MaxTokens != 0 {
		c.LLM.MaxTokens = other.LLM.MaxTokens
	}

	// Pipeline
	if other.Pipeline.MinScore != 0 {
		c.Pipeline.MinScore = other.Pipeline.MinScore
	}
	if other.Pipeline.MaxIterations != 0 {
		c.Pipeline.MaxIterations = other.Pipeline.MaxIterations
	}
	if other.Pipeline.StageTimeout != 0 {
		c.Pipeline.StageTimeout = other.Pipeline.StageTimeout
	}
	if other.Pipeline.BatchConcurrency != 0 {
		c.Pipeline.BatchConcurrency = other.Pipeline.BatchConcurrency
	}

	// Images
	if other.Images.Count != 0 {
		c.Images.Count = other.Images.Count
	}

	// Mirror
	if other.Mirror.URL != "" {
		c.Mirror.URL = other.Mirror.URL
	}
	if other.Mirror.Embedded {
		c.Mirror.Embedded = true
	}
}
