// Package config provides configuration constants for e2e tests.
package config

import "time"

// DefaultLLMURL is where the scenarios expect an OpenAI-compatible
// endpoint. The bundled mock serves this address when started as
// `mock-llm -fixtures test/e2e/fixtures`; a local Ollama works too.
const DefaultLLMURL = "http://localhost:11434/v1"

// Default timeouts.
const (
	DefaultStageTimeout  = 60 * time.Second
	DefaultGlobalTimeout = 10 * time.Minute
)

// Model names the scenarios route stages through. Fixture files carry
// these names so each stage can be scripted independently.
const (
	ResearchModel = "research-model"
	OutlineModel  = "outline-model"
	WritingModel  = "writing-model"
	RefineModel   = "refine-model"
)

// Config holds the e2e test configuration.
type Config struct {
	LLMURL       string        `json:"llm_url"`
	KeepOutput   bool          `json:"keep_output"`
	StageTimeout time.Duration `json:"stage_timeout"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LLMURL:       DefaultLLMURL,
		StageTimeout: DefaultStageTimeout,
	}
}
