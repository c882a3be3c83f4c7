package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Registry maps capabilities to models. Each capability carries a
// preference-ordered model list; each model name resolves to an
// endpoint. Health tracking layers on top so unhealthy endpoints drop
// out of the resolved chains.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[Capability]*CapabilityConfig
	endpoints    map[string]*EndpointConfig
	defaults     *DefaultsConfig
	health       *healthState
}

// CapabilityConfig lists the models that can serve a capability.
type CapabilityConfig struct {
	// Description says what the capability is for.
	Description string `json:"description"`

	// Preferred models, tried in order. The first available one wins.
	Preferred []string `json:"preferred"`

	// Fallback models, tried after every preferred model has failed.
	Fallback []string `json:"fallback"`
}

// EndpointConfig describes where a named model actually lives.
type EndpointConfig struct {
	// Provider is the wire protocol to speak (anthropic, ollama, openai).
	Provider string `json:"provider"`

	// URL is the API base URL. Anthropic endpoints leave it empty.
	URL string `json:"url,omitempty"`

	// Model is the identifier sent to the provider.
	Model string `json:"model"`

	// MaxTokens is the context window size.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// DefaultsConfig holds the model used when no capability matches.
type DefaultsConfig struct {
	Model string `json:"model"`
}

// NewRegistry builds a registry from explicit capability and endpoint
// tables.
func NewRegistry(caps map[Capability]*CapabilityConfig, endpoints map[string]*EndpointConfig) *Registry {
	return &Registry{
		capabilities: caps,
		endpoints:    endpoints,
		defaults: &DefaultsConfig{
			Model: "default",
		},
	}
}

// NewDefaultRegistry builds the registry used when no model config file
// is present: Claude models preferred, local Ollama models as fallback.
func NewDefaultRegistry() *Registry {
	return &Registry{
		capabilities: map[Capability]*CapabilityConfig{
			CapabilityResearch: {
				Description: "Topic research, fact gathering, subtopic discovery",
				Preferred:   []string{"claude-sonnet"},
				Fallback:    []string{"claude-haiku", "qwen"},
			},
			CapabilityOutline: {
				Description: "Article structure planning, section hierarchies",
				Preferred:   []string{"claude-sonnet"},
				Fallback:    []string{"qwen", "llama3.2"},
			},
			CapabilityWriting: {
				Description: "Long-form section body generation",
				Preferred:   []string{"claude-sonnet"},
				Fallback:    []string{"claude-haiku", "qwen"},
			},
			CapabilityRefinement: {
				Description: "Targeted revision of drafts against score deficits",
				Preferred:   []string{"claude-sonnet"},
				Fallback:    []string{"qwen"},
			},
			CapabilityFast: {
				Description: "Quick responses, simple tasks",
				Preferred:   []string{"claude-haiku"},
				Fallback:    []string{"qwen"},
			},
		},
		endpoints: map[string]*EndpointConfig{
			"claude-sonnet": {
				Provider:  "anthropic",
				Model:     "claude-sonnet-4-20250514",
				MaxTokens: 200000,
			},
			"claude-haiku": {
				Provider:  "anthropic",
				Model:     "claude-haiku-3-5-20241022",
				MaxTokens: 200000,
			},
			"qwen": {
				Provider:  "ollama",
				URL:       "http://localhost:11434/v1",
				Model:     "qwen2.5-coder:14b",
				MaxTokens: 128000,
			},
			"llama3.2": {
				Provider:  "ollama",
				URL:       "http://localhost:11434/v1",
				Model:     "llama3.2",
				MaxTokens: 128000,
			},
		},
		defaults: &DefaultsConfig{
			Model: "qwen",
		},
	}
}

// Resolve returns the first preferred model for a capability, or the
// default model when the capability is unknown. Fallback on failure is
// the LLM client's job, not Resolve's.
func (r *Registry) Resolve(capability Capability) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.capabilities[capability]; ok && len(cfg.Preferred) > 0 {
		return cfg.Preferred[0]
	}
	return r.defaults.Model
}

// GetFallbackChain returns every model that can serve a capability,
// preferred models first.
func (r *Registry) GetFallbackChain(capability Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.capabilities[capability]; ok {
		return slices.Concat(cfg.Preferred, cfg.Fallback)
	}
	return []string{r.defaults.Model}
}

// ForStage resolves the model for a pipeline stage's default capability.
func (r *Registry) ForStage(stage string) string {
	return r.Resolve(CapabilityForStage(stage))
}

// GetFallbackChainForStage returns the full chain for a pipeline stage.
func (r *Registry) GetFallbackChainForStage(stage string) []string {
	return r.GetFallbackChain(CapabilityForStage(stage))
}

// GetEndpoint returns the endpoint for a model name, nil when the model
// is not configured.
func (r *Registry) GetEndpoint(modelName string) *EndpointConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.endpoints[modelName]
}

// SetCapability adds or replaces a capability configuration.
func (r *Registry) SetCapability(capability Capability, cfg *CapabilityConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capabilities == nil {
		r.capabilities = make(map[Capability]*CapabilityConfig)
	}
	r.capabilities[capability] = cfg
}

// SetEndpoint adds or replaces an endpoint configuration.
func (r *Registry) SetEndpoint(name string, cfg *EndpointConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.endpoints == nil {
		r.endpoints = make(map[string]*EndpointConfig)
	}
	r.endpoints[name] = cfg
}

// SetDefault replaces the default model.
func (r *Registry) SetDefault(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.defaults == nil {
		r.defaults = &DefaultsConfig{}
	}
	r.defaults.Model = model
}

// ListCapabilities returns the configured capabilities in no particular
// order.
func (r *Registry) ListCapabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Collect(maps.Keys(r.capabilities))
}

// ListEndpoints returns the configured endpoint names in no particular
// order.
func (r *Registry) ListEndpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Collect(maps.Keys(r.endpoints))
}

// Validate checks that every model referenced by a capability or as the
// default has a configured endpoint. The "default" placeholder is exempt.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var problems []string
	check := func(capability Capability, kind string, models []string) {
		for _, m := range models {
			if _, ok := r.endpoints[m]; !ok {
				problems = append(problems, fmt.Sprintf("capability %q: %s model %q not found", capability, kind, m))
			}
		}
	}
	for capability, cfg := range r.capabilities {
		check(capability, "preferred", cfg.Preferred)
		check(capability, "fallback", cfg.Fallback)
	}

	if r.defaults != nil && r.defaults.Model != "" && r.defaults.Model != "default" {
		if _, ok := r.endpoints[r.defaults.Model]; !ok {
			problems = append(problems, fmt.Sprintf("default model %q not found", r.defaults.Model))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid model registry: %s", strings.Join(problems, "; "))
	}
	return nil
}

// registryJSON is the serialized form of a Registry. Health state is
// runtime-only and never round-trips.
type registryJSON struct {
	Capabilities map[Capability]*CapabilityConfig `json:"capabilities"`
	Endpoints    map[string]*EndpointConfig       `json:"endpoints"`
	Defaults     *DefaultsConfig                  `json:"defaults,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r *Registry) MarshalJSON() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return json.Marshal(registryJSON{
		Capabilities: r.capabilities,
		Endpoints:    r.endpoints,
		Defaults:     r.defaults,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Registry) UnmarshalJSON(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var tmp registryJSON
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	r.capabilities = tmp.Capabilities
	r.endpoints = tmp.Endpoints
	r.defaults = tmp.Defaults
	return nil
}
