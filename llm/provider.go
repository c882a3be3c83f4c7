package llm

import (
	"maps"
	"net/http"
	"slices"
	"sync"
)

// Provider adapts the client to one wire protocol. Implementations
// register themselves in an init func; the providers package holds the
// concrete adapters.
type Provider interface {
	// Name is the identifier endpoints reference (e.g. "anthropic").
	Name() string

	// BuildURL turns an endpoint's base URL into the full request URL.
	BuildURL(baseURL string) string

	// SetHeaders adds the protocol's auth and version headers.
	SetHeaders(req *http.Request)

	// BuildRequestBody marshals the protocol's request JSON.
	// temperature nil keeps the provider default.
	BuildRequestBody(model string, messages []Message, temperature *float64, maxTokens int) ([]byte, error)

	// ParseResponse unmarshals the protocol's response JSON.
	ParseResponse(body []byte, model string) (*Response, error)
}

var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider makes a provider resolvable by name. Called from
// provider init funcs.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider returns the provider registered under name, nil when
// nothing is registered.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns the registered provider names.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return slices.Collect(maps.Keys(providerRegistry))
}
