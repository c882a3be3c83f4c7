package model

import (
	"slices"
	"sync"
	"time"
)

// EndpointHealth is a snapshot of one endpoint's circuit state.
type EndpointHealth struct {
	// Available reports whether the endpoint is currently usable.
	Available bool `json:"available"`

	// LastSuccess is when the endpoint last answered.
	LastSuccess time.Time `json:"last_success,omitempty"`

	// LastFailure is when the endpoint last failed.
	LastFailure time.Time `json:"last_failure,omitempty"`

	// FailureCount counts consecutive failures since the last success.
	FailureCount int `json:"failure_count"`

	// CircuitOpen reports whether the breaker has tripped.
	CircuitOpen bool `json:"circuit_open"`

	// CircuitOpenedAt is when the breaker tripped.
	CircuitOpenedAt time.Time `json:"circuit_opened_at,omitempty"`
}

// HealthConfig tunes the circuit breaker.
type HealthConfig struct {
	// FailureThreshold is how many consecutive failures trip the breaker.
	FailureThreshold int

	// RecoveryTimeout is how long a tripped endpoint sits out before a
	// probe request may pass.
	RecoveryTimeout time.Duration
}

// DefaultHealthConfig returns the standard breaker settings.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	}
}

// healthState tracks per-endpoint circuit state.
type healthState struct {
	mu       sync.RWMutex
	config   HealthConfig
	statuses map[string]*EndpointHealth
}

func newHealthState(cfg HealthConfig) *healthState {
	return &healthState{
		config:   cfg,
		statuses: make(map[string]*EndpointHealth),
	}
}

// status returns the entry for name, creating it on first sight.
// Callers must hold h.mu.
func (h *healthState) status(name string) *EndpointHealth {
	st, ok := h.statuses[name]
	if !ok {
		st = &EndpointHealth{Available: true}
		h.statuses[name] = st
	}
	return st
}

func (h *healthState) markSuccess(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.status(name)
	st.LastSuccess = time.Now()
	st.FailureCount = 0
	st.Available = true
	st.CircuitOpen = false
}

func (h *healthState) markFailure(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.status(name)
	st.LastFailure = time.Now()
	st.FailureCount++
	if st.FailureCount >= h.config.FailureThreshold {
		st.CircuitOpen = true
		st.CircuitOpenedAt = st.LastFailure
		st.Available = false
	}
}

func (h *healthState) available(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st, ok := h.statuses[name]
	if !ok || !st.CircuitOpen {
		return true
	}
	// Half-open: past the recovery window, one probe request may pass.
	return time.Since(st.CircuitOpenedAt) > h.config.RecoveryTimeout
}

// tracker returns the health state without creating it.
func (r *Registry) tracker() *healthState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.health
}

// ensureHealth creates the health tracker on first use.
func (r *Registry) ensureHealth() *healthState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.health == nil {
		r.health = newHealthState(DefaultHealthConfig())
	}
	return r.health
}

// MarkEndpointSuccess records an answered request, closing the
// endpoint's circuit.
func (r *Registry) MarkEndpointSuccess(name string) {
	r.ensureHealth().markSuccess(name)
}

// MarkEndpointFailure records a failed request. Enough consecutive
// failures trip the endpoint's circuit.
func (r *Registry) MarkEndpointFailure(name string) {
	r.ensureHealth().markFailure(name)
}

// IsEndpointAvailable reports whether requests may go to an endpoint.
// An open circuit blocks requests until the recovery timeout passes.
func (r *Registry) IsEndpointAvailable(name string) bool {
	h := r.tracker()
	if h == nil {
		return true // nothing tracked yet
	}
	return h.available(name)
}

// GetEndpointHealth returns a copy of an endpoint's circuit state, nil
// when the endpoint has never been marked.
func (r *Registry) GetEndpointHealth(name string) *EndpointHealth {
	h := r.tracker()
	if h == nil {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	st, ok := h.statuses[name]
	if !ok {
		return nil
	}
	copied := *st
	return &copied
}

// GetAvailableFallbackChain returns the capability's chain with
// circuit-open endpoints filtered out.
func (r *Registry) GetAvailableFallbackChain(capability Capability) []string {
	chain := r.GetFallbackChain(capability)

	healthy := slices.DeleteFunc(slices.Clone(chain), func(name string) bool {
		return !r.IsEndpointAvailable(name)
	})

	// All down: hand back the full chain and let the client try anyway.
	if len(healthy) == 0 {
		return chain
	}
	return healthy
}

// SetHealthConfig replaces the breaker settings.
func (r *Registry) SetHealthConfig(cfg HealthConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.health == nil {
		r.health = newHealthState(cfg)
	} else {
		r.health.config = cfg
	}
}

// ResetEndpointHealth forgets an endpoint's circuit state.
func (r *Registry) ResetEndpointHealth(name string) {
	h := r.tracker()
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.statuses, name)
}
