package model

import (
	"slices"
	"testing"
	"time"
)

func TestEndpointHealthTracking(t *testing.T) {
	r := NewDefaultRegistry()

	// Before any marks: available, but nothing recorded.
	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected qwen to start available")
	}
	if r.GetEndpointHealth("qwen") != nil {
		t.Error("expected no health info before any requests")
	}

	r.MarkEndpointSuccess("qwen")

	health := r.GetEndpointHealth("qwen")
	if health == nil {
		t.Fatal("expected health info after success")
	}
	if !health.Available {
		t.Error("endpoint should be available after success")
	}
	if health.FailureCount != 0 {
		t.Errorf("expected failure count 0, got %d", health.FailureCount)
	}
	if health.LastSuccess.IsZero() {
		t.Error("expected last success timestamp")
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  100 * time.Millisecond,
	})

	r.MarkEndpointFailure("qwen")
	if !r.IsEndpointAvailable("qwen") {
		t.Error("one failure below threshold should not trip the circuit")
	}

	r.MarkEndpointFailure("qwen")
	if r.IsEndpointAvailable("qwen") {
		t.Error("reaching the threshold should trip the circuit")
	}

	health := r.GetEndpointHealth("qwen")
	if health == nil {
		t.Fatal("expected health info")
	}
	if !health.CircuitOpen {
		t.Error("expected circuit open")
	}
	if health.FailureCount != 2 {
		t.Errorf("expected failure count 2, got %d", health.FailureCount)
	}
}

func TestCircuitBreakerRecovery(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  50 * time.Millisecond,
	})

	r.MarkEndpointFailure("qwen")
	if r.IsEndpointAvailable("qwen") {
		t.Error("expected qwen blocked right after tripping")
	}

	time.Sleep(60 * time.Millisecond)

	// Past the recovery window the endpoint goes half-open.
	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected qwen available after the recovery timeout")
	}

	r.MarkEndpointSuccess("qwen")
	health := r.GetEndpointHealth("qwen")
	if health == nil {
		t.Fatal("expected health info")
	}
	if health.CircuitOpen {
		t.Error("success should close the circuit")
	}
	if health.FailureCount != 0 {
		t.Errorf("success should reset the failure count, got %d", health.FailureCount)
	}
}

func TestGetAvailableFallbackChain(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Hour, // stays open for the whole test
	})

	r.MarkEndpointFailure("claude-sonnet")

	chain := r.GetAvailableFallbackChain(CapabilityWriting)
	if slices.Contains(chain, "claude-sonnet") {
		t.Errorf("tripped endpoint should drop out of the chain, got %v", chain)
	}
	if !slices.Contains(chain, "qwen") {
		t.Errorf("healthy fallback should stay in the chain, got %v", chain)
	}
}

func TestGetAvailableFallbackChainAllUnavailable(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Hour,
	})

	for _, name := range r.ListEndpoints() {
		r.MarkEndpointFailure(name)
	}

	// Everything down still yields the full chain to try.
	if chain := r.GetAvailableFallbackChain(CapabilityWriting); len(chain) == 0 {
		t.Error("expected non-empty chain even with every endpoint down")
	}
}

func TestResetEndpointHealth(t *testing.T) {
	r := NewDefaultRegistry()

	r.MarkEndpointSuccess("qwen")
	r.MarkEndpointFailure("qwen")
	if r.GetEndpointHealth("qwen") == nil {
		t.Fatal("expected health info")
	}

	r.ResetEndpointHealth("qwen")

	if r.GetEndpointHealth("qwen") != nil {
		t.Error("expected no health info after reset")
	}
	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected qwen available after reset")
	}
}

func TestDefaultHealthConfig(t *testing.T) {
	cfg := DefaultHealthConfig()

	if cfg.FailureThreshold != 3 {
		t.Errorf("expected failure threshold 3, got %d", cfg.FailureThreshold)
	}
	if cfg.RecoveryTimeout != 30*time.Second {
		t.Errorf("expected recovery timeout 30s, got %v", cfg.RecoveryTimeout)
	}
}
