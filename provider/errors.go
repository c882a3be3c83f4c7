package provider

import (
	"errors"
	"fmt"

	"github.com/draftforge/draftforge/artifact"
)

// Reason classifies why a provider call failed.
type Reason string

const (
	// ReasonTransport covers network and HTTP status failures.
	ReasonTransport Reason = "transport"

	// ReasonSchema covers payloads that fail the adapter's contract.
	ReasonSchema Reason = "schema"

	// ReasonCredential covers missing credentials.
	ReasonCredential Reason = "credential"

	// ReasonSynthesis covers failures of the synthetic fallback itself.
	ReasonSynthesis Reason = "synthesis"
)

// Error is the provider failure type surfaced to the orchestrator.
// It is raised only after both the live and synthetic paths failed,
// so the orchestrator always treats it as retryable.
type Error struct {
	Kind   artifact.Kind
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s (%s): %v", e.Kind, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// transportErr wraps a network or HTTP failure.
func transportErr(kind artifact.Kind, err error) error {
	return &Error{Kind: kind, Reason: ReasonTransport, Err: err}
}

// schemaErr wraps a payload contract violation.
func schemaErr(kind artifact.Kind, err error) error {
	return &Error{Kind: kind, Reason: ReasonSchema, Err: err}
}

// credentialErr reports a missing credential.
func credentialErr(kind artifact.Kind, name string) error {
	return &Error{Kind: kind, Reason: ReasonCredential, Err: fmt.Errorf("credential %s not set", name)}
}

// IsProviderError extracts a provider Error from an error chain.
func IsProviderError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// HasReason reports whether err is a provider Error with the given reason.
func HasReason(err error, reason Reason) bool {
	pe, ok := IsProviderError(err)
	return ok && pe.Reason == reason
}

// errorsJoin joins the live and synthetic errors, tolerating a nil live error.
func errorsJoin(liveErr, synthErr error) error {
	if liveErr == nil {
		return synthErr
	}
	return errors.Join(liveErr, synthErr)
}
