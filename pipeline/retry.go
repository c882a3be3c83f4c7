package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/provider"
)

// Stage retries back off on the same doubling curve as the LLM client,
// from a shorter base.
const (
	retryBackoffBase = time.Second
	retryBackoffMax  = 15 * time.Second
)

// withRetry runs fn up to providers.max_retries times, backing off between
// failures. Fatal error classes stop the loop at once. The returned count
// is how many attempts actually ran.
func (p *Pipeline) withRetry(ctx context.Context, stage artifact.Kind, fn func(context.Context) error) (int, error) {
	maxAttempts := p.cfg.Providers.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt - 1, lastErr
			}
			return attempt - 1, err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if !retryable(lastErr) {
			return attempt, lastErr
		}
		if attempt == maxAttempts {
			break
		}

		backoff := retryBackoffBase << (attempt - 1)
		if backoff > retryBackoffMax {
			backoff = retryBackoffMax
		}
		p.logger.Warn("Stage attempt failed, backing off",
			"stage", stage,
			"attempt", attempt,
			"backoff", backoff,
			"error", lastErr)
		select {
		case <-ctx.Done():
			return attempt, lastErr
		case <-time.After(backoff):
		}
	}
	return maxAttempts, lastErr
}

// retryable reports whether another attempt could change the outcome.
// Store and validation failures are deterministic, context errors mean the
// run is over, and a provider contract violation will not fix itself.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if artifact.IsStoreError(err) || artifact.IsValidationError(err) {
		return false
	}
	if provider.HasReason(err, provider.ReasonSchema) {
		return false
	}
	return true
}
