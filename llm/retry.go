package llm

import "time"

// RetryConfig tunes the per-endpoint retry loop.
type RetryConfig struct {
	// MaxAttempts bounds attempts per endpoint, first try included.
	MaxAttempts int

	// BackoffBase is the wait before the first retry.
	BackoffBase time.Duration

	// BackoffMultiplier scales the wait on each further retry.
	BackoffMultiplier float64

	// MaxBackoff caps the wait regardless of attempt count.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the standard retry settings: three
// attempts, doubling from two seconds up to thirty.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}
