package ai

import (
	"strings"
	"time"

	"github.com/prismintel/propertyflow/internal/common"
)

// RetryConfig defines the adapter's backoff behavior for transient upstream
// failures. Only upstream errors are retried; timeouts and malformed
// responses are surfaced to the caller immediately.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// RetryConfigFrom builds the adapter retry policy from configuration.
func RetryConfigFrom(cfg *common.AIConfig) RetryConfig {
	return RetryConfig{
		MaxRetries:        cfg.MaxUpstreamRetries,
		InitialBackoff:    common.Duration(cfg.InitialBackoff, 2*time.Second),
		MaxBackoff:        common.Duration(cfg.MaxBackoff, 30*time.Second),
		BackoffMultiplier: cfg.BackoffMultiplier,
	}
}

// IsTransient reports whether an upstream error is worth retrying:
// rate limits, quota exhaustion and 5xx server errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, marker := range []string{"429", "RESOURCE_EXHAUSTED", "quota", "500", "502", "503", "UNAVAILABLE", "DEADLINE_EXCEEDED_BY_SERVER", "Internal error"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// Backoff computes the wait before the given retry attempt, capped at
// MaxBackoff.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	backoff := float64(c.InitialBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= c.BackoffMultiplier
	}
	if d := time.Duration(backoff); d < c.MaxBackoff {
		return d
	}
	return c.MaxBackoff
}
