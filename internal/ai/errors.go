package ai

import "errors"

var (
	// ErrTimeout means the model call exceeded the configured processing
	// timeout. The adapter never retries it; the coordinator decides.
	ErrTimeout = errors.New("ai analysis timed out")

	// ErrMalformedResponse means the model reply violated the expected
	// shape. Non-retryable: it indicates a contract break with the AI
	// service and is surfaced for operator attention.
	ErrMalformedResponse = errors.New("malformed ai response")

	// ErrUpstream wraps transient provider failures (rate limits, 5xx)
	// that survived the adapter's bounded retries.
	ErrUpstream = errors.New("ai upstream error")
)
