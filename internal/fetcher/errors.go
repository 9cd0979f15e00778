package fetcher

import (
	"errors"
	"fmt"
	"time"
)

// HTTPError is returned when the server keeps answering with a non-2xx
// status after every retry was spent.
type HTTPError struct {
	StatusCode int
	URL        string
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error (status %d): %s", e.StatusCode, e.URL)
}

// RateLimitExceededError is returned when the local call budget stayed
// exhausted for every attempt.
type RateLimitExceededError struct {
	Calls      int
	Period     time.Duration
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d calls per %s (retry after %s)",
		e.Calls, e.Period, e.RetryAfter.Round(time.Millisecond))
}

// NetworkError wraps a transport failure (connection refused, DNS, etc.)
// that outlived the HTTP retries.
type NetworkError struct {
	URL   string
	Cause error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.URL, e.Cause)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// DecodeError is returned when a successful response body is not a JSON
// document.
type DecodeError struct {
	URL   string
	Cause error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %s: %v", e.URL, e.Cause)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// IsRateLimited reports whether err is, or wraps, a RateLimitExceededError
func IsRateLimited(err error) bool {
	var rl *RateLimitExceededError
	return errors.As(err, &rl)
}
