package fetcher

import (
	"log/slog"
	"time"

	"resty.dev/v3"
)

const (
	// Default retry configuration
	defaultRetryAttempts    = 10
	defaultRetryWaitTime    = 1 * time.Second
	defaultRetryMaxWaitTime = 30 * time.Second
)

// RetryPolicy controls the exponential backoff applied to failed HTTP requests.
// Attempts counts the first try, so Attempts=1 disables retries.
type RetryPolicy struct {
	Attempts    int
	WaitTime    time.Duration
	MaxWaitTime time.Duration
}

// DefaultRetryPolicy returns the policy used against the public API:
// 10 attempts with waits growing from 1s up to 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:    defaultRetryAttempts,
		WaitTime:    defaultRetryWaitTime,
		MaxWaitTime: defaultRetryMaxWaitTime,
	}
}

// NewHTTPClient creates a new HTTP client with retry logic and exponential backoff
func NewHTTPClient(policy RetryPolicy) *resty.Client {
	retries := policy.Attempts - 1
	if retries < 0 {
		retries = 0
	}

	client := resty.New().
		SetHeader("Accept", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(policy.WaitTime).
		SetRetryMaxWaitTime(policy.MaxWaitTime).
		AddRetryConditions(retryCondition).
		AddRetryHooks(retryHook)

	return client
}

// retryCondition retries network errors and every 4xx/5xx response
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	return r.StatusCode() >= 400
}

// retryHook logs retry attempts for observability
func retryHook(r *resty.Response, err error) {
	if r == nil || r.Request == nil {
		slog.Debug("retrying request", "error", err)
		return
	}

	if err != nil {
		slog.Debug("retrying request due to error",
			"url", r.Request.URL,
			"attempt", r.Request.Attempt,
			"error", err.Error())
		return
	}

	slog.Debug("retrying request due to status code",
		"url", r.Request.URL,
		"attempt", r.Request.Attempt,
		"status_code", r.StatusCode())
}
