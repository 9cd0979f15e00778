// Package mercadobitcoin fetches public market data from the Mercado Bitcoin
// REST API. Each endpoint family has its own type that knows how to build
// its URL; the request path, rate limiting and retries are shared.
package mercadobitcoin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"

	"mbingest/internal/fetcher"
	"mbingest/internal/ratelimit"
)

// DefaultBaseURL is the public API root
const DefaultBaseURL = "https://www.mercadobitcoin.net/api"

const (
	defaultRateLimitAttempts = 10
	defaultRateLimitDelay    = 1 * time.Second
	defaultRateLimitMaxDelay = 30 * time.Second
)

// Option configures an API variant
type Option func(*api)

// WithBaseURL points the client at another API root, e.g. a test server
func WithBaseURL(baseURL string) Option {
	return func(a *api) {
		a.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLimiter gives the variant its own call budget instead of the
// process-wide one.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(a *api) {
		a.limiter = l
	}
}

// WithHTTPClient replaces the resty client, which also carries the HTTP
// retry policy.
func WithHTTPClient(c *resty.Client) Option {
	return func(a *api) {
		a.client = c
	}
}

// WithRateLimitRetry sets how often and how long a call waits for the
// call budget before giving up.
func WithRateLimitRetry(attempts uint, delay, maxDelay time.Duration) Option {
	if attempts == 0 {
		attempts = 1
	}
	return func(a *api) {
		a.attempts = attempts
		a.delay = delay
		a.maxDelay = maxDelay
	}
}

// api holds what every endpoint variant shares
type api struct {
	coin    string
	typ     fetcher.APIType
	baseURL string
	client  *resty.Client
	limiter *ratelimit.Limiter

	attempts uint
	delay    time.Duration
	maxDelay time.Duration
}

func newAPI(coin string, typ fetcher.APIType, opts []Option) *api {
	a := &api{
		coin:     coin,
		typ:      typ,
		baseURL:  DefaultBaseURL,
		attempts: defaultRateLimitAttempts,
		delay:    defaultRateLimitDelay,
		maxDelay: defaultRateLimitMaxDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.client == nil {
		a.client = fetcher.NewHTTPClient(fetcher.DefaultRetryPolicy())
	}
	if a.limiter == nil {
		a.limiter = ratelimit.Shared()
	}
	return a
}

// Coin returns the ticker this variant requests data for
func (a *api) Coin() string { return a.coin }

// Type returns the endpoint family
func (a *api) Type() fetcher.APIType { return a.typ }

// root returns {base}/{coin}/{type}
func (a *api) root() string {
	return fmt.Sprintf("%s/%s/%s", a.baseURL, a.coin, a.typ)
}

// get performs a rate-limited, retried GET against endpoint.
// A denied call budget is retried with exponential backoff; HTTP failures
// are retried by the resty client and surface as *fetcher.HTTPError.
func (a *api) get(ctx context.Context, endpoint string) (any, error) {
	var payload any

	err := retry.Do(
		func() error {
			if ok, wait := a.limiter.Allow(); !ok {
				return &fetcher.RateLimitExceededError{
					Calls:      a.limiter.Calls(),
					Period:     a.limiter.Period(),
					RetryAfter: wait,
				}
			}

			p, err := a.do(ctx, endpoint)
			if err != nil {
				return err
			}
			payload = p
			return nil
		},
		retry.Attempts(a.attempts),
		retry.Delay(a.delay),
		retry.MaxDelay(a.maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(fetcher.IsRateLimited),
		retry.OnRetry(func(n uint, err error) {
			slog.Debug("waiting for call budget",
				"endpoint", endpoint,
				"attempt", n+1,
				"error", err)
		}),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", a.coin, a.typ, err)
	}

	return payload, nil
}

func (a *api) do(ctx context.Context, endpoint string) (any, error) {
	slog.Info("getting data from endpoint", "endpoint", endpoint)

	resp, err := a.client.R().
		SetContext(ctx).
		Get(endpoint)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &fetcher.NetworkError{URL: endpoint, Cause: err}
	}

	if !resp.IsSuccess() {
		return nil, &fetcher.HTTPError{StatusCode: resp.StatusCode(), URL: endpoint}
	}

	payload, err := decodeBody(resp.Bytes())
	if err != nil {
		return nil, &fetcher.DecodeError{URL: endpoint, Cause: err}
	}

	return payload, nil
}

// decodeBody parses a JSON document whatever the response Content-Type.
// Numbers are kept as json.Number so ids and prices keep their literal form.
func decodeBody(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON document")
	}
	return payload, nil
}

// request is a single endpoint bound to its variant
type request struct {
	api      *api
	endpoint string
}

func (r *request) Fetch(ctx context.Context) (any, error) {
	return r.api.get(ctx, r.endpoint)
}

func (r *request) Coin() string { return r.api.coin }

func (r *request) Type() fetcher.APIType { return r.api.typ }

// Endpoint returns the URL the request will hit
func (r *request) Endpoint() string { return r.endpoint }
