package fetcher

import "context"

// APIType names a Mercado Bitcoin public data endpoint family.
// Its value is also the path segment used in endpoint URLs and output paths.
type APIType string

const (
	// APIDaySummary is the daily trade summary endpoint
	APIDaySummary APIType = "day-summary"
	// APITrades is the executed trades endpoint
	APITrades APIType = "trades"
)

// Fetcher is a request bound to one coin and one API type.
// Implementations build their endpoint up front and return the decoded
// JSON body, which is either a map[string]any or a []any.
type Fetcher interface {
	// Fetch performs the request and returns the decoded JSON payload.
	Fetch(ctx context.Context) (any, error)

	// Coin returns the exchange ticker this request is for, e.g. BTC.
	Coin() string

	// Type returns the API family of this request.
	Type() APIType
}
