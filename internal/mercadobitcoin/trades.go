package mercadobitcoin

import (
	"context"
	"fmt"
	"time"

	"mbingest/internal/fetcher"
)

// Period bounds a trades request. Zero values mean unset.
type Period struct {
	From time.Time
	To   time.Time
}

// TradesAPI fetches executed trades, optionally bounded by a Period
type TradesAPI struct {
	*api
}

// NewTradesAPI creates a trades client for coin
func NewTradesAPI(coin string, opts ...Option) *TradesAPI {
	return &TradesAPI{api: newAPI(coin, fetcher.APITrades, opts)}
}

// Endpoint builds the trades URL for p:
//   - no From: {base}/{coin}/trades (the last 1000 trades; a lone To is ignored)
//   - From only: {base}/{coin}/trades/{from} (up to 1000 trades from From on)
//   - From and To: {base}/{coin}/trades/{from}/{to}
//
// Times are sent as Unix seconds, sub-second precision truncated.
func (a *TradesAPI) Endpoint(p Period) string {
	switch {
	case p.From.IsZero():
		return a.root()
	case p.To.IsZero():
		return fmt.Sprintf("%s/%d", a.root(), p.From.Unix())
	default:
		return fmt.Sprintf("%s/%d/%d", a.root(), p.From.Unix(), p.To.Unix())
	}
}

// Fetch retrieves the trades in p
func (a *TradesAPI) Fetch(ctx context.Context, p Period) (any, error) {
	return a.get(ctx, a.Endpoint(p))
}

// For binds p into a request that can be run later
func (a *TradesAPI) For(p Period) fetcher.Fetcher {
	return &request{api: a.api, endpoint: a.Endpoint(p)}
}
