package mercadobitcoin

import (
	"context"
	"fmt"
	"time"

	"mbingest/internal/fetcher"
)

// DaySummaryAPI fetches the aggregated trading statistics of one day
type DaySummaryAPI struct {
	*api
}

// NewDaySummaryAPI creates a day-summary client for coin
func NewDaySummaryAPI(coin string, opts ...Option) *DaySummaryAPI {
	return &DaySummaryAPI{api: newAPI(coin, fetcher.APIDaySummary, opts)}
}

// Endpoint returns {base}/{coin}/day-summary/{year}/{month}/{day}.
// Month and day are not zero padded.
func (a *DaySummaryAPI) Endpoint(date time.Time) string {
	return fmt.Sprintf("%s/%d/%d/%d", a.root(), date.Year(), int(date.Month()), date.Day())
}

// Fetch retrieves the summary for date
func (a *DaySummaryAPI) Fetch(ctx context.Context, date time.Time) (any, error) {
	return a.get(ctx, a.Endpoint(date))
}

// For binds date into a request that can be run later
func (a *DaySummaryAPI) For(date time.Time) fetcher.Fetcher {
	return &request{api: a.api, endpoint: a.Endpoint(date)}
}
