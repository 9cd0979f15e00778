package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mbingest/internal/config"
	"mbingest/internal/coordinator"
	"mbingest/internal/fetcher"
	"mbingest/internal/mercadobitcoin"
	"mbingest/internal/ratelimit"
)

// newMercadoServer fakes the public API and records requested paths
func newMercadoServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()

	var mu sync.Mutex
	var paths []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/day-summary/"):
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"date": "2022-03-05",
				"opening": 202000.1,
				"closing": 201500,
				"lowest": 199000,
				"highest": 205000,
				"volume": 2510000.5,
				"quantity": 12.4,
				"amount": 1530,
				"avg_price": 202400.2
			}`))
		case strings.Contains(r.URL.Path, "/trades"):
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`[
				{"tid": 1, "date": 1647777600, "type": "buy", "price": 200000, "amount": 0.01},
				{"tid": 2, "date": 1647777630, "type": "sell", "price": 200010, "amount": 0.02},
				{"tid": 3, "date": 1647777660, "type": "buy", "price": 199990, "amount": 0.5}
			]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	return server, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), paths...)
	}
}

func readJSONLines(t *testing.T, path string) []map[string]any {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", path, err)
	}
	defer f.Close()

	var rows []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var row map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			t.Fatalf("line %q is not valid JSON: %v", scanner.Text(), err)
		}
		rows = append(rows, row)
	}
	return rows
}

// TestIntegration_IngestionRun runs the whole pipeline against a fake API
func TestIntegration_IngestionRun(t *testing.T) {
	server, paths := newMercadoServer(t)
	root := t.TempDir()

	cfg := &config.Config{
		BaseURL:        server.URL,
		Coins:          []string{"BTC", "ETH"},
		OutputDir:      root,
		DaySummaryDate: time.Date(2022, 3, 5, 0, 0, 0, 0, time.UTC),
		TradesFrom:     time.Unix(1647777600, 0),
	}

	coord := coordinator.New(buildJobs(cfg))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := coord.Run(ctx)
	if err != nil {
		t.Fatalf("coordinator.Run() failed: %v", err)
	}
	if failed := coordinator.Failed(results); failed != 0 {
		t.Fatalf("%d jobs failed: %+v", failed, results)
	}

	wantPaths := []string{
		"/BTC/day-summary/2022/3/5",
		"/BTC/trades/1647777600",
		"/ETH/day-summary/2022/3/5",
		"/ETH/trades/1647777600",
	}
	got := paths()
	if len(got) != len(wantPaths) {
		t.Fatalf("server saw %v, want %v", got, wantPaths)
	}
	for i := range wantPaths {
		if got[i] != wantPaths[i] {
			t.Errorf("request %d = %q, want %q", i, got[i], wantPaths[i])
		}
	}

	for _, r := range results {
		wantDir := filepath.Join(root, string(r.API), r.Coin)
		if filepath.Dir(r.Path) != wantDir {
			t.Errorf("%s/%s written to %q, want under %q", r.Coin, r.API, r.Path, wantDir)
		}

		rows := readJSONLines(t, r.Path)
		switch r.API {
		case fetcher.APIDaySummary:
			if len(rows) != 1 || rows[0]["date"] != "2022-03-05" {
				t.Errorf("day-summary rows = %v, want one summary for 2022-03-05", rows)
			}
		case fetcher.APITrades:
			if len(rows) != 3 {
				t.Fatalf("trades rows = %d, want 3", len(rows))
			}
			for i, row := range rows {
				if row["tid"] != float64(i+1) {
					t.Errorf("row %d tid = %v, want %d", i, row["tid"], i+1)
				}
			}
		}
	}
}

// TestIntegration_PartialFailures checks that one failing endpoint does not
// stop the other jobs
func TestIntegration_PartialFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/XXX/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"tid": 1}]`))
	}))
	defer server.Close()

	root := t.TempDir()
	opts := []mercadobitcoin.Option{
		mercadobitcoin.WithBaseURL(server.URL),
		mercadobitcoin.WithLimiter(ratelimit.New(0, 0)),
		mercadobitcoin.WithHTTPClient(fetcher.NewHTTPClient(fetcher.RetryPolicy{
			Attempts:    2,
			WaitTime:    time.Millisecond,
			MaxWaitTime: 2 * time.Millisecond,
		})),
	}

	coord := coordinator.New([]coordinator.Job{
		coordinator.NewJob(mercadobitcoin.NewTradesAPI("XXX", opts...).For(mercadobitcoin.Period{}), root),
		coordinator.NewJob(mercadobitcoin.NewTradesAPI("BTC", opts...).For(mercadobitcoin.Period{}), root),
	})

	results, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("coordinator.Run() failed: %v", err)
	}

	var httpErr *fetcher.HTTPError
	if !errors.As(results[0].Err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("results[0].Err = %v, want HTTP 404", results[0].Err)
	}
	if results[0].Path != "" {
		t.Errorf("results[0].Path = %q, want empty for a failed fetch", results[0].Path)
	}
	if entries, err := os.ReadDir(filepath.Join(root, "trades", "XXX")); err == nil && len(entries) > 0 {
		t.Error("failed job left an output file")
	}

	if results[1].Err != nil {
		t.Fatalf("results[1].Err = %v, want nil", results[1].Err)
	}
	if rows := readJSONLines(t, results[1].Path); len(rows) != 1 {
		t.Errorf("BTC trades rows = %d, want 1", len(rows))
	}
}

// TestIntegration_ContextTimeout tests that context timeout is respected
func TestIntegration_ContextTimeout(t *testing.T) {
	hangingServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer hangingServer.Close()

	api := mercadobitcoin.NewTradesAPI("BTC",
		mercadobitcoin.WithBaseURL(hangingServer.URL),
		mercadobitcoin.WithLimiter(ratelimit.New(0, 0)),
		mercadobitcoin.WithHTTPClient(fetcher.NewHTTPClient(fetcher.RetryPolicy{Attempts: 1})),
	)
	coord := coordinator.New([]coordinator.Job{
		coordinator.NewJob(api.For(mercadobitcoin.Period{}), t.TempDir()),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := coord.Run(ctx)
	duration := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("coordinator.Run() error = %v, want context.DeadlineExceeded", err)
	}

	// Should complete quickly due to timeout, not hang forever
	if duration > 500*time.Millisecond {
		t.Errorf("Context timeout not respected. Duration: %v", duration)
	}
}
