package testutil

import (
	"context"

	"mbingest/internal/fetcher"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context) (any, error)
	CoinValue string
	TypeValue fetcher.APIType
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context) (any, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	return map[string]any{}, nil
}

// Coin implements the Fetcher interface
func (m *MockFetcher) Coin() string {
	if m.CoinValue != "" {
		return m.CoinValue
	}
	return "MOCK"
}

// Type implements the Fetcher interface
func (m *MockFetcher) Type() fetcher.APIType {
	if m.TypeValue != "" {
		return m.TypeValue
	}
	return fetcher.APITrades
}

// NewMockFetcher creates a simple mock fetcher with predefined values
func NewMockFetcher(coin string, api fetcher.APIType, payload any, err error) fetcher.Fetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context) (any, error) {
			return payload, err
		},
		CoinValue: coin,
		TypeValue: api,
	}
}

// MockSink records everything written to it
type MockSink struct {
	Path    string
	Written []any
	Err     error
}

// Write implements the coordinator Sink interface
func (s *MockSink) Write(data any) error {
	if s.Err != nil {
		return s.Err
	}
	s.Written = append(s.Written, data)
	return nil
}

// Filename implements the coordinator Sink interface
func (s *MockSink) Filename() string {
	return s.Path
}
