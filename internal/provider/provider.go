package provider

import (
	"context"
	"errors"

	"candlecast/pkg/model"
)

var errNotSupported = errors.New("not supported")

// Provider defines the interface for market data providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// GetDailyCandles fetches daily OHLCV data for the specified number of
	// days, oldest first. An empty slice with a nil error means the symbol
	// has no data; only transport failures return an error.
	GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error)

	// IsAvailable checks if the provider is available (has valid API key)
	IsAvailable() bool

	// RateLimit returns the rate limit per minute
	RateLimit() int
}

// Movers holds market-wide gainer/loser/volume-leader tickers.
type Movers struct {
	Gainers       []string `json:"gainers"`
	Losers        []string `json:"losers"`
	VolumeLeaders []string `json:"volume_leaders"`
}

// MoverProvider is implemented by providers that can list market movers.
type MoverProvider interface {
	GetMovers(ctx context.Context, limit int) (*Movers, error)
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// FallbackProvider tries multiple providers in order
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	// Filter to only available providers
	available := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable() {
			available = append(available, p)
		}
	}
	return &FallbackProvider{providers: available}
}

// Name returns the combined provider name
func (f *FallbackProvider) Name() string {
	return "fallback"
}

// GetDailyCandles tries each provider in order until one succeeds
func (f *FallbackProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	var lastErr error
	for _, p := range f.providers {
		candles, err := p.GetDailyCandles(ctx, symbol, days)
		if err == nil {
			return candles, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// GetMovers returns movers from the first provider that supports them.
func (f *FallbackProvider) GetMovers(ctx context.Context, limit int) (*Movers, error) {
	var lastErr error
	for _, p := range f.providers {
		mp, ok := p.(MoverProvider)
		if !ok {
			continue
		}
		movers, err := mp.GetMovers(ctx, limit)
		if err == nil {
			return movers, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &ProviderError{Provider: f.Name(), Err: errNotSupported, Retryable: false}
	}
	return nil, lastErr
}

// IsAvailable returns true if any provider is available
func (f *FallbackProvider) IsAvailable() bool {
	return len(f.providers) > 0
}

// RateLimit returns the highest rate limit among providers
func (f *FallbackProvider) RateLimit() int {
	maxRate := 0
	for _, p := range f.providers {
		if p.RateLimit() > maxRate {
			maxRate = p.RateLimit()
		}
	}
	return maxRate
}

// Providers returns the list of underlying providers
func (f *FallbackProvider) Providers() []Provider {
	return f.providers
}
