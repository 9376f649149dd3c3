package provider

import (
	"context"
	"sync"
	"time"

	"candlecast/pkg/model"
)

type cacheEntry struct {
	candles   []model.Candle
	fetchedAt time.Time
}

// CachingProvider wraps a Provider with a TTL-bounded in-memory cache for
// GetDailyCandles. A single coarse lock guards the map: scan workers for
// different symbols contend only briefly, and the analyzer, matcher and
// scheduler all hit the same entries within one scan cycle.
type CachingProvider struct {
	inner   Provider
	cache   map[string]cacheEntry
	mu      sync.Mutex
	ttl     time.Duration
	maxDays int
}

// NewCachingProvider creates a caching wrapper. maxDays is the number of
// bars always fetched per symbol so one call serves every window size the
// pipeline asks for (250 covers the matcher's 252-day lookback minus the
// outcome reserve).
func NewCachingProvider(inner Provider, ttl time.Duration, maxDays int) *CachingProvider {
	return &CachingProvider{
		inner:   inner,
		cache:   make(map[string]cacheEntry),
		ttl:     ttl,
		maxDays: maxDays,
	}
}

func (p *CachingProvider) Name() string      { return p.inner.Name() }
func (p *CachingProvider) IsAvailable() bool { return p.inner.IsAvailable() }
func (p *CachingProvider) RateLimit() int    { return p.inner.RateLimit() }

// GetMovers passes through to the inner provider when supported.
func (p *CachingProvider) GetMovers(ctx context.Context, limit int) (*Movers, error) {
	if mp, ok := p.inner.(MoverProvider); ok {
		return mp.GetMovers(ctx, limit)
	}
	return nil, &ProviderError{Provider: p.Name(), Err: errNotSupported, Retryable: false}
}

// GetDailyCandles returns cached candles when fresh, otherwise fetches
// maxDays bars and caches them.
func (p *CachingProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	p.mu.Lock()
	if entry, ok := p.cache[symbol]; ok && time.Since(entry.fetchedAt) < p.ttl {
		p.mu.Unlock()
		return tail(entry.candles, days), nil
	}
	p.mu.Unlock()

	fetchDays := p.maxDays
	if days > fetchDays {
		fetchDays = days
	}

	candles, err := p.inner.GetDailyCandles(ctx, symbol, fetchDays)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[symbol] = cacheEntry{candles: candles, fetchedAt: time.Now()}
	p.mu.Unlock()

	return tail(candles, days), nil
}

// Invalidate drops every cached series.
func (p *CachingProvider) Invalidate() {
	p.mu.Lock()
	p.cache = make(map[string]cacheEntry)
	p.mu.Unlock()
}

// Stats reports the number of cached series.
func (p *CachingProvider) Stats() (entries int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}

func tail(candles []model.Candle, days int) []model.Candle {
	if len(candles) > days {
		return candles[len(candles)-days:]
	}
	return candles
}
