package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"candlecast/internal/ratelimit"
	"candlecast/pkg/model"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageProvider implements the Provider interface for Alpha Vantage.
// It is also the only MoverProvider: the TOP_GAINERS_LOSERS endpoint feeds
// the full market scan.
type AlphaVantageProvider struct {
	apiKey    string
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
}

// NewAlphaVantageProvider creates a new Alpha Vantage provider
func NewAlphaVantageProvider(apiKey string, rateLimitPerMin int) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("alphavantage", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
	}
}

// Name returns the provider name
func (p *AlphaVantageProvider) Name() string {
	return "alphavantage"
}

// IsAvailable checks if an API key is configured
func (p *AlphaVantageProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit per minute
func (p *AlphaVantageProvider) RateLimit() int {
	return p.rateLimit
}

// alphaVantageDailyResponse is the TIME_SERIES_DAILY payload.
type alphaVantageDailyResponse struct {
	TimeSeries map[string]map[string]string `json:"Time Series (Daily)"`
	Note       string                       `json:"Note"`
	ErrorMsg   string                       `json:"Error Message"`
}

// GetDailyCandles fetches daily OHLCV candles, oldest first.
func (p *AlphaVantageProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	outputSize := "compact"
	if days > 100 {
		outputSize = "full"
	}

	url := fmt.Sprintf("%s?function=TIME_SERIES_DAILY&symbol=%s&outputsize=%s&apikey=%s",
		alphaVantageBaseURL, symbol, outputSize, p.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: false}
	}

	var data alphaVantageDailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if data.Note != "" {
		// API call frequency exceeded
		p.limiter.SignalRateLimited()
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited: %s", data.Note), Retryable: true}
	}
	if data.ErrorMsg != "" {
		// Invalid symbol: no data, not a failure
		return []model.Candle{}, nil
	}

	p.limiter.ResetBackoff()

	candles := make([]model.Candle, 0, len(data.TimeSeries))
	for dateStr, values := range data.TimeSeries {
		t, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		open, _ := strconv.ParseFloat(values["1. open"], 64)
		high, _ := strconv.ParseFloat(values["2. high"], 64)
		low, _ := strconv.ParseFloat(values["3. low"], 64)
		closePrice, _ := strconv.ParseFloat(values["4. close"], 64)
		volume, _ := strconv.ParseInt(values["5. volume"], 10, 64)

		candles = append(candles, model.Candle{
			Time:   t,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})

	if len(candles) > days {
		candles = candles[len(candles)-days:]
	}

	return candles, nil
}

// alphaVantageMoversResponse is the TOP_GAINERS_LOSERS payload.
type alphaVantageMoversResponse struct {
	TopGainers        []alphaVantageMover `json:"top_gainers"`
	TopLosers         []alphaVantageMover `json:"top_losers"`
	MostActivelyTraded []alphaVantageMover `json:"most_actively_traded"`
}

type alphaVantageMover struct {
	Ticker string `json:"ticker"`
}

// GetMovers fetches the market's top gainers, losers and volume leaders.
func (p *AlphaVantageProvider) GetMovers(ctx context.Context, limit int) (*Movers, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?function=TOP_GAINERS_LOSERS&apikey=%s", alphaVantageBaseURL, p.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: false}
	}

	var data alphaVantageMoversResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	movers := &Movers{
		Gainers:       validTickers(data.TopGainers, limit),
		Losers:        validTickers(data.TopLosers, limit),
		VolumeLeaders: validTickers(data.MostActivelyTraded, limit),
	}

	return movers, nil
}

// validTickers filters out warrants, units and other non-common listings.
func validTickers(movers []alphaVantageMover, limit int) []string {
	out := make([]string, 0, limit)
	for _, m := range movers {
		ticker := strings.ReplaceAll(m.Ticker, ".", "-")
		if ticker == "" || len(ticker) > 5 {
			continue
		}
		if strings.ContainsAny(ticker, "._ ") {
			continue
		}
		out = append(out, ticker)
		if len(out) >= limit {
			break
		}
	}
	return out
}
