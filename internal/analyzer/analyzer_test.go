package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"candlecast/internal/config"
	"candlecast/pkg/model"
)

type fakeProvider struct {
	series map[string][]model.Candle
	err    error
}

func (f *fakeProvider) Name() string      { return "fake" }
func (f *fakeProvider) IsAvailable() bool { return true }
func (f *fakeProvider) RateLimit() int    { return 0 }

func (f *fakeProvider) GetDailyCandles(_ context.Context, symbol string, days int) ([]model.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	candles := f.series[symbol]
	if len(candles) > days {
		return candles[len(candles)-days:], nil
	}
	return candles, nil
}

func trendingSeries(bars int, startPrice float64, volume int64) []model.Candle {
	candles := make([]model.Candle, bars)
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < bars; i++ {
		close := startPrice * (1 + 0.005*float64(i))
		candles[i] = model.Candle{
			Time:   start.AddDate(0, 0, i),
			Open:   close * 0.995,
			High:   close * 1.01,
			Low:    close * 0.99,
			Close:  close,
			Volume: volume,
		}
	}
	return candles
}

func newTestAnalyzer(p *fakeProvider) *Analyzer {
	return New(p, config.DefaultConfig())
}

func TestAnalyzeSetup(t *testing.T) {
	p := &fakeProvider{series: map[string][]model.Candle{
		"TEST": trendingSeries(90, 50, 2_000_000),
	}}
	a := newTestAnalyzer(p)

	analysis, err := a.AnalyzeSetup(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if analysis.Symbol != "TEST" {
		t.Errorf("Expected symbol TEST, got %s", analysis.Symbol)
	}
	if analysis.Indicators.Price <= 0 {
		t.Error("Expected a positive price in the snapshot")
	}
	if analysis.Pattern == model.PatternUnknown {
		t.Errorf("90 bars should be enough to classify, got %v", analysis.Pattern)
	}
	if analysis.Score.Value < 0 || analysis.Score.Value > 100 {
		t.Errorf("Score %v out of range", analysis.Score.Value)
	}
	if analysis.Narrative == "" {
		t.Error("Expected a narrative")
	}
	if analysis.AnalyzedAt.IsZero() {
		t.Error("Expected AnalyzedAt to be set")
	}
}

func TestAnalyzeSetupNoData(t *testing.T) {
	a := newTestAnalyzer(&fakeProvider{series: map[string][]model.Candle{}})

	_, err := a.AnalyzeSetup(context.Background(), "GHOST")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}
}

func TestAnalyzeSetupPriceFilter(t *testing.T) {
	p := &fakeProvider{series: map[string][]model.Candle{
		"PENNY": trendingSeries(90, 0.20, 5_000_000),
		"PRICY": trendingSeries(90, 900, 5_000_000),
	}}
	a := newTestAnalyzer(p)

	if _, err := a.AnalyzeSetup(context.Background(), "PENNY"); !errors.Is(err, ErrFiltered) {
		t.Errorf("Expected ErrFiltered for sub-dollar stock, got %v", err)
	}
	if _, err := a.AnalyzeSetup(context.Background(), "PRICY"); !errors.Is(err, ErrFiltered) {
		t.Errorf("Expected ErrFiltered for stock above max price, got %v", err)
	}
}

func TestAnalyzeSetupVolumeFilter(t *testing.T) {
	p := &fakeProvider{series: map[string][]model.Candle{
		"THIN": trendingSeries(90, 50, 5_000),
	}}
	a := newTestAnalyzer(p)

	if _, err := a.AnalyzeSetup(context.Background(), "THIN"); !errors.Is(err, ErrFiltered) {
		t.Errorf("Expected ErrFiltered for illiquid stock, got %v", err)
	}
}

func TestAnalyzeSetupProviderError(t *testing.T) {
	wantErr := errors.New("connection refused")
	a := newTestAnalyzer(&fakeProvider{err: wantErr})

	_, err := a.AnalyzeSetup(context.Background(), "TEST")
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected wrapped provider error, got %v", err)
	}
	if errors.Is(err, ErrNoData) || errors.Is(err, ErrFiltered) {
		t.Error("Provider failure must not look like no-data or filtered")
	}
}
