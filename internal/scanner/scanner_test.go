package scanner

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"candlecast/internal/analyzer"
	"candlecast/internal/config"
	"candlecast/pkg/model"
)

// scriptedProvider serves per-symbol candle series.
type scriptedProvider struct {
	mu     sync.Mutex
	series map[string][]model.Candle
	calls  int
}

func (s *scriptedProvider) Name() string      { return "scripted" }
func (s *scriptedProvider) IsAvailable() bool { return true }
func (s *scriptedProvider) RateLimit() int    { return 0 }

func (s *scriptedProvider) GetDailyCandles(_ context.Context, symbol string, days int) ([]model.Candle, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	candles := s.series[symbol]
	if len(candles) > days {
		return candles[len(candles)-days:], nil
	}
	return candles, nil
}

// strongSeries builds a rising series that scores well: aligned moving
// averages, positive momentum, moderate volume surge.
func strongSeries() []model.Candle {
	candles := make([]model.Candle, 90)
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		close := 40 * (1 + 0.006*float64(i))
		volume := int64(2_000_000)
		if i == len(candles)-1 {
			volume = 3_000_000
		}
		candles[i] = model.Candle{
			Time:   start.AddDate(0, 0, i),
			Open:   close * 0.995,
			High:   close * 1.012,
			Low:    close * 0.99,
			Close:  close,
			Volume: volume,
		}
	}
	return candles
}

// flatSeries scores poorly: no trend, no surge, short history.
func flatSeries() []model.Candle {
	candles := make([]model.Candle, 20)
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		candles[i] = model.Candle{
			Time:   start.AddDate(0, 0, i),
			Open:   50,
			High:   50.5,
			Low:    49.5,
			Close:  50,
			Volume: 500_000,
		}
	}
	return candles
}

// fadingSeries declines 2.5% a day on steady volume. It survives the
// price and volume filters but lands below the configured confidence
// floor.
func fadingSeries() []model.Candle {
	candles := make([]model.Candle, 90)
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		close := 100 * math.Pow(0.975, float64(i))
		candles[i] = model.Candle{
			Time:   start.AddDate(0, 0, i),
			Open:   close * 1.005,
			High:   close * 1.01,
			Low:    close * 0.99,
			Close:  close,
			Volume: 2_000_000,
		}
	}
	return candles
}

func newTestScanner(p *scriptedProvider) *Scanner {
	cfg := config.DefaultConfig()
	cfg.Scanner.Workers = 4
	return NewScanner(analyzer.New(p, cfg), cfg.Scanner)
}

func TestScanFindsStrongSetups(t *testing.T) {
	p := &scriptedProvider{series: map[string][]model.Candle{
		"GOOD1": strongSeries(),
		"GOOD2": strongSeries(),
		"WEAK":  flatSeries(),
		"GHOST": nil,
	}}
	s := newTestScanner(p)

	result, err := s.Scan(context.Background(), []string{"GOOD1", "GOOD2", "WEAK", "GHOST"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.TotalScanned != 4 {
		t.Errorf("Expected 4 scanned, got %d", result.TotalScanned)
	}
	if result.Matches < 2 {
		t.Errorf("Expected at least the two strong setups, got %d", result.Matches)
	}

	for i := 1; i < len(result.Results); i++ {
		if result.Results[i].Score.Value > result.Results[i-1].Score.Value {
			t.Error("Results not sorted by confidence descending")
		}
	}
	for _, r := range result.Results {
		if r.Score.Value < 30 {
			t.Errorf("Result %s below min confidence: %v", r.Symbol, r.Score.Value)
		}
	}
}

func TestScanEmptyUniverse(t *testing.T) {
	s := newTestScanner(&scriptedProvider{})

	result, err := s.Scan(context.Background(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.TotalScanned != 0 || len(result.Results) != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestScanCapsResults(t *testing.T) {
	series := map[string][]model.Candle{}
	var syms []string
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		series[name] = strongSeries()
		syms = append(syms, name)
	}
	p := &scriptedProvider{series: series}

	cfg := config.DefaultConfig()
	cfg.Scanner.Workers = 4
	cfg.Scanner.MaxResults = 3
	s := NewScanner(analyzer.New(p, cfg), cfg.Scanner)

	result, err := s.Scan(context.Background(), syms)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Results) != 3 {
		t.Errorf("Expected results capped at 3, got %d", len(result.Results))
	}
	if result.TotalScanned != 6 {
		t.Errorf("Expected 6 scanned, got %d", result.TotalScanned)
	}
}

func TestScanProgressCallback(t *testing.T) {
	p := &scriptedProvider{series: map[string][]model.Candle{
		"GOOD1": strongSeries(),
		"WEAK":  flatSeries(),
	}}
	s := newTestScanner(p)

	var mu sync.Mutex
	var updates []int
	s.SetProgressCallback(func(scanned, total int) {
		mu.Lock()
		updates = append(updates, scanned)
		mu.Unlock()
	})

	if _, err := s.Scan(context.Background(), []string{"GOOD1", "WEAK"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 2 {
		t.Errorf("Expected 2 progress updates, got %d", len(updates))
	}
}

func TestScanWithMinConfidence(t *testing.T) {
	p := &scriptedProvider{series: map[string][]model.Candle{
		"FADE": fadingSeries(),
	}}
	s := newTestScanner(p)

	result, err := s.Scan(context.Background(), []string{"FADE"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Matches != 0 {
		t.Errorf("Default floor should drop FADE, got %d matches", result.Matches)
	}

	result, err = s.ScanWithMinConfidence(context.Background(), []string{"FADE"}, 25)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Matches != 1 {
		t.Fatalf("Floor 25 should keep FADE, got %d matches", result.Matches)
	}
	if v := result.Results[0].Score.Value; v < 25 || v >= 30 {
		t.Errorf("Expected a score in [25,30), got %v", v)
	}
}

func TestScanWithFallback(t *testing.T) {
	p := &scriptedProvider{series: map[string][]model.Candle{
		"WEAK1": flatSeries(),
		"EXT1":  strongSeries(),
	}}
	s := newTestScanner(p)

	result, err := s.ScanWithFallback(context.Background(),
		[]string{"WEAK1"}, []string{"EXT1"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.TotalScanned != 2 {
		t.Errorf("Expected both passes counted, got %d", result.TotalScanned)
	}
	found := false
	for _, r := range result.Results {
		if r.Symbol == "EXT1" {
			found = true
		}
	}
	if !found {
		t.Error("Extended pass should have surfaced EXT1")
	}
}

func TestScanWithFallbackSkipsWhenEnough(t *testing.T) {
	series := map[string][]model.Candle{}
	var primary []string
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		series[name] = strongSeries()
		primary = append(primary, name)
	}
	p := &scriptedProvider{series: series}
	s := newTestScanner(p)

	result, err := s.ScanWithFallback(context.Background(), primary, []string{"EXT1"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.TotalScanned != 5 {
		t.Errorf("Extended pass should be skipped with 5 primary hits, scanned %d", result.TotalScanned)
	}
}
