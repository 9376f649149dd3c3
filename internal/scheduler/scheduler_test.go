package scheduler

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"candlecast/internal/analyzer"
	"candlecast/internal/config"
	"candlecast/internal/provider"
	"candlecast/internal/scanner"
	"candlecast/pkg/model"
)

type emptyProvider struct{}

func (emptyProvider) Name() string      { return "empty" }
func (emptyProvider) IsAvailable() bool { return true }
func (emptyProvider) RateLimit() int    { return 0 }
func (emptyProvider) GetDailyCandles(_ context.Context, _ string, _ int) ([]model.Candle, error) {
	return nil, nil
}

func newTestScheduler() *Scheduler {
	cfg := config.DefaultConfig()
	cfg.Scanner.Workers = 4
	sc := scanner.NewScanner(analyzer.New(emptyProvider{}, cfg), cfg.Scanner)
	return New(context.Background(), sc, nil, cfg.Scheduler)
}

type recordingProvider struct {
	mu      sync.Mutex
	scanned map[string]bool
}

func (p *recordingProvider) Name() string      { return "recording" }
func (p *recordingProvider) IsAvailable() bool { return true }
func (p *recordingProvider) RateLimit() int    { return 0 }
func (p *recordingProvider) GetDailyCandles(_ context.Context, symbol string, _ int) ([]model.Candle, error) {
	p.mu.Lock()
	p.scanned[symbol] = true
	p.mu.Unlock()
	return nil, nil
}

// fadingProvider serves every symbol a series declining 2.5% a day on
// steady volume: a borderline setup that scores below the configured
// min_confidence but above the segment floor, with enough daily movement
// to register as a quick-scan mover.
type fadingProvider struct{}

func (fadingProvider) Name() string      { return "fading" }
func (fadingProvider) IsAvailable() bool { return true }
func (fadingProvider) RateLimit() int    { return 0 }
func (fadingProvider) GetDailyCandles(_ context.Context, _ string, _ int) ([]model.Candle, error) {
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
	return candles, nil
}

func newFadingScheduler() (*Scheduler, *config.Config) {
	cfg := config.DefaultConfig()
	cfg.Scanner.Workers = 4
	sc := scanner.NewScanner(analyzer.New(fadingProvider{}, cfg), cfg.Scanner)
	return New(context.Background(), sc, nil, cfg.Scheduler), cfg
}

type stubMovers struct{}

func (stubMovers) GetMovers(_ context.Context, _ int) (*provider.Movers, error) {
	return &provider.Movers{Gainers: []string{"ZZZM"}}, nil
}

func TestFullScanIncludesMovers(t *testing.T) {
	rec := &recordingProvider{scanned: make(map[string]bool)}
	cfg := config.DefaultConfig()
	cfg.Scanner.Workers = 4
	sc := scanner.NewScanner(analyzer.New(rec, cfg), cfg.Scanner)

	s := New(context.Background(), sc, nil, cfg.Scheduler)
	s.SetMoverSource(stubMovers{})

	if err := s.ForceScan("full"); err != nil {
		t.Fatalf("ForceScan failed: %v", err)
	}
	if !rec.scanned["ZZZM"] {
		t.Error("Expected the mover symbol to be scanned")
	}
	if !rec.scanned["SPY"] {
		t.Error("Expected the trending set to be scanned")
	}
}

func TestSegmentScanKeepsBorderlineSetups(t *testing.T) {
	s, cfg := newFadingScheduler()

	s.segmentScan()

	result := s.LatestResults("large_cap")
	if result == nil {
		t.Fatal("Expected cached large_cap result")
	}
	if result.Matches == 0 {
		t.Fatal("Expected borderline setups to survive the segment floor")
	}
	for _, a := range result.Results {
		if a.Score.Value >= cfg.Scanner.MinConfidence {
			t.Errorf("%s scored %v, fixture should stay below min_confidence",
				a.Symbol, a.Score.Value)
		}
		if a.Score.Value < segmentMinConfidence {
			t.Errorf("%s scored %v, below the segment floor", a.Symbol, a.Score.Value)
		}
	}
}

func TestQuickScanHasNoConfidenceFloor(t *testing.T) {
	s, cfg := newFadingScheduler()

	s.quickScan()

	result := s.LatestResults("quick")
	if result == nil {
		t.Fatal("Expected cached quick scan result")
	}
	if result.Matches == 0 {
		t.Fatal("Expected moving symbols to be flagged regardless of confidence")
	}
	for _, a := range result.Results {
		if a.Score.Value >= cfg.Scanner.MinConfidence {
			t.Errorf("%s scored %v, fixture should stay below min_confidence",
				a.Symbol, a.Score.Value)
		}
	}
}

func TestForceScanCachesResults(t *testing.T) {
	s := newTestScheduler()

	if s.LatestResults("quick") != nil {
		t.Error("Expected no cached results before any scan")
	}

	if err := s.ForceScan("quick"); err != nil {
		t.Fatalf("ForceScan failed: %v", err)
	}
	if s.LatestResults("quick") == nil {
		t.Error("Expected cached quick scan result")
	}
}

func TestForceScanUnknownType(t *testing.T) {
	s := newTestScheduler()
	if err := s.ForceScan("bogus"); err == nil {
		t.Error("Expected error for unknown scan type")
	}
}

func TestSegmentRotation(t *testing.T) {
	s := newTestScheduler()

	for i := 0; i < 6; i++ {
		s.segmentScan()
	}

	// After a full rotation plus one, large_cap has been scanned twice
	if s.LatestResults("large_cap") == nil {
		t.Error("Expected large_cap results after rotation")
	}
	if s.LatestResults("crypto") == nil {
		t.Error("Expected crypto results after full rotation")
	}
}

func TestTopOpportunities(t *testing.T) {
	s := newTestScheduler()

	s.mu.Lock()
	s.results["quick"] = &model.ScanResult{Results: []model.Analysis{
		{Symbol: "AAA", Score: model.ConfidenceScore{Value: 60}},
		{Symbol: "BBB", Score: model.ConfidenceScore{Value: 80}},
	}}
	s.results["full"] = &model.ScanResult{Results: []model.Analysis{
		{Symbol: "BBB", Score: model.ConfidenceScore{Value: 80}},
		{Symbol: "CCC", Score: model.ConfidenceScore{Value: 70}},
	}}
	s.mu.Unlock()

	top := s.TopOpportunities(10)
	if len(top) != 3 {
		t.Fatalf("Expected 3 unique opportunities, got %d", len(top))
	}
	if top[0].Symbol != "BBB" {
		t.Errorf("Expected BBB first, got %s", top[0].Symbol)
	}

	limited := s.TopOpportunities(1)
	if len(limited) != 1 || limited[0].Symbol != "BBB" {
		t.Errorf("Expected limit to keep only BBB, got %+v", limited)
	}
}

func TestGetOverview(t *testing.T) {
	s := newTestScheduler()

	s.mu.Lock()
	s.results["quick"] = &model.ScanResult{
		Matches: 2,
		Results: []model.Analysis{
			{Symbol: "AAA", Score: model.ConfidenceScore{Value: 60}},
			{Symbol: "BBB", Score: model.ConfidenceScore{Value: 80}},
		},
	}
	s.lastScan = time.Now()
	s.mu.Unlock()

	overview := s.GetOverview()
	if overview.ScanTypes["quick"] != 2 {
		t.Errorf("Expected 2 quick matches, got %d", overview.ScanTypes["quick"])
	}
	if overview.Opportunities != 2 {
		t.Errorf("Expected 2 unique opportunities, got %d", overview.Opportunities)
	}
	if overview.LastScan.IsZero() {
		t.Error("Expected last scan time to be set")
	}
}
