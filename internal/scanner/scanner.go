package scanner

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"candlecast/internal/analyzer"
	"candlecast/internal/config"
	"candlecast/pkg/model"
)

// ProgressCallback is called with progress updates
type ProgressCallback func(scanned, total int)

// Scanner runs the analysis pipeline over a symbol universe with a
// worker pool and filters the results by confidence.
type Scanner struct {
	analyzer     *analyzer.Analyzer
	cfg          config.ScannerConfig
	progressFunc ProgressCallback
}

// NewScanner creates a new scanner
func NewScanner(a *analyzer.Analyzer, cfg config.ScannerConfig) *Scanner {
	return &Scanner{
		analyzer: a,
		cfg:      cfg,
	}
}

// SetProgressCallback sets the progress callback function
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

// Scan analyzes every symbol and keeps setups scoring at or above
// min_confidence, sorted by confidence descending and capped at
// max_results. When fewer than five setups clear the bar, extra may be
// supplied to ScanWithFallback instead.
func (s *Scanner) Scan(ctx context.Context, syms []string) (*model.ScanResult, error) {
	return s.scan(ctx, syms, s.cfg.MinConfidence)
}

// ScanWithMinConfidence analyzes every symbol with an explicit
// confidence floor instead of the configured one. A floor of 0 keeps
// every setup that survives the analyzer's price and volume filters.
func (s *Scanner) ScanWithMinConfidence(ctx context.Context, syms []string, minConfidence float64) (*model.ScanResult, error) {
	return s.scan(ctx, syms, minConfidence)
}

// ScanWithFallback runs the primary scan and, when it yields fewer than
// five setups, a second pass over the extended universe with the lower
// confidence floor.
func (s *Scanner) ScanWithFallback(ctx context.Context, primary, extended []string) (*model.ScanResult, error) {
	result, err := s.scan(ctx, primary, s.cfg.MinConfidence)
	if err != nil {
		return nil, err
	}
	if len(result.Results) >= 5 || len(extended) == 0 {
		return result, nil
	}

	log.Printf("[INFO] scanner: only %d setups found, widening to %d extended symbols",
		len(result.Results), len(extended))

	fallback, err := s.scan(ctx, extended, s.cfg.ExtendedMinConfidence)
	if err != nil {
		return result, nil
	}

	merged := append(result.Results, fallback.Results...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score.Value > merged[j].Score.Value
	})
	if len(merged) > s.cfg.MaxResults {
		merged = merged[:s.cfg.MaxResults]
	}

	return &model.ScanResult{
		TotalScanned: result.TotalScanned + fallback.TotalScanned,
		Matches:      len(merged),
		Results:      merged,
		ScanTime:     result.ScanTime + fallback.ScanTime,
	}, nil
}

func (s *Scanner) scan(ctx context.Context, syms []string, minConfidence float64) (*model.ScanResult, error) {
	startTime := time.Now()

	if len(syms) == 0 {
		return &model.ScanResult{
			Results:  []model.Analysis{},
			ScanTime: time.Since(startTime),
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	jobChan := make(chan string, len(syms))
	resultChan := make(chan model.Analysis, len(syms))

	for _, sym := range syms {
		jobChan <- sym
	}
	close(jobChan)

	var scannedCount int64

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
					analysis, err := s.analyzer.AnalyzeSetup(ctx, sym)
					switch {
					case err == nil && analysis.Score.Value >= minConfidence:
						resultChan <- *analysis
					case err != nil &&
						!errors.Is(err, analyzer.ErrNoData) &&
						!errors.Is(err, analyzer.ErrFiltered) &&
						!errors.Is(err, context.Canceled):
						log.Printf("[WARN] scanner: %s: %v", sym, err)
					}

					count := atomic.AddInt64(&scannedCount, 1)
					if s.progressFunc != nil {
						s.progressFunc(int(count), len(syms))
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var results []model.Analysis
	for result := range resultChan {
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score.Value > results[j].Score.Value
	})
	if len(results) > s.cfg.MaxResults {
		results = results[:s.cfg.MaxResults]
	}

	return &model.ScanResult{
		TotalScanned: len(syms),
		Matches:      len(results),
		Results:      results,
		ScanTime:     time.Since(startTime),
	}, nil
}
