package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"candlecast/internal/config"
	"candlecast/internal/indicator"
	"candlecast/internal/narrative"
	"candlecast/internal/pattern"
	"candlecast/internal/provider"
	"candlecast/internal/score"
	"candlecast/pkg/model"
)

// analysisDays is how much history one analysis fetches: enough for the
// 50-day average plus indicator warmup.
const analysisDays = 90

// ErrNoData marks symbols the provider returned no candles for, usually
// unknown or delisted tickers. Not retryable.
var ErrNoData = errors.New("no price data available")

// ErrFiltered marks symbols that failed the price or liquidity screen.
var ErrFiltered = errors.New("does not meet scan criteria")

// Analyzer runs the full pipeline for one symbol: fetch, screen,
// indicators, pattern, confidence, narrative.
type Analyzer struct {
	provider   provider.Provider
	calc       *indicator.Calculator
	classifier *pattern.Classifier
	scorer     *score.Scorer
	assembler  *narrative.Assembler
	cfg        config.ScannerConfig
}

// New creates an analyzer wired to the given provider and settings.
func New(p provider.Provider, cfg *config.Config) *Analyzer {
	return &Analyzer{
		provider:   p,
		calc:       indicator.NewCalculator(),
		classifier: pattern.NewClassifier(),
		scorer:     score.NewScorer(cfg.Scorer.Weights),
		assembler:  narrative.NewAssembler(),
		cfg:        cfg.Scanner,
	}
}

// AnalyzeSetup analyzes one symbol's current setup.
// Error taxonomy: ErrNoData for unknown or empty symbols, ErrFiltered
// for symbols outside the price/liquidity screen, anything else is a
// transient provider failure worth retrying.
func (a *Analyzer) AnalyzeSetup(ctx context.Context, symbol string) (*model.Analysis, error) {
	candles, err := a.provider.GetDailyCandles(ctx, symbol, analysisDays)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}

	snap := a.calc.Compute(candles)

	if snap.Price < a.cfg.MinPrice || snap.Price > a.cfg.MaxPrice {
		return nil, fmt.Errorf("%s price %.2f outside [%.2f, %.2f]: %w",
			symbol, snap.Price, a.cfg.MinPrice, a.cfg.MaxPrice, ErrFiltered)
	}
	if snap.AvgVolume > 0 && snap.AvgVolume < a.cfg.MinAvgVolume {
		return nil, fmt.Errorf("%s average volume %.0f below %.0f: %w",
			symbol, snap.AvgVolume, a.cfg.MinAvgVolume, ErrFiltered)
	}

	label := a.classifier.Classify(candles, snap)

	analysis := &model.Analysis{
		Symbol:     symbol,
		Indicators: snap,
		Pattern:    label,
		Score:      a.scorer.Score(snap, label),
		AnalyzedAt: time.Now(),
	}
	analysis.Narrative = a.assembler.Describe(analysis, nil)

	return analysis, nil
}
