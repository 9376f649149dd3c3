package history

import (
	"context"
	"fmt"
	"log"
	"sort"

	"candlecast/internal/config"
	"candlecast/internal/indicator"
	"candlecast/internal/provider"
	"candlecast/pkg/model"
)

// defaultComparisonSymbols is the liquid large-cap and index set every
// target is compared against. The target itself is always appended so a
// setup can match its own history.
var defaultComparisonSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA", "AMD",
	"NFLX", "CRM", "ADBE", "ORCL", "INTC", "IBM", "HPQ", "DELL",
	"SPY", "QQQ", "IWM", "DIA", "VTI", "ARKK", "XLK", "XLF",
}

// Sector membership for the news-similarity placeholder. Real sentiment
// needs a news API; until then sector co-membership stands in for it.
var (
	techSector = symbolSet("AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA",
		"AMD", "NFLX", "CRM", "ADBE", "ORCL", "INTC")
	financeSector = symbolSet("JPM", "BAC", "WFC", "GS", "MS", "C",
		"USB", "PNC", "TFC", "COF")
)

// minWindowBars is the shortest target window worth matching.
const minWindowBars = 10

// minCorrelationBars is the shortest overlap the correlation sub-scores
// accept before returning 0.
const minCorrelationBars = 5

// Matcher finds historical windows similar to a symbol's current setup
// and reports what happened after them.
type Matcher struct {
	provider provider.Provider
	cfg      config.MatcherConfig
	symbols  []string
}

// NewMatcher creates a matcher using the given provider and settings.
func NewMatcher(p provider.Provider, cfg config.MatcherConfig) *Matcher {
	return &Matcher{
		provider: p,
		cfg:      cfg,
		symbols:  defaultComparisonSymbols,
	}
}

// targetPattern is the precomputed view of the current setup that every
// candidate window is compared against.
type targetPattern struct {
	symbol     string
	candles    []model.Candle
	returns    []float64
	volumes    []float64
	rsi        float64
	hasRSI     bool
	macd       model.MACDDirection
	bollinger  float64
	hasBoll    bool
	trend      string
	sticks     []string
	support    []float64
	resistance []float64
	features   []float64
	market     MarketContext
	history    *marketHistory
}

// FindMatches scans every comparison symbol's history for windows similar
// to symbol's last window_days candles. Matches are sorted by composite
// score descending and capped at top_n; ties keep scan order. Failed
// comparison fetches are logged and skipped.
func (m *Matcher) FindMatches(ctx context.Context, symbol string) ([]model.HistoricalMatch, error) {
	target, err := m.extractTarget(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return []model.HistoricalMatch{}, nil
	}

	symbols := m.symbols
	if !contains(symbols, symbol) {
		symbols = append(append([]string{}, symbols...), symbol)
	}

	var matches []model.HistoricalMatch
	for _, comp := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := m.matchSymbol(ctx, target, comp)
		if err != nil {
			log.Printf("[WARN] matcher: skipping %s: %v", comp, err)
			continue
		}
		matches = append(matches, found...)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CompositeScore > matches[j].CompositeScore
	})
	if len(matches) > m.cfg.TopN {
		matches = matches[:m.cfg.TopN]
	}
	return matches, nil
}

// extractTarget builds the comparison view of the symbol's current
// window. Returns nil when there is not enough data to match against.
func (m *Matcher) extractTarget(ctx context.Context, symbol string) (*targetPattern, error) {
	candles, err := m.provider.GetDailyCandles(ctx, symbol, m.cfg.WindowDays)
	if err != nil {
		return nil, fmt.Errorf("fetching target %s: %w", symbol, err)
	}
	if len(candles) < minWindowBars {
		log.Printf("[INFO] matcher: not enough data for %s (%d bars)", symbol, len(candles))
		return nil, nil
	}

	market := loadMarketHistory(ctx, m.provider, m.cfg.LookbackDays)

	support, resistance := supportResistanceLevels(candles)
	t := &targetPattern{
		symbol:     symbol,
		candles:    candles,
		returns:    pctChanges(candles),
		volumes:    normalizedVolumes(candles),
		macd:       indicator.MACDDirection(candles),
		trend:      trendLabel(candles),
		sticks:     candlestickPatterns(candles),
		support:    support,
		resistance: resistance,
		features:   featureVector(candles),
		market:     market.current(),
		history:    market,
	}
	if len(candles) >= indicator.RSIPeriod+1 {
		t.rsi = indicator.RSI(candles, indicator.RSIPeriod)
		t.hasRSI = true
	}
	if len(candles) >= indicator.ShortMAPeriod {
		t.bollinger = indicator.BollingerPosition(candles, indicator.ShortMAPeriod, 2.0)
		t.hasBoll = true
	}
	return t, nil
}

// matchSymbol slides the target-sized window across one comparison
// symbol's history, reserving outcome_days bars at the end of each
// candidate for outcome analysis.
func (m *Matcher) matchSymbol(ctx context.Context, target *targetPattern, comp string) ([]model.HistoricalMatch, error) {
	hist, err := m.provider.GetDailyCandles(ctx, comp, m.cfg.LookbackDays)
	if err != nil {
		return nil, err
	}
	window := len(target.candles)
	if len(hist) < window+m.cfg.OutcomeDays {
		return nil, nil
	}

	var matches []model.HistoricalMatch
	for i := 0; i <= len(hist)-window-m.cfg.OutcomeDays; i++ {
		candidate := hist[i : i+window]

		composite, match := m.scoreWindow(target, candidate, comp)
		if composite <= m.cfg.MinComposite {
			continue
		}

		match.Outcome = analyzeOutcome(hist[i+window:], m.cfg.OutcomeDays)
		matches = append(matches, match)
	}
	return matches, nil
}

// scoreWindow computes all six sub-scores and the composite for one
// candidate window.
func (m *Matcher) scoreWindow(target *targetPattern, candidate []model.Candle, comp string) (float64, model.HistoricalMatch) {
	priceCorr := floorZero(trimmedPearson(target.returns, pctChanges(candidate)))
	volumeCorr := floorZero(trimmedPearson(target.volumes, normalizedVolumes(candidate)))
	technical := technicalSimilarity(target, candidate)
	pattern := patternSimilarity(target, candidate)
	news := newsSimilarity(target.symbol, comp)

	histContext := target.history.contextAt(candidate[len(candidate)-1].Time)
	market := target.market.similarity(histContext)

	w := m.cfg.Weights
	composite := clamp01(priceCorr*w.Price +
		volumeCorr*w.Volume +
		technical*w.Technical +
		pattern*w.Pattern +
		news*w.News +
		market*w.Market)

	similarity := clamp01(cosineSimilarity(target.features, featureVector(candidate)))

	match := model.HistoricalMatch{
		Symbol: comp,
		DateRange: fmt.Sprintf("%s to %s",
			candidate[0].Time.Format("2006-01-02"),
			candidate[len(candidate)-1].Time.Format("2006-01-02")),
		SimilarityScore: similarity,
		PriceCorr:       priceCorr,
		VolumeCorr:      volumeCorr,
		PatternScore:    pattern,
		TechnicalScore:  technical,
		NewsScore:       news,
		MarketScore:     market,
		CompositeScore:  composite,
		Confidence:      confidenceLevel(composite),
	}
	return composite, match
}

// technicalSimilarity averages the available indicator comparisons:
// RSI distance, MACD direction match, Bollinger position distance.
func technicalSimilarity(target *targetPattern, candidate []model.Candle) float64 {
	var score float64
	var comparisons int

	if target.hasRSI && len(candidate) >= indicator.RSIPeriod+1 {
		diff := abs(target.rsi-indicator.RSI(candidate, indicator.RSIPeriod)) / 100
		score += 1 - diff
		comparisons++
	}

	if target.macd == indicator.MACDDirection(candidate) {
		score += 1
		comparisons++
	} else if comparisons > 0 {
		comparisons++
	}

	if target.hasBoll && len(candidate) >= indicator.ShortMAPeriod {
		diff := abs(target.bollinger - indicator.BollingerPosition(candidate, indicator.ShortMAPeriod, 2.0))
		score += 1 - diff
		comparisons++
	}

	if comparisons == 0 {
		return 0
	}
	return score / float64(comparisons)
}

// patternSimilarity combines candlestick overlap, trend-shape match and
// support/resistance structure.
func patternSimilarity(target *targetPattern, candidate []model.Candle) float64 {
	var score float64
	var checked int

	candidateSticks := candlestickPatterns(candidate)
	for _, p := range target.sticks {
		if contains(candidateSticks, p) {
			score++
		}
		checked++
	}

	if target.trend == trendLabel(candidate) {
		score++
	}
	checked++

	support, resistance := supportResistanceLevels(candidate)
	score += compareLevelCounts(target.support, target.resistance, support, resistance)
	checked++

	return score / float64(checked)
}

// newsSimilarity is a sector-based stand-in for sentiment comparison.
func newsSimilarity(targetSym, compSym string) float64 {
	if targetSym == compSym {
		return 0.8
	}
	return sectorCorrelation(targetSym, compSym) * 0.6
}

func sectorCorrelation(a, b string) float64 {
	if (techSector[a] && techSector[b]) || (financeSector[a] && financeSector[b]) {
		return 0.8
	}
	return 0.4
}

// analyzeOutcome summarizes the forward bars after a matched window.
func analyzeOutcome(forward []model.Candle, days int) model.Outcome {
	if len(forward) > days {
		forward = forward[:days]
	}
	if len(forward) < 2 {
		return model.Outcome{Category: "insufficient_data"}
	}

	start := forward[0].Close
	end := forward[len(forward)-1].Close
	maxHigh := forward[0].High
	minLow := forward[0].Low
	for _, c := range forward {
		if c.High > maxHigh {
			maxHigh = c.High
		}
		if c.Low < minLow {
			minLow = c.Low
		}
	}

	if start == 0 {
		return model.Outcome{Category: "insufficient_data"}
	}

	totalReturn := (end - start) / start * 100
	return model.Outcome{
		Category:     outcomeCategory(totalReturn),
		TotalReturn:  totalReturn,
		MaxGain:      (maxHigh - start) / start * 100,
		MaxLoss:      (minLow - start) / start * 100,
		DaysAnalyzed: len(forward),
		Volatility:   stddev(pctChanges(forward)) * 100,
	}
}

func outcomeCategory(totalReturn float64) string {
	switch {
	case totalReturn > 5:
		return "strong_bullish"
	case totalReturn > 2:
		return "bullish"
	case totalReturn > -2:
		return "sideways"
	case totalReturn > -5:
		return "bearish"
	default:
		return "strong_bearish"
	}
}

func confidenceLevel(composite float64) string {
	switch {
	case composite >= 0.9:
		return "very_high"
	case composite >= 0.8:
		return "high"
	case composite >= 0.7:
		return "medium"
	case composite >= 0.6:
		return "low"
	default:
		return "very_low"
	}
}

// Report aggregates a match set into outcome probabilities and averages.
func (m *Matcher) Report(matches []model.HistoricalMatch) model.MatchReport {
	report := model.MatchReport{
		TotalMatches: len(matches),
		OutcomeStats: make(map[string]model.OutcomeStats),
	}
	if len(matches) == 0 {
		return report
	}

	type agg struct {
		count   int
		ret     float64
		maxGain float64
		maxLoss float64
	}
	byOutcome := make(map[string]*agg)

	var compositeSum float64
	for _, match := range matches {
		compositeSum += match.CompositeScore
		if match.Confidence == "high" || match.Confidence == "very_high" {
			report.HighConfidence++
		}

		a, ok := byOutcome[match.Outcome.Category]
		if !ok {
			a = &agg{}
			byOutcome[match.Outcome.Category] = a
		}
		a.count++
		a.ret += match.Outcome.TotalReturn
		a.maxGain += match.Outcome.MaxGain
		a.maxLoss += match.Outcome.MaxLoss
	}

	total := float64(len(matches))
	for category, a := range byOutcome {
		n := float64(a.count)
		report.OutcomeStats[category] = model.OutcomeStats{
			Probability: n / total,
			Count:       a.count,
			AvgReturn:   a.ret / n,
			AvgMaxGain:  a.maxGain / n,
			AvgMaxLoss:  a.maxLoss / n,
		}
	}

	// Highest probability wins; ties break alphabetically for stable output
	for category, stats := range report.OutcomeStats {
		best, ok := report.OutcomeStats[report.MostLikelyOutcome]
		if !ok || stats.Count > best.Count ||
			(stats.Count == best.Count && category < report.MostLikelyOutcome) {
			report.MostLikelyOutcome = category
		}
	}

	report.AvgComposite = compositeSum / total
	return report
}

// trimmedPearson correlates the overlapping tails of two series.
func trimmedPearson(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < minCorrelationBars {
		return 0
	}
	return pearson(a[len(a)-n:], b[len(b)-n:])
}

func floorZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func symbolSet(symbols ...string) map[string]bool {
	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	return set
}
