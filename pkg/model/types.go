package model

import "time"

// Candle represents a single candlestick (OHLCV data)
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Stock represents basic stock information
type Stock struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"` // NYSE, NASDAQ
}

// MACDDirection is the sign of the MACD line relative to its signal line.
type MACDDirection string

const (
	MACDBullish MACDDirection = "bullish"
	MACDBearish MACDDirection = "bearish"
	MACDNeutral MACDDirection = "neutral"
)

// IndicatorSnapshot is a flat set of indicator values derived from one
// price series. Every field is finite: indicators whose rolling window
// exceeds the available history carry their documented neutral default
// (RSI 50, VolumeSurge 0, Momentum 0, BollingerPos 0.5, FibonacciPos 50).
type IndicatorSnapshot struct {
	Price        float64       `json:"price"`
	RSI          float64       `json:"rsi"`
	SMA20        float64       `json:"sma20"`
	SMA50        float64       `json:"sma50"`
	PriceVsSMA20 float64       `json:"price_vs_sma20"` // percent
	VolumeSurge  float64       `json:"volume_surge"`   // percent vs 20-day average
	Momentum     float64       `json:"momentum"`       // 5-day mean percent change
	DailyChange  float64       `json:"daily_change"`   // percent vs previous close
	BollingerPos float64       `json:"bollinger_pos"`  // 0..1 within 20-day bands
	FibonacciPos float64       `json:"fibonacci_pos"`  // 0..100 within 20-day range
	MACD         MACDDirection `json:"macd"`
	Volume       int64         `json:"volume"`
	AvgVolume    float64       `json:"avg_volume"`
}

// PatternLabel classifies the recent shape of a price series.
type PatternLabel string

const (
	PatternConsolidation PatternLabel = "consolidation"
	PatternBreakout      PatternLabel = "breakout"
	PatternBullFlag      PatternLabel = "bull_flag"
	PatternReversal      PatternLabel = "reversal"
	PatternNeutral       PatternLabel = "neutral"
	PatternUnknown       PatternLabel = "unknown"
)

// FactorScore is one weighted component of a confidence score.
type FactorScore struct {
	Name         string  `json:"name"`
	Score        float64 `json:"score"`  // 0..100
	Weight       float64 `json:"weight"` // fraction of the composite
	Contribution float64 `json:"contribution"`
}

// ConfidenceScore is the composite setup score with its breakdown.
// Value is always in [0,100]. The factor contributions sum to the
// weighted composite before any adjustment; Boosted and Penalized record
// the multipliers applied on top of it.
type ConfidenceScore struct {
	Value      float64       `json:"value"`
	Confidence string        `json:"confidence"` // High / Medium / Low
	Breakdown  []FactorScore `json:"breakdown"`
	Boosted    bool          `json:"boosted,omitempty"`
	Penalized  bool          `json:"penalized,omitempty"`
}

// Outcome summarizes what a price series did over a fixed lookahead
// window after a matched historical pattern.
type Outcome struct {
	Category     string  `json:"category"` // strong_bullish .. strong_bearish
	TotalReturn  float64 `json:"total_return"`
	MaxGain      float64 `json:"max_gain"`
	MaxLoss      float64 `json:"max_loss"`
	DaysAnalyzed int     `json:"days_analyzed"`
	Volatility   float64 `json:"volatility"`
}

// HistoricalMatch is one historical window scored for similarity against
// the current setup. All sub-scores and the composite are in [0,1].
type HistoricalMatch struct {
	Symbol          string  `json:"symbol"`
	DateRange       string  `json:"date_range"`
	SimilarityScore float64 `json:"similarity_score"`
	PriceCorr       float64 `json:"price_correlation"`
	VolumeCorr      float64 `json:"volume_correlation"`
	PatternScore    float64 `json:"pattern_match_score"`
	TechnicalScore  float64 `json:"technical_score"`
	NewsScore       float64 `json:"news_sentiment_score"`
	MarketScore     float64 `json:"market_condition_score"`
	CompositeScore  float64 `json:"composite_score"`
	Confidence      string  `json:"confidence_level"`
	Outcome         Outcome `json:"outcome"`
}

// OutcomeStats aggregates the matches that shared one outcome category.
type OutcomeStats struct {
	Probability float64 `json:"probability"`
	Count       int     `json:"count"`
	AvgReturn   float64 `json:"avg_return"`
	AvgMaxGain  float64 `json:"avg_max_gain"`
	AvgMaxLoss  float64 `json:"avg_max_loss"`
}

// MatchReport is the aggregate view over a set of historical matches.
type MatchReport struct {
	TotalMatches      int                     `json:"total_matches"`
	OutcomeStats      map[string]OutcomeStats `json:"outcome_stats"`
	MostLikelyOutcome string                  `json:"most_likely_outcome"`
	AvgComposite      float64                 `json:"avg_composite_score"`
	HighConfidence    int                     `json:"high_confidence_matches"`
}

// Analysis is the full result of analyzing one symbol's setup.
type Analysis struct {
	Symbol     string            `json:"symbol"`
	Indicators IndicatorSnapshot `json:"indicators"`
	Pattern    PatternLabel      `json:"pattern"`
	Score      ConfidenceScore   `json:"score"`
	Narrative  string            `json:"narrative,omitempty"`
	AnalyzedAt time.Time         `json:"analyzed_at"`
}

// ScanResult is the output of a universe scan, sorted by confidence.
type ScanResult struct {
	TotalScanned int           `json:"total_scanned"`
	Matches      int           `json:"matches"`
	Results      []Analysis    `json:"results"`
	ScanTime     time.Duration `json:"scan_time"`
}
