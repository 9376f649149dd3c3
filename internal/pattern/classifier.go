package pattern

import (
	"candlecast/pkg/model"
)

// minBars is the shortest series the classifier will label. Below this
// the moving averages are too unreliable to call a pattern.
const minBars = 50

// consolidationRangePct is the maximum 10-day range, as a fraction of the
// mean close, that still counts as a tight consolidation.
const consolidationRangePct = 0.05

// Classifier assigns a coarse chart-pattern label to a candle series.
// Classification is total: every series gets a label, never an error.
type Classifier struct{}

// NewClassifier creates a new pattern classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify labels the series using the last close against its 20 and 50
// day moving averages and the tightness of the recent range.
// Precedence: consolidation, then trend alignment, then neutral.
func (c *Classifier) Classify(candles []model.Candle, snap model.IndicatorSnapshot) model.PatternLabel {
	if len(candles) < minBars {
		return model.PatternUnknown
	}

	if isConsolidating(candles) {
		return model.PatternConsolidation
	}

	close := candles[len(candles)-1].Close

	switch {
	case close > snap.SMA20 && snap.SMA20 > snap.SMA50:
		if snap.Momentum > 0 {
			return model.PatternBullFlag
		}
		return model.PatternBreakout
	case close < snap.SMA20 && snap.SMA20 < snap.SMA50:
		return model.PatternReversal
	default:
		return model.PatternNeutral
	}
}

// isConsolidating reports whether the 10-day high/low range is under 5%
// of the mean close over the same window.
func isConsolidating(candles []model.Candle) bool {
	window := candles[len(candles)-10:]

	high := window[0].High
	low := window[0].Low
	var sum float64
	for _, c := range window {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
		sum += c.Close
	}

	mean := sum / float64(len(window))
	if mean == 0 {
		return false
	}

	return (high-low)/mean < consolidationRangePct
}
