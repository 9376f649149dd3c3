package score

import (
	"math"

	"candlecast/internal/config"
	"candlecast/pkg/model"
)

// Boost and penalty multipliers applied after the weighted sum. The
// boost keys on the computed volume and RSI sub-scores; the penalty
// keys on the raw RSI reading.
const (
	surgeBoost     = 1.10
	extremePenalty = 0.80
	boostVolumeMin = 80.0
	boostRSIMin    = 70.0
	penaltyRSILow  = 20.0
	penaltyRSIHigh = 95.0
)

// Scorer turns an indicator snapshot and pattern label into a 0-100
// confidence score with a per-factor breakdown. All factor tables are
// fixed; only the weights come from config.
type Scorer struct {
	weights config.ScoreWeights
}

// NewScorer creates a scorer with the given factor weights. Weights are
// assumed validated (config.Validate enforces that they sum to 1).
func NewScorer(weights config.ScoreWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes the weighted confidence score. It is total and
// deterministic: any snapshot and label yield a score in [0, 100].
func (s *Scorer) Score(snap model.IndicatorSnapshot, label model.PatternLabel) model.ConfidenceScore {
	rsiSub := rsiScore(snap.RSI)
	volumeSub := volumeScore(snap.VolumeSurge)
	factors := []model.FactorScore{
		{Name: "rsi", Score: rsiSub, Weight: s.weights.RSI},
		{Name: "volume", Score: volumeSub, Weight: s.weights.Volume},
		{Name: "pattern", Score: patternScore(label), Weight: s.weights.Pattern},
		{Name: "position", Score: positionScore(snap.FibonacciPos), Weight: s.weights.Position},
		{Name: "trend", Score: trendScore(label), Weight: s.weights.Trend},
		{Name: "volatility", Score: volatilityScore(snap.VolumeSurge), Weight: s.weights.Volatility},
	}

	var total float64
	for i := range factors {
		factors[i].Contribution = round2(factors[i].Score * factors[i].Weight)
		total += factors[i].Score * factors[i].Weight
	}

	result := model.ConfidenceScore{Breakdown: factors}

	if volumeSub > boostVolumeMin && rsiSub > boostRSIMin {
		total *= surgeBoost
		result.Boosted = true
	}
	if snap.RSI < penaltyRSILow || snap.RSI > penaltyRSIHigh {
		total *= extremePenalty
		result.Penalized = true
	}

	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	result.Value = round2(total)
	result.Confidence = confidenceLabel(result.Value)
	return result
}

// rsiScore rewards the 45-65 sweet spot and fades toward the extremes.
func rsiScore(rsi float64) float64 {
	switch {
	case rsi >= 45 && rsi <= 65:
		return 100
	case (rsi >= 35 && rsi < 45) || (rsi > 65 && rsi <= 75):
		return 80
	case (rsi >= 25 && rsi < 35) || (rsi > 75 && rsi <= 85):
		return 60
	default:
		return 20
	}
}

// volumeScore maps the percent surge over the 20-day average.
func volumeScore(surge float64) float64 {
	switch {
	case surge >= 200:
		return 100
	case surge >= 100:
		return 90
	case surge >= 50:
		return 75
	case surge >= 25:
		return 60
	case surge >= 0:
		return 40
	default:
		return 20
	}
}

func patternScore(label model.PatternLabel) float64 {
	switch label {
	case model.PatternBullFlag:
		return 95
	case model.PatternBreakout:
		return 85
	case model.PatternConsolidation:
		return 70
	case model.PatternReversal:
		return 30
	default:
		return 50
	}
}

// positionScore maps the Fibonacci range position (0-100). The 60-80
// band scores best: strength without being pinned to the high.
func positionScore(pos float64) float64 {
	switch {
	case pos >= 60 && pos <= 80:
		return 95
	case (pos >= 50 && pos < 60) || (pos > 80 && pos <= 90):
		return 80
	case (pos >= 40 && pos < 50) || (pos > 90 && pos <= 95):
		return 65
	case pos < 30:
		return 30
	default:
		return 40
	}
}

func trendScore(label model.PatternLabel) float64 {
	switch label {
	case model.PatternBullFlag, model.PatternBreakout:
		return 85
	case model.PatternReversal:
		return 25
	case model.PatternConsolidation:
		return 60
	default:
		return 50
	}
}

// volatilityScore treats the volume surge as an activity proxy: moderate
// surges score best, extreme ones are discounted as unstable.
func volatilityScore(surge float64) float64 {
	switch {
	case surge >= 25 && surge < 75:
		return 80
	case surge >= 75 && surge <= 150:
		return 90
	case surge > 150:
		return 70
	default:
		return 60
	}
}

func confidenceLabel(value float64) string {
	switch {
	case value >= 70:
		return "High"
	case value >= 50:
		return "Medium"
	default:
		return "Low"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
