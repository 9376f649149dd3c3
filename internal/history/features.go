package history

import (
	"math"

	"candlecast/internal/indicator"
	"candlecast/pkg/model"
)

// featureVectorLen is the fixed length of the comparison vector: four
// return moments, two volume moments, scaled RSI.
const featureVectorLen = 7

// pctChanges converts a candle series into close-to-close percent
// changes. The result has one fewer element than the input.
func pctChanges(candles []model.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (candles[i].Close-prev)/prev)
	}
	return out
}

// normalizedVolumes divides each volume by the series mean so two stocks
// with very different float sizes become comparable.
func normalizedVolumes(candles []model.Candle) []float64 {
	if len(candles) == 0 {
		return nil
	}
	var sum float64
	for _, c := range candles {
		sum += float64(c.Volume)
	}
	mean := sum / float64(len(candles))
	if mean == 0 {
		return make([]float64, len(candles))
	}
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = float64(c.Volume) / mean
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the sample standard deviation.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func skewness(values []float64) float64 {
	if len(values) < 3 {
		return 0
	}
	m := mean(values)
	s := stddev(values)
	if s == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += math.Pow((v-m)/s, 3)
	}
	n := float64(len(values))
	return n / ((n - 1) * (n - 2)) * sum
}

// kurtosis is the excess kurtosis (normal distribution scores 0).
func kurtosis(values []float64) float64 {
	if len(values) < 4 {
		return 0
	}
	m := mean(values)
	s := stddev(values)
	if s == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += math.Pow((v-m)/s, 4)
	}
	n := float64(len(values))
	return (n*(n+1))/((n-1)*(n-2)*(n-3))*sum - 3*(n-1)*(n-1)/((n-2)*(n-3))
}

// pearson computes the Pearson correlation coefficient of two
// equal-length series. Returns 0 for degenerate input.
func pearson(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}
	ma, mb := mean(a), mean(b)
	var cov, va, vb float64
	for i := range a {
		da := a[i] - ma
		db := b[i] - mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0
	}
	return cov / math.Sqrt(va*vb)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.5
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0.5
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// featureVector extracts the normalized comparison vector from a window.
func featureVector(candles []model.Candle) []float64 {
	features := make([]float64, 0, featureVectorLen)

	returns := pctChanges(candles)
	features = append(features, mean(returns), stddev(returns), skewness(returns), kurtosis(returns))

	vols := normalizedVolumes(candles)
	features = append(features, mean(vols), stddev(vols))

	if len(candles) >= indicator.RSIPeriod+1 {
		features = append(features, indicator.RSI(candles, indicator.RSIPeriod)/100)
	} else {
		features = append(features, 0.5)
	}

	return features
}

// regressionSlope is the least-squares slope of values against their
// index.
func regressionSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// trendLabel classifies a window as uptrend, downtrend or sideways via
// the price-normalized regression slope.
func trendLabel(candles []model.Candle) string {
	if len(candles) < 10 {
		return "insufficient_data"
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	avg := mean(closes)
	if avg == 0 {
		return "sideways"
	}
	normalized := regressionSlope(closes) / avg
	switch {
	case normalized > 0.001:
		return "uptrend"
	case normalized < -0.001:
		return "downtrend"
	default:
		return "sideways"
	}
}

// candlestickPatterns detects the simple single and two-bar patterns at
// the end of a window: doji, hammer, bullish engulfing.
func candlestickPatterns(candles []model.Candle) []string {
	var patterns []string
	if len(candles) < 3 {
		return patterns
	}

	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]

	body := math.Abs(last.Close - last.Open)
	wick := last.High - last.Low
	if wick > 0 && body < wick*0.1 {
		patterns = append(patterns, "doji")
	}

	upperWick := last.High - math.Max(last.Open, last.Close)
	lowerWick := math.Min(last.Open, last.Close) - last.Low
	if lowerWick > body*2 && upperWick < body*0.5 {
		patterns = append(patterns, "hammer")
	}

	if prev.Close < prev.Open &&
		last.Close > last.Open &&
		last.Close > prev.Open &&
		last.Open < prev.Close {
		patterns = append(patterns, "bullish_engulfing")
	}

	return patterns
}

// supportResistanceLevels finds local lows and highs using a rolling
// window sized to the series.
func supportResistanceLevels(candles []model.Candle) (support, resistance []float64) {
	window := 5
	if w := len(candles) / 3; w < window {
		window = w
	}
	if window < 2 {
		return nil, nil
	}

	for i := window; i < len(candles)-window; i++ {
		if isLocalLow(candles, i, window) {
			support = append(support, candles[i].Low)
		}
		if isLocalHigh(candles, i, window) {
			resistance = append(resistance, candles[i].High)
		}
	}
	return support, resistance
}

func isLocalLow(candles []model.Candle, i, window int) bool {
	if candles[i].Low >= candles[i-1].Low || candles[i].Low >= candles[i+1].Low {
		return false
	}
	for j := i - window + 1; j <= i; j++ {
		if j >= 0 && candles[j].Low < candles[i].Low {
			return false
		}
	}
	return true
}

func isLocalHigh(candles []model.Candle, i, window int) bool {
	if candles[i].High <= candles[i-1].High || candles[i].High <= candles[i+1].High {
		return false
	}
	for j := i - window + 1; j <= i; j++ {
		if j >= 0 && candles[j].High > candles[i].High {
			return false
		}
	}
	return true
}

// compareLevelCounts scores how similar two windows' support/resistance
// structures are by level count. Neutral 0.5 when either side has none.
func compareLevelCounts(curSupport, curResistance, histSupport, histResistance []float64) float64 {
	var score float64
	var comparisons int

	if len(curSupport) > 0 && len(histSupport) > 0 {
		score += countSimilarity(len(curSupport), len(histSupport))
		comparisons++
	}
	if len(curResistance) > 0 && len(histResistance) > 0 {
		score += countSimilarity(len(curResistance), len(histResistance))
		comparisons++
	}

	if comparisons == 0 {
		return 0.5
	}
	return score / float64(comparisons)
}

func countSimilarity(a, b int) float64 {
	max := a
	if b > max {
		max = b
	}
	return 1 - math.Abs(float64(a-b))/float64(max)
}
