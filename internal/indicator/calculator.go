package indicator

import (
	"math"

	"candlecast/pkg/model"
)

// Rolling window sizes shared by the pipeline.
const (
	RSIPeriod      = 14
	ShortMAPeriod  = 20
	LongMAPeriod   = 50
	VolumePeriod   = 20
	MomentumPeriod = 5
	RangePeriod    = 20
	macdFastPeriod = 12
	macdSlowPeriod = 26
	macdSignalDays = 9
)

// Calculator derives an IndicatorSnapshot from a daily candle series.
// It is pure: the same series always yields the same snapshot, and a
// series shorter than any rolling window produces that indicator's
// neutral default instead of an error.
type Calculator struct{}

// NewCalculator creates a new indicator calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute calculates all indicators for the given candles.
// An empty series yields the all-defaults snapshot.
func (c *Calculator) Compute(candles []model.Candle) model.IndicatorSnapshot {
	snap := model.IndicatorSnapshot{
		RSI:          50,
		BollingerPos: 0.5,
		FibonacciPos: 50,
		MACD:         model.MACDNeutral,
	}

	if len(candles) == 0 {
		return snap
	}

	last := candles[len(candles)-1]
	snap.Price = last.Close
	snap.Volume = last.Volume

	if len(candles) >= 2 {
		prev := candles[len(candles)-2].Close
		if prev != 0 {
			snap.DailyChange = round2((last.Close - prev) / prev * 100)
		}
	}

	snap.RSI = RSI(candles, RSIPeriod)
	snap.SMA20 = SMA(candles, ShortMAPeriod)
	snap.SMA50 = SMA(candles, LongMAPeriod)
	snap.Momentum = Momentum(candles, MomentumPeriod)
	snap.BollingerPos = BollingerPosition(candles, ShortMAPeriod, 2.0)
	snap.FibonacciPos = FibonacciPosition(candles, RangePeriod)
	snap.MACD = MACDDirection(candles)

	if snap.SMA20 > 0 {
		snap.PriceVsSMA20 = round2((last.Close - snap.SMA20) / snap.SMA20 * 100)
	}

	snap.AvgVolume = avgVolumeExcludingLast(candles, VolumePeriod)
	if snap.AvgVolume > 0 {
		snap.VolumeSurge = round2((float64(last.Volume) - snap.AvgVolume) / snap.AvgVolume * 100)
	}

	return snap
}

// SMA calculates the Simple Moving Average for the given period.
// Returns 0 when the series is shorter than the period.
func SMA(candles []model.Candle, period int) float64 {
	if len(candles) < period || period <= 0 {
		return 0
	}

	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}

// RSI calculates the Relative Strength Index using the Wilder-style
// average-gain / average-loss ratio over the period. Returns the neutral
// 50 when fewer than period+1 candles are available or the window is
// completely flat.
func RSI(candles []model.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := len(candles) - period; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	// A flat window has no momentum either way; 0/0 is undefined, not
	// overbought
	if avgGain == 0 && avgLoss == 0 {
		return 50
	}
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return round2(100 - (100 / (1 + rs)))
}

// Momentum is the mean percent close-to-close change over the last
// period bars. Returns 0 when fewer than period+1 candles are available.
func Momentum(candles []model.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 0
	}

	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			continue
		}
		sum += (candles[i].Close - prev) / prev * 100
	}
	return round2(sum / float64(period))
}

// BollingerPosition locates the last close within period-length ±stdDev
// bands, 0 at the lower band and 1 at the upper. Returns the neutral 0.5
// for short series or zero-width bands.
func BollingerPosition(candles []model.Candle, period int, stdDev float64) float64 {
	if len(candles) < period {
		return 0.5
	}

	ma := SMA(candles, period)

	var sumSquares float64
	for i := len(candles) - period; i < len(candles); i++ {
		diff := candles[i].Close - ma
		sumSquares += diff * diff
	}
	std := math.Sqrt(sumSquares / float64(period))

	upper := ma + std*stdDev
	lower := ma - std*stdDev
	if upper == lower {
		return 0.5
	}

	pos := (candles[len(candles)-1].Close - lower) / (upper - lower)
	return clamp(pos, 0, 1)
}

// FibonacciPosition is the percent location of the last close within the
// period-length high/low range: 0 at the low, 100 at the high. Returns
// the neutral 50 for short series or a flat range.
func FibonacciPosition(candles []model.Candle, period int) float64 {
	if len(candles) < period {
		return 50
	}

	high := candles[len(candles)-period].High
	low := candles[len(candles)-period].Low
	for i := len(candles) - period; i < len(candles); i++ {
		if candles[i].High > high {
			high = candles[i].High
		}
		if candles[i].Low < low {
			low = candles[i].Low
		}
	}

	if high == low {
		return 50
	}

	pos := (candles[len(candles)-1].Close - low) / (high - low) * 100
	return round2(clamp(pos, 0, 100))
}

// MACDDirection compares the 12/26 MACD line against its 9-period signal
// line. Series too short for the slow EMA plus signal warmup are neutral.
func MACDDirection(candles []model.Candle) model.MACDDirection {
	if len(candles) < macdSlowPeriod+macdSignalDays {
		return model.MACDNeutral
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	fast := emaSeries(closes, macdFastPeriod)
	slow := emaSeries(closes, macdSlowPeriod)

	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = fast[i] - slow[i]
	}
	signal := emaSeries(macdLine, macdSignalDays)

	last := len(closes) - 1
	switch {
	case macdLine[last] > signal[last]:
		return model.MACDBullish
	case macdLine[last] < signal[last]:
		return model.MACDBearish
	default:
		return model.MACDNeutral
	}
}

// avgVolumeExcludingLast averages volume over the period bars preceding
// the current one, so a surge on the current bar doesn't dilute its own
// baseline.
func avgVolumeExcludingLast(candles []model.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 0
	}

	var sum int64
	for i := len(candles) - period - 1; i < len(candles)-1; i++ {
		sum += candles[i].Volume
	}
	return float64(sum) / float64(period)
}

func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	k := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
