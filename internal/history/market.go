package history

import (
	"context"
	"log"
	"time"

	"candlecast/internal/provider"
	"candlecast/pkg/model"
)

// Index symbols used for market context.
const (
	vixSymbol = "^VIX"
	spySymbol = "SPY"
)

// spyTrendBars is the lookback for the broad-market trend: roughly one
// month of trading days.
const spyTrendBars = 21

// MarketContext captures the broad-market regime on a given day.
type MarketContext struct {
	VIX   float64
	Trend string // bullish / bearish / neutral
}

// neutralContext is the fallback when index data is unavailable.
func neutralContext() MarketContext {
	return MarketContext{VIX: 20, Trend: "neutral"}
}

// marketHistory holds prefetched VIX and SPY series so sliding-window
// matching can look up historical context without per-window fetches.
type marketHistory struct {
	vix []model.Candle
	spy []model.Candle
}

// loadMarketHistory fetches index history covering the lookback period.
// Fetch failures degrade to the neutral fallback rather than aborting
// the match run.
func loadMarketHistory(ctx context.Context, p provider.Provider, days int) *marketHistory {
	h := &marketHistory{}

	vix, err := p.GetDailyCandles(ctx, vixSymbol, days)
	if err != nil {
		log.Printf("[WARN] market context: VIX fetch failed: %v", err)
	} else {
		h.vix = vix
	}

	spy, err := p.GetDailyCandles(ctx, spySymbol, days+spyTrendBars)
	if err != nil {
		log.Printf("[WARN] market context: SPY fetch failed: %v", err)
	} else {
		h.spy = spy
	}

	return h
}

// current returns the context as of the most recent bar.
func (h *marketHistory) current() MarketContext {
	if len(h.spy) == 0 && len(h.vix) == 0 {
		return neutralContext()
	}
	return h.contextAt(time.Now())
}

// contextAt returns the market context on the last bar at or before the
// given date.
func (h *marketHistory) contextAt(date time.Time) MarketContext {
	out := neutralContext()

	if i := lastBarAt(h.vix, date); i >= 0 {
		out.VIX = h.vix[i].Close
	}

	if i := lastBarAt(h.spy, date); i >= spyTrendBars {
		start := h.spy[i-spyTrendBars].Close
		if start > 0 {
			if h.spy[i].Close > start {
				out.Trend = "bullish"
			} else {
				out.Trend = "bearish"
			}
		}
	}

	return out
}

// similarity compares two contexts: VIX distance scaled by 50 points,
// averaged with an exact trend match.
func (c MarketContext) similarity(other MarketContext) float64 {
	vixSim := 1 - abs(c.VIX-other.VIX)/50
	if vixSim < 0 {
		vixSim = 0
	}

	trendSim := 0.0
	if c.Trend == other.Trend {
		trendSim = 1.0
	}

	return (vixSim + trendSim) / 2
}

// lastBarAt returns the index of the last candle at or before date, or
// -1 if none qualifies.
func lastBarAt(candles []model.Candle, date time.Time) int {
	for i := len(candles) - 1; i >= 0; i-- {
		if !candles[i].Time.After(date) {
			return i
		}
	}
	return -1
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
