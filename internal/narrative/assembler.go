package narrative

import (
	"fmt"
	"strings"

	"candlecast/pkg/model"
)

// Assembler turns an analysis into a short plain-English summary. It
// never fails: missing inputs fall back to neutral phrasing.
type Assembler struct{}

// NewAssembler creates a new narrative assembler
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Describe builds a 2-4 sentence summary of the setup. topMatch may be
// nil when no historical match is available.
func (a *Assembler) Describe(analysis *model.Analysis, topMatch *model.HistoricalMatch) string {
	if analysis == nil {
		return "No analysis available."
	}

	sentences := []string{
		a.momentumSentence(analysis.Indicators),
		a.patternSentence(analysis.Pattern, analysis.Indicators),
		a.confidenceSentence(analysis.Score),
	}
	if s := a.matchSentence(topMatch); s != "" {
		sentences = append(sentences, s)
	}

	return strings.Join(sentences, " ")
}

func (a *Assembler) momentumSentence(snap model.IndicatorSnapshot) string {
	var rsiPhrase string
	switch {
	case snap.RSI > 70:
		rsiPhrase = fmt.Sprintf("RSI at %.0f signals overbought conditions", snap.RSI)
	case snap.RSI < 30:
		rsiPhrase = fmt.Sprintf("RSI at %.0f signals oversold conditions", snap.RSI)
	default:
		rsiPhrase = fmt.Sprintf("RSI at %.0f sits in a healthy range", snap.RSI)
	}

	var volumePhrase string
	switch {
	case snap.VolumeSurge >= 100:
		volumePhrase = fmt.Sprintf("volume is surging %.0f%% above its 20-day average", snap.VolumeSurge)
	case snap.VolumeSurge >= 25:
		volumePhrase = fmt.Sprintf("volume is elevated, %.0f%% above average", snap.VolumeSurge)
	case snap.VolumeSurge < 0:
		volumePhrase = "volume is running below average"
	default:
		volumePhrase = "volume is near its average"
	}

	return fmt.Sprintf("%s while %s.", rsiPhrase, volumePhrase)
}

func (a *Assembler) patternSentence(label model.PatternLabel, snap model.IndicatorSnapshot) string {
	switch label {
	case model.PatternBullFlag:
		return "Price is holding a bull flag above its rising moving averages."
	case model.PatternBreakout:
		return "Price is breaking out above its 20 and 50 day moving averages."
	case model.PatternConsolidation:
		return "Price is consolidating in a tight range, often a precursor to a directional move."
	case model.PatternReversal:
		return "Price is trading below its declining moving averages, a bearish reversal structure."
	case model.PatternUnknown:
		return "Not enough price history to call a pattern."
	default:
		if snap.MACD == model.MACDBullish {
			return "No clear pattern, though MACD has turned bullish."
		}
		return "No clear chart pattern at the moment."
	}
}

func (a *Assembler) confidenceSentence(score model.ConfidenceScore) string {
	switch score.Confidence {
	case "High":
		return fmt.Sprintf("Overall setup confidence is high at %.0f out of 100.", score.Value)
	case "Medium":
		return fmt.Sprintf("Overall setup confidence is moderate at %.0f out of 100.", score.Value)
	default:
		return fmt.Sprintf("Overall setup confidence is low at %.0f out of 100.", score.Value)
	}
}

func (a *Assembler) matchSentence(match *model.HistoricalMatch) string {
	if match == nil || match.Outcome.Category == "" || match.Outcome.Category == "insufficient_data" {
		return ""
	}

	outcome := strings.ReplaceAll(match.Outcome.Category, "_", " ")
	return fmt.Sprintf("The closest historical analog (%s, %s) resolved %s with a %.1f%% move over %d days.",
		match.Symbol, match.DateRange, outcome, match.Outcome.TotalReturn, match.Outcome.DaysAnalyzed)
}
