package score

import (
	"testing"

	"candlecast/internal/config"
	"candlecast/pkg/model"
)

func defaultScorer() *Scorer {
	return NewScorer(config.DefaultConfig().Scorer.Weights)
}

func TestScoreWorkedExample(t *testing.T) {
	// RSI 55 (100), surge 50% (volume 75, volatility 80), bull flag
	// (pattern 95, trend 85), range position 65 (95):
	// 100*.20 + 75*.25 + 95*.20 + 95*.15 + 85*.15 + 80*.05 = 88.75
	snap := model.IndicatorSnapshot{
		RSI:          55,
		VolumeSurge:  50,
		FibonacciPos: 65,
	}

	got := defaultScorer().Score(snap, model.PatternBullFlag)

	if got.Value != 88.75 {
		t.Errorf("Expected 88.75, got %v", got.Value)
	}
	if got.Confidence != "High" {
		t.Errorf("Expected High confidence, got %s", got.Confidence)
	}
	if got.Boosted || got.Penalized {
		t.Error("Neither boost nor penalty should apply")
	}
	if len(got.Breakdown) != 6 {
		t.Fatalf("Expected 6 factors, got %d", len(got.Breakdown))
	}
}

func TestScoreBreakdownContributions(t *testing.T) {
	snap := model.IndicatorSnapshot{RSI: 55, VolumeSurge: 50, FibonacciPos: 65}
	got := defaultScorer().Score(snap, model.PatternBullFlag)

	var sum float64
	for _, f := range got.Breakdown {
		sum += f.Contribution
	}
	if sum != got.Value {
		t.Errorf("Contributions sum %v does not match score %v", sum, got.Value)
	}
}

func TestScoreBreakdownPreAdjustment(t *testing.T) {
	// Contributions sum to the composite before multipliers: a penalized
	// score is the sum times 0.8
	snap := model.IndicatorSnapshot{RSI: 0, VolumeSurge: 0, FibonacciPos: 0}
	got := defaultScorer().Score(snap, model.PatternReversal)

	if !got.Penalized {
		t.Fatal("Expected penalty for RSI 0")
	}

	var sum float64
	for _, f := range got.Breakdown {
		sum += f.Contribution
	}
	if sum != 31.25 {
		t.Errorf("Expected pre-adjustment sum 31.25, got %v", sum)
	}
	if got.Value != 25 {
		t.Errorf("Expected penalized score 25, got %v", got.Value)
	}
}

func TestScoreBoost(t *testing.T) {
	// The boost keys on the sub-scores: a 150% surge scores 90 and a
	// mid-band RSI scores 100, so both clear the 80/70 gates. The
	// weighted sum is 93.0, boosted to 102.3 and clamped at 100.
	snap := model.IndicatorSnapshot{
		RSI:          55,
		VolumeSurge:  150,
		FibonacciPos: 65,
	}

	got := defaultScorer().Score(snap, model.PatternBullFlag)
	if !got.Boosted {
		t.Error("Expected boost to apply")
	}
	if got.Value != 100 {
		t.Errorf("Expected boosted score clamped at 100, got %v", got.Value)
	}

	// An 85% surge scores 75, under the 80 gate, even with raw RSI
	// over 70
	snap = model.IndicatorSnapshot{
		RSI:          72,
		VolumeSurge:  85,
		FibonacciPos: 70,
	}
	base := defaultScorer().Score(snap, model.PatternBreakout)
	if base.Boosted {
		t.Errorf("Boost should not apply at volume sub-score 75, got %v", base.Value)
	}
}

func TestScorePenalty(t *testing.T) {
	snap := model.IndicatorSnapshot{
		RSI:          98,
		VolumeSurge:  50,
		FibonacciPos: 65,
	}

	got := defaultScorer().Score(snap, model.PatternBullFlag)
	if !got.Penalized {
		t.Error("Expected penalty for RSI over 95")
	}

	snap.RSI = 15
	got = defaultScorer().Score(snap, model.PatternBullFlag)
	if !got.Penalized {
		t.Error("Expected penalty for RSI under 20")
	}
}

func TestScoreBounds(t *testing.T) {
	cases := []struct {
		name  string
		snap  model.IndicatorSnapshot
		label model.PatternLabel
	}{
		{"zero snapshot", model.IndicatorSnapshot{}, model.PatternUnknown},
		{"extreme high", model.IndicatorSnapshot{RSI: 100, VolumeSurge: 500, FibonacciPos: 100}, model.PatternBullFlag},
		{"extreme low", model.IndicatorSnapshot{RSI: 0, VolumeSurge: -50, FibonacciPos: 0}, model.PatternReversal},
	}

	s := defaultScorer()
	for _, tc := range cases {
		got := s.Score(tc.snap, tc.label)
		if got.Value < 0 || got.Value > 100 {
			t.Errorf("%s: score %v out of [0,100]", tc.name, got.Value)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	snap := model.IndicatorSnapshot{RSI: 62, VolumeSurge: 110, FibonacciPos: 82}
	s := defaultScorer()

	a := s.Score(snap, model.PatternConsolidation)
	b := s.Score(snap, model.PatternConsolidation)
	if a.Value != b.Value || a.Confidence != b.Confidence {
		t.Errorf("Score is not deterministic: %v vs %v", a, b)
	}
}

func TestConfidenceLabels(t *testing.T) {
	cases := []struct {
		value float64
		want  string
	}{
		{85, "High"},
		{70, "High"},
		{60, "Medium"},
		{50, "Medium"},
		{30, "Low"},
		{0, "Low"},
	}
	for _, tc := range cases {
		if got := confidenceLabel(tc.value); got != tc.want {
			t.Errorf("confidenceLabel(%v) = %s, want %s", tc.value, got, tc.want)
		}
	}
}

func TestPatternFactorOrdering(t *testing.T) {
	// A reversal must never outscore a bull flag on the same snapshot
	snap := model.IndicatorSnapshot{RSI: 55, VolumeSurge: 50, FibonacciPos: 65}
	s := defaultScorer()

	bull := s.Score(snap, model.PatternBullFlag)
	rev := s.Score(snap, model.PatternReversal)
	if rev.Value >= bull.Value {
		t.Errorf("Reversal %v should score below bull flag %v", rev.Value, bull.Value)
	}
}
