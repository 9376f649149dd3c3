package store

import (
	"path/filepath"
	"testing"
	"time"

	"candlecast/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleAnalysis(symbol string, confidence float64) *model.Analysis {
	return &model.Analysis{
		Symbol: symbol,
		Indicators: model.IndicatorSnapshot{
			Price:       42.5,
			RSI:         58,
			VolumeSurge: 85,
		},
		Pattern:    model.PatternBullFlag,
		Score:      model.ConfidenceScore{Value: confidence, Confidence: "High"},
		AnalyzedAt: time.Now(),
	}
}

func TestSaveAnalysisUpsert(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveAnalysis(sampleAnalysis("TEST", 70)); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := s.SaveAnalysis(sampleAnalysis("TEST", 85)); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	stocks, err := s.ListStocks(false)
	if err != nil {
		t.Fatalf("ListStocks failed: %v", err)
	}
	if len(stocks) != 1 {
		t.Fatalf("Expected 1 row after upsert, got %d", len(stocks))
	}
	if stocks[0].Confidence != 85 {
		t.Errorf("Expected updated confidence 85, got %v", stocks[0].Confidence)
	}
	if stocks[0].Pattern != "bull_flag" {
		t.Errorf("Expected bull_flag pattern, got %s", stocks[0].Pattern)
	}
}

func TestSetTracked(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveAnalysis(sampleAnalysis("AAA", 60)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTracked("AAA", true); err != nil {
		t.Fatalf("SetTracked failed: %v", err)
	}
	// Tracking an unseen symbol creates a stub row
	if err := s.SetTracked("NEW", true); err != nil {
		t.Fatalf("SetTracked for new symbol failed: %v", err)
	}

	tracked, err := s.ListStocks(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracked) != 2 {
		t.Errorf("Expected 2 tracked stocks, got %d", len(tracked))
	}

	if err := s.SetTracked("AAA", false); err != nil {
		t.Fatal(err)
	}
	tracked, err = s.ListStocks(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracked) != 1 {
		t.Errorf("Expected 1 tracked stock after untracking, got %d", len(tracked))
	}
}

func TestTrackedSurvivesReanalysis(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveAnalysis(sampleAnalysis("KEEP", 50)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTracked("KEEP", true); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAnalysis(sampleAnalysis("KEEP", 90)); err != nil {
		t.Fatal(err)
	}

	tracked, err := s.ListStocks(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracked) != 1 || !tracked[0].IsTracked {
		t.Error("Tracked flag should survive a re-analysis upsert")
	}
}

func TestJournal(t *testing.T) {
	s := openTestStore(t)

	entry, err := s.AddJournalEntry(JournalEntry{
		Symbol:            "TEST",
		EntryPrice:        42.5,
		StopLoss:          40,
		TakeProfit:        50,
		ConfidenceAtEntry: 82,
		Notes:             "bull flag near support",
	})
	if err != nil {
		t.Fatalf("AddJournalEntry failed: %v", err)
	}
	if entry.ID == "" {
		t.Error("Expected a generated id")
	}
	if entry.Outcome != "active" {
		t.Errorf("Expected default outcome active, got %s", entry.Outcome)
	}

	entries, err := s.ListJournal(10)
	if err != nil {
		t.Fatalf("ListJournal failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID != entry.ID || entries[0].Symbol != "TEST" {
		t.Errorf("Round-tripped entry mismatch: %+v", entries[0])
	}
}

func TestScanRuns(t *testing.T) {
	s := openTestStore(t)

	result := &model.ScanResult{
		TotalScanned: 100,
		Matches:      7,
		ScanTime:     3 * time.Second,
	}
	if err := s.RecordScanRun("full", result); err != nil {
		t.Fatalf("RecordScanRun failed: %v", err)
	}

	runs, err := s.RecentScanRuns(5)
	if err != nil {
		t.Fatalf("RecentScanRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}
	if runs[0].Type != "full" || runs[0].TotalScanned != 100 || runs[0].Matches != 7 {
		t.Errorf("Round-tripped run mismatch: %+v", runs[0])
	}
	if runs[0].Duration != 3*time.Second {
		t.Errorf("Expected 3s duration, got %v", runs[0].Duration)
	}
}

func TestRecordEvolution(t *testing.T) {
	s := openTestStore(t)

	if err := s.RecordEvolution("TEST", model.PatternBullFlag, 82, 4); err != nil {
		t.Fatalf("RecordEvolution failed: %v", err)
	}
	if err := s.RecordEvolution("TEST", model.PatternConsolidation, 30, 1); err != nil {
		t.Fatalf("RecordEvolution failed: %v", err)
	}
}

func TestEvolutionStage(t *testing.T) {
	cases := []struct {
		confidence float64
		want       string
	}{
		{85, "mature"},
		{70, "mature"},
		{50, "building"},
		{20, "forming"},
	}
	for _, tc := range cases {
		if got := evolutionStage(tc.confidence); got != tc.want {
			t.Errorf("evolutionStage(%v) = %s, want %s", tc.confidence, got, tc.want)
		}
	}
}
