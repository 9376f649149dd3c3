package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"candlecast/internal/config"
	"candlecast/internal/provider"
	"candlecast/internal/scanner"
	"candlecast/internal/store"
	"candlecast/internal/symbols"
	"candlecast/pkg/model"
)

// The segment scan runs with a floor below the configured min_confidence
// so borderline setups surface between full scans. The quick scan applies
// no floor at all; the full scan uses the configured thresholds.
const segmentMinConfidence = 25

// quickMoveThresholds flag a symbol in the quick scan: absolute daily
// price change over 2% or volume surge over 50%.
const (
	quickPriceChangePct = 2.0
	quickVolumeSurgePct = 50.0
)

// Scheduler runs the background scan jobs: a quick pass over the most
// liquid names every minute, a rotating segment pass every five, and a
// full-universe pass every thirty. Latest results live in an in-memory
// cache guarded by one mutex.
type Scheduler struct {
	cron    *cron.Cron
	scanner *scanner.Scanner
	store   *store.Store
	movers  provider.MoverProvider
	cfg     config.SchedulerConfig
	ctx     context.Context

	mu           sync.Mutex
	results      map[string]*model.ScanResult
	segmentIndex int
	lastScan     time.Time
}

// New creates a scheduler. store may be nil; persistence is then
// skipped.
func New(ctx context.Context, sc *scanner.Scanner, st *store.Store, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		scanner: sc,
		store:   st,
		cfg:     cfg,
		ctx:     ctx,
		results: make(map[string]*model.ScanResult),
	}
}

// SetMoverSource lets the full scan pull market movers into its
// universe. Optional; without it the full scan covers trending plus
// every segment.
func (s *Scheduler) SetMoverSource(mp provider.MoverProvider) {
	s.movers = mp
}

// Start registers the three jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.QuickSpec, s.quickScan); err != nil {
		return fmt.Errorf("register quick scan: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.SegmentSpec, s.segmentScan); err != nil {
		return fmt.Errorf("register segment scan: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.FullSpec, s.fullScan); err != nil {
		return fmt.Errorf("register full scan: %w", err)
	}

	s.cron.Start()
	log.Println("[INFO] scheduler started")
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[INFO] scheduler stopped")
}

// ForceScan runs one scan of the given type immediately.
func (s *Scheduler) ForceScan(scanType string) error {
	switch scanType {
	case "quick":
		s.quickScan()
	case "segment":
		s.segmentScan()
	case "full":
		s.fullScan()
	default:
		return fmt.Errorf("unknown scan type %q", scanType)
	}
	return nil
}

// quickScan covers the most liquid names and keeps anything that moved:
// large daily price change or a volume surge.
func (s *Scheduler) quickScan() {
	result, err := s.scanner.ScanWithMinConfidence(s.ctx, symbols.HighVolume(), 0)
	if err != nil {
		log.Printf("[ERROR] quick scan: %v", err)
		return
	}

	var flagged []model.Analysis
	for _, a := range result.Results {
		change := a.Indicators.DailyChange
		if change < 0 {
			change = -change
		}
		if change > quickPriceChangePct || a.Indicators.VolumeSurge > quickVolumeSurgePct {
			flagged = append(flagged, a)
		}
	}
	result.Results = flagged
	result.Matches = len(flagged)

	s.cacheResult("quick", result)
	log.Printf("[INFO] quick scan: %d movers from %d symbols", result.Matches, result.TotalScanned)
}

// segmentScan rotates through the market segments, one per tick.
func (s *Scheduler) segmentScan() {
	s.mu.Lock()
	segment := symbols.Segments[s.segmentIndex]
	s.segmentIndex = (s.segmentIndex + 1) % len(symbols.Segments)
	s.mu.Unlock()

	result, err := s.scanner.ScanWithMinConfidence(s.ctx, symbols.GetUniverse(segment), segmentMinConfidence)
	if err != nil {
		log.Printf("[ERROR] %s scan: %v", segment, err)
		return
	}

	s.cacheResult(string(segment), result)
	log.Printf("[INFO] %s scan: %d opportunities from %d symbols", segment, result.Matches, result.TotalScanned)
}

// fullScan covers market movers, the trending set and every segment,
// then persists the results.
func (s *Scheduler) fullScan() {
	var universe []string
	if s.movers != nil {
		movers, err := s.movers.GetMovers(s.ctx, 25)
		if err != nil {
			log.Printf("[WARN] fetching movers: %v", err)
		} else {
			universe = append(universe, movers.Gainers...)
			universe = append(universe, movers.VolumeLeaders...)
		}
	}
	universe = append(universe, symbols.GetUniverse(symbols.UniverseTrending)...)
	for _, segment := range symbols.Segments {
		universe = append(universe, symbols.GetUniverse(segment)...)
	}
	universe = dedupe(universe)

	result, err := s.scanner.ScanWithFallback(s.ctx, universe, symbols.Extended())
	if err != nil {
		log.Printf("[ERROR] full scan: %v", err)
		return
	}

	s.cacheResult("full", result)
	s.persist(result)
	log.Printf("[INFO] full scan: %d opportunities from %d symbols in %v",
		result.Matches, result.TotalScanned, result.ScanTime)
}

func (s *Scheduler) persist(result *model.ScanResult) {
	if s.store == nil {
		return
	}
	if err := s.store.RecordScanRun("full", result); err != nil {
		log.Printf("[ERROR] recording scan run: %v", err)
	}
	for i := range result.Results {
		a := &result.Results[i]
		if err := s.store.SaveAnalysis(a); err != nil {
			log.Printf("[ERROR] saving %s: %v", a.Symbol, err)
			continue
		}
		if err := s.store.RecordEvolution(a.Symbol, a.Pattern, a.Score.Value, 0); err != nil {
			log.Printf("[ERROR] recording evolution for %s: %v", a.Symbol, err)
		}
	}
}

func (s *Scheduler) cacheResult(key string, result *model.ScanResult) {
	s.mu.Lock()
	s.results[key] = result
	s.lastScan = time.Now()
	s.mu.Unlock()
}

// LatestResults returns the cached result for one scan type, or nil.
func (s *Scheduler) LatestResults(scanType string) *model.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[scanType]
}

// TopOpportunities merges every cached scan and returns the highest
// confidence setups, deduplicated by symbol.
func (s *Scheduler) TopOpportunities(limit int) []model.Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var all []model.Analysis
	for _, result := range s.results {
		for _, a := range result.Results {
			if !seen[a.Symbol] {
				seen[a.Symbol] = true
				all = append(all, a)
			}
		}
	}

	sortByConfidence(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Overview summarizes scheduler state for the market-overview endpoint.
type Overview struct {
	LastScan      time.Time      `json:"last_scan"`
	ScanTypes     map[string]int `json:"scan_types"` // cached matches per type
	Opportunities int            `json:"opportunities"`
}

// GetOverview reports what the scheduler currently knows.
func (s *Scheduler) GetOverview() Overview {
	s.mu.Lock()
	defer s.mu.Unlock()

	overview := Overview{
		LastScan:  s.lastScan,
		ScanTypes: make(map[string]int),
	}
	seen := make(map[string]bool)
	for key, result := range s.results {
		overview.ScanTypes[key] = result.Matches
		for _, a := range result.Results {
			if !seen[a.Symbol] {
				seen[a.Symbol] = true
				overview.Opportunities++
			}
		}
	}
	return overview
}

func sortByConfidence(results []model.Analysis) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score.Value > results[j].Score.Value
	})
}

func dedupe(syms []string) []string {
	seen := make(map[string]bool, len(syms))
	var out []string
	for _, s := range syms {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
