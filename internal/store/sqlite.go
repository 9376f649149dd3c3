package store

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"candlecast/pkg/model"
)

// Store persists scan output and the trade journal to SQLite. A single
// coarse mutex serializes writers; the pipeline never reads the store
// for computation inputs.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// JournalEntry is one trade journal row.
type JournalEntry struct {
	ID                string    `json:"id"`
	Symbol            string    `json:"symbol"`
	EntryPrice        float64   `json:"entry_price"`
	StopLoss          float64   `json:"stop_loss"`
	TakeProfit        float64   `json:"take_profit"`
	ConfidenceAtEntry float64   `json:"confidence_at_entry"`
	Outcome           string    `json:"outcome"` // active / win / loss / breakeven
	ExitPrice         float64   `json:"exit_price"`
	PnL               float64   `json:"pnl"`
	Notes             string    `json:"notes"`
	CreatedAt         time.Time `json:"created_at"`
}

// TrackedStock is the persisted view of one symbol's latest analysis.
type TrackedStock struct {
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	RSI         float64   `json:"rsi"`
	VolumeSpike float64   `json:"volume_spike"`
	Pattern     string    `json:"pattern"`
	Confidence  float64   `json:"confidence"`
	IsTracked   bool      `json:"is_tracked"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PatternEvolutionRow records how a symbol's pattern looked on one scan.
type PatternEvolutionRow struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	Pattern       string    `json:"pattern"`
	Stage         string    `json:"stage"` // forming / building / mature
	Confidence    float64   `json:"confidence"`
	DaysInPattern int       `json:"days_in_pattern"`
	CreatedAt     time.Time `json:"created_at"`
}

// ScanRun records one completed scan for the overview endpoint.
type ScanRun struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"` // quick / segment / full / manual
	TotalScanned int           `json:"total_scanned"`
	Matches      int           `json:"matches"`
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so web reads don't block scheduler writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", path)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stocks (
			symbol       TEXT PRIMARY KEY,
			price        REAL,
			rsi          REAL,
			volume_spike REAL,
			pattern      TEXT,
			confidence   REAL,
			is_tracked   INTEGER NOT NULL DEFAULT 0,
			updated_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stocks_confidence ON stocks(confidence)`,

		`CREATE TABLE IF NOT EXISTS trade_journal (
			id                  TEXT PRIMARY KEY,
			symbol              TEXT NOT NULL,
			entry_price         REAL,
			stop_loss           REAL,
			take_profit         REAL,
			confidence_at_entry REAL,
			outcome             TEXT,
			exit_price          REAL,
			pnl                 REAL,
			notes               TEXT,
			created_at          INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_symbol ON trade_journal(symbol)`,

		`CREATE TABLE IF NOT EXISTS pattern_evolution (
			id              TEXT PRIMARY KEY,
			symbol          TEXT NOT NULL,
			pattern         TEXT,
			stage           TEXT,
			confidence      REAL,
			days_in_pattern INTEGER,
			created_at      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evolution_symbol ON pattern_evolution(symbol)`,

		`CREATE TABLE IF NOT EXISTS scan_runs (
			id            TEXT PRIMARY KEY,
			type          TEXT NOT NULL,
			total_scanned INTEGER,
			matches       INTEGER,
			duration_ms   INTEGER,
			created_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON scan_runs(created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// SaveAnalysis upserts a symbol's latest analysis, preserving its
// tracked flag.
func (s *Store) SaveAnalysis(a *model.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO stocks
		(symbol, price, rsi, volume_spike, pattern, confidence, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(symbol) DO UPDATE SET
			price=excluded.price, rsi=excluded.rsi,
			volume_spike=excluded.volume_spike, pattern=excluded.pattern,
			confidence=excluded.confidence, updated_at=excluded.updated_at`,
		a.Symbol, a.Indicators.Price, a.Indicators.RSI, a.Indicators.VolumeSurge,
		string(a.Pattern), a.Score.Value, time.Now().Unix(),
	)
	return err
}

// SetTracked flips a symbol's watchlist flag.
func (s *Store) SetTracked(symbol string, tracked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE stocks SET is_tracked=? WHERE symbol=?`,
		boolToInt(tracked), symbol)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err = s.db.Exec(`INSERT INTO stocks (symbol, is_tracked, updated_at) VALUES (?,?,?)`,
			symbol, boolToInt(tracked), time.Now().Unix())
	}
	return err
}

// ListStocks returns persisted stocks ordered by confidence.
func (s *Store) ListStocks(onlyTracked bool) ([]TrackedStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT symbol, price, rsi, volume_spike, pattern, confidence, is_tracked, updated_at
		FROM stocks ORDER BY confidence DESC`
	if onlyTracked {
		query = `SELECT symbol, price, rsi, volume_spike, pattern, confidence, is_tracked, updated_at
			FROM stocks WHERE is_tracked=1 ORDER BY confidence DESC`
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stocks []TrackedStock
	for rows.Next() {
		var st TrackedStock
		var tracked int
		var updated int64
		var price, rsi, spike, confidence sql.NullFloat64
		var pattern sql.NullString
		if err := rows.Scan(&st.Symbol, &price, &rsi, &spike, &pattern, &confidence, &tracked, &updated); err != nil {
			return nil, err
		}
		st.Price = price.Float64
		st.RSI = rsi.Float64
		st.VolumeSpike = spike.Float64
		st.Pattern = pattern.String
		st.Confidence = confidence.Float64
		st.IsTracked = tracked != 0
		st.UpdatedAt = time.Unix(updated, 0)
		stocks = append(stocks, st)
	}
	return stocks, rows.Err()
}

// AddJournalEntry inserts a new trade journal row and returns it with
// its generated id.
func (s *Store) AddJournalEntry(entry JournalEntry) (JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	if entry.Outcome == "" {
		entry.Outcome = "active"
	}

	_, err := s.db.Exec(`INSERT INTO trade_journal
		(id, symbol, entry_price, stop_loss, take_profit, confidence_at_entry,
		 outcome, exit_price, pnl, notes, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		entry.ID, entry.Symbol, entry.EntryPrice, entry.StopLoss, entry.TakeProfit,
		entry.ConfidenceAtEntry, entry.Outcome, entry.ExitPrice, entry.PnL,
		entry.Notes, entry.CreatedAt.Unix(),
	)
	return entry, err
}

// ListJournal returns journal entries, newest first.
func (s *Store) ListJournal(limit int) ([]JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, symbol, entry_price, stop_loss, take_profit,
		confidence_at_entry, outcome, exit_price, pnl, notes, created_at
		FROM trade_journal ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var created int64
		if err := rows.Scan(&e.ID, &e.Symbol, &e.EntryPrice, &e.StopLoss, &e.TakeProfit,
			&e.ConfidenceAtEntry, &e.Outcome, &e.ExitPrice, &e.PnL, &e.Notes, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(created, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecordEvolution appends a pattern-evolution observation.
func (s *Store) RecordEvolution(symbol string, pattern model.PatternLabel, confidence float64, daysInPattern int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO pattern_evolution
		(id, symbol, pattern, stage, confidence, days_in_pattern, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		uuid.NewString(), symbol, string(pattern), evolutionStage(confidence),
		confidence, daysInPattern, time.Now().Unix(),
	)
	return err
}

// RecordScanRun appends a completed scan's totals.
func (s *Store) RecordScanRun(scanType string, result *model.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO scan_runs
		(id, type, total_scanned, matches, duration_ms, created_at)
		VALUES (?,?,?,?,?,?)`,
		uuid.NewString(), scanType, result.TotalScanned, result.Matches,
		result.ScanTime.Milliseconds(), time.Now().Unix(),
	)
	return err
}

// RecentScanRuns returns the latest scan runs, newest first.
func (s *Store) RecentScanRuns(limit int) ([]ScanRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, type, total_scanned, matches, duration_ms, created_at
		FROM scan_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ScanRun
	for rows.Next() {
		var r ScanRun
		var durationMs, created int64
		if err := rows.Scan(&r.ID, &r.Type, &r.TotalScanned, &r.Matches, &durationMs, &created); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.CreatedAt = time.Unix(created, 0)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}

// evolutionStage maps confidence to a coarse pattern maturity label.
func evolutionStage(confidence float64) string {
	switch {
	case confidence >= 70:
		return "mature"
	case confidence >= 45:
		return "building"
	default:
		return "forming"
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
