package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	API       APIConfig       `yaml:"api"`
	Cache     CacheConfig     `yaml:"cache"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Scorer    ScorerConfig    `yaml:"scorer"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Web       WebConfig       `yaml:"web"`
	Database  DatabaseConfig  `yaml:"database"`
}

// APIConfig holds API provider configurations
type APIConfig struct {
	Finnhub      ProviderConfig `yaml:"finnhub"`
	AlphaVantage ProviderConfig `yaml:"alphavantage"`
	Yahoo        ProviderConfig `yaml:"yahoo"`
}

// ProviderConfig holds individual provider settings
type ProviderConfig struct {
	Key       string `yaml:"key"`
	RateLimit int    `yaml:"rate_limit"` // requests per minute
}

// CacheConfig controls the in-memory candle cache.
type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	MaxDays int           `yaml:"max_days"` // bars fetched per symbol regardless of request size
}

// ScannerConfig holds scanner settings
type ScannerConfig struct {
	Workers               int           `yaml:"workers"`
	Timeout               time.Duration `yaml:"timeout"`
	MaxResults            int           `yaml:"max_results"`
	MinConfidence         float64       `yaml:"min_confidence"`
	ExtendedMinConfidence float64       `yaml:"extended_min_confidence"`
	MinPrice              float64       `yaml:"min_price"`
	MaxPrice              float64       `yaml:"max_price"`
	MinAvgVolume          float64       `yaml:"min_avg_volume"`
}

// ScorerConfig holds the confidence-score factor weights. They live in
// config so they can be recalibrated without a rebuild.
type ScorerConfig struct {
	Weights ScoreWeights `yaml:"weights"`
}

// ScoreWeights are the six confidence factor weights. They must sum to 1.
type ScoreWeights struct {
	RSI        float64 `yaml:"rsi"`
	Volume     float64 `yaml:"volume"`
	Pattern    float64 `yaml:"pattern"`
	Position   float64 `yaml:"position"`
	Trend      float64 `yaml:"trend"`
	Volatility float64 `yaml:"volatility"`
}

// Sum returns the total of all weights.
func (w ScoreWeights) Sum() float64 {
	return w.RSI + w.Volume + w.Pattern + w.Position + w.Trend + w.Volatility
}

// MatcherConfig holds historical-matcher settings.
type MatcherConfig struct {
	WindowDays   int          `yaml:"window_days"`
	LookbackDays int          `yaml:"lookback_days"`
	OutcomeDays  int          `yaml:"outcome_days"`
	MinComposite float64      `yaml:"min_composite"`
	TopN         int          `yaml:"top_n"`
	Weights      MatchWeights `yaml:"weights"`
}

// MatchWeights are the similarity sub-score weights. They must sum to 1.
type MatchWeights struct {
	Price     float64 `yaml:"price"`
	Volume    float64 `yaml:"volume"`
	Technical float64 `yaml:"technical"`
	Pattern   float64 `yaml:"pattern"`
	News      float64 `yaml:"news"`
	Market    float64 `yaml:"market"`
}

// Sum returns the total of all weights.
func (w MatchWeights) Sum() float64 {
	return w.Price + w.Volume + w.Technical + w.Pattern + w.News + w.Market
}

// SchedulerConfig holds the cron specs for background scans.
// Specs use the six-field (seconds) format.
type SchedulerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	QuickSpec   string `yaml:"quick_spec"`
	SegmentSpec string `yaml:"segment_spec"`
	FullSpec    string `yaml:"full_spec"`
}

// WebConfig holds web server settings. When TokenSecret is set, all API
// routes except the token exchange require a bearer token.
type WebConfig struct {
	Port        int           `yaml:"port"`
	APIKey      string        `yaml:"api_key"`
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Finnhub: ProviderConfig{
				Key:       os.Getenv("FINNHUB_API_KEY"),
				RateLimit: 60,
			},
			AlphaVantage: ProviderConfig{
				Key:       os.Getenv("ALPHAVANTAGE_API_KEY"),
				RateLimit: 5,
			},
			Yahoo: ProviderConfig{
				RateLimit: 30,
			},
		},
		Cache: CacheConfig{
			TTL:     5 * time.Minute,
			MaxDays: 250,
		},
		Scanner: ScannerConfig{
			Workers:               10,
			Timeout:               5 * time.Minute,
			MaxResults:            20,
			MinConfidence:         30,
			ExtendedMinConfidence: 15,
			MinPrice:              1,
			MaxPrice:              500,
			MinAvgVolume:          100_000,
		},
		Scorer: ScorerConfig{
			Weights: ScoreWeights{
				RSI:        0.20,
				Volume:     0.25,
				Pattern:    0.20,
				Position:   0.15,
				Trend:      0.15,
				Volatility: 0.05,
			},
		},
		Matcher: MatcherConfig{
			WindowDays:   30,
			LookbackDays: 252,
			OutcomeDays:  10,
			MinComposite: 0.7,
			TopN:         10,
			Weights: MatchWeights{
				Price:     0.25,
				Volume:    0.15,
				Technical: 0.25,
				Pattern:   0.20,
				News:      0.10,
				Market:    0.05,
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:     true,
			QuickSpec:   "0 * * * * *",    // every minute
			SegmentSpec: "0 */5 * * * *",  // every 5 minutes
			FullSpec:    "0 */30 * * * *", // every 30 minutes
		},
		Web: WebConfig{
			Port:     8080,
			APIKey:   os.Getenv("CANDLECAST_API_KEY"),
			TokenTTL: 12 * time.Hour,
		},
		Database: DatabaseConfig{
			Path: "candlecast.db",
		},
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if file doesn't exist
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Override with environment variables if set
	if key := os.Getenv("FINNHUB_API_KEY"); key != "" {
		cfg.API.Finnhub.Key = key
	}
	if key := os.Getenv("ALPHAVANTAGE_API_KEY"); key != "" {
		cfg.API.AlphaVantage.Key = key
	}
	if key := os.Getenv("CANDLECAST_API_KEY"); key != "" {
		cfg.Web.APIKey = key
	}
	if secret := os.Getenv("CANDLECAST_TOKEN_SECRET"); secret != "" {
		cfg.Web.TokenSecret = secret
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Scanner.Workers < 1 {
		return fmt.Errorf("scanner workers must be at least 1")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if sum := c.Scorer.Weights.Sum(); math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scorer weights must sum to 1.0, got %.4f", sum)
	}
	if sum := c.Matcher.Weights.Sum(); math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("matcher weights must sum to 1.0, got %.4f", sum)
	}
	if c.Matcher.WindowDays < 10 {
		return fmt.Errorf("matcher window_days must be at least 10")
	}
	if c.Matcher.TopN < 1 {
		return fmt.Errorf("matcher top_n must be at least 1")
	}
	if c.Web.TokenSecret != "" && c.Web.APIKey == "" {
		return fmt.Errorf("web api_key is required when token_secret is set")
	}
	return nil
}
