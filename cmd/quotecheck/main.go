package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"candlecast/internal/config"
	"candlecast/internal/indicator"
	"candlecast/internal/pattern"
	"candlecast/internal/provider"
)

// quotecheck exercises each configured data provider directly, bypassing
// the fallback chain, so a misbehaving key or rate limit is easy to spot.
func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal(err)
	}

	symbol := "AAPL"
	if len(os.Args) > 1 {
		symbol = os.Args[1]
	}

	var providers []provider.Provider
	if cfg.API.Finnhub.Key != "" {
		providers = append(providers, provider.NewFinnhubProvider(cfg.API.Finnhub.Key, cfg.API.Finnhub.RateLimit))
	}
	if cfg.API.AlphaVantage.Key != "" {
		providers = append(providers, provider.NewAlphaVantageProvider(cfg.API.AlphaVantage.Key, cfg.API.AlphaVantage.RateLimit))
	}
	providers = append(providers, provider.NewYahooProvider(cfg.API.Yahoo.RateLimit))

	ctx := context.Background()
	fmt.Printf("=== Provider check for %s ===\n", symbol)

	for i, p := range providers {
		fmt.Printf("\n[%d] %s - GetDailyCandles\n", i+1, p.Name())

		start := time.Now()
		candles, err := p.GetDailyCandles(ctx, symbol, 90)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("    ERROR: %v\n", err)
			continue
		}
		if len(candles) == 0 {
			fmt.Printf("    OK but empty: no data for %s (%.1fs)\n", symbol, elapsed.Seconds())
			continue
		}

		last := candles[len(candles)-1]
		fmt.Printf("    OK: %d candles in %s\n", len(candles), elapsed)
		fmt.Printf("    Last: %s O=%.2f H=%.2f L=%.2f C=%.2f V=%d\n",
			last.Time.Format("2006-01-02"), last.Open, last.High, last.Low, last.Close, last.Volume)

		snap := indicator.NewCalculator().Compute(candles)
		label := pattern.NewClassifier().Classify(candles, snap)
		fmt.Printf("    RSI=%.1f surge=%+.0f%% macd=%s pattern=%s\n",
			snap.RSI, snap.VolumeSurge, snap.MACD, label)
	}

	fmt.Println("\n=== Check complete ===")
}
