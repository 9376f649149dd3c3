package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"candlecast/internal/analyzer"
	"candlecast/internal/config"
	"candlecast/internal/history"
	"candlecast/internal/provider"
	"candlecast/internal/scanner"
	"candlecast/internal/scheduler"
	"candlecast/internal/store"
	"candlecast/internal/symbols"
	"candlecast/internal/web"
	"candlecast/pkg/model"
)

var (
	cfgFile    string
	universe   string
	symbolList string
	workers    int
	format     string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "candlecast",
		Short: "Stock setup scanner with pattern classification and historical matching",
		Long: `Candlecast analyzes retail stock setups: technical indicators,
pattern classification, a weighted confidence score, and historical
similarity matching against comparable symbols.

Examples:
  candlecast scan --universe tech
  candlecast analyze NVDA
  candlecast match AAPL
  candlecast serve`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "output format: table, json")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "show detailed output")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a stock universe for high-confidence setups",
		RunE:  runScan,
	}
	scanCmd.Flags().StringVar(&universe, "universe", "large_cap", "universe: large_cap, tech, small_cap, biotech, crypto, trending, penny, test")
	scanCmd.Flags().StringVar(&symbolList, "symbols", "", "comma-separated symbols to scan instead of a universe")
	scanCmd.Flags().IntVar(&workers, "workers", 0, "number of parallel workers (0 = config default)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Analyze a single symbol's setup",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}

	matchCmd := &cobra.Command{
		Use:   "match SYMBOL",
		Short: "Find historical patterns similar to a symbol's current setup",
		Args:  cobra.ExactArgs(1),
		RunE:  runMatch,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server with background scanning",
		RunE:  runServe,
	}

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token from the configured secret",
		RunE:  runToken,
	}

	rootCmd.AddCommand(scanCmd, analyzeCmd, matchCmd, serveCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, provider.Provider, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if workers > 0 {
		cfg.Scanner.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	fallback := provider.NewFallbackProvider(createProviders(cfg)...)
	if !fallback.IsAvailable() {
		return nil, nil, fmt.Errorf("no available data providers")
	}

	if verbose {
		names := make([]string, 0, len(fallback.Providers()))
		for _, p := range fallback.Providers() {
			names = append(names, p.Name())
		}
		fmt.Printf("Using providers: %s\n", strings.Join(names, ", "))
	}

	cached := provider.NewCachingProvider(fallback, cfg.Cache.TTL, cfg.Cache.MaxDays)
	return cfg, cached, nil
}

func createProviders(cfg *config.Config) []provider.Provider {
	var providers []provider.Provider

	// Finnhub first: highest free-tier rate limit
	if cfg.API.Finnhub.Key != "" {
		providers = append(providers, provider.NewFinnhubProvider(cfg.API.Finnhub.Key, cfg.API.Finnhub.RateLimit))
	}

	if cfg.API.AlphaVantage.Key != "" {
		providers = append(providers, provider.NewAlphaVantageProvider(cfg.API.AlphaVantage.Key, cfg.API.AlphaVantage.RateLimit))
	}

	// Yahoo needs no key and backstops the keyed providers
	providers = append(providers, provider.NewYahooProvider(cfg.API.Yahoo.RateLimit))

	return providers
}

func interruptibleContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted. Stopping...")
		cancel()
	}()

	return ctx, cancel
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, p, err := setup()
	if err != nil {
		return err
	}

	var syms []string
	if symbolList != "" {
		for _, s := range strings.Split(symbolList, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				syms = append(syms, s)
			}
		}
	} else {
		syms = symbols.GetUniverse(symbols.Universe(universe))
		if syms == nil {
			return fmt.Errorf("unknown universe %q", universe)
		}
	}
	if len(syms) == 0 {
		return fmt.Errorf("no symbols to scan")
	}

	ctx, cancel := interruptibleContext()
	defer cancel()

	fmt.Printf("Scanning %d symbols...\n\n", len(syms))

	s := scanner.NewScanner(analyzer.New(p, cfg), cfg.Scanner)

	bar := newProgressBar(len(syms))
	s.SetProgressCallback(func(scanned, total int) {
		bar.Set(scanned)
	})

	result, err := s.Scan(ctx, syms)
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}

	bar.Finish()
	fmt.Println()

	if format == "json" {
		return outputJSON(result)
	}
	return outputScanTable(result)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, p, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := interruptibleContext()
	defer cancel()

	symbol := strings.ToUpper(args[0])
	analysis, err := analyzer.New(p, cfg).AnalyzeSetup(ctx, symbol)
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", symbol, err)
	}

	if format == "json" {
		return outputJSON(analysis)
	}

	printAnalysis(analysis)
	return nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, p, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := interruptibleContext()
	defer cancel()

	symbol := strings.ToUpper(args[0])
	fmt.Printf("Searching historical patterns similar to %s...\n\n", symbol)

	m := history.NewMatcher(p, cfg.Matcher)
	matches, err := m.FindMatches(ctx, symbol)
	if err != nil {
		return fmt.Errorf("matching %s: %w", symbol, err)
	}
	report := m.Report(matches)

	if format == "json" {
		return outputJSON(map[string]interface{}{
			"symbol":  symbol,
			"matches": matches,
			"report":  report,
		})
	}

	return outputMatchTable(symbol, matches, report)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, p, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := interruptibleContext()
	defer cancel()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	a := analyzer.New(p, cfg)
	sc := scanner.NewScanner(a, cfg.Scanner)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(ctx, sc, st, cfg.Scheduler)
		if mp, ok := p.(provider.MoverProvider); ok {
			sched.SetMoverSource(mp)
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer sched.Stop()
	}

	srv := web.NewServer(cfg, a, history.NewMatcher(p, cfg.Matcher), sc, sched, st)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Web.TokenSecret == "" {
		return fmt.Errorf("no token secret configured (set web.token_secret or CANDLECAST_TOKEN_SECRET)")
	}

	srv := web.NewServer(cfg, nil, nil, nil, nil, nil)
	token, expiresAt, err := srv.MintToken()
	if err != nil {
		return fmt.Errorf("minting token: %w", err)
	}

	if format == "json" {
		return outputJSON(map[string]interface{}{
			"token":      token,
			"expires_at": expiresAt,
		})
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "Expires: %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func outputScanTable(result *model.ScanResult) error {
	if result.Matches == 0 {
		fmt.Println("No setups found.")
		fmt.Printf("Scanned %d symbols in %s\n", result.TotalScanned, result.ScanTime.Round(time.Second))
		return nil
	}

	fmt.Printf("Found %d setups:\n\n", result.Matches)

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "Price", "Pattern", "RSI", "Vol Surge", "Score", "Confidence"}),
	)

	for _, r := range result.Results {
		table.Append([]string{
			r.Symbol,
			fmt.Sprintf("$%.2f", r.Indicators.Price),
			string(r.Pattern),
			fmt.Sprintf("%.1f", r.Indicators.RSI),
			fmt.Sprintf("%+.0f%%", r.Indicators.VolumeSurge),
			fmt.Sprintf("%.1f", r.Score.Value),
			r.Score.Confidence,
		})
	}

	table.Render()

	// Narratives for the top setups
	count := 0
	for _, r := range result.Results {
		if count >= 5 {
			break
		}
		fmt.Printf("\n[%s] %s\n", r.Symbol, r.Narrative)
		count++
	}

	fmt.Printf("\nScanned %d symbols in %s\n", result.TotalScanned, result.ScanTime.Round(time.Second))
	return nil
}

func printAnalysis(a *model.Analysis) {
	fmt.Printf("[%s] $%.2f (%+.2f%%)\n\n", a.Symbol, a.Indicators.Price, a.Indicators.DailyChange)
	fmt.Printf("  Pattern:   %s\n", a.Pattern)
	fmt.Printf("  RSI(14):   %.1f\n", a.Indicators.RSI)
	fmt.Printf("  SMA20:     $%.2f (%+.1f%%)\n", a.Indicators.SMA20, a.Indicators.PriceVsSMA20)
	fmt.Printf("  SMA50:     $%.2f\n", a.Indicators.SMA50)
	fmt.Printf("  Volume:    %+.0f%% vs 20-day avg\n", a.Indicators.VolumeSurge)
	fmt.Printf("  Momentum:  %+.2f%%/day\n", a.Indicators.Momentum)
	fmt.Printf("  Fib pos:   %.0f\n", a.Indicators.FibonacciPos)
	fmt.Printf("  MACD:      %s\n", a.Indicators.MACD)

	fmt.Printf("\n  Confidence: %.1f [%s]", a.Score.Value, strings.ToUpper(a.Score.Confidence))
	if a.Score.Boosted {
		fmt.Print(" (boosted)")
	}
	if a.Score.Penalized {
		fmt.Print(" (penalized)")
	}
	fmt.Println()

	if verbose {
		for _, f := range a.Score.Breakdown {
			fmt.Printf("    %-10s %5.1f x %.2f = %5.2f\n", f.Name, f.Score, f.Weight, f.Contribution)
		}
	}

	fmt.Printf("\n  %s\n", a.Narrative)
}

func outputMatchTable(symbol string, matches []model.HistoricalMatch, report model.MatchReport) error {
	if len(matches) == 0 {
		fmt.Printf("No historical matches found for %s.\n", symbol)
		return nil
	}

	fmt.Printf("Found %d matches:\n\n", len(matches))

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "Date Range", "Composite", "Confidence", "Outcome", "Return"}),
	)

	for _, m := range matches {
		table.Append([]string{
			m.Symbol,
			m.DateRange,
			fmt.Sprintf("%.2f", m.CompositeScore),
			m.Confidence,
			strings.ReplaceAll(m.Outcome.Category, "_", " "),
			fmt.Sprintf("%+.1f%%", m.Outcome.TotalReturn),
		})
	}

	table.Render()

	fmt.Printf("\nMost likely outcome: %s (%.0f%% of matches)\n",
		strings.ReplaceAll(report.MostLikelyOutcome, "_", " "),
		report.OutcomeStats[report.MostLikelyOutcome].Probability*100)
	fmt.Printf("Average composite:   %.2f\n", report.AvgComposite)
	fmt.Printf("High confidence:     %d of %d\n", report.HighConfidence, report.TotalMatches)
	return nil
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
