// Command scanner runs the daily watchlist screen: it fetches bar
// history cache-first, evaluates the pullback/breakout rules and writes
// ranked candidate reports. It can run once, inspect or prune the bar
// cache, list recent runs, or stay resident on a cron schedule.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"TrendScout/internal/config"
	"TrendScout/internal/fetcher"
	"TrendScout/internal/orchestrator"
	"TrendScout/internal/report"
	"TrendScout/internal/runlog"
	"TrendScout/internal/scanner"
	"TrendScout/internal/scheduler"
	"TrendScout/internal/store"
)

func main() {
	var (
		configPath   = flag.String("config", "config.yaml", "path to config file")
		watchlist    = flag.String("watchlist", "watchlist.txt", "path to symbols file, one per line")
		symbolsFlag  = flag.String("symbols", "", "comma-separated symbols overriding the watchlist")
		outDir       = flag.String("out", "", "output directory override")
		refresh      = flag.Bool("refresh", false, "bypass cache freshness and refetch every symbol")
		limit        = flag.Int("limit", 0, "report at most this many candidates (0 = all)")
		scheduleMode = flag.Bool("schedule", false, "stay resident and scan on the configured cron schedule")
		pruneSymbols = flag.Int("prune-max-symbols", 0, "cache-prune: keep at most this many symbols (0 = no limit)")
		pruneBytes   = flag.Int64("prune-max-bytes", 0, "cache-prune: shrink the database under this size (0 = no limit)")
		prunePolicy  = flag.String("prune-policy", store.PruneByLastFetched,
			"cache-prune: eviction order, last_fetched or last_accessed")
	)
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] invalid config: %v", err)
	}

	barStore, err := store.NewSQLiteStore(cfg.Store.SQLitePath)
	if err != nil {
		log.Fatalf("[FATAL] open bar store: %v", err)
	}
	defer barStore.Close()

	switch flag.Arg(0) {
	case "cache-info":
		if err := printCacheInfo(barStore); err != nil {
			log.Fatalf("[FATAL] cache-info: %v", err)
		}
		return
	case "cache-prune":
		removed, err := barStore.Prune(*pruneSymbols, *pruneBytes, *prunePolicy)
		if err != nil {
			log.Fatalf("[FATAL] cache-prune: %v", err)
		}
		fmt.Printf("pruned %d symbols: %s\n", len(removed), strings.Join(removed, ", "))
		return
	case "runs":
		if err := printRecentRuns(cfg, *limit); err != nil {
			log.Fatalf("[FATAL] runs: %v", err)
		}
		return
	case "":
	default:
		log.Fatalf("[FATAL] unknown command %q (expected cache-info, cache-prune or runs)", flag.Arg(0))
	}

	symbols, err := resolveSymbols(*symbolsFlag, *watchlist)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	if len(symbols) == 0 {
		log.Fatalf("[FATAL] no symbols to scan")
	}

	src, err := newFetcher(cfg)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	freshness := time.Duration(cfg.Store.FreshnessSeconds) * time.Second
	if *refresh {
		freshness = 0
	}
	orch := orchestrator.New(barStore, src, orchestrator.Options{
		Freshness:   freshness,
		MaxAttempts: cfg.Fetch.MaxAttempts,
		BackoffBase: time.Duration(cfg.Fetch.BackoffBaseMS) * time.Millisecond,
		BackoffMax:  time.Duration(cfg.Fetch.BackoffMaxMS) * time.Millisecond,
		MinInterval: time.Duration(cfg.Fetch.RateLimitMS) * time.Millisecond,
	})
	scn := scanner.New(orch, cfg)

	runs, err := runlog.Open(runLogPath(cfg))
	if err != nil {
		log.Fatalf("[FATAL] open run log: %v", err)
	}
	defer runs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("[INFO] trendscout starting: provider=%s symbols=%d workers=%d",
		src.Name(), len(symbols), cfg.Scan.Workers)

	if *scheduleMode {
		sched := scheduler.New()
		err := sched.Schedule(cfg.Schedule.ScanCron, "scan", func() {
			if err := runScan(ctx, scn, runs, cfg, symbols, *limit); err != nil {
				log.Printf("[ERROR] scheduled scan: %v", err)
			}
		})
		if err != nil {
			log.Fatalf("[FATAL] %v", err)
		}
		sched.Start()
		<-ctx.Done()
		sched.Stop()
		return
	}

	if err := runScan(ctx, scn, runs, cfg, symbols, *limit); err != nil {
		log.Printf("[ERROR] scan: %v", err)
		os.Exit(1)
	}
}

// resolveSymbols prefers the -symbols override over the watchlist file.
func resolveSymbols(symbolsFlag, watchlistPath string) ([]string, error) {
	if symbolsFlag != "" {
		var symbols []string
		for _, s := range strings.Split(symbolsFlag, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, strings.ToUpper(s))
			}
		}
		return symbols, nil
	}
	return config.LoadWatchlist(watchlistPath)
}

func newFetcher(cfg *config.Config) (fetcher.Fetcher, error) {
	switch cfg.DataSource.Provider {
	case "yahoo":
		return fetcher.NewYahooFetcher(cfg.Proxy), nil
	case "rest":
		return fetcher.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy), nil
	case "mock":
		return &fetcher.MockFetcher{}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.DataSource.Provider)
	}
}

func runLogPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.Store.SQLitePath), "runs.db")
}

// runScan executes one full scan, writes the reports and records the
// run. The run is recorded even when it fails partway.
func runScan(ctx context.Context, scn *scanner.Scanner, runs *runlog.Log,
	cfg *config.Config, symbols []string, limit int) error {

	runID := runlog.NewRunID(time.Now())
	log.Printf("[INFO] run %s: scanning %d symbols", runID, len(symbols))

	res, runErr := scn.Run(ctx, symbols)

	status := runlog.StatusOK
	detail := ""
	switch {
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		status = runlog.StatusCancelled
		detail = runErr.Error()
	case runErr != nil:
		status = runlog.StatusFailed
		detail = runErr.Error()
	}

	if limit > 0 && len(res.Candidates) > limit {
		res.Candidates = res.Candidates[:limit]
	}

	var csvPath, jsonPath string
	if status == runlog.StatusOK {
		var err error
		csvPath, jsonPath, err = report.NewWriter(cfg.Output.Dir).Write(&report.Summary{
			RunID:       runID,
			GeneratedAt: res.Finished.UTC(),
			Scanned:     res.Scanned,
			Candidates:  res.Candidates,
			Skips:       res.Skips,
		})
		if err != nil {
			status = runlog.StatusFailed
			detail = err.Error()
			runErr = err
		}
	}

	if err := runs.Record(runlog.Run{
		ID:         runID,
		StartedAt:  res.Started,
		FinishedAt: res.Finished,
		Status:     status,
		Scanned:    res.Scanned,
		Candidates: len(res.Candidates),
		Skipped:    len(res.Skips),
		CSVPath:    csvPath,
		JSONPath:   jsonPath,
		Detail:     detail,
	}); err != nil {
		log.Printf("[WARN] record run %s: %v", runID, err)
	}
	if runErr != nil {
		return runErr
	}

	log.Printf("[INFO] run %s done in %v: %d candidates, %d skipped, reports in %s",
		runID, res.Finished.Sub(res.Started).Round(time.Millisecond),
		len(res.Candidates), len(res.Skips), cfg.Output.Dir)
	for _, c := range res.Candidates {
		fmt.Printf("%-8s %s close=%.2f rsi=%.1f score=%3d %s\n",
			c.Symbol, c.Date.Format("2006-01-02"), c.Close, c.RSI14, c.Score,
			strings.Join(c.ReasonTags, ","))
	}
	return nil
}

func printCacheInfo(s *store.SQLiteStore) error {
	st, err := s.GetStats()
	if err != nil {
		return err
	}
	fmt.Printf("bar cache: %s\n", st.Path)
	fmt.Printf("  symbols: %d\n", st.TotalSymbols)
	fmt.Printf("  rows:    %d\n", st.TotalRows)
	fmt.Printf("  size:    %s\n", humanize.Bytes(uint64(st.SizeBytes)))
	return nil
}

func printRecentRuns(cfg *config.Config, limit int) error {
	runs, err := runlog.Open(runLogPath(cfg))
	if err != nil {
		return err
	}
	defer runs.Close()

	recent, err := runs.Recent(limit)
	if err != nil {
		return err
	}
	for _, r := range recent {
		fmt.Printf("%-20s %-9s started=%s took=%v scanned=%d candidates=%d skipped=%d\n",
			r.ID, r.Status, r.StartedAt.Format(time.RFC3339),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.Scanned, r.Candidates, r.Skipped)
	}
	return nil
}
