package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pevans/coinscrape/article"
	"github.com/pevans/coinscrape/browser"
	"github.com/pevans/coinscrape/config"
	"github.com/pevans/coinscrape/extract"
	"github.com/pevans/coinscrape/listing"
	"github.com/pevans/coinscrape/logging"
	"github.com/pevans/coinscrape/scrape"
	"github.com/pevans/coinscrape/scraper"
	"github.com/pevans/coinscrape/store"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one scrape and returns the process exit code: 2 for bad
// arguments, 1 for a failed run.
func run(args []string) int {
	start := time.Now()

	opts, err := parseArgs(args)
	if errors.Is(err, flag.ErrHelp) {
		printUsage()
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage()
		return 2
	}

	cfg, err := config.Load(opts.configPath, os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 2
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return 2
	}

	loc, err := cfg.Scrape.Location()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	stop, err := opts.stopCondition(time.Now().In(loc))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage()
		return 2
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx := context.Background()
	if err := scrapeCategory(ctx, cfg, opts, stop, loc); err != nil {
		slog.ErrorContext(ctx, "scrape failed", "error", err, "elapsed", time.Since(start).Round(time.Millisecond))
		return 1
	}

	slog.InfoContext(ctx, "scrape finished", "elapsed", time.Since(start).Round(time.Millisecond))
	return 0
}

// scrapeCategory wires the store, lister and extractor for one run and
// records the run in the run log.
func scrapeCategory(ctx context.Context, cfg *config.Config, opts *options, stop article.StopCondition, loc *time.Location) error {
	startURL, err := scraper.CategoryURL(cfg.Scrape.BaseURL, opts.category)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	persister, err := store.NewPersister(st, cfg.Scrape.BatchSize)
	if err != nil {
		return err
	}

	lister, closeLister, err := newLister(ctx, cfg.Scrape, loc)
	if err != nil {
		return err
	}
	defer closeLister()

	extractor := extract.NewExtractor(extract.Config{
		Concurrency:       cfg.Scrape.Concurrency,
		RequestsPerSecond: cfg.Scrape.RequestsPerSecond,
		Timeout:           cfg.Scrape.FetchTimeout,
		UserAgent:         extract.DefaultConfig().UserAgent,
		Article:           scraper.NewArticleConfig(),
	})

	var out io.Writer = os.Stdout
	if opts.quiet {
		out = nil
	}
	svc := scrape.NewService(lister, extractor, persister, scrape.Config{BatchSize: cfg.Scrape.BatchSize}, out)

	runID, err := st.BeginRun(ctx, opts.category, stop)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "scrape started", "run", runID, "category", opts.category, "stop", stop.String(), "url", startURL)

	result, runErr := svc.Run(ctx, startURL, stop)

	status := store.RunSucceeded
	if runErr != nil {
		status = store.RunFailed
	}
	stats := store.RunStats{Saved: result.Saved, Duplicates: result.Duplicates}
	if err := st.FinishRun(ctx, runID, stats, status); err != nil {
		slog.WarnContext(ctx, "failed to record run result", "run", runID, "error", err)
	}
	if runErr != nil {
		return runErr
	}

	slog.InfoContext(ctx, "scrape summary",
		"listed", result.Listed,
		"extracted", result.Extracted,
		"saved", result.Saved,
		"duplicates", result.Duplicates,
		"batches", result.Batches,
		"stopped_early", result.Stopped,
	)
	return nil
}

// newLister returns the configured listing source and a function releasing
// it.
func newLister(ctx context.Context, cfg config.ScrapeConfig, loc *time.Location) (listing.Lister, func(), error) {
	if cfg.Source == config.SourceFeed {
		return listing.NewFeedLister(cfg.FeedURL), func() {}, nil
	}

	chrome, err := browser.NewChrome(ctx, browser.Options{Headless: cfg.IsHeadless()})
	if err != nil {
		return nil, nil, err
	}

	listCfg := scraper.NewListConfig()
	listCfg.RevealTimeout = cfg.RevealTimeout
	listCfg.RevealPause = cfg.RevealPause

	paginator := listing.NewPaginator(chrome, listCfg, loc)
	closeChrome := func() {
		if err := chrome.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close browser", "error", err)
		}
	}
	return listing.NewBrowserLister(chrome, paginator, listCfg), closeChrome, nil
}

func printUsage() {
	fmt.Println("coinscrape - CoinDesk article harvester")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  coinscrape <category> (-num N | -date YYYY-MM-DD) [flags]")
	fmt.Println()
	fmt.Println("Categories:")
	fmt.Printf("  %s\n", strings.Join(scraper.Categories(), ", "))
	fmt.Println()
	fmt.Println("Stop conditions:")
	fmt.Printf("  -num N            Scrape the N most recent articles (1-%d)\n", maxArticles)
	fmt.Printf("  -date YYYY-MM-DD  Scrape articles published after this date (last %d days)\n", maxDaysBack)
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -batch N          Articles per extract and commit batch")
	fmt.Println("  -source NAME      Listing source: browser or feed")
	fmt.Println("  -quiet            Do not print scraped articles")
	fmt.Println("  -log-level LEVEL  debug, info, warn or error")
	fmt.Println("  -config PATH      Config file (default ~/.coinscrape/config.yaml)")
	fmt.Println()
	fmt.Println("Storage flags:")
	fmt.Println("  -driver NAME      sqlite or mysql")
	fmt.Println("  -dsn DSN          sqlite file path or mysql DSN")
	fmt.Println("  -host HOST        Database host")
	fmt.Println("  -u, -username     Database user")
	fmt.Println("  -p, -password     Database password")
	fmt.Println("  -db, -database    Database name")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  COINSCRAPE_DB_DRIVER, COINSCRAPE_DB_DSN, COINSCRAPE_DB_HOST,")
	fmt.Println("  COINSCRAPE_DB_USER, COINSCRAPE_DB_PASSWORD, COINSCRAPE_DB_NAME,")
	fmt.Println("  COINSCRAPE_LOG_LEVEL")
}
