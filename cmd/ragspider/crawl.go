package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ragspider/internal/config"
	"ragspider/internal/crawler"
	"ragspider/internal/database"
	"ragspider/internal/log"
	"ragspider/internal/model"
	"ragspider/internal/render"
	"ragspider/internal/report"
	"ragspider/internal/robots"
	"ragspider/internal/sink"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl a website and store one JSON record per page",
		Long: `Crawl renders each page of a website in a headless Chromium browser,
waits until the client-side content settles, and stores one JSON record
per page under the output directory. The directory hierarchy mirrors the
site's URL structure, ready for RAG ingestion.

Crawls never leave the seed's domain. The www variant of a bare domain
counts as the same site; everything else is skipped.

Examples:
  # Crawl a site into ./output
  ragspider crawl https://integreat.app/wichtige-aemter

  # Crawl several entry points of the same site
  ragspider crawl https://example.com/docs https://example.com/blog

  # Crawl the URLs listed in a batch file
  ragspider crawl --input urls.json

  # Four pages at a time, at most 200 pages, one second between fetches
  ragspider crawl --workers 4 --max-pages 200 --delay 1s https://example.com

  # Slow site: wait longer before and during content probing
  ragspider crawl --initial-delay 5s --max-wait 30s https://example.com

  # Write a markdown crawl report next to the corpus
  ragspider crawl --markdown --report report.md https://example.com

Batch file format (JSON):
  {
    "urls": [
      "https://example.com/docs",
      "https://example.com/blog"
    ]
  }`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Seed flags
	cmd.Flags().StringP("input", "i", "",
		"JSON batch file with seed URLs ({\"urls\": [...]})")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Root directory for page records")

	// Crawl behavior flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of pages rendered concurrently")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl (0 = unlimited)")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Minimum spacing between page fetches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Rendering budget for a single page")

	// Readiness flags
	cmd.Flags().Duration("initial-delay", config.DefaultInitialDelay,
		"Wait before the first content probe")
	cmd.Flags().Duration("poll-interval", config.DefaultPollInterval,
		"Spacing between content probes")
	cmd.Flags().Duration("max-wait", config.DefaultMaxWait,
		"Total content probing budget per page")
	cmd.Flags().Int("text-threshold", config.DefaultTextThreshold,
		"Body text length that marks a page as rendered")
	cmd.Flags().Duration("settle-delay", config.DefaultSettleDelay,
		"Pause after readiness before capturing the page")

	// Browser flags
	cmd.Flags().Bool("scroll", false,
		"Scroll to the bottom of each page to trigger lazy loading")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"Browser identity sent with every request")
	cmd.Flags().Bool("no-stealth", false,
		"Disable headless-detection masking")
	cmd.Flags().Bool("no-block-resources", false,
		"Load images, fonts, and media during rendering")

	// Politeness flags
	cmd.Flags().Bool("ignore-robots", false,
		"Crawl URLs even when robots.txt disallows them")

	// Ledger flags
	cmd.Flags().Bool("no-db", false,
		"Do not record pages and runs in the crawl history database")
	cmd.Flags().String("db-dir", "",
		"Directory for the crawl history database (default: XDG data dir)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ragspider in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON crawl summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown crawl summary (mutually exclusive with --json)")
	cmd.Flags().String("report", "",
		"Write the crawl summary to specified file path instead of stdout")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	cfg.Verbose = getVerboseFlag(cmd)
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, finishing in-flight pages...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildCrawlConfig creates a Config from cobra command flags.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.SeedFile, err = cmd.Flags().GetString("input")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.Delay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.InitialDelay, err = cmd.Flags().GetDuration("initial-delay")
	if err != nil {
		return nil, err
	}

	cfg.PollInterval, err = cmd.Flags().GetDuration("poll-interval")
	if err != nil {
		return nil, err
	}

	cfg.MaxWait, err = cmd.Flags().GetDuration("max-wait")
	if err != nil {
		return nil, err
	}

	cfg.TextThreshold, err = cmd.Flags().GetInt("text-threshold")
	if err != nil {
		return nil, err
	}

	cfg.SettleDelay, err = cmd.Flags().GetDuration("settle-delay")
	if err != nil {
		return nil, err
	}

	cfg.Scroll, err = cmd.Flags().GetBool("scroll")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	noStealth, err := cmd.Flags().GetBool("no-stealth")
	if err != nil {
		return nil, err
	}
	cfg.Stealth = !noStealth

	noBlock, err := cmd.Flags().GetBool("no-block-resources")
	if err != nil {
		return nil, err
	}
	cfg.BlockResources = !noBlock

	ignoreRobots, err := cmd.Flags().GetBool("ignore-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobots = !ignoreRobots

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	cfg.DBDir, err = cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("report")
	if err != nil {
		return nil, err
	}

	// Get positional arguments (seed URLs) plus batch file entries
	cfg.Seeds = args
	if cfg.SeedFile != "" {
		batch, err := config.LoadSeedList(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		cfg.Seeds = append(cfg.Seeds, batch...)
	}

	applySiteOverrides(cfg)

	return cfg, nil
}

// applySiteOverrides folds per-site settings from the config file into
// the crawl configuration. The overrides come from the host of the first
// seed: a crawl is same-site by design, so later seeds share that host
// or its www variant.
func applySiteOverrides(cfg *config.Config) {
	if cfg.SiteConfigs == nil || len(cfg.Seeds) == 0 {
		return
	}

	seed, err := url.Parse(cfg.Seeds[0])
	if err != nil {
		return
	}

	site := cfg.SiteConfigs.GetSiteConfig(crawler.NormalizeHost(seed.Hostname()))

	if site.TextThreshold > 0 {
		cfg.TextThreshold = site.TextThreshold
	}
	if site.InitialDelaySeconds > 0 {
		cfg.InitialDelay = time.Duration(site.InitialDelaySeconds) * time.Second
	}
	if site.MaxWaitSeconds > 0 {
		cfg.MaxWait = time.Duration(site.MaxWaitSeconds) * time.Second
	}
	if site.DelaySeconds > 0 {
		cfg.Delay = time.Duration(site.DelaySeconds) * time.Second
	}
	if site.Scroll != nil {
		cfg.Scroll = *site.Scroll
	}
	if site.UserAgent != "" {
		cfg.UserAgent = site.UserAgent
	}
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"output", cfg.OutputDir,
		"workers", cfg.Workers,
		"maxPages", cfg.MaxPages,
		"saveToDB", cfg.SaveToDB,
	)

	// Open the ledger when enabled. Ledger trouble never stops a crawl:
	// the JSON corpus on disk is the primary output.
	var ledger *database.Ledger
	if cfg.SaveToDB {
		var err error
		ledger, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("crawl history disabled: ledger could not be opened",
				"dir", cfg.DBDir, "error", err)
			ledger = nil
		} else {
			defer ledger.Close()
			logger.Info("ledger opened", "dir", cfg.DBDir)
		}
	}

	renderer, err := render.NewRodRenderer(
		render.WithUserAgent(cfg.UserAgent),
		render.WithViewport(cfg.ViewportWidth, cfg.ViewportHeight),
		render.WithStealth(cfg.Stealth),
		render.WithResourceBlocking(cfg.BlockResources),
		render.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := renderer.Close(); err != nil {
			logger.Error("failed to close browser", "error", err)
		}
	}()

	fileSink := sink.NewFileSink(cfg.OutputDir, sink.WithLogger(logger))

	opts := []crawler.Option{
		crawler.WithWorkers(cfg.Workers),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithDelay(cfg.Delay),
		crawler.WithWaitSettings(render.WaitSettings{
			InitialDelay:  cfg.InitialDelay,
			PollInterval:  cfg.PollInterval,
			MaxWait:       cfg.MaxWait,
			TextThreshold: cfg.TextThreshold,
			SettleDelay:   cfg.SettleDelay,
		}),
		crawler.WithRenderTimeout(cfg.Timeout),
		crawler.WithScroll(cfg.Scroll),
		crawler.WithLogger(logger),
	}
	if ledger != nil {
		opts = append(opts, crawler.WithLedger(ledger))
	}
	if cfg.RespectRobots {
		opts = append(opts, crawler.WithAccessPolicy(robots.New(
			robots.WithUserAgent(cfg.UserAgent),
			robots.WithLogger(logger),
		)))
	}

	frontier := crawler.NewFrontier(renderer, fileSink, opts...)
	if err := frontier.Seed(cfg.Seeds...); err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}

	fmt.Printf("Crawling %s...\n", strings.Join(cfg.Seeds, ", "))
	startTime := time.Now()

	summary, crawlErr := frontier.Crawl(ctx)
	if crawlErr != nil {
		if errors.Is(crawlErr, context.Canceled) {
			logger.Info("crawl interrupted; writing partial results")
		} else {
			logger.Error("crawl aborted", "error", crawlErr)
		}
	}

	elapsed := time.Since(startTime)
	fmt.Printf("Crawl finished in %s\n", elapsed.Round(time.Second))

	if summary != nil {
		if err := outputSummary(cfg, summary); err != nil {
			logger.Error("failed to write summary", "error", err)
		}
		// The signal that stopped the crawl also cancelled ctx; the run
		// row should be written regardless.
		if err := recordRun(context.WithoutCancel(ctx), ledger, summary, logger); err != nil {
			logger.Warn("failed to record run in ledger", "error", err)
		}
	}

	if crawlErr != nil && !errors.Is(crawlErr, context.Canceled) {
		return crawlErr
	}
	return nil
}

// outputSummary outputs the crawl summary in the requested format.
func outputSummary(cfg *config.Config, summary *model.CrawlSummary) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(summary)
	return err
}

// recordRun saves the run summary to the ledger if enabled.
// If ledger is nil, this function is a no-op.
func recordRun(ctx context.Context, ledger *database.Ledger, summary *model.CrawlSummary, logger *slog.Logger) error {
	if ledger == nil {
		return nil
	}

	if err := ledger.RecordRun(ctx, summary); err != nil {
		return err
	}

	logger.Info("run recorded in ledger", "pagesStored", summary.PagesStored)
	return nil
}
