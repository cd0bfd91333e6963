package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ragspider/internal/config"
	"ragspider/internal/database"
	"ragspider/internal/model"
)

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "crawl [url...]" {
			t.Errorf("expected use 'crawl [url...]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has input flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("input")
		if flag == nil {
			t.Fatal("expected input flag")
		}
		if flag.Shorthand != "i" {
			t.Errorf("expected shorthand 'i', got %q", flag.Shorthand)
		}
	})

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.Shorthand != "o" {
			t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
		}
		if flag.DefValue != config.DefaultOutputDir {
			t.Errorf("expected default %q, got %q", config.DefaultOutputDir, flag.DefValue)
		}
	})

	t.Run("has workers flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("workers")
		if flag == nil {
			t.Fatal("expected workers flag")
		}
		if flag.Shorthand != "w" {
			t.Errorf("expected shorthand 'w', got %q", flag.Shorthand)
		}
	})

	t.Run("has max-pages flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("max-pages")
		if flag == nil {
			t.Fatal("expected max-pages flag")
		}
		if flag.Shorthand != "p" {
			t.Errorf("expected shorthand 'p', got %q", flag.Shorthand)
		}
	})

	t.Run("has timeout flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("timeout")
		if flag == nil {
			t.Fatal("expected timeout flag")
		}
		if flag.Shorthand != "t" {
			t.Errorf("expected shorthand 't', got %q", flag.Shorthand)
		}
	})

	t.Run("has readiness flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"initial-delay", "poll-interval", "max-wait", "text-threshold", "settle-delay"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("has browser flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"scroll", "user-agent", "no-stealth", "no-block-resources"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("has ignore-robots flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("ignore-robots")
		if flag == nil {
			t.Fatal("expected ignore-robots flag")
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("has config flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("config")
		if flag == nil {
			t.Fatal("expected config flag")
		}
		if flag.Shorthand != "c" {
			t.Errorf("expected shorthand 'c', got %q", flag.Shorthand)
		}
	})

	t.Run("has json flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("json")
		if flag == nil {
			t.Fatal("expected json flag")
		}
		if flag.Shorthand != "j" {
			t.Errorf("expected shorthand 'j', got %q", flag.Shorthand)
		}
	})

	t.Run("has markdown flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("markdown")
		if flag == nil {
			t.Fatal("expected markdown flag")
		}
		if flag.Shorthand != "m" {
			t.Errorf("expected shorthand 'm', got %q", flag.Shorthand)
		}
	})

	t.Run("has ledger flags", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("no-db") == nil {
			t.Error("expected no-db flag")
		}
		if cmd.Flags().Lookup("db-dir") == nil {
			t.Error("expected db-dir flag")
		}
	})

	t.Run("does not define its own verbose flag", func(t *testing.T) {
		t.Parallel()
		// Verbose is a persistent flag on the root command.
		if cmd.Flags().Lookup("verbose") != nil {
			t.Error("verbose flag should come from the root command")
		}
	})
}

// TestGetVerboseFlag tests the verbose flag retrieval.
func TestGetVerboseFlag(t *testing.T) {
	t.Run("returns false when flag not set", func(t *testing.T) {
		cmd := NewCrawlCmd()
		result := getVerboseFlag(cmd)
		if result {
			t.Error("expected false when flag not set")
		}
	})

	t.Run("returns value from parent verbose flag", func(t *testing.T) {
		root := NewRootCmd()
		// Set verbose flag to true
		_ = root.PersistentFlags().Set("verbose", "true")

		// Get crawl subcommand
		crawlCmd, _, err := root.Find([]string{"crawl"})
		if err != nil {
			t.Fatalf("failed to find crawl command: %v", err)
		}

		result := getVerboseFlag(crawlCmd)
		if !result {
			t.Error("expected true from parent verbose flag")
		}
	})
}

// TestBuildCrawlConfig tests configuration building from flags.
func TestBuildCrawlConfig(t *testing.T) {
	t.Run("builds config with default values", func(t *testing.T) {
		cmd := NewCrawlCmd()
		cfg, err := buildCrawlConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg == nil {
			t.Fatal("expected non-nil config")
		}
		if len(cfg.Seeds) != 1 || cfg.Seeds[0] != "https://example.com" {
			t.Errorf("expected seeds [https://example.com], got %v", cfg.Seeds)
		}
		if cfg.Workers != config.DefaultWorkers {
			t.Errorf("expected workers %d, got %d", config.DefaultWorkers, cfg.Workers)
		}
		if !cfg.RespectRobots {
			t.Error("expected RespectRobots to be true by default")
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true by default")
		}
		if !cfg.Stealth {
			t.Error("expected Stealth to be true by default")
		}
		if !cfg.BlockResources {
			t.Error("expected BlockResources to be true by default")
		}
		if cfg.DBDir == "" {
			t.Error("expected DBDir to default to the XDG data dir")
		}
	})

	t.Run("builds config with custom workers", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("workers", "4")
		cfg, err := buildCrawlConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Workers != 4 {
			t.Errorf("expected workers 4, got %d", cfg.Workers)
		}
	})

	t.Run("builds config with ignore-robots", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("ignore-robots", "true")
		cfg, err := buildCrawlConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.RespectRobots {
			t.Error("expected RespectRobots to be false")
		}
	})

	t.Run("builds config with no-db", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("no-db", "true")
		cfg, err := buildCrawlConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false")
		}
	})

	t.Run("builds config with no-stealth", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("no-stealth", "true")
		cfg, err := buildCrawlConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Stealth {
			t.Error("expected Stealth to be false")
		}
	})

	t.Run("builds config with JSON flag", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("json", "true")
		cfg, err := buildCrawlConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cfg.JSONReport {
			t.Error("expected JSONReport to be true")
		}
	})

	t.Run("builds config with report file", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("report", "/tmp/report.json")
		cfg, err := buildCrawlConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.ReportFile != "/tmp/report.json" {
			t.Errorf("expected ReportFile '/tmp/report.json', got %q", cfg.ReportFile)
		}
	})

	t.Run("builds config with multiple seeds", func(t *testing.T) {
		cmd := NewCrawlCmd()
		cfg, err := buildCrawlConfig(cmd, []string{
			"https://example.com/docs",
			"https://example.com/blog",
			"https://example.com/faq",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.Seeds) != 3 {
			t.Errorf("expected 3 seeds, got %d", len(cfg.Seeds))
		}
	})

	t.Run("appends seeds from batch file", func(t *testing.T) {
		tmpDir := t.TempDir()
		batchPath := filepath.Join(tmpDir, "urls.json")

		content := []byte(`{"urls": ["https://example.com/a", "https://example.com/b"]}`)
		if err := os.WriteFile(batchPath, content, 0o600); err != nil {
			t.Fatalf("failed to write batch file: %v", err)
		}

		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("input", batchPath)
		cfg, err := buildCrawlConfig(cmd, []string{"https://example.com/c"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.Seeds) != 3 {
			t.Fatalf("expected 3 seeds, got %d: %v", len(cfg.Seeds), cfg.Seeds)
		}
		// Positional seeds come first
		if cfg.Seeds[0] != "https://example.com/c" {
			t.Errorf("expected positional seed first, got %v", cfg.Seeds)
		}
	})

	t.Run("returns error for missing batch file", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("input", filepath.Join(t.TempDir(), "missing.json"))
		_, err := buildCrawlConfig(cmd, nil)
		if err == nil {
			t.Fatal("expected error for missing batch file")
		}
	})

	t.Run("builds config with valid config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "ragspider.yaml")

		// Create a valid config file
		content := []byte(`
defaults:
  textThreshold: 300
sites:
  integreat.app:
    delaySeconds: 2
`)
		if err := os.WriteFile(configPath, content, 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("config", configPath)
		cfg, err := buildCrawlConfig(cmd, []string{"https://integreat.app/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SiteConfigs == nil {
			t.Fatal("expected SiteConfigs to be loaded")
		}
		if cfg.SiteConfigs.Defaults.TextThreshold != 300 {
			t.Errorf("expected default textThreshold 300, got %d", cfg.SiteConfigs.Defaults.TextThreshold)
		}
		// Site overrides from the first seed's host fold into the config
		if cfg.TextThreshold != 300 {
			t.Errorf("expected TextThreshold 300 from defaults, got %d", cfg.TextThreshold)
		}
		if cfg.Delay != 2*time.Second {
			t.Errorf("expected Delay 2s from site override, got %s", cfg.Delay)
		}
	})

	t.Run("returns error for invalid config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.yaml")

		// Create an invalid config file
		content := []byte(`{invalid yaml`)
		if err := os.WriteFile(configPath, content, 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("config", configPath)
		_, err := buildCrawlConfig(cmd, []string{"https://example.com"})
		if err == nil {
			t.Fatal("expected error for invalid config file")
		}
	})

	t.Run("returns error for missing explicit config file", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := buildCrawlConfig(cmd, []string{"https://example.com"})
		if err == nil {
			t.Fatal("expected error for missing explicit config file")
		}
		if !strings.Contains(err.Error(), "configuration file not found") {
			t.Errorf("expected 'configuration file not found' error, got %v", err)
		}
	})
}

// TestApplySiteOverrides tests folding per-site settings into the config.
func TestApplySiteOverrides(t *testing.T) {
	t.Parallel()

	t.Run("no-op for nil site configs", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.Seeds = []string{"https://example.com/"}
		before := cfg.TextThreshold

		applySiteOverrides(cfg)

		if cfg.TextThreshold != before {
			t.Errorf("expected TextThreshold unchanged, got %d", cfg.TextThreshold)
		}
	})

	t.Run("no-op without seeds", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.SiteConfigs = &config.File{
			Defaults: config.SiteConfig{TextThreshold: 500},
			Sites:    map[string]config.SiteConfig{},
		}
		before := cfg.TextThreshold

		applySiteOverrides(cfg)

		if cfg.TextThreshold != before {
			t.Errorf("expected TextThreshold unchanged, got %d", cfg.TextThreshold)
		}
	})

	t.Run("www seed matches bare host entry", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.Seeds = []string{"https://www.example.com/"}
		cfg.SiteConfigs = &config.File{
			Sites: map[string]config.SiteConfig{
				"example.com": {InitialDelaySeconds: 5},
			},
		}

		applySiteOverrides(cfg)

		if cfg.InitialDelay != 5*time.Second {
			t.Errorf("expected InitialDelay 5s, got %s", cfg.InitialDelay)
		}
	})

	t.Run("overrides waits and scroll", func(t *testing.T) {
		t.Parallel()
		scroll := true
		cfg := config.NewConfig()
		cfg.Seeds = []string{"https://slow.example/"}
		cfg.SiteConfigs = &config.File{
			Sites: map[string]config.SiteConfig{
				"slow.example": {
					MaxWaitSeconds: 30,
					DelaySeconds:   3,
					Scroll:         &scroll,
				},
			},
		}

		applySiteOverrides(cfg)

		if cfg.MaxWait != 30*time.Second {
			t.Errorf("expected MaxWait 30s, got %s", cfg.MaxWait)
		}
		if cfg.Delay != 3*time.Second {
			t.Errorf("expected Delay 3s, got %s", cfg.Delay)
		}
		if !cfg.Scroll {
			t.Error("expected Scroll to be true")
		}
	})

	t.Run("overrides user agent", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.Seeds = []string{"https://picky.example/"}
		cfg.SiteConfigs = &config.File{
			Sites: map[string]config.SiteConfig{
				"picky.example": {UserAgent: "custom-agent/1.0"},
			},
		}

		applySiteOverrides(cfg)

		if cfg.UserAgent != "custom-agent/1.0" {
			t.Errorf("expected custom user agent, got %q", cfg.UserAgent)
		}
	})
}

// TestOutputSummary tests the summary output functionality.
func TestOutputSummary(t *testing.T) {
	t.Run("outputs JSON summary to file", func(t *testing.T) {
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "report.json")

		cfg := &config.Config{
			JSONReport: true,
			ReportFile: outputPath,
		}

		summary := model.NewCrawlSummary([]string{"https://example.com/"})
		summary.StartedAt = time.Now().Add(-time.Minute)
		summary.FinishedAt = time.Now()
		summary.PagesStored = 2

		err := outputSummary(cfg, summary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Verify file exists
		if _, err := os.Stat(outputPath); os.IsNotExist(err) {
			t.Error("expected output file to be created")
		}

		// Verify JSON content
		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}

		var result map[string]interface{}
		if err := json.Unmarshal(content, &result); err != nil {
			t.Fatalf("failed to parse JSON: %v", err)
		}

		version, ok := result["version"].(string)
		if !ok || version == "" {
			t.Errorf("expected non-empty version field, got %v", result["version"])
		}
		inner, ok := result["summary"].(map[string]interface{})
		if !ok {
			t.Fatalf("expected summary object, got %T", result["summary"])
		}
		if inner["pages_stored"] != float64(2) {
			t.Errorf("expected pages_stored 2, got %v", inner["pages_stored"])
		}
	})

	t.Run("outputs markdown summary to file", func(t *testing.T) {
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "report.md")

		cfg := &config.Config{
			MarkdownReport: true,
			ReportFile:     outputPath,
		}

		summary := model.NewCrawlSummary([]string{"https://example.com/"})

		err := outputSummary(cfg, summary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if !strings.Contains(string(content), "# Crawl Report") {
			t.Error("expected markdown report header")
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "subdir", "nested", "report.json")

		cfg := &config.Config{
			JSONReport: true,
			ReportFile: outputPath,
		}

		summary := model.NewCrawlSummary([]string{"https://example.com/"})

		err := outputSummary(cfg, summary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := os.Stat(outputPath); os.IsNotExist(err) {
			t.Error("expected output file to be created in nested directory")
		}
	})
}

// TestRecordRun tests saving run summaries to the ledger.
func TestRecordRun(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("no-op for nil ledger", func(t *testing.T) {
		t.Parallel()
		summary := model.NewCrawlSummary([]string{"https://example.com/"})
		if err := recordRun(context.Background(), nil, summary, logger); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("records run in ledger", func(t *testing.T) {
		t.Parallel()
		ledger, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open ledger: %v", err)
		}
		defer ledger.Close()

		summary := model.NewCrawlSummary([]string{"https://example.com/"})
		summary.StartedAt = time.Now().Add(-time.Minute)
		summary.FinishedAt = time.Now()
		summary.PagesStored = 7

		if err := recordRun(context.Background(), ledger, summary, logger); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		runs, err := ledger.RecentRuns(context.Background(), 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 run, got %d", len(runs))
		}
		if runs[0].PagesStored != 7 {
			t.Errorf("expected PagesStored 7, got %d", runs[0].PagesStored)
		}
	})
}
