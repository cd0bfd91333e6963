package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ragspider/internal/config"
	"ragspider/internal/database"
)

// NewHistoryCmd creates the history command.
// This command lists past crawl runs and stored pages from the ledger.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [domain]",
		Short: "Show crawl history from the ledger",
		Long: `History lists past crawl runs recorded in the ledger database.

Without arguments it shows the most recent runs: when they started, how
long they took, and how many pages were stored, failed, or skipped.
With a domain argument it lists the stored pages of that domain
instead, newest first.

Examples:
  # Show the ten most recent crawl runs
  ragspider history

  # Show the last three runs
  ragspider history --limit 3

  # List all stored pages of a domain
  ragspider history integreat.app

  # Output run history in JSON format
  ragspider history --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 10,
		"Maximum number of runs to show (0 = all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output history in JSON format")
	cmd.Flags().String("db-dir", "",
		"Directory of the crawl history database (default: XDG data dir)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	ledger, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ledger.Close()

	ctx := context.Background()

	if len(args) > 0 {
		// The ledger stores the lowercased host exactly as crawled, www
		// included, so only case is folded here.
		return listDomainPages(ctx, ledger, strings.ToLower(args[0]), jsonOutput)
	}
	return listRuns(ctx, ledger, limit, jsonOutput)
}

// listRuns prints the most recent crawl runs, newest first.
func listRuns(ctx context.Context, ledger *database.Ledger, limit int, jsonOutput bool) error {
	runs, err := ledger.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No crawl runs found in the ledger.")
		fmt.Println("\nUse 'ragspider crawl <url>' to crawl a site.")
		return nil
	}

	fmt.Printf("Recent crawl runs (%d):\n\n", len(runs))
	fmt.Printf("  %-6s  %-20s  %-9s  %-7s  %-7s  %-7s  %s\n",
		"ID", "Started", "Duration", "Stored", "Failed", "Skipped", "Seeds")
	fmt.Println("  " + strings.Repeat("-", 90))

	for _, run := range runs {
		status := ""
		if run.Interrupted {
			status = " (interrupted)"
		}
		fmt.Printf("  %-6d  %-20s  %-9s  %-7d  %-7d  %-7d  %s%s\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second),
			run.PagesStored,
			run.PagesFailed,
			run.PagesSkipped,
			strings.Join(run.Seeds, ", "),
			status,
		)
	}

	fmt.Println("\nUse 'ragspider history <domain>' to list the stored pages of a domain.")

	return nil
}

// listDomainPages prints the stored pages of a single domain, newest
// fetch first.
func listDomainPages(ctx context.Context, ledger *database.Ledger, domain string, jsonOutput bool) error {
	pages, err := ledger.PagesForDomain(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to list pages: %w", err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(pages)
	}

	if len(pages) == 0 {
		fmt.Printf("No stored pages found for %s\n", domain)
		fmt.Println("\nUse 'ragspider crawl <url>' to crawl this site.")
		return nil
	}

	fmt.Printf("Stored pages for %s (%d):\n\n", domain, len(pages))
	fmt.Printf("  %-20s  %-5s  %-7s  %s\n", "Fetched", "Lang", "Chars", "URL")
	fmt.Println("  " + strings.Repeat("-", 76))

	for _, page := range pages {
		lang := page.Language
		if lang == "" {
			lang = "-"
		}
		fmt.Printf("  %-20s  %-5s  %-7d  %s\n",
			page.FetchedAt.Format("2006-01-02 15:04:05"),
			lang,
			page.TextLength,
			page.URL,
		)
	}

	fmt.Println("\nRecords live under the output directory of the run that stored them.")

	return nil
}
