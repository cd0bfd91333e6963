// Package main provides the entry point for the ragspider CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for ragspider.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragspider",
		Short: "Headless-browser crawler that builds RAG corpora from websites",
		Long: `ragspider crawls JavaScript-heavy websites with a headless browser and
stores one clean JSON record per page, building text corpora for
retrieval-augmented generation.

Pages are rendered in Chromium until their client-side content settles,
then stripped to plain text and written to a directory tree that mirrors
the site's URL structure. Crawls stay on the seed's domain.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
