package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"ragspider/internal/model"
)

// maxFailuresShown caps the failure list in non-verbose output.
// A crawl of a broken site can fail on hundreds of pages; the terminal
// summary shows the first few and a count, the verbose flag shows all.
const maxFailuresShown = 10

// summaryDurationUnit is the rounding granularity for the displayed
// crawl duration. Sub-second precision is noise at crawl time scales.
const summaryDurationUnit = time.Second

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display at the end of a crawl.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose lifts the failure list cap.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output listing every failure.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.CrawlSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, summary)
	w.writeHosts(&sb, summary)
	w.writeFailures(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the summary header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.CrawlSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                            CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	for i, seed := range summary.Seeds {
		if i == 0 {
			sb.WriteString(fmt.Sprintf("Seeds:      %s\n", seed))
		} else {
			sb.WriteString(fmt.Sprintf("            %s\n", seed))
		}
	}
	sb.WriteString(fmt.Sprintf("Started:    %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", summary.Duration().Round(summaryDurationUnit)))

	if summary.Interrupted {
		sb.WriteString("Status:     INTERRUPTED (partial results)\n")
	} else {
		sb.WriteString("Status:     Complete\n")
	}

	sb.WriteString("\n")
}

// writeCounts writes the page count section.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, summary *model.CrawlSummary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  STORED:     %d\n", summary.PagesStored))
	sb.WriteString(fmt.Sprintf("  FAILED:     %d\n", summary.PagesFailed))
	sb.WriteString(fmt.Sprintf("  SKIPPED:    %d (robots.txt)\n", summary.PagesSkipped))
	sb.WriteString(fmt.Sprintf("  DISCOVERED: %d links\n", summary.LinksDiscovered))
	sb.WriteString("\n")
}

// writeHosts writes the per-host page counts, sorted by host name.
func (w *SimpleWriter) writeHosts(sb *strings.Builder, summary *model.CrawlSummary) {
	if len(summary.HostPages) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES PER HOST\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(summary.HostPages) == 0 {
		sb.WriteString("  No pages stored\n")
	} else {
		for _, host := range sortedHosts(summary.HostPages) {
			sb.WriteString(fmt.Sprintf("  %-40s %d\n", host, summary.HostPages[host]))
		}
	}
	sb.WriteString("\n")
}

// writeFailures writes the failure list, capped unless verbose.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, summary *model.CrawlSummary) {
	if len(summary.Failures) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILURES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(summary.Failures) == 0 {
		sb.WriteString("  No failures\n\n")
		return
	}

	shown := summary.Failures
	if !w.verbose && len(shown) > maxFailuresShown {
		shown = shown[:maxFailuresShown]
	}

	for _, failure := range shown {
		sb.WriteString(fmt.Sprintf("  * %s\n", failure.URL))
		sb.WriteString(fmt.Sprintf("    Reason: %s\n", failure.Reason))
	}

	if hidden := len(summary.Failures) - len(shown); hidden > 0 {
		sb.WriteString(fmt.Sprintf("  ... and %d more (use --verbose to list all)\n", hidden))
	}
	sb.WriteString("\n")
}

// writeFooter writes the summary footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// sortedHosts returns the host names in lexical order for stable output.
func sortedHosts(hostPages map[string]int) []string {
	hosts := make([]string, 0, len(hostPages))
	for host := range hostPages {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}
