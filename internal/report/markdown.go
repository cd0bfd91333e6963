package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"ragspider/internal/model"
)

// MarkdownWriter outputs crawl summaries in Markdown format.
// This format is designed for documentation and sharing, e.g. committing
// a crawl report next to the generated corpus.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the crawl summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.CrawlSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCounts(md, summary)
	w.writeHosts(md, summary)
	w.writeFailures(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seeds", "`" + strings.Join(summary.Seeds, "`, `") + "`"},
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Duration().Round(summaryDurationUnit).String()},
			{"Status", w.getStatusText(summary)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on the run outcome.
func (w *MarkdownWriter) getStatusText(summary *model.CrawlSummary) string {
	if summary.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	return "✅ Complete"
}

// writeCounts writes the page count section.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H2("Pages")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"🟢 Stored", strconv.Itoa(summary.PagesStored)},
			{"🔴 Failed", strconv.Itoa(summary.PagesFailed)},
			{"⚪ Skipped (robots.txt)", strconv.Itoa(summary.PagesSkipped)},
			{"🔗 Links discovered", strconv.Itoa(summary.LinksDiscovered)},
			{"**Total processed**", "**" + strconv.Itoa(summary.PagesTotal()) + "**"},
		},
	})
	md.PlainText("")

	w.writeAlert(md, summary)
}

// writeAlert writes an appropriate alert based on the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.CrawlSummary) {
	switch {
	case summary.Interrupted:
		md.Warningf(
			"Crawl was interrupted after storing %d page(s); the corpus is partial.",
			summary.PagesStored,
		)
	case summary.PagesFailed > 0:
		md.Importantf(
			"%d page(s) could not be stored. See the failure list below.",
			summary.PagesFailed,
		)
	case summary.PagesStored == 0:
		md.Note("No pages were stored by this crawl.")
	default:
		md.Tip("All discovered pages were stored successfully.")
	}
	md.PlainText("")
}

// writeHosts writes the per-host page counts with a pie chart.
func (w *MarkdownWriter) writeHosts(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H2("Pages per Host")
	md.PlainText("")

	if len(summary.HostPages) == 0 {
		md.PlainText("No pages stored.")
		md.PlainText("")
		return
	}

	hosts := sortedHosts(summary.HostPages)

	rows := make([][]string, len(hosts))
	for i, host := range hosts {
		rows[i] = []string{"`" + host + "`", strconv.Itoa(summary.HostPages[host])}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Host", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, summary, hosts)
}

// writePieChart writes a mermaid pie chart of the host distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.CrawlSummary, hosts []string) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages per Host"),
		piechart.WithShowData(true),
	)

	for _, host := range hosts {
		if count := summary.HostPages[host]; count > 0 {
			chart.LabelAndIntValue(host, uint64(count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFailures writes the failure table.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H2("Failures")
	md.PlainText("")

	if len(summary.Failures) == 0 {
		md.PlainText("No failures.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.Failures))
	for i, f := range summary.Failures {
		rows[i] = []string{
			truncateString(f.URL, 80),
			truncateString(f.Reason, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by ragspider*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
