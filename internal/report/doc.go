// Package report provides crawl summary output in multiple formats.
//
// Three writers share the Writer interface:
//   - SimpleWriter: plain text for terminal display
//   - MarkdownWriter: markdown with tables and a host distribution chart
//   - JSONWriter: machine-readable output for tool integration
//
// MultiWriter fans a summary out to several writers at once, e.g. a
// terminal summary plus a markdown file in a single crawl.
package report
