package model

import "time"

// CrawlSummary aggregates the outcome of one crawl run.
// It feeds the terminal summary, the markdown report, and the run
// history stored in the database.
type CrawlSummary struct {
	// Seeds are the URLs the crawl started from.
	Seeds []string `json:"seeds"`

	// StartedAt is when the frontier began dispatching.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the frontier drained or was stopped.
	FinishedAt time.Time `json:"finished_at"`

	// PagesStored counts records successfully written by the sink.
	PagesStored int `json:"pages_stored"`

	// PagesFailed counts pages that errored during render, parse,
	// or storage. Each failure also appears in Failures.
	PagesFailed int `json:"pages_failed"`

	// PagesSkipped counts URLs dropped before rendering, such as
	// robots.txt exclusions.
	PagesSkipped int `json:"pages_skipped"`

	// LinksDiscovered counts same-site links enqueued during the run,
	// including ones later skipped as already visited.
	LinksDiscovered int `json:"links_discovered"`

	// HostPages counts stored pages per host. With a single seed this
	// has one or two entries (bare domain and www variant).
	HostPages map[string]int `json:"host_pages"`

	// Failures lists each failed page with the reason it failed.
	Failures []PageFailure `json:"failures"`

	// Interrupted is true when the run was cancelled before the
	// frontier drained, so counts describe a partial crawl.
	Interrupted bool `json:"interrupted"`
}

// PageFailure describes a single page that could not be stored.
type PageFailure struct {
	// URL is the page that failed.
	URL string `json:"url"`

	// Reason is the error message, suitable for display.
	Reason string `json:"reason"`
}

// NewCrawlSummary creates an empty summary for the given seeds.
func NewCrawlSummary(seeds []string) *CrawlSummary {
	return &CrawlSummary{
		Seeds:     append([]string(nil), seeds...),
		HostPages: make(map[string]int),
		Failures:  make([]PageFailure, 0),
	}
}

// Duration returns the wall-clock duration of the run.
// Zero when the run has not finished.
func (s *CrawlSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// PagesTotal returns the number of pages the crawl attempted to store.
func (s *CrawlSummary) PagesTotal() int {
	return s.PagesStored + s.PagesFailed
}

// RecordFailure appends a failure and bumps the counter.
func (s *CrawlSummary) RecordFailure(url string, reason string) {
	s.PagesFailed++
	s.Failures = append(s.Failures, PageFailure{URL: url, Reason: reason})
}
