package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"ragspider/internal/model"
	"ragspider/internal/render"
)

// Sink persists page records. Implemented by sink.FileSink.
type Sink interface {
	// Store writes one record and returns the path it was written to.
	Store(record *model.PageRecord) (string, error)
}

// Ledger records stored pages for later lookup across runs.
// Implemented by database.Ledger. A nil ledger disables recording.
type Ledger interface {
	RecordPage(ctx context.Context, record *model.PageRecord, storedPath string) error
}

// AccessPolicy decides whether a URL may be fetched.
// Implemented by robots.Policy. A nil policy allows everything.
type AccessPolicy interface {
	Allowed(ctx context.Context, pageURL *url.URL) bool
}

// Frontier drives a crawl: it renders pending URLs, stores the
// resulting records, and feeds newly discovered same-site links back
// into its queue until the queue drains or the page budget runs out.
//
// Design decision: We call it "Frontier" rather than "Crawler" because:
//  1. The queue of not-yet-visited URLs is the classic crawl frontier
//  2. Distinguishes the component from the package name
//  3. Clearer in code: crawler.NewFrontier() vs crawler.NewCrawler()
type Frontier struct {
	// renderer produces the post-JavaScript HTML for each page.
	renderer render.Renderer

	// sink persists one record per stored page.
	sink Sink

	// ledger optionally records stored pages in the crawl database.
	ledger Ledger

	// policy optionally gates URLs on robots.txt.
	policy AccessPolicy

	// limiter spaces out page fetches. Nil means no delay.
	limiter *rate.Limiter

	// logger receives per-page progress and failures.
	logger *slog.Logger

	// workers is the number of pages rendered concurrently.
	workers int

	// maxPages limits the total number of pages dispatched.
	// 0 means unlimited. This prevents runaway crawling on large sites.
	maxPages int

	// wait controls content-readiness polling during rendering.
	wait render.WaitSettings

	// timeout bounds the rendering of a single page.
	timeout time.Duration

	// scroll enables scrolling to the page bottom before capture,
	// for sites that lazy-load content.
	scroll bool

	// mu protects the crawl state below.
	mu sync.Mutex

	// visited holds normalized URLs already enqueued, so no URL is
	// dispatched twice.
	visited map[string]struct{}

	// allowed holds the normalized hosts of the seeds. Links are only
	// followed onto these hosts, even after cross-host redirects.
	allowed map[string]struct{}

	// pending is the FIFO queue of URLs waiting to be rendered.
	pending []string

	// dispatched counts URLs handed to workers, for the page budget.
	dispatched int

	// seeds keeps the validated seed URLs for the summary.
	seeds []string

	// summary accumulates counters for the current run.
	summary *model.CrawlSummary
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithWorkers sets how many pages are rendered concurrently.
// The default of 1 keeps rendering strictly sequential, which is the
// politest mode and the easiest to debug.
func WithWorkers(n int) Option {
	return func(f *Frontier) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithMaxPages limits the total number of pages dispatched.
// 0 means unlimited.
func WithMaxPages(n int) Option {
	return func(f *Frontier) {
		f.maxPages = n
	}
}

// WithDelay enforces a minimum spacing between page fetches.
// This is a politeness setting to avoid overwhelming servers.
func WithDelay(d time.Duration) Option {
	return func(f *Frontier) {
		if d > 0 {
			f.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithWaitSettings sets the content-readiness settings passed to the
// renderer for every page.
func WithWaitSettings(ws render.WaitSettings) Option {
	return func(f *Frontier) {
		f.wait = ws
	}
}

// WithRenderTimeout bounds the rendering of a single page.
func WithRenderTimeout(d time.Duration) Option {
	return func(f *Frontier) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithScroll enables scrolling to the bottom of each page before
// capture, which triggers lazy-loaded content.
func WithScroll(enabled bool) Option {
	return func(f *Frontier) {
		f.scroll = enabled
	}
}

// WithLogger sets the logger for crawl progress and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Frontier) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithLedger records every stored page in the given ledger.
func WithLedger(ledger Ledger) Option {
	return func(f *Frontier) {
		f.ledger = ledger
	}
}

// WithAccessPolicy gates every URL on the given policy before
// rendering. Disallowed URLs are counted as skipped, not failed.
func WithAccessPolicy(policy AccessPolicy) Option {
	return func(f *Frontier) {
		f.policy = policy
	}
}

// NewFrontier creates a Frontier that renders pages with renderer and
// persists them through sink.
//
// Design decision: We require the renderer and sink as constructor
// arguments rather than options because:
//  1. A frontier without either is useless
//  2. Consistent with how the sink requires its root directory
//  3. Keeps the zero-value misuse impossible
func NewFrontier(renderer render.Renderer, sink Sink, opts ...Option) *Frontier {
	f := &Frontier{
		renderer: renderer,
		sink:     sink,
		logger:   slog.Default(),
		workers:  1,
		wait:     render.DefaultWaitSettings(),
		timeout:  render.DefaultTimeout,
		visited:  make(map[string]struct{}),
		allowed:  make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Seed adds starting URLs and widens the crawl scope to their hosts.
// Each seed must be an absolute http or https URL; the first invalid
// one aborts with ErrInvalidSeed.
func (f *Frontier) Seed(rawURLs ...string) error {
	for _, raw := range rawURLs {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidSeed, raw, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidSeed, raw)
		}

		f.mu.Lock()
		f.allowed[NormalizeHost(u.Hostname())] = struct{}{}
		f.seeds = append(f.seeds, u.String())
		f.enqueueLocked(u.String())
		f.mu.Unlock()
	}
	return nil
}

// Crawl processes the queue until it drains, the page budget is
// reached, or ctx is cancelled. It returns a summary of the run; on
// cancellation the summary describes the partial crawl and the error
// is the context error.
//
// Design decision: We dispatch the queue in waves (drain the current
// queue, wait for all workers, repeat) rather than running a worker
// pool against a shared channel because:
//  1. With one worker it degenerates to the classic FIFO crawl loop
//  2. No draining protocol is needed: an empty wave means done
//  3. Links found in wave N are deduplicated before wave N+1 starts
func (f *Frontier) Crawl(ctx context.Context) (*model.CrawlSummary, error) {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return nil, ErrNoSeeds
	}
	f.summary = model.NewCrawlSummary(f.seeds)
	f.summary.StartedAt = time.Now()
	f.dispatched = 0
	f.mu.Unlock()

	var crawlErr error
	for {
		wave := f.takeWave()
		if len(wave) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(f.workers)
		for _, pageURL := range wave {
			pageURL := pageURL
			g.Go(func() error {
				return f.processPage(gctx, pageURL)
			})
		}
		if err := g.Wait(); err != nil {
			crawlErr = err
			break
		}
	}

	f.mu.Lock()
	summary := f.summary
	f.mu.Unlock()

	summary.FinishedAt = time.Now()
	summary.Interrupted = crawlErr != nil
	return summary, crawlErr
}

// takeWave removes and returns the current queue, truncated to the
// remaining page budget. An empty result means the crawl is done.
func (f *Frontier) takeWave() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	wave := f.pending
	f.pending = nil

	if f.maxPages > 0 {
		budget := f.maxPages - f.dispatched
		if budget <= 0 {
			return nil
		}
		if len(wave) > budget {
			wave = wave[:budget]
		}
	}
	f.dispatched += len(wave)
	return wave
}

// processPage renders, parses, and stores a single page, then feeds
// its links back into the queue. Page-level errors are recorded in the
// summary and logged; only context cancellation is returned, so one
// broken page never stops the crawl.
func (f *Frontier) processPage(ctx context.Context, pageURL string) error {
	if f.policy != nil {
		if u, err := url.Parse(pageURL); err == nil && !f.policy.Allowed(ctx, u) {
			f.logger.Info("skipping URL disallowed by robots.txt", "url", pageURL)
			f.mu.Lock()
			f.summary.PagesSkipped++
			f.mu.Unlock()
			return nil
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	f.logger.Debug("rendering page", "url", pageURL)

	res, err := f.renderer.Render(ctx, render.Request{
		URL:     pageURL,
		Wait:    f.wait,
		Timeout: f.timeout,
		Scroll:  f.scroll,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.recordFailure(pageURL, fmt.Sprintf("render: %v", err))
		return nil
	}

	// Redirects make the final URL authoritative for identity and
	// link resolution.
	finalRaw := res.FinalURL
	if finalRaw == "" {
		finalRaw = pageURL
	}
	finalURL, err := url.Parse(finalRaw)
	if err != nil {
		f.recordFailure(pageURL, fmt.Sprintf("final URL %q: %v", finalRaw, err))
		return nil
	}

	parser, err := NewParser(finalURL.String())
	if err != nil {
		f.recordFailure(pageURL, fmt.Sprintf("parse: %v", err))
		return nil
	}
	parsed, err := parser.Parse(strings.NewReader(res.HTML))
	if err != nil {
		f.recordFailure(pageURL, fmt.Sprintf("parse: %v", err))
		return nil
	}

	record := buildPageRecord(finalURL, res, parsed, time.Now())

	storedPath, err := f.sink.Store(record)
	if err != nil {
		f.recordFailure(pageURL, fmt.Sprintf("store: %v", err))
		return nil
	}

	f.logger.Info("stored page",
		"url", record.URL,
		"path", storedPath,
		"title", record.Title,
		"text_length", record.TextLength,
		"status", record.StatusCode)

	if f.ledger != nil {
		if err := f.ledger.RecordPage(ctx, record, storedPath); err != nil {
			f.logger.Warn("recording page in database failed", "url", record.URL, "error", err)
		}
	}

	enqueued := f.admitLinks(record.Domain, parsed.Links)

	f.mu.Lock()
	f.summary.PagesStored++
	f.summary.HostPages[record.Domain]++
	f.summary.LinksDiscovered += enqueued
	f.mu.Unlock()

	return nil
}

// admitLinks enqueues the links that stay on the crawled site and were
// not seen before. It returns how many were enqueued.
//
// Links must pass two checks: same site as the page they came from,
// and a host in the allowed set built from the seeds. The second check
// keeps a cross-host redirect from silently widening the crawl.
func (f *Frontier) admitLinks(pageHost string, links []string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	enqueued := 0
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		host := u.Hostname()
		if !SameSite(pageHost, host) {
			continue
		}
		if _, ok := f.allowed[NormalizeHost(host)]; !ok {
			continue
		}
		if f.enqueueLocked(link) {
			enqueued++
		}
	}
	return enqueued
}

// enqueueLocked adds a URL to the queue unless its normalized form was
// enqueued before. Callers must hold mu.
func (f *Frontier) enqueueLocked(rawURL string) bool {
	key := normalizeURL(rawURL)
	if _, ok := f.visited[key]; ok {
		return false
	}
	f.visited[key] = struct{}{}
	f.pending = append(f.pending, rawURL)
	return true
}

// recordFailure logs a page-level error and adds it to the summary.
func (f *Frontier) recordFailure(pageURL, reason string) {
	f.logger.Warn("page failed", "url", pageURL, "reason", reason)
	f.mu.Lock()
	f.summary.RecordFailure(pageURL, reason)
	f.mu.Unlock()
}

// normalizeURL produces the deduplication key for a URL.
//
// Design decision: We normalize before comparing because:
//  1. The same page surfaces under different URL spellings
//  2. Fragments (#section) never change the served document
//  3. An empty path and "/" are the same location
//
// Query strings are kept: on rendered sites ?page=2 and ?page=3 are
// different documents.
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
