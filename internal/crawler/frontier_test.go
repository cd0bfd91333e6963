package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"ragspider/internal/model"
	"ragspider/internal/render"
)

// fakeRenderer serves canned HTML per request URL without a browser.
type fakeRenderer struct {
	mu       sync.Mutex
	pages    map[string]string
	fail     map[string]string
	redirect map[string]string
	delay    time.Duration
	calls    []string
	inFlight int
	peak     int
}

func (r *fakeRenderer) Render(ctx context.Context, req render.Request) (*render.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, req.URL)
	r.inFlight++
	if r.inFlight > r.peak {
		r.peak = r.inFlight
	}
	page, ok := r.pages[req.URL]
	failMsg := r.fail[req.URL]
	finalURL := r.redirect[req.URL]
	delay := r.delay
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if failMsg != "" {
		return nil, errors.New(failMsg)
	}
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", req.URL)
	}
	if finalURL == "" {
		finalURL = req.URL
	}
	return &render.Result{
		HTML:       page,
		FinalURL:   finalURL,
		StatusCode: 200,
		Ready:      true,
	}, nil
}

func (r *fakeRenderer) Close() error { return nil }

func (r *fakeRenderer) rendered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeRenderer) peakConcurrency() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

// memSink collects records in memory.
type memSink struct {
	mu      sync.Mutex
	records []*model.PageRecord
	failURL string
}

func (s *memSink) Store(record *model.PageRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failURL != "" && record.URL == s.failURL {
		return "", errors.New("write failed")
	}
	s.records = append(s.records, record)
	return "mem/" + record.URLFingerprint + ".json", nil
}

func (s *memSink) storedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make([]string, 0, len(s.records))
	for _, r := range s.records {
		urls = append(urls, r.URL)
	}
	return urls
}

// denyPaths is an AccessPolicy that blocks exact paths.
type denyPaths struct {
	paths []string
}

func (p *denyPaths) Allowed(_ context.Context, u *url.URL) bool {
	return !slices.Contains(p.paths, u.Path)
}

// pageHTML builds a minimal page with the given anchors.
func pageHTML(title string, links ...string) string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>")
	sb.WriteString(title)
	sb.WriteString("</title></head><body><h1>")
	sb.WriteString(title)
	sb.WriteString("</h1>")
	for _, link := range links {
		sb.WriteString(`<a href="`)
		sb.WriteString(link)
		sb.WriteString(`">link</a>`)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestFrontierCrawl tests the crawl loop end to end against a fake
// renderer.
func TestFrontierCrawl(t *testing.T) {
	t.Parallel()

	t.Run("stores a single page", func(t *testing.T) {
		t.Parallel()

		renderer := &fakeRenderer{pages: map[string]string{
			"https://site.test/": pageHTML("Home"),
		}}
		sink := &memSink{}
		frontier := NewFrontier(renderer, sink, WithLogger(quietLogger()))

		if err := frontier.Seed("https://site.test/"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		summary, err := frontier.Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if summary.PagesStored != 1 {
			t.Fatalf("expected 1 stored page, got %d", summary.PagesStored)
		}
		record := sink.records[0]
		if record.URL != "https://site.test/" {
			t.Errorf("expected record URL, got %q", record.URL)
		}
		if record.Title != "Home" {
			t.Errorf("expected title 'Home', got %q", record.Title)
		}
		if record.CleanText != "Home link" && record.CleanText != "Home" {
			t.Errorf("unexpected clean text %q", record.CleanText)
		}
		if summary.Interrupted {
			t.Error("expected a completed run")
		}
	})

	t.Run("follows links within the site only", func(t *testing.T) {
		t.Parallel()

		renderer := &fakeRenderer{pages: map[string]string{
			"https://site.test/": pageHTML("Home",
				"/about",
				"https://www.site.test/contact",
				"https://blog.site.test/post",
				"https://other.test/page",
			),
			"https://site.test/about":       pageHTML("About"),
			"https://www.site.test/contact": pageHTML("Contact"),
		}}
		sink := &memSink{}
		frontier := NewFrontier(renderer, sink, WithLogger(quietLogger()))

		if err := frontier.Seed("https://site.test/"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		summary, err := frontier.Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if summary.PagesStored != 3 {
			t.Errorf("expected 3 stored pages, got %d: %v", summary.PagesStored, sink.storedURLs())
		}
		for _, rendered := range renderer.rendered() {
			if strings.Contains(rendered, "blog.site.test") || strings.Contains(rendered, "other.test") {
				t.Errorf("off-site URL was rendered: %q", rendered)
			}
		}
		if summary.HostPages["site.test"] != 2 {
			t.Errorf("expected 2 pages on site.test, got %d", summary.HostPages["site.test"])
		}
		if summary.HostPages["www.site.test"] != 1 {
			t.Errorf("expected 1 page on www.site.test, got %d", summary.HostPages["www.site.test"])
		}
	})

	t.Run("never renders the same URL twice", func(t *testing.T) {
		t.Parallel()

		renderer := &fakeRenderer{pages: map[string]string{
			"https://site.test/":      pageHTML("Home", "/about"),
			"https://site.test/about": pageHTML("About", "/", "/about#team"),
		}}
		sink := &memSink{}
		frontier := NewFrontier(renderer, sink, WithLogger(quietLogger()))

		if err := frontier.Seed("https://site.test/"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		summary, err := frontier.Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		calls := renderer.rendered()
		if len(calls) != 2 {
			t.Fatalf("expected 2 renders, got %d: %v", len(calls), calls)
		}
		if summary.PagesStored != 2 {
			t.Errorf("expected 2 stored pages, got %d", summary.PagesStored)
		}
		if summary.LinksDiscovered != 1 {
			t.Errorf("expected 1 newly discovered link, got %d", summary.LinksDiscovered)
		}
	})

	t.Run("keeps crawling past a failing page", func(t *testing.T) {
		t.Parallel()

		renderer := &fakeRenderer{
			pages: map[string]string{
				"https://site.test/":     pageHTML("Home", "/bad", "/good"),
				"https://site.test/good": pageHTML("Good"),
			},
			fail: map[string]string{
				"https://site.test/bad": "render timeout",
			},
		}
		sink := &memSink{}
		frontier := NewFrontier(renderer, sink, WithLogger(quietLogger()))

		if err := frontier.Seed("https://site.test/"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		summary, err := frontier.Crawl(context.Background())
		if err != nil {
			t.Fatalf("expected the crawl to continue, got %v", err)
		}

		if summary.PagesStored != 2 {
			t.Errorf("expected 2 stored pages, got %d", summary.PagesStored)
		}
		if summary.PagesFailed != 1 {
			t.Fatalf("expected 1 failed page, got %d", summary.PagesFailed)
		}
		failure := summary.Failures[0]
		if failure.URL != "https://site.test/bad" {
			t.Errorf("expected failure for /bad, got %q", failure.URL)
		}
		if !strings.Contains(failure.Reason, "render timeout") {
			t.Errorf("expected failure reason to carry the cause, got %q", failure.Reason)
		}
	})

	t.Run("counts a storage error as a page failure", func(t *testing.T) {
		t.Parallel()

		renderer := &fakeRenderer{pages: map[string]string{
			"https://site.test/":     pageHTML("Home", "/bad", "/good"),
			"https://site.test/bad":  pageHTML("Bad"),
			"https://site.test/good": pageHTML("Good"),
		}}
		sink := &memSink{failURL: "https://site.test/bad"}
		frontier := NewFrontier(renderer, sink, WithLogger(quietLogger()))

		if err := frontier.Seed("https://site.test/"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		summary, err := frontier.Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if summary.PagesStored != 2 {
			t.Errorf("expected 2 stored pages, got %d", summary.PagesStored)
		}
		if summary.PagesFailed != 1 {
			t.Fatalf("expected 1 failed page, got %d", summary.PagesFailed)
		}
		if !strings.Contains(summary.Failures[0].Reason, "store") {
			t.Errorf("expected a storage failure reason, got %q", summary.Failures[0].Reason)
		}
	})

	t.Run("respects the page budget", func(t *testing.T) {
		t.Parallel()

		renderer := &fakeRenderer{pages: map[string]string{
			"https://site.test/":   pageHTML("Home", "/p1", "/p2", "/p3", "/p4", "/p5"),
			"https://site.test/p1": pageHTML("P1"),
			"https://site.test/p2": pageHTML("P2"),
			"https://site.test/p3": pageHTML("P3"),
			"https://site.test/p4": pageHTML("P4"),
			"https://site.test/p5": pageHTML("P5"),
		}}
		sink := &memSink{}
		frontier := NewFrontier(renderer, sink, WithMaxPages(3), WithLogger(quietLogger()))

		if err := frontier.Seed("https://site.test/"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		summary, err := frontier.Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := len(renderer.rendered()); got != 3 {
			t.Errorf("expected exactly 3 renders, got %d", got)
		}
		if summary.PagesStored != 3 {
			t.Errorf("expected 3 stored pages, got %d", summary.PagesStored)
		}
		if summary.LinksDiscovered != 5 {
			t.Errorf("expected 5 discovered links, got %d", summary.LinksDiscovered)
		}
	})

	t.Run("visits in FIFO order with one worker", func(t *testing.T) {
		t.Parallel()

		renderer := &fakeRenderer{pages: map[string]string{
			"https://site.test/":  pageHTML("Home", "/a", "/b"),
			"https://site.test/a": pageHTML("A", "/c"),
			"https://site.test/b": pageHTML("B"),
			"https://site.test/c": pageHTML("C"),
		}}
		sink := &memSink{}
		frontier := NewFrontier(renderer, sink, WithLogger(quietLogger()))

		if err := frontier.Seed("https://site.test/"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		if _, err := frontier.Crawl(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{
			"https://site.test/",
			"https://site.test/a",
			"https://site.test/b",
			"https://site.test/c",
		}
		if got := renderer.rendered(); !slices.Equal(got, want) {
			t.Errorf("expected order %v, got %v", want, got)
		}
	})

	t.Run("renders concurrently when workers are raised", func(t *testing.T) {
		t.Parallel()

		renderer := &fakeRenderer{
			pages: map[string]string{
				"https://site.test/":   pageHTML("Home", "/p1", "/p2", "/p3", "/p4"),
				"https://site.test/p1": pageHTML("P1"),
				"https://site.test/p2": pageHTML("P2"),
				"https://site.test/p3": pageHTML("P3"),
				"https://site.test/p4": pageHTML("P4"),
			},
			delay: 50 * time.Millisecond,
		}
		sink := &memSink{}
		frontier := NewFrontier(renderer, sink, WithWorkers(2), WithLogger(quietLogger()))

		if err := frontier.Seed("https://site.test/"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		summary, err := frontier.Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if summary.PagesStored != 5 {
			t.Errorf("expected 5 stored pages, got %d", summary.PagesStored)
		}
		if peak := renderer.peakConcurrency(); peak < 2 {
			t.Errorf("expected at least 2 concurrent renders, peak was %d", peak)
		}
	})

	t.Run("cancellation interrupts the run", func(t *testing.T) {
		t.Parallel()

		renderer := &fakeRenderer{
			pages: map[string]string{
				"https://site.test/": pageHTML("Home"),
			},
			delay: 300 * time.Millisecond,
		}
		sink := &memSink{}
		frontier := NewFrontier(renderer, sink, WithLogger(quietLogger()))

		if err := frontier.Seed("https://site.test/"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		summary, err := frontier.Crawl(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline error, got %v", err)
		}
		if summary == nil {
			t.Fatal("expected a partial summary")
		}
		if !summary.Interrupted {
			t.Error("expected the summary to be marked interrupted")
		}
	})

	t.Run("robots policy skips disallowed pages before rendering", func(t *testing.T) {
		t.Parallel()

		renderer := &fakeRenderer{pages: map[string]string{
			"https://site.test/":       pageHTML("Home", "/private", "/public"),
			"https://site.test/public": pageHTML("Public"),
		}}
		sink := &memSink{}
		frontier := NewFrontier(renderer, sink,
			WithAccessPolicy(&denyPaths{paths: []string{"/private"}}),
			WithLogger(quietLogger()),
		)

		if err := frontier.Seed("https://site.test/"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		summary, err := frontier.Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if summary.PagesStored != 2 {
			t.Errorf("expected 2 stored pages, got %d", summary.PagesStored)
		}
		if summary.PagesSkipped != 1 {
			t.Errorf("expected 1 skipped page, got %d", summary.PagesSkipped)
		}
		if slices.Contains(renderer.rendered(), "https://site.test/private") {
			t.Error("disallowed URL must not reach the renderer")
		}
	})

	t.Run("cross-host redirect is stored but does not widen scope", func(t *testing.T) {
		t.Parallel()

		renderer := &fakeRenderer{
			pages: map[string]string{
				"https://site.test/": pageHTML("Landing", "/next"),
			},
			redirect: map[string]string{
				"https://site.test/": "https://elsewhere.test/landing",
			},
		}
		sink := &memSink{}
		frontier := NewFrontier(renderer, sink, WithLogger(quietLogger()))

		if err := frontier.Seed("https://site.test/"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		summary, err := frontier.Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if summary.PagesStored != 1 {
			t.Fatalf("expected 1 stored page, got %d", summary.PagesStored)
		}
		if sink.records[0].Domain != "elsewhere.test" {
			t.Errorf("expected redirected domain, got %q", sink.records[0].Domain)
		}
		if summary.LinksDiscovered != 0 {
			t.Errorf("expected no links admitted off the seed site, got %d", summary.LinksDiscovered)
		}
		if got := len(renderer.rendered()); got != 1 {
			t.Errorf("expected 1 render, got %d", got)
		}
	})

	t.Run("without seeds returns ErrNoSeeds", func(t *testing.T) {
		t.Parallel()

		frontier := NewFrontier(&fakeRenderer{}, &memSink{}, WithLogger(quietLogger()))

		if _, err := frontier.Crawl(context.Background()); !errors.Is(err, ErrNoSeeds) {
			t.Errorf("expected ErrNoSeeds, got %v", err)
		}
	})
}

// TestFrontierSeed tests seed validation.
func TestFrontierSeed(t *testing.T) {
	t.Parallel()

	t.Run("accepts absolute http and https URLs", func(t *testing.T) {
		t.Parallel()

		frontier := NewFrontier(&fakeRenderer{}, &memSink{}, WithLogger(quietLogger()))
		if err := frontier.Seed("https://site.test/", "http://other.test/start"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("rejects invalid seeds", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			seed string
		}{
			{"relative path", "/just/a/path"},
			{"missing scheme", "site.test/page"},
			{"unsupported scheme", "ftp://files.test/pub"},
			{"scheme without host", "https://"},
			{"unparseable", "://bad"},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				frontier := NewFrontier(&fakeRenderer{}, &memSink{}, WithLogger(quietLogger()))
				if err := frontier.Seed(tt.seed); !errors.Is(err, ErrInvalidSeed) {
					t.Errorf("Seed(%q) = %v, want ErrInvalidSeed", tt.seed, err)
				}
			})
		}
	})
}

// TestFrontierOptions tests option plumbing.
func TestFrontierOptions(t *testing.T) {
	t.Parallel()

	t.Run("WithWorkers ignores non-positive values", func(t *testing.T) {
		t.Parallel()

		frontier := NewFrontier(&fakeRenderer{}, &memSink{}, WithWorkers(0))
		if frontier.workers != 1 {
			t.Errorf("expected 1 worker, got %d", frontier.workers)
		}
	})

	t.Run("WithMaxPages sets the budget", func(t *testing.T) {
		t.Parallel()

		frontier := NewFrontier(&fakeRenderer{}, &memSink{}, WithMaxPages(50))
		if frontier.maxPages != 50 {
			t.Errorf("expected budget 50, got %d", frontier.maxPages)
		}
	})

	t.Run("WithDelay installs a limiter", func(t *testing.T) {
		t.Parallel()

		frontier := NewFrontier(&fakeRenderer{}, &memSink{}, WithDelay(time.Second))
		if frontier.limiter == nil {
			t.Error("expected a rate limiter")
		}
	})

	t.Run("zero delay leaves the limiter off", func(t *testing.T) {
		t.Parallel()

		frontier := NewFrontier(&fakeRenderer{}, &memSink{}, WithDelay(0))
		if frontier.limiter != nil {
			t.Error("expected no rate limiter")
		}
	})

	t.Run("WithRenderTimeout overrides the default", func(t *testing.T) {
		t.Parallel()

		frontier := NewFrontier(&fakeRenderer{}, &memSink{}, WithRenderTimeout(5*time.Second))
		if frontier.timeout != 5*time.Second {
			t.Errorf("expected 5s timeout, got %v", frontier.timeout)
		}
	})
}
