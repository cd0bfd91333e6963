// Package crawler walks a website one rendered page at a time.
//
// # Architecture
//
// The package is designed around the Frontier type, which coordinates
// the crawl. It keeps a queue of pending URLs, dispatches them to a
// renderer in waves, stores each resulting record through a sink, and
// feeds newly discovered same-site links back into the queue.
//
// Design decision: We implement our own frontier rather than using a
// crawling framework because:
//  1. Rendering in a headless browser dominates the cost of every page,
//     so scheduling stays trivial
//  2. Same-site scoping with www-folding is a handful of lines
//  3. The storage contract (one JSON record per page) is ours, not a
//     framework's
//
// # Components
//
//   - Frontier: the crawl loop with queue, scope, and budget
//   - Parser: single-pass HTML extraction of metadata and links
//   - buildPageRecord: assembles the stored record from a rendered page
//
// # Scope
//
// A crawl never leaves the sites of its seeds. Host comparison folds
// the "www." prefix, so https://example.com and https://www.example.com
// are one site; any other subdomain is out of scope. Cross-host
// redirects are stored but do not widen the scope.
//
// # Politeness
//
//   - Optional delay between page fetches
//   - Optional robots.txt gating
//   - Page budget caps runaway crawls
//   - Default of one page rendered at a time
//
// # Usage
//
//	frontier := crawler.NewFrontier(renderer, fileSink,
//		crawler.WithMaxPages(100),
//		crawler.WithDelay(time.Second),
//	)
//	if err := frontier.Seed("https://example.com"); err != nil {
//		return err
//	}
//	summary, err := frontier.Crawl(ctx)
package crawler
