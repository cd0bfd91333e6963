package robots

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

const (
	// defaultFetchTimeout bounds one robots.txt download. A host that
	// cannot serve its robots.txt within this window is treated as
	// having none.
	defaultFetchTimeout = 10 * time.Second

	// maxRobotsSize caps how much of a robots.txt is read. Google's
	// crawler stops at 500 KiB; anything larger is abuse or a mistake.
	maxRobotsSize = 512 * 1024

	// defaultUserAgent is the agent token matched against robots.txt
	// groups when the caller does not set one.
	defaultUserAgent = "ragspider"
)

// Policy answers robots.txt queries for the hosts of a crawl.
// Each host's robots.txt is fetched at most once per run and the
// parsed rule group is cached for every later URL on that host.
//
// Design decision: We fail open on fetch errors because:
//  1. A host without a reachable robots.txt has expressed no rules
//  2. Blocking a whole crawl on a robots.txt timeout punishes the
//     operator for the host's flakiness
//  3. HTTP status semantics still apply when a response does arrive:
//     4xx allows everything, 5xx blocks the host until it recovers
type Policy struct {
	// client fetches robots.txt documents.
	client *http.Client

	// userAgent is matched against User-agent groups and sent as the
	// request header.
	userAgent string

	// logger records fetch failures at debug level.
	logger *slog.Logger

	// flight collapses concurrent fetches of the same host.
	flight singleflight.Group

	// mu protects groups.
	mu sync.Mutex

	// groups caches the matched rule group per "scheme://host".
	// A nil entry means fetching failed and the host is open.
	groups map[string]*robotstxt.Group
}

// Option configures a Policy.
type Option func(*Policy)

// WithHTTPClient sets the client used to fetch robots.txt files.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Policy) {
		if client != nil {
			p.client = client
		}
	}
}

// WithUserAgent sets the agent token matched against robots.txt groups.
func WithUserAgent(ua string) Option {
	return func(p *Policy) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// WithLogger sets the logger for fetch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Policy with an empty cache.
func New(opts ...Option) *Policy {
	p := &Policy{
		client:    &http.Client{Timeout: defaultFetchTimeout},
		userAgent: defaultUserAgent,
		logger:    slog.Default(),
		groups:    make(map[string]*robotstxt.Group),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Allowed reports whether the URL may be fetched under the host's
// robots.txt. URLs without a host are always allowed.
func (p *Policy) Allowed(ctx context.Context, pageURL *url.URL) bool {
	if pageURL == nil || pageURL.Host == "" {
		return true
	}

	group := p.group(ctx, pageURL.Scheme+"://"+pageURL.Host)
	if group == nil {
		return true
	}

	path := pageURL.EscapedPath()
	if path == "" {
		path = "/"
	}
	if pageURL.RawQuery != "" {
		path += "?" + pageURL.RawQuery
	}
	return group.Test(path)
}

// group returns the cached rule group for an origin, fetching it on
// first use. Concurrent first uses of the same origin share one fetch.
func (p *Policy) group(ctx context.Context, origin string) *robotstxt.Group {
	p.mu.Lock()
	group, ok := p.groups[origin]
	p.mu.Unlock()
	if ok {
		return group
	}

	v, _, _ := p.flight.Do(origin, func() (interface{}, error) {
		g := p.fetch(ctx, origin)
		p.mu.Lock()
		p.groups[origin] = g
		p.mu.Unlock()
		return g, nil
	})

	group, _ = v.(*robotstxt.Group)
	return group
}

// fetch downloads and parses one robots.txt. A nil result means the
// host is open.
func (p *Policy) fetch(ctx context.Context, origin string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("robots.txt fetch failed, host is open", "origin", origin, "error", err)
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		p.logger.Debug("robots.txt read failed, host is open", "origin", origin, "error", err)
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		p.logger.Debug("robots.txt unparseable, host is open", "origin", origin, "error", err)
		return nil
	}

	return data.FindGroup(p.userAgent)
}
