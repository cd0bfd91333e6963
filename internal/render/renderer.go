package render

import (
	"context"
	"time"
)

// Default readiness settings. JavaScript-heavy sites build their DOM in
// bursts after load, so readiness is judged by visible text volume
// rather than by lifecycle events alone.
const (
	// DefaultInitialDelay gives the page skeleton time to mount before
	// the first content sample. Sampling earlier measures an empty
	// application shell.
	DefaultInitialDelay = 3 * time.Second

	// DefaultPollInterval is the gap between content samples. One second
	// keeps CPU cost negligible while reacting quickly once content lands.
	DefaultPollInterval = 1 * time.Second

	// DefaultMaxWait bounds the polling phase. Pages that have not
	// produced text after 15 seconds rarely produce more by waiting;
	// whatever rendered is captured as-is.
	DefaultMaxWait = 15 * time.Second

	// DefaultTextThreshold is the visible-text length that counts as
	// rendered. 200 characters separates real content from cookie
	// banners and loading spinners on typical pages.
	DefaultTextThreshold = 200

	// DefaultSettleDelay runs once after the threshold is met (or the
	// budget runs out) so late-arriving fragments join the capture.
	DefaultSettleDelay = 2 * time.Second

	// DefaultTimeout bounds one full render including navigation.
	// Generous because slow origins plus client-side rendering can
	// legitimately take a while.
	DefaultTimeout = 120 * time.Second
)

// WaitSettings controls the readiness detector for one render.
type WaitSettings struct {
	// InitialDelay is slept before the first content sample.
	InitialDelay time.Duration

	// PollInterval is the time between content samples.
	PollInterval time.Duration

	// MaxWait bounds the sampling phase, counted from the first sample.
	MaxWait time.Duration

	// TextThreshold is the visible-text length (characters) above which
	// the page counts as rendered.
	TextThreshold int

	// SettleDelay is waited exactly once after sampling ends.
	SettleDelay time.Duration
}

// DefaultWaitSettings returns the stock readiness settings.
func DefaultWaitSettings() WaitSettings {
	return WaitSettings{
		InitialDelay:  DefaultInitialDelay,
		PollInterval:  DefaultPollInterval,
		MaxWait:       DefaultMaxWait,
		TextThreshold: DefaultTextThreshold,
		SettleDelay:   DefaultSettleDelay,
	}
}

// Request describes one page render.
type Request struct {
	// URL is the absolute URL to navigate to.
	URL string

	// Wait configures the readiness detector.
	Wait WaitSettings

	// Timeout bounds the whole render. Zero means DefaultTimeout.
	Timeout time.Duration

	// Scroll scrolls to the bottom of the page before capture, for
	// pages that lazy-load content on scroll.
	Scroll bool
}

// Result is the outcome of a successful render.
type Result struct {
	// HTML is the full serialized document markup.
	HTML string

	// BodyHTML is the <body> element's outer markup. This is what page
	// records store as raw markup.
	BodyHTML string

	// FinalURL is the document URL after redirects. Falls back to the
	// requested URL when the browser reports nothing better.
	FinalURL string

	// StatusCode is the HTTP status of the document response.
	StatusCode int

	// Ready reports whether the text threshold was met before the wait
	// budget ran out. A false value still carries captured markup.
	Ready bool
}

// Renderer turns URLs into rendered page snapshots.
// Implementations must be safe for concurrent Render calls.
type Renderer interface {
	// Render navigates to the requested URL, waits for content, and
	// captures the document. Errors are per-page: the caller logs them
	// and moves on to the next URL.
	Render(ctx context.Context, req Request) (*Result, error)

	// Close releases the underlying browser resources.
	Close() error
}
