package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoSeed is returned when no starting URL is specified.
	// This error occurs when neither --input nor a positional argument
	// provides a seed.
	ErrNoSeed = errors.New("no seed URL specified: pass URLs as arguments or use --input")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	// Zero workers would mean no pages are ever rendered.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidMaxPages is returned when the page budget is negative.
	// Use 0 for an unlimited crawl.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidDelay is returned when the politeness delay is negative.
	// Use 0 for no delay between fetches.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the per-page timeout is not
	// positive. A zero timeout would fail every page immediately.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWait is returned when the readiness wait settings are
	// inconsistent: the poll interval must be positive and all delays
	// non-negative.
	ErrInvalidWait = errors.New("invalid wait settings: poll interval must be positive and delays non-negative")

	// ErrInvalidTextThreshold is returned when the readiness text
	// threshold is negative. Use 0 to treat any text as ready.
	ErrInvalidTextThreshold = errors.New("invalid text threshold: must be non-negative")

	// ErrInvalidViewport is returned when the emulated window has a
	// non-positive dimension.
	ErrInvalidViewport = errors.New("invalid viewport: width and height must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used at
	// a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrNoSeedsInFile is returned when a seed list file parses but
	// contains no usable URLs under its "urls" key.
	ErrNoSeedsInFile = errors.New(`seed list contains no URLs: expected {"urls": ["https://...", ...]}`)
)
