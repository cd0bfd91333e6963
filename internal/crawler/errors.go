package crawler

import "errors"

// Crawl setup errors.
// These are returned before any page is fetched; once a crawl is
// running, individual page errors are logged and counted rather than
// returned.
var (
	// ErrNoSeeds is returned by Crawl when Seed was never called
	// or every seed was rejected.
	ErrNoSeeds = errors.New("no seed URLs: call Seed before Crawl")

	// ErrInvalidSeed is returned by Seed for a URL that is not an
	// absolute http or https URL.
	ErrInvalidSeed = errors.New("invalid seed URL: must be absolute http or https")
)
