// Package config provides configuration structures and utilities for
// the crawler. It defines the crawl, rendering, and storage options,
// the per-site override file, and the JSON seed list format.
package config
