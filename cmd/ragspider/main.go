// Package main provides the entry point for the ragspider CLI.
//
// ragspider crawls JavaScript-heavy websites with a headless browser and
// stores one clean JSON record per page, building text corpora for
// retrieval-augmented generation.
//
// Usage:
//
//	ragspider crawl https://example.com
//	ragspider crawl --input urls.json
//
// See --help for all available options.
package main

// main is the entry point for ragspider.
func main() {
	Execute()
}
