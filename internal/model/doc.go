// Package model defines the core data structures used throughout ragspider.
//
// This package contains the following main types:
//   - PageRecord: One stored page, serialized as a standalone JSON document
//   - CrawlSummary: Aggregated outcome of a single crawl run
//   - PageFailure: A page that could not be rendered or stored
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, sink, database, report) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for record output and
// database storage.
package model
