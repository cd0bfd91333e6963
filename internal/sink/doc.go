// Package sink persists crawled pages as a directory tree of JSON
// documents that mirrors the URL structure of the site.
//
// Two pieces live here:
//   - DerivePath: the pure mapping from domain, path segments, and URL
//     fingerprint to a relative file path
//   - FileSink: the writer that creates directories, serializes records
//     as indented JSON, and counts successes
//
// The derivation groups subdomains under a shared base-domain folder
// (example.integreat.app lands in integreat_app/example/) so that
// crawls of sibling sites build one coherent corpus tree. Filenames
// carry a fingerprint suffix, which keeps URLs with the same final
// segment from colliding and makes re-crawls overwrite deterministic
// paths instead of accumulating duplicates.
package sink
