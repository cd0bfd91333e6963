// Package database provides SQLite-based bookkeeping for crawls.
//
// This package implements the Ledger, which stores:
//   - One row per stored page (URL-keyed, upserted across runs)
//   - One summary row per completed crawl run
//
// The page corpus itself lives on disk as JSON files; the ledger only
// tracks what was stored where, so history queries and change detection
// (via content hashes) never have to walk the output tree.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
