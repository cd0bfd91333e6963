package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"ragspider/internal/model"
)

// DBFileName is the SQLite file created inside the ledger directory.
const DBFileName = "ragspider.db"

// Ledger provides SQLite-based bookkeeping for crawls. It records one
// row per stored page and one row per completed run, so repeated crawls
// of the same site can be inspected and compared without re-reading the
// JSON corpus on disk.
//
// Design decision: We keep a single database file for all sites rather
// than one file per domain. Cross-site queries (recent runs, total page
// counts) stay simple and backup is a single file copy.
type Ledger struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Ledger behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default ledger options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Ledger in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Ledger, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("ledger not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check ledger path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw refuses to create a
	// new file, mode=rwc creates one when missing.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite supports one writer; a crawl writes from several workers
	// so the pool is pinned to a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	l := &Ledger{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := l.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// createTables creates the ledger schema if it doesn't exist.
func (l *Ledger) createTables() error {
	schema := `
	-- Pages store one row per stored page, upserted across runs
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		fingerprint TEXT NOT NULL,
		domain TEXT NOT NULL,
		title TEXT,
		language TEXT,
		status_code INTEGER,
		text_length INTEGER,
		content_hash TEXT,
		stored_path TEXT,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pages_domain ON pages(domain);
	CREATE INDEX IF NOT EXISTS idx_pages_fingerprint ON pages(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_pages_fetched ON pages(fetched_at);

	-- Runs store one summary row per completed crawl
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME,
		finished_at DATETIME,
		seeds TEXT NOT NULL,
		pages_stored INTEGER DEFAULT 0,
		pages_failed INTEGER DEFAULT 0,
		pages_skipped INTEGER DEFAULT 0,
		links_discovered INTEGER DEFAULT 0,
		interrupted INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := l.db.ExecContext(context.Background(), schema)
	return err
}

// PageRow is a stored page as read back from the ledger.
type PageRow struct {
	ID          int64
	URL         string
	Fingerprint string
	Domain      string
	Title       string
	Language    string
	StatusCode  int
	TextLength  int
	ContentHash string
	StoredPath  string
	FetchedAt   time.Time
}

// RecordPage inserts or updates the ledger row for a stored page.
// The URL is the conflict key: re-crawling a page replaces its row, so
// the ledger always reflects the latest fetch. A changed content_hash
// between runs means the page content changed.
func (l *Ledger) RecordPage(ctx context.Context, record *model.PageRecord, storedPath string) error {
	query := `
	INSERT INTO pages (url, fingerprint, domain, title, language, status_code, text_length, content_hash, stored_path, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		fingerprint = excluded.fingerprint,
		domain = excluded.domain,
		title = excluded.title,
		language = excluded.language,
		status_code = excluded.status_code,
		text_length = excluded.text_length,
		content_hash = excluded.content_hash,
		stored_path = excluded.stored_path,
		fetched_at = excluded.fetched_at
	`

	_, err := l.db.ExecContext(ctx, query,
		record.URL,
		record.URLFingerprint,
		record.Domain,
		record.Title,
		record.Language,
		record.StatusCode,
		record.TextLength,
		record.ContentHash,
		storedPath,
		record.FetchedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to record page: %w", err)
	}

	return nil
}

// GetPage retrieves the ledger row for a URL.
// Returns nil without error when the URL has never been stored.
func (l *Ledger) GetPage(ctx context.Context, pageURL string) (*PageRow, error) {
	query := `
	SELECT id, url, fingerprint, domain, title, language, status_code, text_length, content_hash, stored_path, fetched_at
	FROM pages
	WHERE url = ?
	`

	var row PageRow
	var fetchedAt string

	err := l.db.QueryRowContext(ctx, query, pageURL).Scan(
		&row.ID,
		&row.URL,
		&row.Fingerprint,
		&row.Domain,
		&row.Title,
		&row.Language,
		&row.StatusCode,
		&row.TextLength,
		&row.ContentHash,
		&row.StoredPath,
		&fetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	row.FetchedAt = parseTimestamp(fetchedAt)

	return &row, nil
}

// PagesForDomain retrieves all ledger rows for a domain, newest first.
func (l *Ledger) PagesForDomain(ctx context.Context, domain string) ([]PageRow, error) {
	query := `
	SELECT id, url, fingerprint, domain, title, language, status_code, text_length, content_hash, stored_path, fetched_at
	FROM pages
	WHERE domain = ?
	ORDER BY fetched_at DESC, id DESC
	`

	rows, err := l.db.QueryContext(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var results []PageRow
	for rows.Next() {
		var row PageRow
		var fetchedAt string

		err := rows.Scan(
			&row.ID,
			&row.URL,
			&row.Fingerprint,
			&row.Domain,
			&row.Title,
			&row.Language,
			&row.StatusCode,
			&row.TextLength,
			&row.ContentHash,
			&row.StoredPath,
			&fetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		row.FetchedAt = parseTimestamp(fetchedAt)
		results = append(results, row)
	}

	return results, rows.Err()
}

// CountPages returns the total number of pages in the ledger.
func (l *Ledger) CountPages(ctx context.Context) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pages").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return count, nil
}

// RunRow is a crawl run summary as read back from the ledger.
type RunRow struct {
	ID              int64
	StartedAt       time.Time
	FinishedAt      time.Time
	Seeds           []string
	PagesStored     int
	PagesFailed     int
	PagesSkipped    int
	LinksDiscovered int
	Interrupted     bool
}

// RecordRun appends a run summary row to the ledger.
func (l *Ledger) RecordRun(ctx context.Context, summary *model.CrawlSummary) error {
	seedsJSON, err := json.Marshal(summary.Seeds)
	if err != nil {
		return fmt.Errorf("failed to serialize seeds: %w", err)
	}

	query := `
	INSERT INTO runs (started_at, finished_at, seeds, pages_stored, pages_failed, pages_skipped, links_discovered, interrupted)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	interrupted := 0
	if summary.Interrupted {
		interrupted = 1
	}

	_, err = l.db.ExecContext(ctx, query,
		summary.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		summary.FinishedAt.UTC().Format("2006-01-02 15:04:05"),
		string(seedsJSON),
		summary.PagesStored,
		summary.PagesFailed,
		summary.PagesSkipped,
		summary.LinksDiscovered,
		interrupted,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// RecentRuns retrieves the most recent run summaries, newest first.
// A limit of 0 or less returns all runs.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]RunRow, error) {
	query := `
	SELECT id, started_at, finished_at, seeds, pages_stored, pages_failed, pages_skipped, links_discovered, interrupted
	FROM runs
	ORDER BY started_at DESC, id DESC
	`
	args := make([]interface{}, 0)

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var results []RunRow
	for rows.Next() {
		var row RunRow
		var startedAt, finishedAt, seedsJSON string
		var interrupted int

		err := rows.Scan(
			&row.ID,
			&startedAt,
			&finishedAt,
			&seedsJSON,
			&row.PagesStored,
			&row.PagesFailed,
			&row.PagesSkipped,
			&row.LinksDiscovered,
			&interrupted,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		row.StartedAt = parseTimestamp(startedAt)
		row.FinishedAt = parseTimestamp(finishedAt)
		row.Interrupted = interrupted != 0

		if seedsJSON != "" {
			if err := json.Unmarshal([]byte(seedsJSON), &row.Seeds); err != nil {
				row.Seeds = nil
			}
		}

		results = append(results, row)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
