package sink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"ragspider/internal/model"
)

// FileSink persists page records as one JSON document per page under a
// root directory, at paths derived from each record's URL structure.
//
// Design decision: We write records through a temporary file followed
// by a rename because:
// 1. A crash mid-write must not leave a truncated JSON document where
//    a valid record used to be
// 2. Re-crawls overwrite records in place, and rename makes the swap
//    atomic on POSIX filesystems
// 3. Readers ingesting the corpus concurrently never observe partial
//    documents
type FileSink struct {
	// root is the directory all derived paths are joined under.
	root string

	// logger records per-file outcomes at debug level.
	logger *slog.Logger

	// stored counts successful writes. Atomic because the frontier may
	// run several page workers.
	stored atomic.Int64
}

// Option configures a FileSink.
type Option func(*FileSink)

// WithLogger sets a custom logger for the sink.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileSink) {
		s.logger = logger
	}
}

// NewFileSink creates a FileSink rooted at the given directory.
// The directory itself is created lazily on first store.
func NewFileSink(root string, opts ...Option) *FileSink {
	s := &FileSink{root: root}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Root returns the sink's root directory.
func (s *FileSink) Root() string {
	return s.root
}

// Store writes one page record to its derived path and returns the
// path relative to the sink root. The full directory chain is created
// as needed, and an existing record for the same URL is overwritten.
func (s *FileSink) Store(record *model.PageRecord) (string, error) {
	rel := DerivePath(record.Domain, record.PathSegments, record.URLFingerprint)
	abs := filepath.Join(s.root, rel)

	if err := os.MkdirAll(filepath.Dir(abs), 0750); err != nil {
		return "", fmt.Errorf("failed to create record directory: %w", err)
	}

	if err := writeJSON(abs, record); err != nil {
		return "", err
	}

	s.stored.Add(1)
	s.logger.Debug("stored page record",
		slog.String("url", record.URL),
		slog.String("path", rel),
		slog.Int("text_length", record.TextLength))

	return rel, nil
}

// Count returns the number of records stored so far in this run.
func (s *FileSink) Count() int {
	return int(s.stored.Load())
}

// writeJSON encodes the record to a temporary file and renames it over
// the final path.
func writeJSON(path string, record *model.PageRecord) error {
	tmp := path + ".tmp"

	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // Derived path under the sink root
	if err != nil {
		return fmt.Errorf("failed to create record file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	// Keep the stored markup readable; < escapes would defeat the
	// human-readable output contract.
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(record); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to encode record: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close record file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finalize record file: %w", err)
	}

	return nil
}
