package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// SeedList is the JSON batch input format:
//
//	{"urls": ["https://example.com/", "https://other.org/start"]}
//
// The same format is accepted whether the file holds one URL or
// thousands, so generated crawl plans and hand-written lists look
// identical.
type SeedList struct {
	// URLs are the seed URLs to crawl.
	URLs []string `json:"urls"`
}

// LoadSeedList reads seed URLs from a JSON batch file.
// A file that is missing, unparseable, or contains no URLs is a fatal
// configuration error: a batch crawl with nothing to crawl is always a
// mistake worth surfacing, not an empty success.
func LoadSeedList(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided seed list path is intentional
	if err != nil {
		return nil, fmt.Errorf("read seed list: %w", err)
	}

	var list SeedList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse seed list %s: %w", path, err)
	}

	urls := make([]string, 0, len(list.URLs))
	for _, u := range list.URLs {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSeedsInFile, path)
	}

	return urls, nil
}
