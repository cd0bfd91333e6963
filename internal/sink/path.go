package sink

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// fingerprintPrefixLen is how many fingerprint characters go into a
// filename. Eight hex characters are enough to tell apart URLs that
// share a final path segment while keeping names short.
const fingerprintPrefixLen = 8

// fallbackSegment replaces path segments that sanitize away to nothing.
const fallbackSegment = "page"

// unsafeRe matches characters that are path separators or forbidden in
// filenames on at least one supported filesystem.
var unsafeRe = regexp.MustCompile(`[/\\:*?"<>|]`)

// SanitizeSegment makes a URL path segment safe to use as a file or
// directory name. Unsafe characters become underscores, surrounding
// dots and spaces are stripped, and a segment that vanishes entirely
// falls back to "page".
func SanitizeSegment(segment string) string {
	clean := unsafeRe.ReplaceAllString(segment, "_")
	clean = strings.Trim(clean, ". ")
	if clean == "" {
		return fallbackSegment
	}
	return clean
}

// DerivePath maps a page onto a relative storage path that mirrors the
// URL structure. It is a pure function: the same domain, segments, and
// fingerprint always produce the same path.
//
// The domain decides the top of the tree. Hosts with more than two
// labels split into a base folder (last two labels) and a subdomain
// folder, so related sites cluster under one directory:
//
//	example.integreat.app -> integreat_app/example/
//	integreat.app         -> integreat_app/
//
// Every path segment except the last becomes a nested folder; the last
// one names the file, suffixed with the first characters of the URL
// fingerprint. Pages at the site root are named index.
func DerivePath(domain string, segments []string, fingerprint string) string {
	labels := strings.Split(strings.ToLower(domain), ".")

	var dir string
	if len(labels) > 2 {
		base := strings.Join(labels[len(labels)-2:], "_")
		sub := strings.Join(labels[:len(labels)-2], "_")
		dir = filepath.Join(base, sub)
	} else {
		dir = strings.Join(labels, "_")
	}

	// Every segment but the last nests a folder; the last names the file.
	if len(segments) > 1 {
		for _, segment := range segments[:len(segments)-1] {
			dir = filepath.Join(dir, SanitizeSegment(segment))
		}
	}

	name := "index"
	if len(segments) > 0 {
		name = SanitizeSegment(segments[len(segments)-1])
	}

	short := fingerprint
	if len(short) > fingerprintPrefixLen {
		short = short[:fingerprintPrefixLen]
	}

	return filepath.Join(dir, fmt.Sprintf("%s_%s.json", name, short))
}
