package model

import (
	"crypto/md5" //nolint:gosec // Fingerprints name files, they are not security material
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"
)

// UnknownLanguage is the marker stored when a page declares no language.
// The record format never omits fields, so absence must be spelled out.
const UnknownLanguage = "unknown"

// MaxRawHTMLSize is the maximum size of rendered body markup to keep
// on a record. JavaScript-heavy pages can inflate the DOM far beyond
// the transferred bytes, so we cap what a single record may hold.
const MaxRawHTMLSize = 5 * 1024 * 1024 // 5 MB

// PageRecord is the unit of output: one record per crawled page,
// persisted as a standalone JSON document.
//
// Design decision: We keep a fixed, flat field set with no omitempty
// tags because:
// 1. Downstream ingestion pipelines index records without per-record
//    schema discovery
// 2. An absent value must be distinguishable from a dropped field
// 3. Flat records diff cleanly between crawls of the same page
type PageRecord struct {
	// URL is the canonical URL of the page as fetched, after redirects.
	URL string `json:"url"`

	// URLFingerprint is the MD5 hex digest of URL. It is a pure function
	// of the URL string, so repeated crawls of the same page produce the
	// same fingerprint and therefore the same storage path.
	URLFingerprint string `json:"url_fingerprint"`

	// Domain is the host component of the URL, lowercased, without port.
	Domain string `json:"domain"`

	// PathSegments holds the non-empty path segments in order.
	// Empty (never nil) for the site root.
	PathSegments []string `json:"path_segments"`

	// Title is the page title. Empty string when the page has none.
	Title string `json:"title"`

	// Description is the meta description. Empty string when absent.
	Description string `json:"description"`

	// Keywords is the meta keywords value. Empty string when absent.
	Keywords string `json:"keywords"`

	// Language is the declared document language as a canonical BCP 47
	// tag, or UnknownLanguage when the page declares none.
	Language string `json:"language"`

	// RawHTML is the rendered <body> markup captured after the page
	// settled, capped at MaxRawHTMLSize.
	RawHTML string `json:"raw_html"`

	// CleanText is the plain text extracted from RawHTML.
	CleanText string `json:"clean_text"`

	// TextLength is the number of characters (runes) in CleanText.
	TextLength int `json:"text_length"`

	// StatusCode is the HTTP status of the document response.
	StatusCode int `json:"status_code"`

	// ContentHash is the SHA-256 hex digest of RawHTML.
	// Used for change detection between crawls.
	ContentHash string `json:"content_hash"`

	// FetchedAt is the instant the page was captured.
	FetchedAt time.Time `json:"fetched_at"`

	// FetchedAtUnix is FetchedAt as epoch seconds. Stored alongside the
	// timestamp so consumers can sort and filter without parsing dates.
	FetchedAtUnix int64 `json:"fetched_at_unix"`
}

// Fingerprint returns the MD5 hex digest of a URL string.
// The digest is stable across runs and platforms; the first characters
// of it disambiguate storage filenames for URLs sharing a last segment.
func Fingerprint(rawURL string) string {
	sum := md5.Sum([]byte(rawURL)) //nolint:gosec // Non-cryptographic use
	return hex.EncodeToString(sum[:])
}

// SplitPathSegments splits a URL path into its non-empty segments.
// "/wichtige-aemter/kontakt/" yields ["wichtige-aemter", "kontakt"].
// The returned slice is never nil so records serialize as [] not null.
func SplitPathSegments(path string) []string {
	segments := make([]string, 0, 4)
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// ComputeContentHash calculates and sets the SHA-256 hash of RawHTML.
// Call this after RawHTML is final.
func (r *PageRecord) ComputeContentHash() {
	if r.RawHTML == "" {
		r.ContentHash = ""
		return
	}
	sum := sha256.Sum256([]byte(r.RawHTML))
	r.ContentHash = hex.EncodeToString(sum[:])
}

// ComputeTextLength recalculates TextLength from CleanText.
// Lengths are counted in runes, not bytes, so multibyte scripts report
// the number of characters a reader would see.
func (r *PageRecord) ComputeTextLength() {
	r.TextLength = utf8.RuneCountInString(r.CleanText)
}

// MarkFetched sets both timestamp representations from a single instant
// so they can never disagree.
func (r *PageRecord) MarkFetched(t time.Time) {
	r.FetchedAt = t
	r.FetchedAtUnix = t.Unix()
}

// TruncateRawHTML enforces MaxRawHTMLSize on the captured markup.
// Call this before ComputeContentHash so the hash matches what is stored.
func (r *PageRecord) TruncateRawHTML() {
	if len(r.RawHTML) > MaxRawHTMLSize {
		r.RawHTML = r.RawHTML[:MaxRawHTMLSize]
	}
}
