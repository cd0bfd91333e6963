package textclean

import (
	"html"
	"regexp"
	"strings"
)

// Extraction patterns, compiled once at package load.
// Script and style blocks are removed with their content because the
// text inside them is code, not prose. Everything else keeps its text
// and loses only the markup.
var (
	// scriptRe matches a whole <script> element including its body.
	// (?is) makes the match case-insensitive and lets . cross newlines.
	scriptRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)

	// styleRe matches a whole <style> element including its body.
	styleRe = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)

	// commentRe matches HTML comments, which often hold templating
	// leftovers that must not leak into the extracted text.
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)

	// tagRe matches any remaining tag. Replaced with a space rather
	// than removed outright so "</td><td>" does not glue words together.
	tagRe = regexp.MustCompile(`<[^>]+>`)

	// zeroWidthRe matches invisible characters that survive entity
	// decoding and would otherwise inflate text lengths.
	zeroWidthRe = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}]`)

	// spaceRe collapses whitespace runs. \p{Zs} covers Unicode spaces
	// such as NBSP that decoded entities introduce and that \s misses.
	spaceRe = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// Clean reduces rendered HTML markup to readable plain text.
//
// The pipeline is deliberately regex-driven rather than DOM-driven:
// rendered snapshots are routinely malformed (unclosed tags, stray
// brackets from frameworks), and a tolerant textual pass extracts
// usable prose where a strict parser would have to guess. The steps
// run in a fixed order:
//
//  1. Drop <script> blocks with their content
//  2. Drop <style> blocks with their content
//  3. Drop HTML comments
//  4. Replace every remaining tag with a single space
//  5. Decode HTML entities (named and numeric)
//  6. Collapse whitespace runs and trim the ends
//
// Cleaning already-clean text returns it unchanged, and empty input
// yields empty output.
func Clean(markup string) string {
	if markup == "" {
		return ""
	}

	text := scriptRe.ReplaceAllString(markup, " ")
	text = styleRe.ReplaceAllString(text, " ")
	text = commentRe.ReplaceAllString(text, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = zeroWidthRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
