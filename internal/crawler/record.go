package crawler

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"

	"ragspider/internal/model"
	"ragspider/internal/render"
	"ragspider/internal/textclean"
)

// buildPageRecord assembles the stored record for one rendered page.
// The final URL (after redirects) is authoritative for the record's
// identity fields: fingerprint, domain, and path segments all derive
// from it.
func buildPageRecord(finalURL *url.URL, res *render.Result, parsed *ParseResult, fetchedAt time.Time) *model.PageRecord {
	rawURL := finalURL.String()

	rawHTML := res.BodyHTML
	if rawHTML == "" {
		rawHTML = parsed.BodyHTML
	}

	record := &model.PageRecord{
		URL:            rawURL,
		URLFingerprint: model.Fingerprint(rawURL),
		Domain:         strings.ToLower(finalURL.Hostname()),
		PathSegments:   model.SplitPathSegments(finalURL.Path),
		Title:          parsed.Title,
		Description:    parsed.Description,
		Keywords:       parsed.Keywords,
		Language:       normalizeLanguage(parsed.Language),
		RawHTML:        rawHTML,
		StatusCode:     res.StatusCode,
	}

	record.TruncateRawHTML()
	record.CleanText = textclean.Clean(record.RawHTML)
	record.ComputeTextLength()
	record.ComputeContentHash()
	record.MarkFetched(fetchedAt)

	return record
}

// normalizeLanguage canonicalizes a declared document language.
// "EN-us" becomes "en-US"; a page with no declaration gets the explicit
// unknown marker. Tags the BCP 47 parser rejects are kept as declared
// rather than discarded, since a sloppy tag still carries signal.
func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return model.UnknownLanguage
	}

	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	return tag.String()
}
