package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts the record metadata and outbound links from rendered
// page markup.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure for attribute lookups
//  3. More maintainable than complex regex patterns
//  4. Standard library extension, well-maintained
//
// Text extraction is the one place that stays regex-driven (the
// textclean package); structure-dependent work like link resolution
// belongs here.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving
	// relative links.
	baseURL *url.URL
}

// ParseResult contains everything extracted from one page in a single
// parsing pass.
type ParseResult struct {
	// Title is the page title from the <title> tag, trimmed.
	Title string

	// Description is the meta description, falling back to the
	// OpenGraph description when the page carries only that.
	Description string

	// Keywords is the meta keywords value.
	Keywords string

	// Language is the raw lang attribute of the <html> element.
	Language string

	// BodyHTML is the serialized <body> element.
	BodyHTML string

	// Links contains the absolute, deduplicated anchor targets.
	// Fragments are stripped; javascript:, mailto:, tel:, and data:
	// targets are dropped.
	Links []string
}

// NewParser creates a parser that resolves links against the given base
// URL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse walks the document once and collects metadata, body markup, and
// links. Malformed markup never fails: html.Parse repairs what it can.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links: make([]string, 0),
	}
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result, seen)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles one HTML element node.
func (p *Parser) processElement(n *html.Node, result *ParseResult, seen map[string]bool) {
	switch n.Data {
	case "html":
		if result.Language == "" {
			result.Language = strings.TrimSpace(getAttr(n, "lang"))
		}

	case "title":
		// First title wins; embedded SVG titles come later in the tree.
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "body":
		if result.BodyHTML == "" {
			var sb strings.Builder
			if err := html.Render(&sb, n); err == nil {
				result.BodyHTML = sb.String()
			}
		}

	case "meta":
		p.processMeta(n, result)

	case "a":
		if href := getAttr(n, "href"); href != "" {
			resolved := p.resolveURL(href)
			if resolved != "" && !seen[resolved] {
				seen[resolved] = true
				result.Links = append(result.Links, resolved)
			}
		}
	}
}

// processMeta extracts description and keywords metadata.
// The name attribute takes priority; OpenGraph property tags fill in
// only when the plain tags are absent.
func (p *Parser) processMeta(n *html.Node, result *ParseResult) {
	content := strings.TrimSpace(getAttr(n, "content"))
	if content == "" {
		return
	}

	switch strings.ToLower(getAttr(n, "name")) {
	case "description":
		result.Description = content
		return
	case "keywords":
		result.Keywords = content
		return
	}

	if strings.ToLower(getAttr(n, "property")) == "og:description" && result.Description == "" {
		result.Description = content
	}
}

// resolveURL resolves a link target against the base URL.
// Non-navigational schemes and bare fragments resolve to "", and the
// fragment of every resolved URL is dropped because it never changes
// the fetched document.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") ||
		strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	resolved.Fragment = ""

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
