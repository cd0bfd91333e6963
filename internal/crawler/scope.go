package crawler

import "strings"

// NormalizeHost lowercases a host name and strips one leading "www."
// label. The result is the form used for scope comparisons and the
// allowed-host set.
func NormalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if rest, ok := strings.CutPrefix(h, "www."); ok {
		return rest
	}
	return h
}

// SameSite reports whether two host names belong to the same site.
// The comparison is case-insensitive and treats the www variant and the
// bare domain as one site, so declaring either form in scope admits
// both. Distinct subdomains are distinct sites: blog.example.com never
// matches example.com.
func SameSite(a, b string) bool {
	na := NormalizeHost(a)
	if na == "" {
		return false
	}
	return na == NormalizeHost(b)
}
