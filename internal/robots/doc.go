// Package robots gates crawl URLs on each host's robots.txt.
//
// A Policy fetches a host's robots.txt once, caches the rule group
// matching the crawler's user agent, and answers Allowed for every
// URL on that host from the cache. Hosts whose robots.txt cannot be
// fetched are treated as open.
package robots
