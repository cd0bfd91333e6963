// Package log provides logging utilities for the crawler.
// The TrimHandler caps attribute value lengths so page-derived
// content never floods log output.
package log
