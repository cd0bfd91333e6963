// Package render captures JavaScript-rendered pages through a headless
// Chromium driven over the DevTools protocol.
//
// The package exposes three pieces:
//   - Renderer: the interface the crawl frontier depends on
//   - AwaitContent: the readiness detector that decides when a page has
//     rendered enough visible text to capture
//   - RodRenderer: the production implementation built on go-rod with
//     stealth page profiles
//
// Readiness is judged by polling the live DOM's visible text length
// until it crosses a threshold, followed by a single settle delay.
// Lifecycle events alone (load, DOMContentLoaded) fire long before
// client-side frameworks finish painting content, which is why the
// detector samples text instead.
package render
