// Package display renders the parking indicators. Every implementation
// owns a single UI goroutine: effects posted from store callbacks are
// queued and applied there, in order, and never touch UI state directly.
//
// The terminal screen runs on the bubbletea event loop. The headless
// screen runs its own loop, logs notifications and keeps the indicator
// state for the HTTP status endpoint.
package display
