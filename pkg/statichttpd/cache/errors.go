package cache

import "errors"

// Sentinel errors surfaced by Acquire. Both map to HTTP-visible outcomes
// at the session layer (spec.md §7): ErrNotFound -> 404, ErrIOError ->
// 500.
var (
	// ErrNotFound indicates the path failed stat, is not a regular
	// file, or is below the minimum-size threshold the caller enforces
	// before calling Acquire (spec.md §4.4 — the cache itself does not
	// re-check size or file type; it trusts the caller already did).
	ErrNotFound = errors.New("cache: not found")

	// ErrIOError indicates a stat succeeded but the subsequent read
	// failed.
	ErrIOError = errors.New("cache: read failed")
)
