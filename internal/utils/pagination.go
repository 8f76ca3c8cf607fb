// Package utils holds tiny helpers with no domain knowledge, shared across
// layers.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def when s is empty or malformed.
// Query-string pagination is the main caller; garbage input silently becomes
// the default rather than a 400.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampInt bounds n to [lo, hi].
func ClampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
