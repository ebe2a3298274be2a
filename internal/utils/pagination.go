// Package utils provides small, generic helpers used across layers.
// Nothing here knows about the domain.
package utils

import "strconv"

// AtoiDefault converts s to an int, returning def when s is empty or not
// a valid integer.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage normalizes 1-based page numbers: anything below 1 becomes 1.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ClampPageSize bounds a page size to [1, max], substituting def for
// non-positive input.
func ClampPageSize(size, def, max int) int {
	if size <= 0 {
		size = def
	}
	if max > 0 && size > max {
		size = max
	}
	return size
}
