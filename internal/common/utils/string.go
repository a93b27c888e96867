package utils

import "strings"

// TruncateText shortens s to at most max bytes, backing off to the last
// space inside the cut and appending "...". Shorter strings are returned as is.
func TruncateText(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}

	cut := s[:max]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

// TruncateCell truncates string cells and leaves every other value untouched.
func TruncateCell(value interface{}, max int) interface{} {
	if s, ok := value.(string); ok {
		return TruncateText(s, max)
	}
	return value
}
