package utils

import (
	"strconv"
	"strings"
)

// ParseCSV splits a comma-separated setting into trimmed, de-duplicated values in
// first-seen order. Returns nil when nothing remains.
// Used for list-valued settings such as CORS_ORIGINS.
func ParseCSV(s string) []string {
	var result []string
	seen := make(map[string]bool)
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}

// ParseLimit reads a page-size query parameter.
// Blank, malformed or non-positive values yield def; values above max are clamped.
func ParseLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
