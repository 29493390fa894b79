package utils

import "strings"

// ParseList reads a comma-separated setting such as an origin list.
// Entries are trimmed, blanks dropped and repeats collapsed to the first
// occurrence. Nil when nothing remains.
func ParseList(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// NormalizeSymbol trims and upper-cases a ticker so "reliance.ns " and
// "RELIANCE.NS" address the same holding.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
