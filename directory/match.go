package directory

import (
	"sort"
	"strings"
)

// Match returns the candidates that loosely match query, sorted lexicographically.
// A candidate matches when any query word and candidate word relate by containment
// or prefix, or when the query word and the whole candidate contain one another.
func Match(query string, candidates []string) []string {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil
	}

	var matches []string
	for _, candidate := range candidates {
		if matchesAny(words, candidate) {
			matches = append(matches, candidate)
		}
	}
	sort.Strings(matches)
	return matches
}

func matchesAny(words []string, candidate string) bool {
	full := strings.ToLower(candidate)
	for _, sw := range words {
		if strings.Contains(full, sw) || strings.Contains(sw, full) {
			return true
		}
		for _, cw := range strings.Fields(full) {
			if strings.HasPrefix(cw, sw) || strings.HasPrefix(sw, cw) || strings.Contains(cw, sw) {
				return true
			}
		}
	}
	return false
}
