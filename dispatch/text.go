package dispatch

import (
	"regexp"
	"strings"
)

var mentionRE = regexp.MustCompile(`<@[A-Za-z0-9]+(\|[^>]*)?>`)

// request words users put in front of the component name, stripped in this order
var requestPrefixes = []string{"/customer", "/insights", "customer", "insights", "for", "analyze"}

// CleanComponentName extracts the component a user asked about from a message.
func CleanComponentName(text string) string {
	text = mentionRE.ReplaceAllString(text, " ")
	text = strings.ToLower(strings.TrimSpace(text))
	for _, prefix := range requestPrefixes {
		if rest, ok := strings.CutPrefix(text, prefix); ok && wordBoundary(rest) {
			text = strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(strings.Trim(text, "/:- \n\t"))
}

// wordBoundary keeps "forecast" from losing its "for".
func wordBoundary(rest string) bool {
	return rest == "" || strings.ContainsRune(" \t\n/:-", rune(rest[0]))
}
