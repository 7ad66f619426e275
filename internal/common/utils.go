package common

import "strings"

// HasAny returns true if s contains any of the substrings. The scrapers use
// it to match Danish row labels in both spelled-out and ASCII forms.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
