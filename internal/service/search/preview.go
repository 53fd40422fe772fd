package search

import "unicode"

const (
	previewBefore   = 20
	previewAfter    = 40
	previewFallback = 60
	ellipsis        = "…"
)

// Preview cuts a window of text around the first case-insensitive
// occurrence of query: 20 runes before it and 40 after, with an ellipsis on
// each side that was cut. When query cannot be located the first 60 runes
// are returned instead.
func Preview(text, query string) string {
	runes := []rune(text)
	q := []rune(query)

	i := indexFold(runes, q)
	if i < 0 {
		if len(runes) <= previewFallback {
			return text
		}
		return string(runes[:previewFallback]) + ellipsis
	}

	start := max(0, i-previewBefore)
	end := min(len(runes), i+len(q)+previewAfter)

	out := string(runes[start:end])
	if start > 0 {
		out = ellipsis + out
	}
	if end < len(runes) {
		out += ellipsis
	}
	return out
}

// containsFold reports whether query occurs in text ignoring case.
func containsFold(text, query string) bool {
	return indexFold([]rune(text), []rune(query)) >= 0
}

// indexFold returns the rune offset of the first case-insensitive match of
// q in text, or -1. An empty q never matches.
func indexFold(text, q []rune) int {
	if len(q) == 0 || len(q) > len(text) {
		return -1
	}
outer:
	for i := 0; i+len(q) <= len(text); i++ {
		for j := range q {
			if unicode.ToLower(text[i+j]) != unicode.ToLower(q[j]) {
				continue outer
			}
		}
		return i
	}
	return -1
}
