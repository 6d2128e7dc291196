package htmlutil

import "html"

// EscapeTruncate cuts text to at most max runes and HTML-escapes the result.
// Truncation happens before escaping, so an entity is never cut in half.
func EscapeTruncate(text string, max int) string {
	if max >= 0 {
		runes := []rune(text)
		if len(runes) > max {
			text = string(runes[:max])
		}
	}
	return html.EscapeString(text)
}
