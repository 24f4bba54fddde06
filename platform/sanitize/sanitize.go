// Package sanitize provides text sanitization for scraped content.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// stripHTML removes all HTML tags from a string and decodes common entities.
func stripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	result = strings.ReplaceAll(result, "&nbsp;", " ")
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips HTML, collapses whitespace and truncates to maxRunes
// (no limit when maxRunes <= 0).
func Text(s string, maxRunes int) string {
	result := whitespaceRegex.ReplaceAllString(stripHTML(s), " ")
	if maxRunes > 0 {
		runes := []rune(result)
		if len(runes) > maxRunes {
			result = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}
	return result
}
