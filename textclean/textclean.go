// Package textclean provides conservative cleanup helpers for noisy OCR text.
//
// The helpers here are deliberately light-handed: OCR output is already
// degraded and aggressive rewriting destroys more signal than it recovers.
// They are shared by the OCR record normalizer, the enrichment fallback,
// and search-text construction.
package textclean

import (
	"regexp"
	"strings"
)

// PlaceholderMarker is the stand-in token emitted by the stub OCR engine.
// Cleanup strips it so placeholder pages do not pollute search text.
const PlaceholderMarker = "[OCR_PLACEHOLDER]"

var whitespaceRE = regexp.MustCompile(`\s+`)

// NormalizeWhitespace collapses runs of whitespace to single spaces and
// trims the result.
func NormalizeWhitespace(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}

// StripControlChars removes ASCII control characters that show up in OCR
// output and malformed scans. Newlines and tabs survive; only true control
// characters are dropped.
func StripControlChars(text string) string {
	if text == "" {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if isControlRune(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isControlRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return false
	}
	return r < 0x20 || r == 0x7f
}

var hyphenBreakRE = regexp.MustCompile(`(\w)-\s*\n\s*(\w)`)

// CollapseHyphenation joins words split across line breaks ("multi-\nple"
// becomes "multiple"). Hyphenated words that do not span a line break are
// left alone.
func CollapseHyphenation(text string) string {
	if text == "" {
		return ""
	}
	return hyphenBreakRE.ReplaceAllString(text, "$1$2")
}

// Cleanup applies the full conservative pass: control characters, broken
// hyphenation, whitespace, and placeholder markers.
func Cleanup(text string) string {
	if text == "" {
		return ""
	}
	cleaned := StripControlChars(text)
	cleaned = CollapseHyphenation(cleaned)
	cleaned = NormalizeWhitespace(cleaned)
	return strings.TrimSpace(strings.ReplaceAll(cleaned, PlaceholderMarker, ""))
}

// Truncate soft-truncates text to maxChars runes, appending an ellipsis when
// truncation happens. The suffix counts toward the limit.
func Truncate(text string, maxChars int) string {
	if text == "" || maxChars <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	const suffix = "…"
	if maxChars <= 1 {
		return suffix
	}
	return string(runes[:maxChars-1]) + suffix
}
