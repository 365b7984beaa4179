// Package textutil provides UTF-8 safe text helpers shared across the
// indexing pipeline.
package textutil

import (
	"strings"
	"unicode/utf8"
)

// Sanitize replaces invalid UTF-8 byte sequences with the Unicode
// replacement character, implementing lossy ingestion of untrusted
// document bytes.
func Sanitize(str string) string {
	if utf8.ValidString(str) {
		return str
	}

	var buf strings.Builder
	buf.Grow(len(str))
	for len(str) > 0 {
		r, size := utf8.DecodeRuneInString(str)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
			str = str[1:]
			continue
		}
		buf.WriteRune(r)
		str = str[size:]
	}
	return buf.String()
}

// TruncateUTF8 truncates a string to at most maxBytes without breaking a
// multi-byte character.
func TruncateUTF8(str string, maxBytes int) string {
	if len(str) <= maxBytes {
		return str
	}
	for i := maxBytes; i >= 0 && i > maxBytes-4; i-- {
		if utf8.ValidString(str[:i]) {
			return str[:i]
		}
	}
	return ""
}

// CollapseBlankLines trims the text and collapses runs of blank lines
// down to one.
func CollapseBlankLines(content string) string {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	var out []string
	lastBlank := false
	for _, line := range lines {
		blank := strings.TrimSpace(line) == ""
		if blank && lastBlank {
			continue
		}
		if blank {
			out = append(out, "")
		} else {
			out = append(out, line)
		}
		lastBlank = blank
	}
	return strings.Join(out, "\n")
}
