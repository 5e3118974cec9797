// Package sanitize prepares raw decision-source text for operator-facing
// output. Replies are arbitrary model text: they may hold control
// characters, terminal escape sequences, markup, or many lines. Previews
// must stay on one log line and never drive the terminal.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultPreviewLen is the preview cap used when none is given.
const DefaultPreviewLen = 120

var (
	// reANSI matches CSI and OSC terminal escape sequences.
	reANSI = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)

	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>`)

	// reTripleBacktick matches code fence markers.
	reTripleBacktick = regexp.MustCompile("```+")

	// reSpaces matches runs of whitespace.
	reSpaces = regexp.MustCompile(`\s+`)
)

// Preview returns text as a single line of at most maxLen runes:
//  1. Strip terminal escape sequences
//  2. Strip control characters except whitespace
//  3. Strip XML/HTML tags and code fences
//  4. Join lines with " ⏎ " and collapse whitespace
//  5. Truncate with "..."
//
// A non-positive maxLen uses DefaultPreviewLen.
func Preview(text string, maxLen int) string {
	if text == "" {
		return ""
	}
	if maxLen <= 0 {
		maxLen = DefaultPreviewLen
	}

	s := reANSI.ReplaceAllString(text, "")
	s = stripControlChars(s)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reTripleBacktick.ReplaceAllString(s, "")

	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(reSpaces.ReplaceAllString(l, " ")); l != "" {
			kept = append(kept, l)
		}
	}
	s = strings.Join(kept, " ⏎ ")

	if utf8.RuneCountInString(s) > maxLen {
		runes := []rune(s)
		s = string(runes[:maxLen]) + "..."
	}
	return s
}

// stripControlChars removes control characters except newline, carriage
// return and tab, plus DEL.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 && r != '\n' && r != '\t' && r != '\r') || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
