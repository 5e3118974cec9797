package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"empty", "", 10, ""},
		{"plain", "@say {name: C3} | short", 0, "@say {name: C3} | short"},
		{"multi line", "C3\n\nbecause  we\tagree\n", 0, "C3 ⏎ because we agree"},
		{"crlf", "a\r\nb", 0, "a ⏎ b"},
		{"control chars", "C1\x00\x07 ok\x7f", 0, "C1 ok"},
		{"ansi escapes", "\x1b[31mC2\x1b[0m red", 0, "C2 red"},
		{"osc title", "\x1b]0;pwned\x07C4", 0, "C4"},
		{"markup", "<think>hmm</think>```C5```", 0, "hmmC5"},
		{"truncate", "abcdefghij", 4, "abcd..."},
		{"truncate runes", "ééééé", 3, "ééé..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("Preview(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestPreview_DefaultCap(t *testing.T) {
	got := Preview(strings.Repeat("x", 500), 0)
	if n := utf8.RuneCountInString(got); n != DefaultPreviewLen+3 {
		t.Errorf("preview length = %d, want %d", n, DefaultPreviewLen+3)
	}
	if strings.ContainsAny(got, "\n\r") {
		t.Error("preview must be single line")
	}
}
