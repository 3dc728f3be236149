package utils

import "testing"

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"2024-03-05", "2024\\-03\\-05"},
		{"@dave_lee (Dave)", "@dave\\_lee \\(Dave\\)"},
		{"a.b!c", "a\\.b\\!c"},
		{"*[x]*", "\\*\\[x\\]\\*"},
		{"09:30 — ok", "09:30 — ok"},
	}

	for _, tt := range tests {
		if got := EscapeMarkdown(tt.in); got != tt.want {
			t.Errorf("EscapeMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
