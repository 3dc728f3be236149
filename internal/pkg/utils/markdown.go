package utils

import "strings"

const markdownSpecial = "_*[]()~`>#+-=|{}.!\\"

// EscapeMarkdown escapes text for Telegram's MarkdownV2 parse mode.
func EscapeMarkdown(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(markdownSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
