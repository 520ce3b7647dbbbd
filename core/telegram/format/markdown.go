package format

import "regexp"

var mdV1Specials = regexp.MustCompile("([_*\\\\\\[`])")

// EscapeMarkdown escapes characters Telegram treats as Markdown markup.
func EscapeMarkdown(text string) string {
	return mdV1Specials.ReplaceAllString(text, `\$1`)
}
