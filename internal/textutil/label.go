package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StyleLabel renders a style key such as "angry_walk" as "Angry Walk".
func StyleLabel(style string) string {
	words := strings.FieldsFunc(style, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	if len(words) == 0 {
		return ""
	}
	return cases.Title(language.Und).String(strings.ToLower(strings.Join(words, " ")))
}
