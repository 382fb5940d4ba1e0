// utils/names.go
package utils

import (
	"strings"
	"unicode"

	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	titleCaser = cases.Title(language.English)
	folder     = cases.Fold()
)

// TitleCase capitalizes each word: "rare red mossy isopod" -> "Rare Red Mossy Isopod".
func TitleCase(s string) string {
	return titleCaser.String(strings.ToLower(s))
}

// CreatureName formats a generated catalog name. Tier and color are
// capitalized, the descriptor word and kind stay lowercase:
// "Rare Red mossy isopod".
func CreatureName(tier, color, word, kind string) string {
	return strings.Join([]string{TitleCase(tier), TitleCase(color), strings.ToLower(word), kind}, " ")
}

// UsernameKey normalizes a chat username (with or without @) for lookups.
func UsernameKey(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "@")
	return folder.String(name)
}

// NormalizeWord turns a word-list entry into a plain lowercase ASCII word.
// Returns "" when nothing usable is left.
func NormalizeWord(w string) string {
	w = strings.ToLower(unidecode.Unidecode(strings.TrimSpace(w)))
	w = strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || r == '-') {
			return r
		}
		return -1
	}, w)
	return strings.Trim(w, "-")
}

// FileSlug builds a filesystem-safe name for rendered images.
func FileSlug(parts ...string) string {
	return slug.Make(strings.Join(parts, " "))
}
