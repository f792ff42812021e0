package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ForbiddenFileNameChars lists every character SanitizeFileName replaces.
const ForbiddenFileNameChars = " .,*+-:!?$@()/\\'"

// fileNameReplacer maps each forbidden character to an underscore.
var fileNameReplacer = newUnderscoreReplacer(ForbiddenFileNameChars)

func newUnderscoreReplacer(chars string) *strings.Replacer {
	pairs := make([]string, 0, len(chars)*2)
	for _, r := range chars {
		pairs = append(pairs, string(r), "_")
	}
	return strings.NewReplacer(pairs...)
}

// SanitizeFileName maps an arbitrary title to a filesystem-safe token.
// The input is NFC-normalized and every character in ForbiddenFileNameChars
// becomes an underscore; nothing else is altered, so the result keeps its
// length in runes and distinct inputs may collide.
func SanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	return fileNameReplacer.Replace(norm.NFC.String(name))
}
