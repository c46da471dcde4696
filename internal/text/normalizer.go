package text

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Russian)

// Normalize canonicalizes a raw token into the form the morphological
// dictionary is indexed on: lowercased, with every ё rewritten to е, and
// surrounding whitespace trimmed. The dictionary carries only the е spelling,
// so the rewrite is mandatory, not cosmetic.
//
// An empty result means the token is not lemmatizable and must be skipped.
func Normalize(raw string) string {
	s := lower.String(raw)
	s = strings.ReplaceAll(s, "ё", "е")
	return strings.TrimSpace(s)
}
