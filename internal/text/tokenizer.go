package text

import "unicode"

// Token is a maximal run of word characters with its byte offsets into the
// source string. End is exclusive; Text == src[Start:End].
type Token struct {
	Text       string
	Start, End int
}

// Tokenize scans text left to right and returns one Token per maximal run of
// letters or digits. Punctuation, whitespace and symbols separate tokens and
// are never emitted. Case is preserved; offsets are ascending and
// non-overlapping.
func Tokenize(text string) []Token {
	tokens := make([]Token, 0)
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, Token{Text: text[start:i], Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Text: text[start:], Start: start, End: len(text)})
	}
	return tokens
}
