package text

import "unicode/utf8"

// MaxQuoteWindow bounds the context window accepted by Quote.
const MaxQuoteWindow = 500

// ClampWindow forces a caller-supplied window into [0, MaxQuoteWindow].
func ClampWindow(window int) int {
	if window < 0 {
		return 0
	}
	if window > MaxQuoteWindow {
		return MaxQuoteWindow
	}
	return window
}

// Quote returns the substring of text surrounding [start, end) widened by
// window bytes on each side, clamped to the text boundaries. Cut points that
// land inside a multi-byte rune are moved inward so the result is always
// valid UTF-8 and a contiguous substring of text.
func Quote(text string, start, end, window int) string {
	window = ClampWindow(window)
	lo := start - window
	if lo < 0 {
		lo = 0
	}
	hi := end + window
	if hi > len(text) {
		hi = len(text)
	}
	for lo < len(text) && !utf8.RuneStart(text[lo]) {
		lo++
	}
	for hi > 0 && hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi--
	}
	if lo > hi {
		return ""
	}
	return text[lo:hi]
}
