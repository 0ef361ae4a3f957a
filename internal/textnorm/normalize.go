// Package textnorm canonicalizes question text before it is hashed.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxPasses bounds the fixed-point loop in Normalize. Real inputs converge in one or two passes.
const maxPasses = 4

// tagRegex matches a known element name followed only by name=value attributes, so
// comparisons such as "3 < 5 and 7 > 2" or "a<b or c>d" are left intact.
var tagRegex = regexp.MustCompile(`</?(?i:a|abbr|b|big|blockquote|br|center|code|del|div|em|font|h[1-6]|hr|i|img|ins|kbd|li|mark|ol|p|pre|q|s|small|span|strike|strong|sub|sup|table|tbody|td|th|thead|tr|tt|u|ul)` +
	`(?:\s+[a-zA-Z][a-zA-Z0-9:-]*\s*=\s*(?:"[^"<>]*"|'[^'<>]*'|[^\s"'<>]+))*\s*/?>`)

// persianGlyphs maps Arabic presentation variants onto the Persian letters used in the corpus.
var persianGlyphs = map[rune]rune{
	'ي': 'ی',
	'ى': 'ی',
	'ك': 'ک',
	'ة': 'ه',
}

// Normalize returns the canonical form of text: tags stripped, NFKC applied, emoji removed,
// Arabic glyphs and digits mapped, whitespace collapsed and ASCII letters lowercased.
// Normalize(Normalize(s)) == Normalize(s) for all s.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	out := text
	for i := 0; i < maxPasses; i++ {
		next := pass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func pass(text string) string {
	text = stripTags(text)
	text = norm.NFKC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isEmoji(r) {
			continue
		}
		b.WriteRune(mapRune(r))
	}
	return collapseSpaces(b.String())
}

func stripTags(text string) string {
	for strings.ContainsRune(text, '<') {
		next := tagRegex.ReplaceAllString(text, " ")
		if next == text {
			break
		}
		text = next
	}
	return text
}

func mapRune(r rune) rune {
	if mapped, ok := persianGlyphs[r]; ok {
		return mapped
	}
	switch {
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= 'A' && r <= 'Z':
		return r + ('a' - 'A')
	}
	return r
}

func collapseSpaces(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, transport, flags
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2300 && r <= 0x23FF:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	case r >= 0xE0020 && r <= 0xE007F: // tag sequences
		return true
	case r == 0x200D, r == 0xFE0E, r == 0xFE0F, r == 0x20E3, r == 0x3030, r == 0x303D:
		return true
	}
	return false
}
