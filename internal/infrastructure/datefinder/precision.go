package datefinder

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const currencySigns = "$£€¥"

var yearToken = regexp.MustCompile(`\b(?:1[89]\d{2}|20\d{2})\b`)

// bareYearAllowed rejects a lone year written as a price or trailing
// another whitespace-separated number, as in phone numbers.
func bareYearAllowed(text string, start int) bool {
	before := text[:start]
	if r, _ := utf8.DecodeLastRuneInString(before); strings.ContainsRune(currencySigns, r) {
		return false
	}
	trimmed := strings.TrimRight(before, " \t")
	if trimmed == before || trimmed == "" {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(trimmed)
	return !unicode.IsDigit(r) && !strings.ContainsRune(currencySigns, r)
}

// isNumeric reports whether a mention carries no letters at all.
func isNumeric(mention string) bool {
	return strings.IndexFunc(mention, unicode.IsLetter) < 0
}

// modalMay matches "may" used as a verb before a year, as in "he may 2014".
var modalMay = regexp.MustCompile(`\bmay\b`)
