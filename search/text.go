package search

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "be": {}, "is": {}, "are": {}, "was": {},
	"to": {}, "of": {}, "and": {}, "in": {}, "that": {}, "have": {}, "it": {},
	"for": {}, "not": {}, "on": {}, "with": {}, "as": {}, "at": {}, "this": {},
	"by": {}, "from": {}, "or": {}, "what": {}, "which": {}, "how": {},
}

// significantWords lowercases text, splits it on anything that is not a
// letter or digit and drops stop words.
func significantWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; !stop {
			words = append(words, f)
		}
	}
	return words
}

// containsAll reports whether every word appears in text.
// An empty word list never matches.
func containsAll(text string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	present := make(map[string]struct{})
	for _, w := range significantWords(text) {
		present[w] = struct{}{}
	}
	for _, w := range words {
		if _, ok := present[w]; !ok {
			return false
		}
	}
	return true
}
