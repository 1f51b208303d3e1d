package search

import (
	"strings"
	"unicode"
)

// Stop words ignored when checking a chunk for the query words
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "what": true, "who": true, "when": true,
	"where": true, "which": true, "did": true, "does": true, "were": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		}))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// containsAllQueryWords reports whether every significant query word appears in the chunk
func containsAllQueryWords(content, query string) bool {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return false
	}

	contentWords := tokenizeAndFilter(content)
	wordSet := make(map[string]bool, len(contentWords))
	for _, word := range contentWords {
		wordSet[word] = true
	}

	for _, qWord := range queryWords {
		if !wordSet[qWord] {
			return false
		}
	}

	return true
}
