package badger

import "strings"

// tokenize splits a name into lowercase words with surrounding punctuation
// trimmed.
func tokenize(text string) []string {
	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" {
			tokens = append(tokens, cleaned)
		}
	}

	return tokens
}

// nameMatches checks if all term words appear as whole tokens in the name.
func nameMatches(name, term string) bool {
	termTokens := tokenize(term)
	if len(termTokens) == 0 {
		return false
	}

	nameTokens := tokenize(name)
	nameSet := make(map[string]bool, len(nameTokens))
	for _, token := range nameTokens {
		nameSet[token] = true
	}

	for _, token := range termTokens {
		if !nameSet[token] {
			return false
		}
	}

	return true
}
