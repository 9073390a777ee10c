package search

// TermFreq maps a token to the number of times it occurs in one document.
// Absent tokens have a count of zero; zero counts are never stored.
type TermFreq map[string]int

// TermFreqIndex maps a document path to its term frequencies.
type TermFreqIndex map[string]TermFreq

// Tokenize returns every token of text in order.
func Tokenize(text string) []string {
	var tokens []string
	for token := range NewLexer(text).All() {
		tokens = append(tokens, token)
	}
	return tokens
}

// CountTerms tokenizes text and counts each token.
func CountTerms(text string) TermFreq {
	tf := make(TermFreq)
	for token := range NewLexer(text).All() {
		tf[token]++
	}
	return tf
}

// Total returns the number of tokens the document contained.
func (tf TermFreq) Total() int {
	total := 0
	for _, count := range tf {
		total += count
	}
	return total
}
