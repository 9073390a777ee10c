package search

import (
	"encoding/json"
	"math"
	"slices"
	"strings"
)

// TopK is the maximum number of results Rank returns.
const TopK = 20

// Result holds a document path and its score for a query.
type Result struct {
	Path  string
	Score float64
}

// MarshalJSON encodes a result as a [path, score] pair. A NaN score is
// written as null.
func (r Result) MarshalJSON() ([]byte, error) {
	if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
		return json.Marshal([]any{r.Path, nil})
	}
	return json.Marshal([]any{r.Path, r.Score})
}

// UnmarshalJSON decodes a [path, score] pair. A null score decodes as NaN.
func (r *Result) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &r.Path); err != nil {
		return err
	}
	var score *float64
	if err := json.Unmarshal(pair[1], &score); err != nil {
		return err
	}
	if score == nil {
		r.Score = math.NaN()
	} else {
		r.Score = *score
	}
	return nil
}

// Rank scores every document in idx against query with TF-IDF and returns
// at most TopK results, best first.
func Rank(idx *Index, query string) []Result {
	return rankTokens(idx, Tokenize(query))
}

func rankTokens(idx *Index, tokens []string) []Result {
	results := make([]Result, 0, idx.Len())
	if idx.Len() == 0 {
		return results
	}

	idf := make([]float64, len(tokens))
	for i, token := range tokens {
		idf[i] = inverseDocFreq(idx, token)
	}

	for _, doc := range idx.docs {
		var score float64
		for i, token := range tokens {
			score += termFreq(doc, token) * idf[i]
		}
		results = append(results, Result{Path: doc.path, Score: score})
	}

	slices.SortFunc(results, compareResults)
	if len(results) > TopK {
		results = results[:TopK]
	}
	return results
}

func termFreq(doc indexedDoc, term string) float64 {
	if doc.total == 0 {
		return 0
	}
	return float64(doc.tf[term]) / float64(doc.total)
}

func inverseDocFreq(idx *Index, term string) float64 {
	n := float64(idx.Len())
	df := float64(max(1, idx.DocFreq(term)))
	return math.Log10(n / df)
}

// compareResults orders by descending score with NaN last, then by path.
func compareResults(a, b Result) int {
	aNaN, bNaN := math.IsNaN(a.Score), math.IsNaN(b.Score)
	switch {
	case aNaN && !bNaN:
		return 1
	case !aNaN && bNaN:
		return -1
	case !aNaN && a.Score > b.Score:
		return -1
	case !aNaN && a.Score < b.Score:
		return 1
	}
	return strings.Compare(a.Path, b.Path)
}
