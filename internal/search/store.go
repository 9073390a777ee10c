package search

import (
	"maps"
	"slices"
)

// Index is the query-ready form of a TermFreqIndex. It is built once and
// never modified afterwards, so any number of goroutines may rank against it
// without locking.
type Index struct {
	docs []indexedDoc
	df   map[string]int
}

type indexedDoc struct {
	path  string
	tf    TermFreq
	total int
}

// NewIndex copies tfi into an immutable Index, caching per-document token
// totals and per-term document frequencies.
func NewIndex(tfi TermFreqIndex) *Index {
	paths := slices.Sorted(maps.Keys(tfi))

	idx := &Index{
		docs: make([]indexedDoc, 0, len(paths)),
		df:   make(map[string]int),
	}
	for _, path := range paths {
		tf := make(TermFreq, len(tfi[path]))
		total := 0
		for term, count := range tfi[path] {
			if count <= 0 {
				continue
			}
			tf[term] = count
			total += count
			idx.df[term]++
		}
		idx.docs = append(idx.docs, indexedDoc{path: path, tf: tf, total: total})
	}
	return idx
}

// Len returns the number of documents in the index.
func (idx *Index) Len() int {
	return len(idx.docs)
}

// DocFreq returns how many documents contain term.
func (idx *Index) DocFreq(term string) int {
	return idx.df[term]
}
