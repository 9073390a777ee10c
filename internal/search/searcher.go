package search

import (
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Searcher answers a raw query with ranked results.
type Searcher interface {
	Search(query string) []Result
}

// Ranker runs Rank over a fixed Index.
type Ranker struct {
	index *Index
}

func NewRanker(idx *Index) *Ranker {
	return &Ranker{index: idx}
}

func (r *Ranker) Search(query string) []Result {
	return Rank(r.index, query)
}

// CachedSearcher memoizes ranked results per normalized query. Entries never
// go stale because the underlying index is immutable.
type CachedSearcher struct {
	index  *Index
	cache  *lru.Cache[string, []Result]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachedSearcher returns a searcher over idx that keeps up to size
// distinct queries.
func NewCachedSearcher(idx *Index, size int) (*CachedSearcher, error) {
	cache, err := lru.New[string, []Result](size)
	if err != nil {
		return nil, err
	}
	return &CachedSearcher{index: idx, cache: cache}, nil
}

func (c *CachedSearcher) Search(query string) []Result {
	tokens := Tokenize(query)
	key := cacheKey(tokens)

	if results, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return slices.Clone(results)
	}
	c.misses.Add(1)

	results := rankTokens(c.index, tokens)
	c.cache.Add(key, results)
	return slices.Clone(results)
}

// Hits returns how many searches were served from the cache.
func (c *CachedSearcher) Hits() uint64 {
	return c.hits.Load()
}

// Misses returns how many searches had to be ranked.
func (c *CachedSearcher) Misses() uint64 {
	return c.misses.Load()
}

// cacheKey length-prefixes each token so that no two token sequences share
// a key.
func cacheKey(tokens []string) string {
	var sb strings.Builder
	for _, token := range tokens {
		sb.WriteString(strconv.Itoa(len(token)))
		sb.WriteByte(':')
		sb.WriteString(token)
	}
	return sb.String()
}
