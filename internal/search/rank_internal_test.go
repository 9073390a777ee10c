package search

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareResults_NaNSortsLast(t *testing.T) {
	results := []Result{
		{Path: "nan-b", Score: math.NaN()},
		{Path: "low", Score: 0},
		{Path: "nan-a", Score: math.NaN()},
		{Path: "high", Score: 0.7},
		{Path: "mid", Score: 0.2},
	}

	slices.SortFunc(results, compareResults)

	paths := make([]string, len(results))
	for i, r := range results {
		paths[i] = r.Path
	}
	assert.Equal(t, []string{"high", "mid", "low", "nan-a", "nan-b"}, paths)
}

func TestCompareResults_Ties(t *testing.T) {
	a := Result{Path: "a", Score: 0.5}
	b := Result{Path: "b", Score: 0.5}

	assert.Equal(t, -1, compareResults(a, b))
	assert.Equal(t, 1, compareResults(b, a))
	assert.Equal(t, 0, compareResults(a, a))
}

func TestCacheKey_Unambiguous(t *testing.T) {
	assert.NotEqual(t, cacheKey([]string{"AB", "C"}), cacheKey([]string{"A", "BC"}))
	assert.NotEqual(t, cacheKey([]string{"1:A"}), cacheKey([]string{"1", "A"}))
	assert.Equal(t, "", cacheKey(nil))
}
