// Package search implements the matching strategies behind the vault's
// search box: exact substring, fuzzy edit distance and semantic ranking.
package search

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity returns a normalized edit-distance similarity in [0, 1].
// Identical strings score 1. Two empty strings score 0 so that empty
// input never matches anything.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}
