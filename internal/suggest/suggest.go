// Package suggest finds the closest match for a misspelled name.
package suggest

import (
	"strings"
	"unicode/utf8"
)

// Cutoff is the minimum Ratio for a candidate to be suggested.
const Cutoff = 0.6

// Ratio returns the similarity of a and b between 0 and 1, computed
// from their Levenshtein distance. Names are compared case-insensitively.
func Ratio(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	return float64(total-distance(a, b)) / float64(total)
}

// distance is the Levenshtein distance with substitutions weighted 2,
// so that Ratio matches the usual sequence-matcher score.
func distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			sub := 2
			if ra[i-1] == rb[j-1] {
				sub = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// Closest returns the candidate most similar to name, if any scores at
// least Cutoff. Ties go to the earlier candidate.
func Closest(name string, candidates []string) (string, bool) {
	best, score := "", 0.0
	for _, c := range candidates {
		if r := Ratio(name, c); r > score {
			best, score = c, r
		}
	}
	return best, score >= Cutoff
}
