package ui

import (
	"sort"
	"strings"
)

// Suggestion thresholds for misspelled directive and option names.
// Anything further than maxEditDistance away is noise, not a typo.
const (
	maxEditDistance = 3
	maxSuggestions  = 3
)

// FindSimilar returns up to three candidates within edit distance 3 of
// word, closest first. Comparison ignores case. An empty slice means
// nothing was close enough to suggest.
func FindSimilar(word string, candidates []string) []string {
	lowered := strings.ToLower(word)

	type scored struct {
		name string
		dist int
	}
	var ranked []scored
	for _, c := range candidates {
		d := editDistance(lowered, strings.ToLower(c))
		if d <= maxEditDistance {
			ranked = append(ranked, scored{name: c, dist: d})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })
	if len(ranked) > maxSuggestions {
		ranked = ranked[:maxSuggestions]
	}

	names := make([]string, len(ranked))
	for i, s := range ranked {
		names[i] = s.name
	}
	return names
}

// editDistance is the Levenshtein distance between a and b, computed
// with two rolling rows instead of the full matrix.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minOf(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
