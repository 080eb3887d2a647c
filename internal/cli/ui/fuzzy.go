package ui

import (
	"sort"
	"strings"
)

// MaxSuggestions bounds the number of "did you mean" candidates
const MaxSuggestions = 3

// Suggest returns up to MaxSuggestions candidates within maxDistance edits of target,
// closest first. Comparison ignores case; a prefix match always qualifies.
func Suggest(target string, candidates []string, maxDistance int) []string {
	if target == "" {
		return nil
	}
	lowered := strings.ToLower(target)

	type scored struct {
		name     string
		distance int
	}
	var matches []scored
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if lc == lowered {
			continue
		}
		d := Distance(lowered, lc)
		if d <= maxDistance || strings.HasPrefix(lc, lowered) {
			matches = append(matches, scored{name: c, distance: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].name < matches[j].name
	})

	var out []string
	for i := 0; i < len(matches) && i < MaxSuggestions; i++ {
		out = append(out, matches[i].name)
	}
	return out
}

// Distance is the Levenshtein edit distance between a and b
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
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
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
