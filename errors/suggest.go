package errors

import (
	"sort"
	"strconv"
	"strings"
)

// MaxSuggestionDistance is the largest edit distance at which a candidate
// is still suggested for names longer than five characters.
const MaxSuggestionDistance = 3

// MaxSuggestions limits the number of suggested names.
const MaxSuggestions = 3

// Suggest returns up to MaxSuggestions candidates that are close to target,
// closest first. Comparison ignores case and exact matches are skipped.
func Suggest(target string, candidates []string) []string {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return nil
	}
	threshold := MaxSuggestionDistance
	switch n := len(target); {
	case n <= 3:
		threshold = 1
	case n <= 5:
		threshold = 2
	}

	type match struct {
		name string
		dist int
	}
	var matches []match
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if lc == "" || lc == target {
			continue
		}
		if d := editDistance(target, lc); d <= threshold {
			matches = append(matches, match{c, d})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].name < matches[j].name
	})
	if len(matches) > MaxSuggestions {
		matches = matches[:MaxSuggestions]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}

// Hint returns a parenthesized "did you mean" suffix for an unknown name,
// or an empty string when nothing is close.
func Hint(target string, candidates []string) string {
	names := Suggest(target, candidates)
	if len(names) == 0 {
		return ""
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	if len(quoted) == 1 {
		return " (did you mean " + quoted[0] + "?)"
	}
	return " (did you mean one of " + strings.Join(quoted, ", ") + "?)"
}

// editDistance is the Levenshtein distance between a and b, computed with
// two rows.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		return len(rb)
	}
	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			sub := prev[i-1]
			if ra[i-1] != rb[j-1] {
				sub++
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}
