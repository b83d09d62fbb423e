package fuzzy

import (
	"strings"
)

// LevenshteinDistance calculates the edit distance between two strings,
// compared case-insensitively.
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(normalizeString(s1))
	r2 := []rune(normalizeString(s2))
	m, n := len(r1), len(r2)

	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// Two rolling rows are enough for the distance.
	prev := make([]int, n+1)
	cur := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		cur[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			cur[j] = min(
				prev[j]+1,      // deletion
				cur[j-1]+1,     // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, cur = cur, prev
	}

	return prev[n]
}

// FuzzyMatch checks if query fuzzy-matches text within a given threshold
// threshold is the maximum allowed edit distance per word
func FuzzyMatch(query, text string, threshold int) bool {
	query = normalizeString(query)
	text = normalizeString(text)
	if query == "" {
		return true
	}
	if text == "" {
		return false
	}

	if strings.Contains(text, query) {
		return true
	}

	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) {
			return true
		}
		if LevenshteinDistance(query, word) <= threshold {
			return true
		}
	}

	// Whole-text comparison for short values such as brand names
	if len(text) < 50 {
		maxDistance := threshold + len(query)/5
		if LevenshteinDistance(query, text) <= maxDistance {
			return true
		}
	}

	return false
}

// Threshold picks the typo tolerance for a query based on its length.
func Threshold(query string) int {
	n := len([]rune(strings.TrimSpace(query)))
	switch {
	case n <= 3:
		return 1
	case n >= 8:
		return 3
	default:
		return 2
	}
}

// MatchProduct reports whether query matches a product's title, brand or
// any of its categories.
func MatchProduct(query, title, brand string, categories []string) bool {
	threshold := Threshold(query)
	if FuzzyMatch(query, title, threshold) || FuzzyMatch(query, brand, threshold) {
		return true
	}
	for _, c := range categories {
		if FuzzyMatch(query, c, threshold) {
			return true
		}
	}
	return false
}

// RelevanceScore ranks how well a product matches query. Title matches weigh
// most, then brand, then categories.
func RelevanceScore(query, title, brand string, categories []string) float64 {
	query = normalizeString(query)
	if query == "" {
		return 0
	}
	score := fieldScore(query, title, 100, 50)
	score += fieldScore(query, brand, 80, 30)
	for _, c := range categories {
		score += fieldScore(query, c, 20, 10) / 2
	}
	return score
}

func fieldScore(query, field string, containsWeight, fuzzyWeight float64) float64 {
	field = normalizeString(field)
	if field == "" {
		return 0
	}
	if strings.Contains(field, query) {
		score := containsWeight
		if containsWord(field, query) {
			score += containsWeight / 2
		}
		return score
	}

	score := 0.0
	for _, word := range strings.Fields(field) {
		if dist := LevenshteinDistance(query, word); dist <= 2 {
			score += fuzzyWeight - float64(dist)*fuzzyWeight/3
		}
		if strings.HasPrefix(word, query) {
			score += fuzzyWeight * 0.8
		}
	}
	return score
}

// normalizeString lowercases and collapses whitespace
func normalizeString(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// containsWord checks if text contains query as a whole word
func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if word == query {
			return true
		}
	}
	return false
}
