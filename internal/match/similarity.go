package match

// Similarity computes a symmetric similarity ratio in [0, 1] between two
// strings, based on Levenshtein edit distance over runes.
// Identical non-empty strings score 1.0.
// If either string is empty the result is 0.0, including for two empty strings:
// the absence of a field carries no evidence of a match.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}

	if a == b {
		return 1.0
	}

	runesA := []rune(a)
	runesB := []rune(b)

	distance := levenshteinDistance(runesA, runesB)
	maxLen := max(len(runesA), len(runesB))

	return 1.0 - float64(distance)/float64(maxLen)
}

// levenshteinDistance computes the edit distance between two rune slices
// using the classic two-row dynamic programming formulation.
func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}

	if len(b) == 0 {
		return len(a)
	}

	previous := make([]int, len(b)+1)
	current := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		previous[j] = j
	}

	for i := 1; i <= len(a); i++ {
		current[0] = i

		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			current[j] = min(
				previous[j]+1,      // deletion
				current[j-1]+1,     // insertion
				previous[j-1]+cost, // substitution
			)
		}

		previous, current = current, previous
	}

	return previous[len(b)]
}
