package match

import (
	"regexp"
	"strings"
)

// trailingGroupPattern matches one parenthesized or bracketed group
// at the end of a string, including surrounding whitespace.
//
//nolint:gochecknoglobals // Immutable, pre-compiled regex pattern used as a constant.
var trailingGroupPattern = regexp.MustCompile(`\s*[(\[][^)\]]*[)\]]\s*$`)

// GenerateQueries produces search-string variants for a wanted track,
// ordered from most specific to most permissive and de-duplicated:
//
//  1. full primary artist and full title,
//  2. title and the artist's first significant word,
//  3. title alone,
//  4. title with trailing parenthesized or bracketed qualifiers removed,
//     only when that differs from variant 3.
//
// Callers try the variants in order and stop at the first one
// that yields a usable candidate.
func GenerateQueries(title, artist string) []string {
	cleanTitle := collapseSpaces(title)
	cleanArtist := collapseSpaces(artist)

	var variants []string

	if cleanArtist != "" && cleanTitle != "" {
		variants = append(variants, cleanArtist+" "+cleanTitle)
	}

	if word := FirstSignificantWord(cleanArtist); word != "" && cleanTitle != "" {
		variants = append(variants, cleanTitle+" "+word)
	}

	if cleanTitle != "" {
		variants = append(variants, cleanTitle)
	}

	if stripped := collapseSpaces(StripTrailingQualifiers(cleanTitle)); stripped != "" && stripped != cleanTitle {
		variants = append(variants, stripped)
	}

	return dedupeQueries(variants)
}

// FirstSignificantWord returns the first word of an artist name,
// skipping a leading "The" article. Empty input yields an empty string.
func FirstSignificantWord(artist string) string {
	words := strings.Fields(artist)

	for _, word := range words {
		if strings.EqualFold(word, "the") {
			continue
		}

		return word
	}

	return ""
}

// StripTrailingQualifiers removes trailing parenthesized or bracketed groups
// from a title, one group at a time, until none remain.
func StripTrailingQualifiers(title string) string {
	result := title

	for {
		stripped := trailingGroupPattern.ReplaceAllString(result, "")
		if stripped == result {
			return strings.TrimSpace(result)
		}

		result = stripped
	}
}

// dedupeQueries removes duplicates while preserving order.
// Comparison is case-insensitive so that variants differing
// only in letter case collapse into one.
func dedupeQueries(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	result := make([]string, 0, len(queries))

	for _, query := range queries {
		key := strings.ToLower(query)
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}

		result = append(result, query)
	}

	return result
}

// collapseSpaces trims the string and folds consecutive whitespace
// into single spaces without touching any other characters.
func collapseSpaces(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
