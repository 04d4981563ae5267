package match

import (
	"strings"
	"unicode"
)

//nolint:gochecknoglobals // Immutable lookup tables used as constants.
var (
	// qualifierKeywords marks parenthesized or bracketed groups
	// that annotate a recording without changing its identity.
	// A group containing any of these words is dropped during normalization.
	qualifierKeywords = map[string]struct{}{
		"remaster":    {},
		"remastered":  {},
		"live":        {},
		"acoustic":    {},
		"demo":        {},
		"mono":        {},
		"stereo":      {},
		"deluxe":      {},
		"bonus":       {},
		"edit":        {},
		"edition":     {},
		"version":     {},
		"anniversary": {},
		"feat":        {},
		"ft":          {},
		"featuring":   {},
		"with":        {},
	}

	// guestMarkers start a trailing guest-artist annotation outside of brackets.
	// They are matched after punctuation folding, so "feat.", "feat:" and a
	// bare "feat" all reduce to the same word form.
	guestMarkers = []string{" feat ", " ft ", " featuring "}

	// collaboratorJoins are punctuation joins between artists.
	// Folding erases the punctuation, so these are matched before it.
	collaboratorJoins = []string{" & ", ", "}

	// collaboratorWords are word joins between artists, matched after folding.
	// Only artist names are cut at these markers.
	collaboratorWords = []string{" and ", " x ", " vs "}
)

// Normalize cleans a free-text title or artist for comparison:
// lower-cased, qualifier groups such as "(Remastered 2015)" removed,
// guest-artist annotations removed, punctuation stripped, whitespace collapsed.
// It is pure and total: any input yields a result, empty input yields empty output,
// and applying it twice yields the same result as applying it once.
func Normalize(input string) string {
	lowered := strings.ToLower(input)
	lowered = dropQualifierGroups(lowered)

	return cutAtMarkers(foldToWords(lowered), guestMarkers)
}

// NormalizeArtist cleans an artist name the same way Normalize does,
// additionally keeping only the primary artist: a leading "the" article
// and everything after a collaborator join ("&", "and", ",") are removed.
func NormalizeArtist(input string) string {
	lowered := strings.ToLower(input)
	lowered = dropQualifierGroups(lowered)
	lowered = cutAtMarkers(lowered, collaboratorJoins)

	result := foldToWords(lowered)
	result = cutAtMarkers(result, guestMarkers)
	result = cutAtMarkers(result, collaboratorWords)

	for strings.HasPrefix(result, "the ") {
		result = strings.TrimPrefix(result, "the ")
	}

	return result
}

// Alphanumeric reduces a string to its lower-cased letters and digits only.
// It is used for strict substring containment checks against free-text locators,
// where separators and punctuation are unreliable.
func Alphanumeric(input string) string {
	var builder strings.Builder

	builder.Grow(len(input))

	for _, r := range strings.ToLower(input) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// dropQualifierGroups removes "(...)" and "[...]" groups whose content
// mentions a qualifier keyword. Groups without qualifier keywords keep
// their inner text so that titles like "time (clock of the heart)" survive.
func dropQualifierGroups(input string) string {
	var builder strings.Builder

	builder.Grow(len(input))

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		open := runes[i]
		if open != '(' && open != '[' {
			builder.WriteRune(open)
			continue
		}

		closing := ')'
		if open == '[' {
			closing = ']'
		}

		// Find the matching closing rune; an unbalanced group is kept as-is.
		end := -1

		for j := i + 1; j < len(runes); j++ {
			if runes[j] == closing {
				end = j
				break
			}
		}

		if end < 0 {
			builder.WriteRune(open)
			continue
		}

		inner := string(runes[i+1 : end])
		if !containsQualifierKeyword(inner) {
			builder.WriteRune(' ')
			builder.WriteString(inner)
			builder.WriteRune(' ')
		}

		i = end
	}

	return builder.String()
}

// containsQualifierKeyword reports whether any word of the group
// is a known qualifier keyword.
func containsQualifierKeyword(group string) bool {
	for _, word := range strings.FieldsFunc(group, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if _, ok := qualifierKeywords[word]; ok {
			return true
		}
	}

	return false
}

// cutAtMarkers truncates the input at the first occurrence of any marker.
func cutAtMarkers(input string, markers []string) string {
	result := input

	for _, marker := range markers {
		if index := strings.Index(result, marker); index >= 0 {
			result = result[:index]
		}
	}

	return result
}

// foldToWords strips punctuation and collapses whitespace,
// keeping only letters, digits and single spaces.
func foldToWords(input string) string {
	var builder strings.Builder

	builder.Grow(len(input))

	lastWasSpace := true

	for _, r := range input {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(r)

			lastWasSpace = false
		case !lastWasSpace:
			builder.WriteRune(' ')

			lastWasSpace = true
		}
	}

	return strings.TrimSpace(builder.String())
}
