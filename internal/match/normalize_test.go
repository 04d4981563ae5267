package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNormalize tests title and generic text normalization.
func TestNormalize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "plain lowercase title",
			input:    "yesterday",
			expected: "yesterday",
		},
		{
			name:     "mixed case with remaster qualifier",
			input:    "Yesterday (Remastered 2015)",
			expected: "yesterday",
		},
		{
			name:     "bracketed live qualifier",
			input:    "Money [Live]",
			expected: "money",
		},
		{
			name:     "non-qualifier parenthetical is kept",
			input:    "Time (Clock of the Heart)",
			expected: "time clock of the heart",
		},
		{
			name:     "featuring annotation without brackets",
			input:    "Airplanes feat. Hayley Williams",
			expected: "airplanes",
		},
		{
			name:     "ft annotation inside parentheses",
			input:    "Empire State of Mind (ft. Alicia Keys)",
			expected: "empire state of mind",
		},
		{
			name:     "feat annotation with colon",
			input:    "Forever feat: Drake, Kanye West",
			expected: "forever",
		},
		{
			name:     "punctuation stripped and whitespace collapsed",
			input:    "  Don't   Stop -- Me Now!  ",
			expected: "don t stop me now",
		},
		{
			name:     "unbalanced parenthesis kept as text",
			input:    "Broken (Title",
			expected: "broken title",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, Normalize(tc.input))
		})
	}
}

// TestNormalize_Idempotent tests that applying normalization twice
// yields the same result as applying it once.
func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"Yesterday (Remastered 2015)",
		"Time (Clock of the Heart)",
		"Airplanes feat. Hayley Williams",
		"Forever feat: Drake, Kanye West",
		"  Don't   Stop -- Me Now!  ",
		"The Beatles",
		"AC/DC",
		"Café del Mar",
	}

	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)

		assert.Equal(t, once, twice, "input: %q", input)
	}
}

// TestNormalizeArtist tests primary-artist extraction and normalization.
func TestNormalizeArtist(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "leading article removed",
			input:    "The Beatles",
			expected: "beatles",
		},
		{
			name:     "ampersand collaborator removed",
			input:    "Simon & Garfunkel",
			expected: "simon",
		},
		{
			name:     "and collaborator removed",
			input:    "Nick Cave and The Bad Seeds",
			expected: "nick cave",
		},
		{
			name:     "comma separated collaborator removed",
			input:    "Beyoncé, Jay-Z",
			expected: "beyoncé",
		},
		{
			name:     "featuring guest removed",
			input:    "Eminem feat. Rihanna",
			expected: "eminem",
		},
		{
			name:     "slash punctuation folded",
			input:    "AC/DC",
			expected: "ac dc",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, NormalizeArtist(tc.input))
		})
	}
}

// TestNormalizeArtist_Idempotent tests that artist normalization is stable
// under repeated application.
func TestNormalizeArtist_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"The Beatles",
		"The The",
		"Simon & Garfunkel",
		"Eminem feat. Rihanna",
		"Eminem feat: Rihanna",
		"Tyler, The Creator",
	}

	for _, input := range inputs {
		once := NormalizeArtist(input)
		twice := NormalizeArtist(once)

		assert.Equal(t, once, twice, "input: %q", input)
	}
}

// TestAlphanumeric tests the strict alphanumeric fold used for
// locator containment checks.
func TestAlphanumeric(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "path separators and punctuation removed",
			input:    `Music\The Beatles\1965 - Help!\13 - Yesterday.mp3`,
			expected: "musicthebeatles1965help13yesterdaymp3",
		},
		{
			name:     "unicode letters preserved",
			input:    "Sigur Rós",
			expected: "sigurrós",
		},
		{
			name:     "uppercase folded",
			input:    "ABBA",
			expected: "abba",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, Alphanumeric(tc.input))
		})
	}
}
