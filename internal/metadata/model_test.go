package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestReferenceKind_String tests the String method.
func TestReferenceKind_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		kind     ReferenceKind
		expected string
	}{
		{name: "track", kind: ReferenceTrack, expected: "track"},
		{name: "album", kind: ReferenceAlbum, expected: "album"},
		{name: "playlist", kind: ReferencePlaylist, expected: "playlist"},
		{name: "query", kind: ReferenceQuery, expected: "query"},
		{name: "unknown", kind: ReferenceUnknown, expected: "unknown"},
		{name: "out of range", kind: ReferenceKind(99), expected: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

// TestReference_IsNumericID tests numeric identifier detection.
func TestReference_IsNumericID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		itemID   string
		expected bool
	}{
		{name: "all digits", itemID: "3135556", expected: true},
		{name: "base62", itemID: "4uLU6hMCjMI75M1A2tKUQC", expected: false},
		{name: "empty", itemID: "", expected: false},
		{name: "digits with letter", itemID: "123a", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reference := &Reference{ItemID: tt.itemID}
			assert.Equal(t, tt.expected, reference.IsNumericID())
		})
	}
}

// TestWantedTrack_ReleaseYear tests year extraction from release dates.
func TestWantedTrack_ReleaseYear(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		releaseDate string
		expected    string
	}{
		{name: "full date", releaseDate: "2001-03-12", expected: "2001"},
		{name: "year only", releaseDate: "1997", expected: "1997"},
		{name: "empty", releaseDate: "", expected: ""},
		{name: "too short", releaseDate: "97", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			track := &WantedTrack{ReleaseDate: tt.releaseDate}
			assert.Equal(t, tt.expected, track.ReleaseYear())
		})
	}
}

// TestWantedTrack_JoinedArtists tests artist name joining.
func TestWantedTrack_JoinedArtists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		track    *WantedTrack
		expected string
	}{
		{
			name:     "multiple artists",
			track:    &WantedTrack{Artist: "Daft Punk", ArtistNames: []string{"Daft Punk", "Pharrell Williams"}},
			expected: "Daft Punk, Pharrell Williams",
		},
		{
			name:     "single artist",
			track:    &WantedTrack{Artist: "Queen", ArtistNames: []string{"Queen"}},
			expected: "Queen",
		},
		{
			name:     "falls back to primary artist",
			track:    &WantedTrack{Artist: "Nina Simone"},
			expected: "Nina Simone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.track.JoinedArtists())
		})
	}
}
