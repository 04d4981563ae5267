package metadata

import "strings"

// ReferenceKind classifies what a catalog reference points at.
type ReferenceKind uint8

// Supported reference kinds.
const (
	// ReferenceUnknown marks input that could not be classified.
	ReferenceUnknown ReferenceKind = iota

	// ReferenceTrack points at a single track.
	ReferenceTrack

	// ReferenceAlbum points at an album.
	ReferenceAlbum

	// ReferencePlaylist points at a playlist.
	ReferencePlaylist

	// ReferenceQuery is free-text input to be resolved by search.
	ReferenceQuery
)

// String returns the lowercase name of the reference kind.
func (k ReferenceKind) String() string {
	switch k {
	case ReferenceTrack:
		return "track"
	case ReferenceAlbum:
		return "album"
	case ReferencePlaylist:
		return "playlist"
	case ReferenceQuery:
		return "query"
	case ReferenceUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Reference is one parsed input reference.
type Reference struct {
	// Kind classifies the reference.
	Kind ReferenceKind
	// Raw is the input as given, kept for logs.
	Raw string
	// ItemID is the catalog identifier extracted from a URL reference.
	// Empty for query references.
	ItemID string
}

// IsNumericID reports whether the reference's identifier is all digits,
// which marks it as belonging to the secondary provider's catalog.
func (r *Reference) IsNumericID() bool {
	if r.ItemID == "" {
		return false
	}

	for _, character := range r.ItemID {
		if character < '0' || character > '9' {
			return false
		}
	}

	return true
}

// WantedTrack is the resolved description of one track the user wants,
// carrying everything matching, tagging and naming need.
type WantedTrack struct {
	// ID is the provider's track identifier.
	ID string
	// Provider names the provider the track was resolved through.
	Provider string
	// Title is the track title.
	Title string
	// Artist is the primary artist.
	Artist string
	// ArtistNames lists all credited artists, primary first.
	ArtistNames []string
	// Album is the album title, empty when unknown.
	Album string
	// AlbumArtist is the album-level artist, empty when unknown.
	AlbumArtist string
	// DurationMS is the track duration in milliseconds, zero when unknown.
	DurationMS int64
	// TrackNumber is the position on the album, zero when unknown.
	TrackNumber int
	// DiscNumber is the disc the track is on, zero when unknown.
	DiscNumber int
	// TotalTracks is the album's track count, zero when unknown.
	TotalTracks int
	// ReleaseDate is the release date string as the provider gives it.
	ReleaseDate string
	// Genres lists genre names, possibly empty.
	Genres []string
	// CoverURL points at the largest cover image offered.
	CoverURL string
}

// ReleaseYear returns the year portion of the release date, or empty.
func (t *WantedTrack) ReleaseYear() string {
	const yearLength = 4

	if len(t.ReleaseDate) >= yearLength {
		return t.ReleaseDate[:yearLength]
	}

	return ""
}

// JoinedArtists returns all credited artists joined for display and tagging.
func (t *WantedTrack) JoinedArtists() string {
	if len(t.ArtistNames) == 0 {
		return t.Artist
	}

	return strings.Join(t.ArtistNames, ", ")
}

// Album is a resolved album with its track list.
type Album struct {
	// ID is the provider's album identifier.
	ID string
	// Title is the album title.
	Title string
	// ArtistName is the album-level artist.
	ArtistName string
	// ReleaseDate is the release date string as the provider gives it.
	ReleaseDate string
	// TotalTracks is the album's declared track count.
	TotalTracks int
	// Genres lists genre names, possibly empty.
	Genres []string
	// CoverURL points at the largest cover image offered.
	CoverURL string
	// Tracks holds the album's tracks in album order.
	Tracks []*WantedTrack
}

// Playlist is a resolved playlist with its track list.
type Playlist struct {
	// ID is the provider's playlist identifier.
	ID string
	// Title is the playlist title.
	Title string
	// OwnerName is the playlist owner's display name.
	OwnerName string
	// Tracks holds the playlist's tracks in playlist order.
	Tracks []*WantedTrack
}
