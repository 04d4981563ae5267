package deezer

import (
	"strconv"

	"github.com/okorolenko/trackseek/internal/metadata"
)

// apiError is the error payload the API returns inside a 200 response.
type apiError struct {
	// Type is the API's error class name.
	Type string `json:"type"`
	// Message is the human-readable error description.
	Message string `json:"message"`
	// Code is the numeric error code.
	Code int `json:"code"`
}

// errorEnvelope wraps an API error response.
type errorEnvelope struct {
	// Error is present only on failed requests.
	Error *apiError `json:"error"`
}

// artistResponse is an artist object as the API returns it.
type artistResponse struct {
	// ID is the artist identifier.
	ID int64 `json:"id"`
	// Name is the artist display name.
	Name string `json:"name"`
}

// albumSummaryResponse is the compact album object nested in track responses.
type albumSummaryResponse struct {
	// ID is the album identifier.
	ID int64 `json:"id"`
	// Title is the album title.
	Title string `json:"title"`
	// CoverXL is the largest cover image URL.
	CoverXL string `json:"cover_xl"`
	// ReleaseDate is the album release date.
	ReleaseDate string `json:"release_date"`
}

// trackResponse is a track object as the API returns it.
type trackResponse struct {
	// ID is the track identifier.
	ID int64 `json:"id"`
	// Title is the track title.
	Title string `json:"title"`
	// Duration is the track length in seconds.
	Duration int64 `json:"duration"`
	// TrackPosition is the position on the album, absent in some listings.
	TrackPosition int `json:"track_position"`
	// DiskNumber is the disc the track is on.
	DiskNumber int `json:"disk_number"`
	// ReleaseDate is the track release date, absent in some listings.
	ReleaseDate string `json:"release_date"`
	// Artist is the primary artist.
	Artist *artistResponse `json:"artist"`
	// Contributors lists all credited artists, primary first.
	Contributors []*artistResponse `json:"contributors"`
	// Album is the containing album summary.
	Album *albumSummaryResponse `json:"album"`
}

// genreResponse is a genre object as the API returns it.
type genreResponse struct {
	// Name is the genre display name.
	Name string `json:"name"`
}

// genreListResponse wraps an album's genre listing.
type genreListResponse struct {
	// Data holds the genre objects.
	Data []*genreResponse `json:"data"`
}

// albumResponse is a full album object as the API returns it.
type albumResponse struct {
	// ID is the album identifier.
	ID int64 `json:"id"`
	// Title is the album title.
	Title string `json:"title"`
	// Artist is the album-level artist.
	Artist *artistResponse `json:"artist"`
	// ReleaseDate is the album release date.
	ReleaseDate string `json:"release_date"`
	// CoverXL is the largest cover image URL.
	CoverXL string `json:"cover_xl"`
	// NbTracks is the album's declared track count.
	NbTracks int `json:"nb_tracks"`
	// Genres holds the album's genre listing.
	Genres *genreListResponse `json:"genres"`
}

// creatorResponse is a playlist creator object as the API returns it.
type creatorResponse struct {
	// Name is the creator display name.
	Name string `json:"name"`
}

// playlistResponse is a playlist header object as the API returns it.
type playlistResponse struct {
	// ID is the playlist identifier.
	ID int64 `json:"id"`
	// Title is the playlist title.
	Title string `json:"title"`
	// Creator is the playlist owner.
	Creator *creatorResponse `json:"creator"`
}

// trackListPageResponse is one page of a track listing.
type trackListPageResponse struct {
	// Data holds the page's track objects.
	Data []*trackResponse `json:"data"`
	// Total is the listing's full track count.
	Total int `json:"total"`
	// Next is the URL of the next page, empty on the last one.
	Next string `json:"next"`
}

// convertTrack maps an API track object to a wanted track.
func convertTrack(dto *trackResponse) *metadata.WantedTrack {
	track := &metadata.WantedTrack{
		ID:          strconv.FormatInt(dto.ID, 10),
		Provider:    ProviderName,
		Title:       dto.Title,
		DurationMS:  dto.Duration * millisecondsPerSecond,
		TrackNumber: dto.TrackPosition,
		DiscNumber:  dto.DiskNumber,
		ReleaseDate: dto.ReleaseDate,
	}

	if dto.Artist != nil {
		track.Artist = dto.Artist.Name
	}

	for _, contributor := range dto.Contributors {
		if contributor != nil && contributor.Name != "" {
			track.ArtistNames = append(track.ArtistNames, contributor.Name)
		}
	}

	if len(track.ArtistNames) == 0 && track.Artist != "" {
		track.ArtistNames = []string{track.Artist}
	}

	if dto.Album != nil {
		track.Album = dto.Album.Title
		track.CoverURL = dto.Album.CoverXL

		if track.ReleaseDate == "" {
			track.ReleaseDate = dto.Album.ReleaseDate
		}
	}

	return track
}

// convertAlbum maps an API album object to an album without its tracks.
func convertAlbum(dto *albumResponse) *metadata.Album {
	album := &metadata.Album{
		ID:          strconv.FormatInt(dto.ID, 10),
		Title:       dto.Title,
		ReleaseDate: dto.ReleaseDate,
		TotalTracks: dto.NbTracks,
		CoverURL:    dto.CoverXL,
	}

	if dto.Artist != nil {
		album.ArtistName = dto.Artist.Name
	}

	if dto.Genres != nil {
		for _, genre := range dto.Genres.Data {
			if genre != nil && genre.Name != "" {
				album.Genres = append(album.Genres, genre.Name)
			}
		}
	}

	return album
}
