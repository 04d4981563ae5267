package spotify

import (
	"strings"

	"github.com/okorolenko/trackseek/internal/metadata"
)

// parseTrack converts a GraphQL track response to a wanted track.
func parseTrack(data map[string]any) *metadata.WantedTrack {
	track := &metadata.WantedTrack{Provider: ProviderName}

	// Parse the catalog identifier, preferring the explicit field.
	if id, ok := data["id"].(string); ok {
		track.ID = id
	}

	if uri, ok := data["uri"].(string); ok && track.ID == "" {
		track.ID = strings.TrimPrefix(uri, trackURIPrefix)
	}

	// Parse title.
	if name, ok := data["name"].(string); ok {
		track.Title = name
	}

	// Parse duration.
	if durationData, ok := data["duration"].(map[string]any); ok {
		if totalMilliseconds, msOk := durationData["totalMilliseconds"].(float64); msOk {
			track.DurationMS = int64(totalMilliseconds)
		}
	}

	// Parse track and disc numbers.
	if trackNumber, ok := data["trackNumber"].(float64); ok {
		track.TrackNumber = int(trackNumber)
	}

	if discNumber, ok := data["discNumber"].(float64); ok {
		track.DiscNumber = int(discNumber)
	}

	// Parse credited artists.
	track.ArtistNames = parseArtistNames(data["artists"])
	if len(track.ArtistNames) > 0 {
		track.Artist = track.ArtistNames[0]
	}

	// Parse the containing album, when present.
	if albumData, ok := data["albumOfTrack"].(map[string]any); ok {
		applyAlbumSummary(track, albumData)
	}

	return track
}

// applyAlbumSummary fills the track's album-level fields from an album summary.
func applyAlbumSummary(track *metadata.WantedTrack, data map[string]any) {
	if name, ok := data["name"].(string); ok {
		track.Album = name
	}

	albumArtists := parseArtistNames(data["artists"])
	if len(albumArtists) > 0 {
		track.AlbumArtist = albumArtists[0]
	}

	track.ReleaseDate = parseReleaseDate(data["date"])
	track.CoverURL = parseCoverURL(data["coverArt"])

	if tracksData, ok := data["tracks"].(map[string]any); ok {
		if totalCount, countOk := tracksData["totalCount"].(float64); countOk {
			track.TotalTracks = int(totalCount)
		}
	}
}

// parseAlbum converts a GraphQL album response to an album without its tracks.
func parseAlbum(data map[string]any, albumID string) *metadata.Album {
	album := &metadata.Album{ID: albumID}

	// Parse title.
	if name, ok := data["name"].(string); ok {
		album.Title = name
	}

	// Parse the album-level artist.
	artistNames := parseArtistNames(data["artists"])
	if len(artistNames) > 0 {
		album.ArtistName = artistNames[0]
	}

	album.ReleaseDate = parseReleaseDate(data["date"])
	album.CoverURL = parseCoverURL(data["coverArt"])

	return album
}

// parseAlbumTracks converts an album's track listing to wanted tracks.
// Album-level fields the track entries do not carry are filled from the album.
func parseAlbumTracks(data map[string]any, album *metadata.Album) ([]*metadata.WantedTrack, int) {
	var totalCount int
	if count, ok := data["totalCount"].(float64); ok {
		totalCount = int(count)
	}

	items, ok := data["items"].([]any)
	if !ok {
		return nil, totalCount
	}

	tracks := make([]*metadata.WantedTrack, 0, len(items))

	for _, item := range items {
		itemMap, itemOk := item.(map[string]any)
		if !itemOk {
			continue
		}

		trackData, trackOk := itemMap["track"].(map[string]any)
		if !trackOk {
			continue
		}

		track := parseTrack(trackData)
		if track.ID == "" || track.Title == "" {
			continue
		}

		// Fill album-level fields from the containing album.
		track.Album = album.Title
		track.AlbumArtist = album.ArtistName
		track.ReleaseDate = album.ReleaseDate
		track.CoverURL = album.CoverURL
		track.TotalTracks = totalCount

		tracks = append(tracks, track)
	}

	return tracks, totalCount
}

// parsePlaylistItems converts one page of playlist contents to wanted tracks.
// Non-track entries such as episodes are skipped.
func parsePlaylistItems(data map[string]any) ([]*metadata.WantedTrack, int) {
	var totalCount int
	if count, ok := data["totalCount"].(float64); ok {
		totalCount = int(count)
	}

	items, ok := data["items"].([]any)
	if !ok {
		return nil, totalCount
	}

	tracks := make([]*metadata.WantedTrack, 0, len(items))

	for _, item := range items {
		itemMap, itemOk := item.(map[string]any)
		if !itemOk {
			continue
		}

		itemV2, itemV2Ok := itemMap["itemV2"].(map[string]any)
		if !itemV2Ok {
			continue
		}

		trackData, trackOk := itemV2["data"].(map[string]any)
		if !trackOk {
			continue
		}

		if typeName, typeOk := trackData["__typename"].(string); typeOk && typeName != trackTypename {
			continue
		}

		track := parseTrack(trackData)
		if track.ID == "" || track.Title == "" {
			continue
		}

		tracks = append(tracks, track)
	}

	return tracks, totalCount
}

// parseSearchTracks converts a search response to wanted tracks.
func parseSearchTracks(data map[string]any) []*metadata.WantedTrack {
	tracksV2, ok := data["tracksV2"].(map[string]any)
	if !ok {
		return nil
	}

	items, ok := tracksV2["items"].([]any)
	if !ok {
		return nil
	}

	tracks := make([]*metadata.WantedTrack, 0, len(items))

	for _, item := range items {
		itemMap, itemOk := item.(map[string]any)
		if !itemOk {
			continue
		}

		wrapper, wrapperOk := itemMap["item"].(map[string]any)
		if !wrapperOk {
			continue
		}

		trackData, trackOk := wrapper["data"].(map[string]any)
		if !trackOk {
			continue
		}

		if typeName, typeOk := trackData["__typename"].(string); typeOk && typeName != trackTypename {
			continue
		}

		track := parseTrack(trackData)
		if track.ID == "" || track.Title == "" {
			continue
		}

		tracks = append(tracks, track)
	}

	return tracks
}

// parsePlaylistOwner extracts the playlist owner's display name.
func parsePlaylistOwner(data map[string]any) string {
	ownerData, ok := data["ownerV2"].(map[string]any)
	if !ok {
		return ""
	}

	ownerPayload, ok := ownerData["data"].(map[string]any)
	if !ok {
		return ""
	}

	name, _ := ownerPayload["name"].(string)

	return name
}

// parseReleaseDate extracts the calendar date part of a release timestamp.
func parseReleaseDate(value any) string {
	dateData, ok := value.(map[string]any)
	if !ok {
		return ""
	}

	isoString, ok := dateData["isoString"].(string)
	if !ok {
		return ""
	}

	if datePart, _, found := strings.Cut(isoString, "T"); found {
		return datePart
	}

	return isoString
}

// parseCoverURL picks the largest cover image source.
func parseCoverURL(value any) string {
	coverData, ok := value.(map[string]any)
	if !ok {
		return ""
	}

	sources, ok := coverData["sources"].([]any)
	if !ok {
		return ""
	}

	var (
		bestURL   string
		bestWidth float64
	)

	for _, source := range sources {
		sourceMap, sourceOk := source.(map[string]any)
		if !sourceOk {
			continue
		}

		sourceURL, urlOk := sourceMap["url"].(string)
		if !urlOk || sourceURL == "" {
			continue
		}

		width, _ := sourceMap["width"].(float64)
		if bestURL == "" || width > bestWidth {
			bestURL = sourceURL
			bestWidth = width
		}
	}

	return bestURL
}

// parseArtistNames extracts artist display names from an artist listing.
func parseArtistNames(value any) []string {
	artistsData, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	items, ok := artistsData["items"].([]any)
	if !ok {
		return nil
	}

	names := make([]string, 0, len(items))

	for _, item := range items {
		artistMap, artistOk := item.(map[string]any)
		if !artistOk {
			continue
		}

		profile, profileOk := artistMap["profile"].(map[string]any)
		if !profileOk {
			continue
		}

		if name, nameOk := profile["name"].(string); nameOk && name != "" {
			names = append(names, name)
		}
	}

	return names
}
