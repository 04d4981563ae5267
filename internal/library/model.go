package library

import (
	"github.com/okorolenko/trackseek/internal/match"
)

// Record is one indexed track of the local music library.
type Record struct {
	// ID is the database row identifier.
	ID int64
	// Path is the absolute path of the audio file.
	Path string
	// ModTime is the file's modification time in Unix seconds,
	// used to skip unchanged files on incremental scans.
	ModTime int64
	// Title is the tagged track title,
	// falling back to the file name for untagged files.
	Title string
	// Artist is the tagged track artist.
	Artist string
	// AlbumArtist is the tagged album artist,
	// falling back to the track artist when absent.
	AlbumArtist string
	// Album is the tagged album title.
	Album string
	// TrackNumber is the tagged position on the album, zero when untagged.
	TrackNumber int
	// DiscNumber is the tagged disc number, zero when untagged.
	DiscNumber int
	// Year is the tagged release year, zero when untagged.
	Year int
	// Genre is the tagged genre.
	Genre string
}

// MatchFields exposes the record in the shape the matching layer scores.
// Library records carry no duration, so that field stays neutral.
func (r *Record) MatchFields() match.TrackFields {
	return match.TrackFields{
		Title:  r.Title,
		Artist: r.Artist,
		Album:  r.Album,
	}
}

// OwnershipResult describes how the library relates to one wanted track.
type OwnershipResult struct {
	// Owned reports whether the best match cleared the ownership floor.
	Owned bool
	// Record is the closest library record, nil when nothing matched at all.
	Record *Record
	// Confidence is the tiered confidence of the closest record.
	Confidence float64
	// Tier labels the closest record's confidence.
	Tier match.MatchTier
	// OwnedCount is how many distinct tracks of the wanted album
	// the library already holds.
	OwnedCount int
	// ExpectedCount is the album's declared track count, zero when unknown.
	ExpectedCount int
	// AlbumComplete reports whether the library holds the whole album.
	AlbumComplete bool
}

// ScanStats summarizes one scan pass over the music directories.
type ScanStats struct {
	// Discovered is how many audio files the walk found.
	Discovered int
	// Added is how many files were indexed for the first time.
	Added int
	// Updated is how many modified files were re-indexed.
	Updated int
	// Unchanged is how many files were skipped as untouched.
	Unchanged int
	// Removed is how many index entries pointed at vanished files.
	Removed int
	// Failed is how many files could not be opened or parsed.
	Failed int
}
