package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the pure-Go sqlite driver used for the library index.
	_ "modernc.org/sqlite"

	"github.com/okorolenko/trackseek/internal/config"
	"github.com/okorolenko/trackseek/internal/match"
)

const (
	// sqliteDriverName is the database/sql driver name registered by modernc.org/sqlite.
	sqliteDriverName = "sqlite"

	// albumMatchThreshold is the minimum similarity for a library record
	// to count toward the completeness of a wanted album.
	albumMatchThreshold = 0.8
)

// schemaDDL creates the library index table.
// The path is unique, mtime drives incremental scans.
const schemaDDL = `
	CREATE TABLE IF NOT EXISTS library_tracks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		mtime INTEGER NOT NULL,
		artist TEXT NOT NULL,
		album_artist TEXT NOT NULL,
		album TEXT NOT NULL,
		title TEXT NOT NULL,
		disc_number INTEGER,
		track_number INTEGER,
		year INTEGER,
		genre TEXT,
		added_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_library_tracks_artist ON library_tracks(artist);
	CREATE INDEX IF NOT EXISTS idx_library_tracks_album ON library_tracks(album_artist, album);
`

// Index answers whether wanted tracks are already present in the local library.
type Index interface {
	// CheckOwnership scores the wanted track against every indexed record
	// and reports the closest match together with album completeness.
	CheckOwnership(ctx context.Context, wanted match.TrackFields, expectedTrackCount int) (*OwnershipResult, error)
	// Scan re-indexes the configured music directories incrementally.
	Scan(ctx context.Context) (*ScanStats, error)
	// TrackCount returns the number of indexed tracks.
	TrackCount(ctx context.Context) (int64, error)
	// Close releases the underlying database.
	Close() error
}

// IndexImpl implements the Index interface on a sqlite database.
type IndexImpl struct {
	// cfg is the application configuration.
	cfg *config.Config
	// db is the sqlite database holding the index.
	db *sql.DB
}

// NewIndex opens the library database at the configured path,
// creating the schema when it does not exist yet.
func NewIndex(cfg *config.Config) (Index, error) {
	db, err := sql.Open(sqliteDriverName, cfg.LibraryDatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open library database '%s': %w", cfg.LibraryDatabasePath, err)
	}

	if _, err = db.Exec(schemaDDL); err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to initialize library schema: %w", err)
	}

	return &IndexImpl{
		cfg: cfg,
		db:  db,
	}, nil
}

// CheckOwnership scores the wanted track against every indexed record
// and reports the closest match together with album completeness.
func (i *IndexImpl) CheckOwnership(
	ctx context.Context,
	wanted match.TrackFields,
	expectedTrackCount int,
) (*OwnershipResult, error) {
	records, err := i.allRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load library records: %w", err)
	}

	result := &OwnershipResult{
		Tier:          match.TierNone,
		ExpectedCount: expectedTrackCount,
	}

	// Score every record and keep the strongest match.
	for _, record := range records {
		scores := match.ComputeScores(wanted, record.MatchFields())

		confidence, tier := match.TierConfidence(scores)
		if confidence > result.Confidence {
			result.Confidence = confidence
			result.Tier = tier
			result.Record = record
		}
	}

	result.Owned = result.Record != nil && result.Confidence >= i.cfg.OwnershipFloor

	// Count how much of the wanted album is already present.
	if wanted.Album != "" {
		result.OwnedCount = countAlbumTracks(records, wanted)
		result.AlbumComplete = expectedTrackCount > 0 && result.OwnedCount >= expectedTrackCount
	}

	return result, nil
}

// TrackCount returns the number of indexed tracks.
func (i *IndexImpl) TrackCount(ctx context.Context) (int64, error) {
	var count int64

	err := i.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM library_tracks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count library records: %w", err)
	}

	return count, nil
}

// Close releases the underlying database.
func (i *IndexImpl) Close() error {
	return i.db.Close()
}

// allRecords loads the whole index.
// Fuzzy scoring cannot be pushed into SQL,
// so ownership checks walk the records in memory.
func (i *IndexImpl) allRecords(ctx context.Context) ([]*Record, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT id, path, mtime, artist, album_artist, album, title, disc_number, track_number, year, genre
		FROM library_tracks
	`)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var records []*Record

	for rows.Next() {
		var (
			record                        Record
			discNumber, trackNumber, year sql.NullInt64
			genre                         sql.NullString
		)

		err = rows.Scan(
			&record.ID,
			&record.Path,
			&record.ModTime,
			&record.Artist,
			&record.AlbumArtist,
			&record.Album,
			&record.Title,
			&discNumber,
			&trackNumber,
			&year,
			&genre)
		if err != nil {
			return nil, err
		}

		record.DiscNumber = int(discNumber.Int64)
		record.TrackNumber = int(trackNumber.Int64)
		record.Year = int(year.Int64)
		record.Genre = genre.String

		records = append(records, &record)
	}

	return records, rows.Err()
}

// upsertRecord inserts or refreshes one indexed track keyed by path.
// added_at keeps the file's mtime so it survives re-scans.
func (i *IndexImpl) upsertRecord(ctx context.Context, record *Record) error {
	now := time.Now().Unix()

	_, err := i.db.ExecContext(ctx, `
		INSERT INTO library_tracks
			(path, mtime, artist, album_artist, album, title, disc_number, track_number, year, genre, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime = excluded.mtime,
			artist = excluded.artist,
			album_artist = excluded.album_artist,
			album = excluded.album,
			title = excluded.title,
			disc_number = excluded.disc_number,
			track_number = excluded.track_number,
			year = excluded.year,
			genre = excluded.genre,
			updated_at = excluded.updated_at
	`,
		record.Path,
		record.ModTime,
		record.Artist,
		record.AlbumArtist,
		record.Album,
		record.Title,
		record.DiscNumber,
		record.TrackNumber,
		record.Year,
		record.Genre,
		record.ModTime,
		now)

	return err
}

// deleteByPath removes one indexed track by its file path.
func (i *IndexImpl) deleteByPath(ctx context.Context, path string) error {
	_, err := i.db.ExecContext(ctx, `DELETE FROM library_tracks WHERE path = ?`, path)

	return err
}

// existingPaths returns path to mtime for every indexed track.
func (i *IndexImpl) existingPaths(ctx context.Context) (map[string]int64, error) {
	rows, err := i.db.QueryContext(ctx, `SELECT path, mtime FROM library_tracks`)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	paths := make(map[string]int64)

	for rows.Next() {
		var (
			path    string
			modTime int64
		)

		if err = rows.Scan(&path, &modTime); err != nil {
			return nil, err
		}

		paths[path] = modTime
	}

	return paths, rows.Err()
}

// countAlbumTracks counts the distinct tracks of the wanted album
// the library holds, matched by album and album artist similarity.
func countAlbumTracks(records []*Record, wanted match.TrackFields) int {
	wantedAlbum := match.Normalize(wanted.Album)
	wantedArtist := match.NormalizeArtist(wanted.Artist)

	// Distinct disc and track positions,
	// so duplicate files of one track don't inflate the count.
	seen := make(map[string]struct{})

	for _, record := range records {
		if match.Similarity(wantedAlbum, match.Normalize(record.Album)) < albumMatchThreshold {
			continue
		}

		recordArtist := record.AlbumArtist
		if recordArtist == "" {
			recordArtist = record.Artist
		}

		if match.Similarity(wantedArtist, match.NormalizeArtist(recordArtist)) < albumMatchThreshold {
			continue
		}

		key := fmt.Sprintf("%d/%d", record.DiscNumber, record.TrackNumber)
		if record.TrackNumber == 0 {
			// Untagged positions fall back to the title.
			key = match.Normalize(record.Title)
		}

		seen[key] = struct{}{}
	}

	return len(seen)
}
