package library

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/oshokin/id3v2/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okorolenko/trackseek/internal/match"
)

// writeMinimalMP3 writes one MPEG-1 Layer III frame header with padding,
// enough for a tag writer to treat the file as an MP3.
func writeMinimalMP3(t *testing.T, path string) {
	t.Helper()

	frame := make([]byte, 417)
	frame[0] = 0xFF
	frame[1] = 0xFB
	frame[2] = 0x90

	require.NoError(t, os.WriteFile(path, frame, 0o600))
}

// writeTaggedMP3 creates a minimal MP3 carrying the given tags.
func writeTaggedMP3(t *testing.T, path, title, artist, album string, trackNumber int) {
	t.Helper()

	writeMinimalMP3(t, path)

	//nolint:exhaustruct // ParseFrames intentionally omitted when Parse=false (parsing disabled).
	tags, err := id3v2.Open(path, id3v2.Options{Parse: false})
	require.NoError(t, err)

	tags.SetDefaultEncoding(id3v2.EncodingUTF8)
	tags.SetTitle(title)
	tags.SetArtist(artist)
	tags.SetAlbum(album)

	if trackNumber > 0 {
		tags.AddTextFrame(
			tags.CommonID("Track number/Position in set"),
			tags.DefaultEncoding(),
			strconv.Itoa(trackNumber))
	}

	require.NoError(t, tags.Save())
	require.NoError(t, tags.Close())
}

// newScanIndex opens a fresh index over the given music directory.
func newScanIndex(t *testing.T, musicDir string) *IndexImpl {
	t.Helper()

	index := newTestIndex(t, defaultOwnershipFloor)
	index.cfg.MusicDirs = []string{musicDir}

	return index
}

func TestIsMusicFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path     string
		expected bool
	}{
		{path: "song.mp3", expected: true},
		{path: "song.FLAC", expected: true},
		{path: "song.m4a", expected: true},
		{path: "song.ogg", expected: true},
		{path: "song.opus", expected: true},
		{path: "notes.txt", expected: false},
		{path: "cover.jpg", expected: false},
		{path: "song", expected: false},
	}

	for _, testCase := range tests {
		t.Run(testCase.path, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, isMusicFile(testCase.path))
		})
	}
}

func TestIndexImpl_Scan_IndexesNewFiles(t *testing.T) {
	t.Parallel()

	musicDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(musicDir, "discovery"), 0o755))

	writeTaggedMP3(t,
		filepath.Join(musicDir, "karma police.mp3"),
		"Karma Police", "Radiohead", "OK Computer", 6)
	writeTaggedMP3(t,
		filepath.Join(musicDir, "discovery", "01 one more time.mp3"),
		"One More Time", "Daft Punk", "Discovery", 1)
	require.NoError(t, os.WriteFile(filepath.Join(musicDir, "notes.txt"), []byte("not audio"), 0o600))

	index := newScanIndex(t, musicDir)
	ctx := context.Background()

	stats, err := index.Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Discovered)
	assert.Equal(t, 2, stats.Added)
	assert.Zero(t, stats.Updated)
	assert.Zero(t, stats.Unchanged)
	assert.Zero(t, stats.Removed)
	assert.Zero(t, stats.Failed)

	count, err := index.TrackCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	result, err := index.CheckOwnership(ctx, match.TrackFields{
		Title:  "Karma Police",
		Artist: "Radiohead",
		Album:  "OK Computer",
	}, 0)
	require.NoError(t, err)
	assert.True(t, result.Owned)
	assert.Equal(t, match.TierExact, result.Tier)
}

func TestIndexImpl_Scan_ReadsTagFields(t *testing.T) {
	t.Parallel()

	musicDir := t.TempDir()
	path := filepath.Join(musicDir, "02 aerodynamic.mp3")

	writeMinimalMP3(t, path)

	//nolint:exhaustruct // ParseFrames intentionally omitted when Parse=false (parsing disabled).
	tags, err := id3v2.Open(path, id3v2.Options{Parse: false})
	require.NoError(t, err)

	tags.SetDefaultEncoding(id3v2.EncodingUTF8)
	tags.SetTitle("Aerodynamic")
	tags.SetArtist("Daft Punk")
	tags.SetAlbum("Discovery")
	tags.SetGenre("Electronic")
	tags.AddTextFrame(tags.CommonID("Track number/Position in set"), tags.DefaultEncoding(), "2/14")
	tags.AddTextFrame(tags.CommonID("Part of a set"), tags.DefaultEncoding(), "1/1")
	tags.AddTextFrame(tags.CommonID("Band/Orchestra/Accompaniment"), tags.DefaultEncoding(), "Daft Punk")
	require.NoError(t, tags.Save())
	require.NoError(t, tags.Close())

	index := newScanIndex(t, musicDir)

	_, err = index.Scan(context.Background())
	require.NoError(t, err)

	records, err := index.allRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, path, record.Path)
	assert.Equal(t, "Aerodynamic", record.Title)
	assert.Equal(t, "Daft Punk", record.Artist)
	assert.Equal(t, "Daft Punk", record.AlbumArtist)
	assert.Equal(t, "Discovery", record.Album)
	assert.Equal(t, "Electronic", record.Genre)
	assert.Equal(t, 2, record.TrackNumber)
	assert.Equal(t, 1, record.DiscNumber)
	assert.Positive(t, record.ModTime)
}

func TestIndexImpl_Scan_SecondScanSkipsUnchanged(t *testing.T) {
	t.Parallel()

	musicDir := t.TempDir()
	writeTaggedMP3(t, filepath.Join(musicDir, "a.mp3"), "Airbag", "Radiohead", "OK Computer", 1)
	writeTaggedMP3(t, filepath.Join(musicDir, "b.mp3"), "Paranoid Android", "Radiohead", "OK Computer", 2)

	index := newScanIndex(t, musicDir)
	ctx := context.Background()

	_, err := index.Scan(ctx)
	require.NoError(t, err)

	stats, err := index.Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Discovered)
	assert.Equal(t, 2, stats.Unchanged)
	assert.Zero(t, stats.Added)
	assert.Zero(t, stats.Updated)
}

func TestIndexImpl_Scan_ReindexesModifiedFiles(t *testing.T) {
	t.Parallel()

	musicDir := t.TempDir()
	path := filepath.Join(musicDir, "track.mp3")
	writeTaggedMP3(t, path, "Old Title", "Artist", "Album", 1)

	index := newScanIndex(t, musicDir)
	ctx := context.Background()

	_, err := index.Scan(ctx)
	require.NoError(t, err)

	// Retag the file and force a different mtime,
	// coarse filesystem timestamps would otherwise hide the change.
	writeTaggedMP3(t, path, "New Title", "Artist", "Album", 1)
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	stats, err := index.Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Updated)
	assert.Zero(t, stats.Added)
	assert.Zero(t, stats.Unchanged)

	records, err := index.allRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "New Title", records[0].Title)
}

func TestIndexImpl_Scan_RemovesVanishedFiles(t *testing.T) {
	t.Parallel()

	musicDir := t.TempDir()
	keptPath := filepath.Join(musicDir, "kept.mp3")
	removedPath := filepath.Join(musicDir, "removed.mp3")

	writeTaggedMP3(t, keptPath, "Kept", "Artist", "Album", 1)
	writeTaggedMP3(t, removedPath, "Removed", "Artist", "Album", 2)

	index := newScanIndex(t, musicDir)
	ctx := context.Background()

	_, err := index.Scan(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(removedPath))

	stats, err := index.Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, 1, stats.Unchanged)

	records, err := index.allRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, keptPath, records[0].Path)
}

func TestIndexImpl_Scan_CountsUnparsableFiles(t *testing.T) {
	t.Parallel()

	musicDir := t.TempDir()
	writeTaggedMP3(t, filepath.Join(musicDir, "good.mp3"), "Good", "Artist", "Album", 1)
	require.NoError(t, os.WriteFile(
		filepath.Join(musicDir, "broken.mp3"),
		[]byte("this is not an audio file at all"),
		0o600))

	index := newScanIndex(t, musicDir)

	stats, err := index.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Discovered)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Failed)

	count, err := index.TrackCount(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestIndexImpl_Scan_MissingDirectorySkipped(t *testing.T) {
	t.Parallel()

	index := newScanIndex(t, filepath.Join(t.TempDir(), "does-not-exist"))

	stats, err := index.Scan(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.Discovered)
	assert.Zero(t, stats.Added)
}

func TestIndexImpl_Scan_CanceledContext(t *testing.T) {
	t.Parallel()

	musicDir := t.TempDir()
	writeTaggedMP3(t, filepath.Join(musicDir, "a.mp3"), "Airbag", "Radiohead", "OK Computer", 1)

	index := newScanIndex(t, musicDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := index.Scan(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReadFileTags_FilenameFallbackForUntitledFiles(t *testing.T) {
	t.Parallel()

	musicDir := t.TempDir()
	path := filepath.Join(musicDir, "07 hidden track.mp3")

	writeMinimalMP3(t, path)

	// Tagged file without a title frame.
	//nolint:exhaustruct // ParseFrames intentionally omitted when Parse=false (parsing disabled).
	tags, err := id3v2.Open(path, id3v2.Options{Parse: false})
	require.NoError(t, err)

	tags.SetDefaultEncoding(id3v2.EncodingUTF8)
	tags.SetArtist("Some Artist")
	require.NoError(t, tags.Save())
	require.NoError(t, tags.Close())

	record, err := readFileTags(path, time.Now().Unix())
	require.NoError(t, err)

	assert.Equal(t, "07 hidden track", record.Title)
	assert.Equal(t, "Some Artist", record.Artist)
	assert.Equal(t, "Some Artist", record.AlbumArtist)
}
