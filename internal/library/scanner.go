package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhowden/tag"
	"golang.org/x/sync/errgroup"

	"github.com/okorolenko/trackseek/internal/logger"
)

// scanWorkers bounds how many files are tag-parsed at once.
const scanWorkers = 8

// musicExtensions lists the file extensions the scanner indexes.
//
//nolint:gochecknoglobals // Static lookup table.
var musicExtensions = map[string]struct{}{
	".mp3":  {},
	".flac": {},
	".m4a":  {},
	".mp4":  {},
	".ogg":  {},
	".oga":  {},
	".opus": {},
}

// scannedFile is one audio file found during directory discovery.
type scannedFile struct {
	// path is the absolute file path.
	path string
	// modTime is the file's modification time in Unix seconds.
	modTime int64
}

// Scan re-indexes the configured music directories incrementally:
// unchanged files are skipped by mtime, modified and new files are
// tag-parsed by a bounded worker group, vanished files are dropped.
func (i *IndexImpl) Scan(ctx context.Context) (*ScanStats, error) {
	stats := &ScanStats{}

	// Walk every configured directory for candidate files.
	files, err := i.discoverFiles(ctx)
	if err != nil {
		return nil, err
	}

	stats.Discovered = len(files)

	existing, err := i.existingPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load indexed paths: %w", err)
	}

	// Keep only new or modified files.
	var pending []scannedFile

	discovered := make(map[string]struct{}, len(files))

	for _, file := range files {
		discovered[file.path] = struct{}{}

		if modTime, ok := existing[file.path]; ok && modTime == file.modTime {
			stats.Unchanged++

			continue
		}

		pending = append(pending, file)
	}

	// Read tags in parallel.
	records, failed, err := i.readTags(ctx, pending)
	if err != nil {
		return nil, err
	}

	stats.Failed = failed

	// Writes stay sequential, sqlite allows a single writer.
	for _, record := range records {
		if err = i.upsertRecord(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to index track '%s': %w", record.Path, err)
		}

		if _, ok := existing[record.Path]; ok {
			stats.Updated++
		} else {
			stats.Added++
		}
	}

	// Drop entries whose files vanished since the last scan.
	for path := range existing {
		if _, ok := discovered[path]; ok {
			continue
		}

		if err = i.deleteByPath(ctx, path); err != nil {
			return nil, fmt.Errorf("failed to drop vanished track '%s': %w", path, err)
		}

		stats.Removed++
	}

	logger.Infof(ctx, "Library scan finished: %d files, %d added, %d updated, %d removed, %d unchanged, %d failed",
		stats.Discovered,
		stats.Added,
		stats.Updated,
		stats.Removed,
		stats.Unchanged,
		stats.Failed)

	return stats, nil
}

// discoverFiles walks the configured music directories collecting audio files.
// Unreadable entries are logged and skipped rather than aborting the scan.
func (i *IndexImpl) discoverFiles(ctx context.Context) ([]scannedFile, error) {
	var files []scannedFile

	for _, dir := range i.cfg.MusicDirs {
		walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				logger.Warnf(ctx, "Skipping unreadable path '%s': %v", path, err)

				//nolint:nilerr // One bad entry must not abort the walk.
				return nil
			}

			if entry.IsDir() || !isMusicFile(path) {
				return nil
			}

			info, err := entry.Info()
			if err != nil {
				logger.Warnf(ctx, "Skipping unreadable path '%s': %v", path, err)

				//nolint:nilerr // One bad entry must not abort the walk.
				return nil
			}

			files = append(files, scannedFile{
				path:    path,
				modTime: info.ModTime().Unix(),
			})

			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("failed to walk music directory '%s': %w", dir, walkErr)
		}
	}

	return files, nil
}

// readTags parses the pending files with a bounded worker group.
// Files that cannot be parsed are logged and counted, not fatal.
func (i *IndexImpl) readTags(ctx context.Context, files []scannedFile) ([]*Record, int, error) {
	var (
		mutex   sync.Mutex
		records []*Record
		failed  int
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(scanWorkers)

	for _, file := range files {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			record, err := readFileTags(file.path, file.modTime)

			mutex.Lock()
			defer mutex.Unlock()

			if err != nil {
				logger.Warnf(ctx, "Failed to read tags from '%s': %v", file.path, err)

				failed++

				return nil
			}

			records = append(records, record)

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, 0, err
	}

	return records, failed, nil
}

// readFileTags reads the embedded metadata of one audio file.
func readFileTags(path string, modTime int64) (*Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer file.Close()

	tags, err := tag.ReadFrom(file)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(tags.Title())
	if title == "" {
		// Untagged files keep their file name so they still count as owned.
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	artist := strings.TrimSpace(tags.Artist())

	albumArtist := strings.TrimSpace(tags.AlbumArtist())
	if albumArtist == "" {
		albumArtist = artist
	}

	trackNumber, _ := tags.Track()
	discNumber, _ := tags.Disc()

	return &Record{
		Path:        path,
		ModTime:     modTime,
		Title:       title,
		Artist:      artist,
		AlbumArtist: albumArtist,
		Album:       strings.TrimSpace(tags.Album()),
		TrackNumber: trackNumber,
		DiscNumber:  discNumber,
		Year:        tags.Year(),
		Genre:       strings.TrimSpace(tags.Genre()),
	}, nil
}

// isMusicFile reports whether the path has a supported audio extension.
func isMusicFile(path string) bool {
	_, ok := musicExtensions[strings.ToLower(filepath.Ext(path))]

	return ok
}
