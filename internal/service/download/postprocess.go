package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okorolenko/trackseek/internal/constants"
	"github.com/okorolenko/trackseek/internal/logger"
	"github.com/okorolenko/trackseek/internal/lyrics"
	"github.com/okorolenko/trackseek/internal/metadata"
	"github.com/okorolenko/trackseek/internal/source"
	"github.com/okorolenko/trackseek/internal/tags"
	"github.com/okorolenko/trackseek/internal/utils"
)

const (
	// overwriteFileOptions creates or truncates the file being written.
	overwriteFileOptions = os.O_CREATE | os.O_TRUNC | os.O_WRONLY

	// defaultCoverExtension is used when the cover URL hides its file type.
	defaultCoverExtension = ".jpg"

	// trackNumberPadWidth pads track numbers for lexicographic file ordering.
	trackNumberPadWidth = 2
)

// postProcess turns a raw capture into a tagged library file. Failures here
// are logged and leave the task completed, the audio itself already arrived.
func (c *CoordinatorImpl) postProcess(ctx context.Context, session *Session, task *Task) {
	capturePath := task.LocalPath()
	if capturePath == "" {
		logger.Warnf(ctx, "Transfer for '%s - %s' reported no local file, skipping post-processing",
			task.Track.Artist, task.Track.Title)

		return
	}

	exists, err := utils.IsFileExist(capturePath)
	if err != nil || !exists {
		logger.Warnf(ctx, "Downloaded file '%s' is not accessible, skipping post-processing", capturePath)

		return
	}

	capturePath = c.maybeConvert(ctx, task, capturePath)

	// Tags go in while the file still wears its staging name. A file that
	// reaches its final path is always fully tagged.
	c.writeTags(ctx, session, task.Track, capturePath)

	finalPath := c.destinationPath(ctx, task.Track, filepath.Ext(capturePath))

	if replaced, _ := utils.IsFileExist(finalPath); replaced && finalPath != capturePath {
		logger.Infof(ctx, "Replacing existing file '%s'", finalPath)
	}

	if err := moveFile(capturePath, finalPath); err != nil {
		logger.Errorf(ctx, "Failed to move '%s' into the library: %v", capturePath, err)

		return
	}

	task.setLocalPath(finalPath)

	logger.Infof(ctx, "Saved '%s'", finalPath)
}

// maybeConvert transcodes captured streams into MP3 when the converter is
// around. Files fetched from peers keep their container untouched, lossless
// ones especially.
func (c *CoordinatorImpl) maybeConvert(ctx context.Context, task *Task, capturePath string) string {
	candidate := task.Candidate()
	if candidate == nil || candidate.Origin != source.OriginYouTube {
		return capturePath
	}

	if strings.EqualFold(filepath.Ext(capturePath), constants.ExtensionMP3) {
		return capturePath
	}

	if !c.converter.Available() {
		logger.Warnf(ctx, "ffmpeg is not available, keeping '%s' in its original container", capturePath)

		return capturePath
	}

	convertedPath := strings.TrimSuffix(capturePath, filepath.Ext(capturePath)) + constants.ExtensionMP3

	logger.Debugf(ctx, "Converting '%s' to MP3", capturePath)

	if err := c.converter.ConvertToMP3(ctx, capturePath, convertedPath); err != nil {
		logger.Errorf(ctx, "Failed to convert '%s' to MP3: %v", capturePath, err)

		return capturePath
	}

	if err := os.Remove(capturePath); err != nil {
		logger.Warnf(ctx, "Failed to remove '%s' after conversion: %v", capturePath, err)
	}

	return convertedPath
}

// writeTags embeds catalog metadata, cover art, and lyrics into the file.
func (c *CoordinatorImpl) writeTags(
	ctx context.Context,
	session *Session,
	track *metadata.WantedTrack,
	trackPath string,
) {
	extension := strings.ToLower(filepath.Ext(trackPath))
	if extension != constants.ExtensionMP3 && extension != constants.ExtensionFLAC {
		logger.Debugf(ctx, "Tags are not supported for '%s' files, skipping", extension)

		return
	}

	coverPath := c.fetchCover(ctx, track)
	if coverPath != "" {
		defer func() {
			if err := os.Remove(coverPath); err != nil {
				logger.Warnf(ctx, "Failed to remove temporary cover '%s': %v", coverPath, err)
			}
		}()
	}

	trackLyrics := c.fetchLyrics(ctx, track)

	request := &tags.WriteTagsRequest{
		TrackPath: trackPath,
		Track:     track,
		CoverPath: coverPath,
		Lyrics:    trackLyrics,
	}

	if err := c.tagProcessor.WriteTags(ctx, request); err != nil {
		logger.Errorf(ctx, "Failed to write tags to '%s': %v", trackPath, err)

		return
	}

	if coverPath != "" {
		session.noteCoverEmbedded()
	}

	if trackLyrics != nil {
		session.noteLyricsEmbedded()
	}
}

// fetchLyrics looks up lyrics for the track when embedding is enabled.
func (c *CoordinatorImpl) fetchLyrics(ctx context.Context, track *metadata.WantedTrack) *lyrics.Lyrics {
	if !c.cfg.EmbedLyrics {
		return nil
	}

	found, err := c.lyricsFetcher.FetchLyrics(ctx, track)
	if err != nil {
		switch {
		case errors.Is(err, lyrics.ErrNotFound):
			logger.Debugf(ctx, "No lyrics found for '%s - %s'", track.Artist, track.Title)
		case errors.Is(err, context.Canceled):
		default:
			logger.Warnf(ctx, "Failed to fetch lyrics for '%s - %s': %v", track.Artist, track.Title, err)
		}

		return nil
	}

	return found
}

// fetchCover downloads the track's cover art into a temporary file and
// returns its path, empty when no cover could be fetched.
func (c *CoordinatorImpl) fetchCover(ctx context.Context, track *metadata.WantedTrack) string {
	if track.CoverURL == "" {
		return ""
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, track.CoverURL, http.NoBody)
	if err != nil {
		logger.Warnf(ctx, "Failed to build cover request for '%s': %v", track.Title, err)

		return ""
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		logger.Warnf(ctx, "Failed to fetch cover for '%s': %v", track.Title, err)

		return ""
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		logger.Warnf(ctx, "Cover fetch for '%s' returned status %d", track.Title, response.StatusCode)

		return ""
	}

	extension := coverExtension(track.CoverURL, response.Header.Get("Content-Type"))

	coverFile, err := os.CreateTemp("", "trackseek-cover-*"+extension)
	if err != nil {
		logger.Warnf(ctx, "Failed to create temporary cover file: %v", err)

		return ""
	}

	if _, err := io.Copy(coverFile, response.Body); err != nil {
		_ = coverFile.Close()           //nolint:errcheck // The file is discarded anyway.
		_ = os.Remove(coverFile.Name()) //nolint:errcheck // Best-effort cleanup.

		logger.Warnf(ctx, "Failed to save cover for '%s': %v", track.Title, err)

		return ""
	}

	if err := coverFile.Close(); err != nil {
		_ = os.Remove(coverFile.Name()) //nolint:errcheck // Best-effort cleanup.

		logger.Warnf(ctx, "Failed to finalize cover file: %v", err)

		return ""
	}

	return coverFile.Name()
}

// coverExtension extracts the image extension from a cover URL, falling back
// to the response content type. Catalog CDNs often serve covers from
// extension-less URLs.
func coverExtension(coverURL, contentType string) string {
	parsed, err := url.Parse(coverURL)
	if err == nil {
		if extension := strings.ToLower(path.Ext(parsed.Path)); extension != "" {
			return extension
		}
	}

	if contentType == utils.ImagePNGMimeType {
		return ".png"
	}

	return defaultCoverExtension
}

// destinationPath renders the final resting place for a finished track.
func (c *CoordinatorImpl) destinationPath(
	ctx context.Context,
	track *metadata.WantedTrack,
	extension string,
) string {
	filename := utils.SanitizeFilename(c.renderFilename(ctx, buildTrackTags(track)))
	filename = utils.SetFileExtension(filename, extension, true)

	return filepath.Join(c.cfg.OutputPath, filename)
}

// renderFilename renders the configured filename template for the track,
// falling back to the default template when the configured one is broken.
func (c *CoordinatorImpl) renderFilename(ctx context.Context, trackTags map[string]string) string {
	var buffer bytes.Buffer

	if c.trackFilenameTemplate != nil {
		if err := c.trackFilenameTemplate.Execute(&buffer, trackTags); err != nil {
			logger.Errorf(ctx, "Failed to execute filename template, using default: %v", err)

			// Fall back to the default template if execution fails.
			buffer.Reset()
			_ = c.defaultTrackFilenameTemplate.Execute(&buffer, trackTags) //nolint:errcheck // Default template is always valid.
		}
	} else {
		// Use default template if custom template is nil.
		_ = c.defaultTrackFilenameTemplate.Execute(&buffer, trackTags) //nolint:errcheck // Default template is always valid.
	}

	// Unescape HTML entities in the generated filename.
	return html.UnescapeString(buffer.String())
}

// buildTrackTags assembles the template data for filename rendering.
func buildTrackTags(track *metadata.WantedTrack) map[string]string {
	albumArtist := track.AlbumArtist
	if albumArtist == "" {
		albumArtist = track.Artist
	}

	return map[string]string{
		"trackTitle":     track.Title,
		"trackArtist":    track.JoinedArtists(),
		"trackNumber":    strconv.Itoa(track.TrackNumber),
		"trackNumberPad": fmt.Sprintf("%0*d", trackNumberPadWidth, track.TrackNumber),
		"albumTitle":     track.Album,
		"albumArtist":    albumArtist,
		"releaseYear":    track.ReleaseYear(),
		"trackGenre":     strings.Join(track.Genres, ", "),
	}
}

// moveFile renames the file into place, falling back to copy and remove
// when the staging area and the library live on different filesystems.
func moveFile(sourcePath, destinationPath string) error {
	if err := os.Rename(sourcePath, destinationPath); err == nil {
		return nil
	}

	input, err := os.Open(filepath.Clean(sourcePath))
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}

	output, err := os.OpenFile(filepath.Clean(destinationPath), overwriteFileOptions, constants.DefaultFilePermissions)
	if err != nil {
		_ = input.Close() //nolint:errcheck // Read-only handle.

		return fmt.Errorf("failed to create destination file: %w", err)
	}

	_, copyErr := io.Copy(output, input)

	_ = input.Close() //nolint:errcheck // Read-only handle.

	if closeErr := output.Close(); copyErr == nil {
		copyErr = closeErr
	}

	if copyErr != nil {
		return fmt.Errorf("failed to copy file: %w", copyErr)
	}

	if err := os.Remove(sourcePath); err != nil {
		return fmt.Errorf("failed to remove source file after copy: %w", err)
	}

	return nil
}
