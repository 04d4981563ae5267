package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okorolenko/trackseek/internal/config"
	"github.com/okorolenko/trackseek/internal/constants"
	"github.com/okorolenko/trackseek/internal/logger"
	"github.com/okorolenko/trackseek/internal/source"
)

// AdapterImpl implements source.Adapter on top of the YouTube client.
// Unlike a daemon-backed source, transfers run inside the process:
// each one is a goroutine streaming the chosen audio format to disk,
// tracked in an in-memory registry keyed by transfer identifier.
type AdapterImpl struct {
	// cfg contains the application configuration.
	cfg *config.Config
	// client is the YouTube API client.
	client Client

	// jobsMutex guards the transfer registry.
	jobsMutex sync.RWMutex
	// jobs holds the live and finished transfers of this process.
	jobs map[string]*transferJob
}

const (
	// stagingFolderName is the folder under the output path where
	// in-flight downloads land before post-processing picks them up.
	stagingFolderName = ".incoming"

	// transferChunkSize is how many bytes are copied per progress update.
	transferChunkSize = 256 * 1024

	// handleReleaseDelay gives the OS a moment to release the file handle
	// before a leftover temp file is removed.
	handleReleaseDelay = 10 * time.Millisecond

	// overwriteFileOptions are the file options for overwriting an existing file.
	overwriteFileOptions = os.O_CREATE | os.O_TRUNC | os.O_WRONLY

	// fallbackContainer is used when the stream's MIME type could not be mapped.
	fallbackContainer = "m4a"

	// titleArtistSeparator splits "Artist - Title" style video titles.
	titleArtistSeparator = " - "
)

// Synthetic remote states reported for in-process transfers.
const (
	remoteStateResolved    = "resolved"
	remoteStateDownloading = "downloading"
	remoteStateCompleted   = "completed"
	remoteStateCancelled   = "cancelled"
)

// ErrIncompleteDownload indicates the downloaded size does not match the declared size.
var ErrIncompleteDownload = errors.New("downloaded size does not match the declared size")

// transferJob tracks one in-process download.
// All fields except cancel are guarded by mutex.
type transferJob struct {
	// mutex guards the mutable fields below.
	mutex sync.Mutex
	// state is the current transfer state bucket.
	state source.TransferState
	// remoteState is the synthetic state string reported in status snapshots.
	remoteState string
	// transferredBytes counts the bytes written so far.
	transferredBytes int64
	// totalBytes is the expected final size, zero when unknown.
	totalBytes int64
	// localPath is set once the finished file is in place.
	localPath string
	// cancel stops the download goroutine.
	cancel context.CancelFunc
}

// setState records a new state and its synthetic remote string.
func (j *transferJob) setState(state source.TransferState, remoteState string) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	j.state = state
	j.remoteState = remoteState
}

// setProgress records the number of bytes written so far.
func (j *transferJob) setProgress(transferredBytes int64) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	j.transferredBytes = transferredBytes
}

// setTotal records the expected final size.
func (j *transferJob) setTotal(totalBytes int64) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	j.totalBytes = totalBytes
}

// finish records the terminal state of the job.
func (j *transferJob) finish(state source.TransferState, remoteState, localPath string) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	j.state = state
	j.remoteState = remoteState
	j.localPath = localPath
}

// snapshot returns a point-in-time status report for the job.
func (j *transferJob) snapshot() *source.TransferStatus {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	return &source.TransferStatus{
		State:            j.state,
		RemoteState:      j.remoteState,
		TransferredBytes: j.transferredBytes,
		TotalBytes:       j.totalBytes,
		LocalPath:        j.localPath,
		UpdatedAt:        time.Now(),
	}
}

// NewAdapter creates a new YouTube source adapter.
func NewAdapter(cfg *config.Config, client Client) source.Adapter {
	return &AdapterImpl{
		cfg:    cfg,
		client: client,
		jobs:   make(map[string]*transferJob),
	}
}

// Origin returns the tag this adapter stamps on its candidates.
func (a *AdapterImpl) Origin() source.CandidateOrigin {
	return source.OriginYouTube
}

// IsConfigured reports whether the adapter is enabled in the configuration.
func (a *AdapterImpl) IsConfigured() bool {
	return a.cfg.YouTubeEnabled
}

// CheckReachable probes the API with a cheap request.
func (a *AdapterImpl) CheckReachable(ctx context.Context) error {
	if err := a.client.CheckAvailability(ctx); err != nil {
		return fmt.Errorf("%w: %v", source.ErrUnreachable, err)
	}

	return nil
}

// Search runs one query and maps the results to candidates.
// Bitrate and container stay unset: they are unknown until a stream
// is resolved, which only happens when a transfer starts.
func (a *AdapterImpl) Search(ctx context.Context, query string, timeout time.Duration) ([]source.Candidate, error) {
	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	videos, err := a.client.SearchVideos(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates := make([]source.Candidate, 0, len(videos))

	for _, video := range videos {
		artist, title := splitVideoTitle(video.Title, video.Channel)

		candidates = append(candidates, source.Candidate{
			Origin:          source.OriginYouTube,
			Locator:         video.ID,
			Title:           title,
			Artist:          artist,
			DurationMS:      video.DurationMS,
			OfficialChannel: video.OfficialChannel,
		})
	}

	logger.Debugf(ctx, "YouTube search for '%s' produced %d candidates", query, len(candidates))

	return candidates, nil
}

// StartTransfer resolves the video's audio stream and starts downloading it
// in a goroutine bound to the given context: cancelling that context stops
// every transfer started under it.
func (a *AdapterImpl) StartTransfer(ctx context.Context, locator string) (string, error) {
	stream, err := a.client.ResolveAudioStream(ctx, locator)
	if err != nil {
		return "", err
	}

	logger.Infof(ctx, "Downloading video '%s' as %s at %d kbps",
		locator, stream.Container, stream.BitrateKbps)

	transferCtx, cancel := context.WithCancel(ctx)
	job := &transferJob{
		state:       source.TransferStateQueued,
		remoteState: remoteStateResolved,
		totalBytes:  stream.SizeBytes,
		cancel:      cancel,
	}

	transferID := uuid.New().String()

	a.jobsMutex.Lock()
	a.jobs[transferID] = job
	a.jobsMutex.Unlock()

	go a.runTransfer(transferCtx, job, locator, stream)

	return transferID, nil
}

// TransferStatus reports the current state of a transfer from the registry.
func (a *AdapterImpl) TransferStatus(_ context.Context, transferID string) (*source.TransferStatus, error) {
	job := a.lookupJob(transferID)
	if job == nil {
		return nil, fmt.Errorf("%w: '%s'", source.ErrTransferNotFound, transferID)
	}

	return job.snapshot(), nil
}

// CancelTransfer stops the download goroutine behind the transfer.
// Cancelling an already finished transfer is a no-op.
func (a *AdapterImpl) CancelTransfer(ctx context.Context, transferID string) error {
	job := a.lookupJob(transferID)
	if job == nil {
		return fmt.Errorf("%w: '%s'", source.ErrTransferNotFound, transferID)
	}

	logger.Infof(ctx, "Cancelling YouTube transfer '%s'", transferID)
	job.cancel()

	return nil
}

// lookupJob returns the registered job for the identifier, or nil.
func (a *AdapterImpl) lookupJob(transferID string) *transferJob {
	a.jobsMutex.RLock()
	defer a.jobsMutex.RUnlock()

	return a.jobs[transferID]
}

// runTransfer drives one download to a terminal state.
func (a *AdapterImpl) runTransfer(ctx context.Context, job *transferJob, videoID string, stream *AudioStream) {
	localPath, err := a.downloadStream(ctx, job, videoID, stream)

	switch {
	case err == nil:
		logger.Infof(ctx, "Finished downloading video '%s' to '%s'", videoID, localPath)
		job.finish(source.TransferStateCompleted, remoteStateCompleted, localPath)
	case ctx.Err() != nil:
		job.finish(source.TransferStateCancelled, remoteStateCancelled, "")
	default:
		logger.Errorf(ctx, "Downloading video '%s' failed: %v", videoID, err)
		job.finish(source.TransferStateFailed, err.Error(), "")
	}
}

// downloadStream writes the audio stream to a temp file in the staging
// folder, verifies its size and moves it into place.
func (a *AdapterImpl) downloadStream(
	ctx context.Context,
	job *transferJob,
	videoID string,
	stream *AudioStream,
) (string, error) {
	job.setState(source.TransferStateDownloading, remoteStateDownloading)

	fetchResult, err := a.client.FetchStream(ctx, stream.URL)
	if err != nil {
		return "", err
	}

	defer fetchResult.Body.Close()

	if fetchResult.TotalBytes > 0 {
		job.setTotal(fetchResult.TotalBytes)
	}

	stagingFolder := filepath.Join(a.cfg.OutputPath, stagingFolderName)
	if err = os.MkdirAll(stagingFolder, constants.DefaultFolderPermissions); err != nil {
		return "", err
	}

	container := stream.Container
	if container == "" {
		container = fallbackContainer
	}

	finalPath := filepath.Join(stagingFolder, videoID+"."+container)
	tempPath := finalPath + constants.ExtensionPart

	file, err := os.OpenFile(filepath.Clean(tempPath), overwriteFileOptions, constants.DefaultFilePermissions)
	if err != nil {
		return "", err
	}

	downloadSucceeded := false

	defer func() {
		if downloadSucceeded {
			return
		}

		file.Close() //nolint:gosec // Error on close is not critical here.

		// Give the OS a moment to release the handle before removal.
		time.Sleep(handleReleaseDelay)

		if removeErr := os.Remove(tempPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warnf(ctx, "Failed to remove partial download '%s': %v", tempPath, removeErr)
		}
	}()

	bytesWritten, err := a.copyWithProgress(ctx, file, fetchResult.Body, job)
	if err != nil {
		return "", err
	}

	if fetchResult.TotalBytes > 0 && bytesWritten != fetchResult.TotalBytes {
		return "", fmt.Errorf("%w: got %d bytes, expected %d",
			ErrIncompleteDownload, bytesWritten, fetchResult.TotalBytes)
	}

	if err = file.Close(); err != nil {
		return "", err
	}

	if err = os.Rename(tempPath, finalPath); err != nil {
		return "", err
	}

	downloadSucceeded = true

	return finalPath, nil
}

// copyWithProgress copies the stream chunk by chunk,
// publishing progress to the job after every chunk.
func (a *AdapterImpl) copyWithProgress(
	ctx context.Context,
	destination io.Writer,
	stream io.Reader,
	job *transferJob,
) (int64, error) {
	var totalWritten int64

	for {
		if ctx.Err() != nil {
			return totalWritten, ctx.Err()
		}

		written, err := io.CopyN(destination, stream, transferChunkSize)
		totalWritten += written
		job.setProgress(totalWritten)

		if errors.Is(err, io.EOF) {
			return totalWritten, nil
		}

		if err != nil {
			return totalWritten, err
		}
	}
}

// splitVideoTitle derives artist and title from a video's title and channel.
// "Artist - Title" style titles are split; otherwise the channel name,
// minus any topic channel suffix, stands in as the artist.
func splitVideoTitle(videoTitle, channel string) (artist, title string) {
	if left, right, found := strings.Cut(videoTitle, titleArtistSeparator); found {
		left, right = strings.TrimSpace(left), strings.TrimSpace(right)
		if left != "" && right != "" {
			return left, right
		}
	}

	return strings.TrimSuffix(channel, topicChannelSuffix), videoTitle
}
