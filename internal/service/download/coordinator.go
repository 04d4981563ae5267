package download

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/okorolenko/trackseek/internal/config"
	"github.com/okorolenko/trackseek/internal/constants"
	"github.com/okorolenko/trackseek/internal/ffmpeg"
	"github.com/okorolenko/trackseek/internal/logger"
	"github.com/okorolenko/trackseek/internal/lyrics"
	"github.com/okorolenko/trackseek/internal/metadata"
	"github.com/okorolenko/trackseek/internal/source"
	"github.com/okorolenko/trackseek/internal/tags"
	http_transport "github.com/okorolenko/trackseek/internal/transport/http"
	"github.com/okorolenko/trackseek/internal/utils"
)

const (
	// defaultMissGraceLimit is how many consecutive status polls may fail to
	// find a transfer before it is declared lost at the source.
	defaultMissGraceLimit = 3

	// searchingPhase labels failures that happened before any transfer started.
	searchingPhase = "searching"
	// transferringPhase labels failures that happened while driving transfers.
	transferringPhase = "transferring"
)

// Coordinator drives batches of wanted tracks through search, verification,
// transfer, and post-processing.
type Coordinator interface {
	// Start submits a batch of wanted tracks and returns a live session
	// handle. It does not block: the caller waits on the session and may
	// cancel it at any point.
	Start(ctx context.Context, tracks []*metadata.WantedTrack) (*Session, error)

	// PrintSummary prints a formatted summary of a settled session.
	PrintSummary(ctx context.Context, session *Session)
}

// CoordinatorImpl implements the Coordinator interface.
type CoordinatorImpl struct {
	// cfg contains the application configuration.
	cfg *config.Config
	// router dispatches searches and transfer operations to the sources.
	router source.Router
	// converter transcodes captured streams into MP3 after download.
	converter ffmpeg.Converter
	// tagProcessor writes catalog metadata into finished files.
	tagProcessor tags.Processor
	// lyricsFetcher looks up lyrics for finished tracks.
	lyricsFetcher lyrics.Fetcher
	// httpClient fetches cover images during post-processing.
	httpClient *http.Client
	// trackFilenameTemplate renders output file names from track tags.
	trackFilenameTemplate *template.Template
	// defaultTrackFilenameTemplate is the fallback when the configured template is broken.
	defaultTrackFilenameTemplate *template.Template
	// callbacks notify the caller about task lifecycle events.
	callbacks Callbacks
	// missGraceLimit is how many consecutive status misses a transfer survives.
	missGraceLimit int
}

// NewCoordinator creates and returns a new instance of CoordinatorImpl.
// It initializes the filename template from the configuration and falls
// back to the default template if parsing fails.
func NewCoordinator(
	ctx context.Context,
	cfg *config.Config,
	router source.Router,
	converter ffmpeg.Converter,
	tagProcessor tags.Processor,
	lyricsFetcher lyrics.Fetcher,
	callbacks *Callbacks,
) Coordinator {
	defaultTrackFilenameTemplate := template.Must(
		template.New("defaultTrackFilenameTemplate").Parse(config.DefaultTrackFilenameTemplate))

	trackFilenameTemplate, err := template.New("trackFilenameTemplate").Parse(cfg.TrackFilenameTemplate)
	if err != nil {
		logger.Errorf(ctx, "Failed to parse track filename template, using default: %v", err)
	}

	httpClient := &http.Client{
		Timeout: http_transport.DefaultTimeout,
		Transport: http_transport.NewUserAgentInjector(
			http_transport.NewLogTransport(http.DefaultTransport, 0),
			utils.NewSimpleUserAgentProvider(http_transport.DefaultUserAgent),
		),
	}

	coordinator := &CoordinatorImpl{
		cfg:                          cfg,
		router:                       router,
		converter:                    converter,
		tagProcessor:                 tagProcessor,
		lyricsFetcher:                lyricsFetcher,
		httpClient:                   httpClient,
		trackFilenameTemplate:        trackFilenameTemplate,
		defaultTrackFilenameTemplate: defaultTrackFilenameTemplate,
		missGraceLimit:               defaultMissGraceLimit,
	}

	if callbacks != nil {
		coordinator.callbacks = *callbacks
	}

	return coordinator
}

// Start submits a batch of wanted tracks and returns a live session handle.
func (c *CoordinatorImpl) Start(ctx context.Context, tracks []*metadata.WantedTrack) (*Session, error) {
	if !c.router.IsConfigured() {
		return nil, ErrNotConfigured
	}

	if err := os.MkdirAll(c.cfg.OutputPath, constants.DefaultFolderPermissions); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	session := newSession(tracks, cancel, c.cfg.DryRun)

	logger.Infof(ctx, "Starting acquisition session with %d track(s), %d slot(s)",
		len(session.tasks), c.cfg.MaxConcurrentDownloads)

	// Semaphore bounds concurrent acquisitions. A task holds its slot for
	// its whole lifecycle, fallback attempts included.
	semaphore := make(chan struct{}, c.cfg.MaxConcurrentDownloads)

	for _, task := range session.tasks {
		session.waitGroup.Add(1)

		go func(task *Task) {
			defer session.waitGroup.Done()

			select {
			case semaphore <- struct{}{}:
			case <-sessionCtx.Done():
				// Admission stops on cancellation; the task stays pending.
				return
			}

			defer func() { <-semaphore }()

			// A slot freed by a cancelled task must not admit the next one.
			if sessionCtx.Err() != nil {
				return
			}

			session.noteAdmitted()
			c.acquireTrack(sessionCtx, session, task)
		}(task)
	}

	return session, nil
}

// acquireTrack drives one task to a terminal state: search once, then walk
// the ranked candidates until one completes or the attempt ceiling is hit.
func (c *CoordinatorImpl) acquireTrack(ctx context.Context, session *Session, task *Task) {
	task.markStarted()
	task.setState(TaskStateSearching)

	logger.Infof(ctx, "Searching for '%s - %s'", task.Track.Artist, task.Track.Title)

	candidates, queries, err := c.searchCandidates(ctx, task.Track)
	task.setQueries(queries)

	if err != nil {
		c.failTask(ctx, session, task, searchingPhase, err)

		return
	}

	if len(candidates) == 0 {
		c.failTask(ctx, session, task, searchingPhase,
			fmt.Errorf("%w: %d quer(y/ies) tried", ErrNoCandidates, len(queries)))

		return
	}

	if c.cfg.DryRun {
		c.previewTask(ctx, session, task, &candidates[0])

		return
	}

	var lastErr error

	for i := range candidates {
		if ctx.Err() != nil {
			c.failTask(ctx, session, task, transferringPhase, ctx.Err())

			return
		}

		if int64(task.Attempts()) >= c.cfg.MaxDownloadAttempts {
			c.failTask(ctx, session, task, transferringPhase,
				fmt.Errorf("%w: %d attempt(s) made, last failure: %v",
					ErrRetryCeilingExceeded, task.Attempts(), lastErr))

			return
		}

		if !task.markAttempted(candidates[i].Locator) {
			continue
		}

		err := c.attemptCandidate(ctx, task, &candidates[i])
		if err == nil {
			c.completeTask(ctx, session, task)

			return
		}

		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			c.failTask(ctx, session, task, transferringPhase, err)

			return
		}

		lastErr = err

		logger.Warnf(ctx, "Attempt %d for '%s - %s' failed: %v",
			task.Attempts(), task.Track.Artist, task.Track.Title, err)

		// Back to the ranked list for the next candidate.
		task.setState(TaskStateSearching)
	}

	if int64(task.Attempts()) >= c.cfg.MaxDownloadAttempts {
		c.failTask(ctx, session, task, transferringPhase,
			fmt.Errorf("%w: %d attempt(s) made, last failure: %v",
				ErrRetryCeilingExceeded, task.Attempts(), lastErr))

		return
	}

	c.failTask(ctx, session, task, transferringPhase,
		fmt.Errorf("%w: every verified candidate was attempted, last failure: %v", ErrNoCandidates, lastErr))
}

// previewTask reports what would be downloaded without starting a transfer.
func (c *CoordinatorImpl) previewTask(ctx context.Context, session *Session, task *Task, best *source.Candidate) {
	logger.Infof(ctx, "[DRY-RUN] Would download '%s - %s' from %s (confidence %.2f): %s",
		task.Track.Artist, task.Track.Title, best.Origin, best.Confidence, describeCandidate(best))

	task.complete()
	session.noteCompleted(best.SizeBytes)
}

// attemptCandidate runs one transfer attempt to its end. A nil return means
// the task completed; an error means the candidate is spent and the task
// may fall back to the next one.
func (c *CoordinatorImpl) attemptCandidate(ctx context.Context, task *Task, candidate *source.Candidate) error {
	task.selectCandidate(candidate)

	logger.Infof(ctx, "Attempt %d for '%s - %s': %s candidate, confidence %.2f, %s",
		task.Attempts(), task.Track.Artist, task.Track.Title,
		candidate.Origin, candidate.Confidence, describeCandidate(candidate))

	transferID, err := c.router.StartTransfer(ctx, candidate.Origin, candidate.Locator)
	if err != nil {
		task.setState(TaskStateSourceFailed)

		return fmt.Errorf("%w: %v", ErrSourceFailed, err)
	}

	task.beginTransfer(transferID)

	return c.pollTransfer(ctx, task, candidate)
}

// pollTransfer watches a running transfer until it settles. It cancels the
// transfer at the source before reporting a stall, and tolerates a short
// run of status misses before declaring the transfer lost.
func (c *CoordinatorImpl) pollTransfer(ctx context.Context, task *Task, candidate *source.Candidate) error {
	ticker := time.NewTicker(c.cfg.ParsedStatusPollInterval)
	defer ticker.Stop()

	bar := c.newProgressBar(candidate)

	for {
		select {
		case <-ctx.Done():
			// Session cancelled: stop the transfer at its source, no retries.
			c.cancelAtSource(ctx, task, candidate)
			clearProgressBar(bar)

			return ctx.Err()
		case <-ticker.C:
		}

		status, err := c.router.TransferStatus(ctx, candidate.Origin, task.TransferID())
		if err != nil {
			if ctx.Err() != nil {
				c.cancelAtSource(ctx, task, candidate)
				clearProgressBar(bar)

				return ctx.Err()
			}

			misses := task.noteMiss()
			logger.Debugf(ctx, "Status poll %d/%d missed for '%s': %v",
				misses, c.missGraceLimit, task.Track.Title, err)

			if misses >= c.missGraceLimit {
				task.setState(TaskStateSourceFailed)
				clearProgressBar(bar)

				return fmt.Errorf("%w: transfer vanished after %d status poll(s): %v",
					ErrSourceFailed, misses, err)
			}

			continue
		}

		outcome := task.applyStatus(status)

		if outcome.progressed {
			if bar != nil {
				if outcome.total > 0 {
					bar.ChangeMax64(outcome.total)
				}

				_ = bar.Set64(outcome.transferred) //nolint:errcheck // Progress rendering is best-effort.
			}

			if c.callbacks.OnProgress != nil {
				c.callbacks.OnProgress(task, outcome.transferred, outcome.total)
			}
		}

		switch outcome.state {
		case source.TransferStateCompleted:
			if bar != nil {
				_ = bar.Finish() //nolint:errcheck // Progress rendering is best-effort.
			}

			return nil
		case source.TransferStateFailed:
			task.setState(TaskStateSourceFailed)
			clearProgressBar(bar)

			return fmt.Errorf("%w: source reported %q", ErrSourceFailed, status.RemoteState)
		case source.TransferStateCancelled:
			task.setState(TaskStateSourceFailed)
			clearProgressBar(bar)

			return fmt.Errorf("%w: transfer was cancelled at the source", ErrSourceFailed)
		case source.TransferStateQueued, source.TransferStateDownloading, source.TransferStateUnknown:
			if task.stalledSince(c.cfg.ParsedStallTimeout) {
				// The source must stop serving the transfer before the task
				// moves on to a fallback candidate.
				c.cancelAtSource(ctx, task, candidate)
				task.setState(TaskStateStalled)
				clearProgressBar(bar)

				return fmt.Errorf("%w: no progress in %s, remote state %q",
					ErrTransferStalled, c.cfg.ParsedStallTimeout, status.RemoteState)
			}
		}
	}
}

// completeTask settles a successful task: counters, post-processing, callback.
func (c *CoordinatorImpl) completeTask(ctx context.Context, session *Session, task *Task) {
	task.complete()

	transferred, _ := task.Progress()
	elapsed := task.Elapsed()

	session.noteCompleted(transferred)

	logger.Infof(ctx, "Completed '%s - %s': %s in %s",
		task.Track.Artist, task.Track.Title, formatBytes(transferred), formatDuration(elapsed))

	c.postProcess(ctx, session, task)

	if c.callbacks.OnCompleted != nil {
		c.callbacks.OnCompleted(task, transferred, elapsed)
	}
}

// failTask settles a permanently failed task: counters, error log, callback.
func (c *CoordinatorImpl) failTask(
	ctx context.Context,
	session *Session,
	task *Task,
	phase string,
	reason error,
) {
	task.fail(reason)
	session.noteFailed()
	session.recordFailure(task, phase, reason)

	// Cancellation is expected during shutdown, don't pollute logs with errors.
	if !errors.Is(reason, context.Canceled) {
		logger.Errorf(ctx, "Giving up on '%s - %s': %v", task.Track.Artist, task.Track.Title, reason)
	}

	if c.callbacks.OnFailed != nil {
		c.callbacks.OnFailed(task, task.AttemptedLocators(), reason)
	}
}

// cancelAtSource asks the source to stop the running transfer, best effort.
func (c *CoordinatorImpl) cancelAtSource(ctx context.Context, task *Task, candidate *source.Candidate) {
	transferID := task.TransferID()
	if transferID == "" {
		return
	}

	// The session context may already be cancelled; the cleanup call still
	// has to reach the source.
	cancelCtx := context.WithoutCancel(ctx)

	if err := c.router.CancelTransfer(cancelCtx, candidate.Origin, transferID); err != nil {
		logger.Warnf(ctx, "Failed to cancel transfer '%s' at %s: %v", transferID, candidate.Origin, err)
	} else {
		logger.Debugf(ctx, "Cancelled transfer '%s' at %s", transferID, candidate.Origin)
	}
}

// newProgressBar returns a byte progress bar for the transfer, or nil when
// bars from concurrent downloads would interleave in the terminal.
func (c *CoordinatorImpl) newProgressBar(candidate *source.Candidate) *progressbar.ProgressBar {
	if logger.Level() > zap.InfoLevel || c.cfg.MaxConcurrentDownloads != 1 {
		return nil
	}

	totalBytes := candidate.SizeBytes
	if totalBytes <= 0 {
		// Spinner mode until the source reports a size.
		totalBytes = -1
	}

	return progressbar.DefaultBytes(totalBytes, "Downloading")
}

// clearProgressBar wipes the bar line after an attempt that went nowhere.
func clearProgressBar(bar *progressbar.ProgressBar) {
	if bar == nil {
		return
	}

	_ = bar.Clear() //nolint:errcheck // Progress rendering is best-effort.
}

// describeCandidate renders a candidate's payload facts for log lines.
func describeCandidate(candidate *source.Candidate) string {
	description := candidate.Container
	if description == "" {
		description = "unknown format"
	}

	if candidate.BitrateKbps > 0 {
		description = fmt.Sprintf("%s %d kbps", description, candidate.BitrateKbps)
	}

	if candidate.SizeBytes > 0 {
		description = fmt.Sprintf("%s, %s", description, formatBytes(candidate.SizeBytes))
	}

	return description
}
