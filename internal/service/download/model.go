package download

import (
	"sync"
	"time"

	"github.com/okorolenko/trackseek/internal/metadata"
	"github.com/okorolenko/trackseek/internal/source"
)

// TaskState represents a task's position in the acquisition state machine.
type TaskState uint8

const (
	// TaskStatePending means the task was submitted but has not been admitted into a slot yet.
	TaskStatePending TaskState = iota
	// TaskStateSearching means the task is resolving or consulting its ranked candidate list.
	TaskStateSearching
	// TaskStateCandidateSelected means a candidate was picked and its transfer is about to start.
	TaskStateCandidateSelected
	// TaskStateTransferring means a transfer is running at the source.
	TaskStateTransferring
	// TaskStateCompleted means the transfer finished and the file landed locally.
	TaskStateCompleted
	// TaskStateStalled means the running transfer made no progress within the stall timeout.
	TaskStateStalled
	// TaskStateSourceFailed means the source reported the transfer failed or lost track of it.
	TaskStateSourceFailed
	// TaskStatePermanentlyFailed means the task gave up and will not be retried.
	TaskStatePermanentlyFailed
)

// String returns the human-readable task state name.
func (s TaskState) String() string {
	switch s {
	case TaskStatePending:
		return "pending"
	case TaskStateSearching:
		return "searching"
	case TaskStateCandidateSelected:
		return "candidate_selected"
	case TaskStateTransferring:
		return "transferring"
	case TaskStateCompleted:
		return "completed"
	case TaskStateStalled:
		return "stalled"
	case TaskStateSourceFailed:
		return "source_failed"
	case TaskStatePermanentlyFailed:
		return "permanently_failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the task has settled for good.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStatePermanentlyFailed
}

// statusOutcome is what one folded-in status report tells the poll loop.
type statusOutcome struct {
	// progressed reports whether the byte count moved forward.
	progressed bool
	// state is the internal bucket the report mapped into.
	state source.TransferState
	// transferred is the byte count after folding in the report.
	transferred int64
	// total is the expected size after folding in the report.
	total int64
}

// Task is one wanted track being driven to acquisition.
type Task struct {
	// ID correlates log lines and callbacks for one acquisition.
	ID string
	// Track is the wanted track being acquired.
	Track *metadata.WantedTrack

	// mutex guards the mutable fields below. The driving goroutine is the
	// only writer; other goroutines read snapshots.
	mutex sync.Mutex
	// state is the task's position in the acquisition state machine.
	state TaskState
	// attempts counts candidates tried so far.
	attempts int
	// attemptedLocators holds every locator already tried, in order.
	attemptedLocators []string
	// attemptedSet indexes attemptedLocators for duplicate checks.
	attemptedSet map[string]struct{}
	// queries holds the search strings already sent, for failure reports.
	queries []string
	// candidate is the candidate currently being transferred.
	candidate *source.Candidate
	// transferID identifies the running transfer at its source.
	transferID string
	// transferredBytes is the highest byte count reported so far.
	transferredBytes int64
	// totalBytes is the last reported expected size, zero when unknown.
	totalBytes int64
	// lastProgress is when the byte count last moved forward.
	lastProgress time.Time
	// missCount counts consecutive status polls that could not find the transfer.
	missCount int
	// lastRemoteState is the raw source state string from the latest poll.
	lastRemoteState string
	// localPath is where the finished file currently lives.
	localPath string
	// startedAt is when the task was admitted into a slot.
	startedAt time.Time
	// finalErr is the terminal failure reason, nil unless permanently failed.
	finalErr error
}

// newTask creates a pending task for the given track.
func newTask(id string, track *metadata.WantedTrack) *Task {
	return &Task{
		ID:           id,
		Track:        track,
		state:        TaskStatePending,
		attemptedSet: make(map[string]struct{}),
	}
}

// State returns the task's current state.
func (t *Task) State() TaskState {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.state
}

// setState moves the task to the given state.
func (t *Task) setState(state TaskState) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.state = state
}

// markStarted records the moment the task was admitted into a slot.
func (t *Task) markStarted() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.startedAt = time.Now()
}

// Elapsed returns how long the task has been running since admission.
func (t *Task) Elapsed() time.Duration {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.startedAt.IsZero() {
		return 0
	}

	return time.Since(t.startedAt)
}

// Attempts returns the number of candidates tried so far.
func (t *Task) Attempts() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.attempts
}

// setQueries records the search strings sent for this task.
func (t *Task) setQueries(queries []string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.queries = queries
}

// Queries returns a copy of the search strings sent for this task.
func (t *Task) Queries() []string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return append([]string(nil), t.queries...)
}

// markAttempted records the locator as tried and reports whether it was new.
// A locator that already failed for this task is never tried again.
func (t *Task) markAttempted(locator string) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, known := t.attemptedSet[locator]; known {
		return false
	}

	t.attemptedSet[locator] = struct{}{}
	t.attemptedLocators = append(t.attemptedLocators, locator)

	return true
}

// AttemptedLocators returns a copy of the locators tried so far, in order.
func (t *Task) AttemptedLocators() []string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return append([]string(nil), t.attemptedLocators...)
}

// selectCandidate binds the task to its next candidate and resets the
// per-attempt transfer bookkeeping.
func (t *Task) selectCandidate(candidate *source.Candidate) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.state = TaskStateCandidateSelected
	t.attempts++
	t.candidate = candidate
	t.transferID = ""
	t.transferredBytes = 0
	t.totalBytes = candidate.SizeBytes
	t.missCount = 0
	t.lastRemoteState = ""
}

// Candidate returns the candidate currently bound to the task, nil before
// the first selection.
func (t *Task) Candidate() *source.Candidate {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.candidate
}

// beginTransfer records the started transfer and arms the stall clock.
func (t *Task) beginTransfer(transferID string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.state = TaskStateTransferring
	t.transferID = transferID
	t.lastProgress = time.Now()
}

// TransferID returns the identifier of the running transfer, empty when none.
func (t *Task) TransferID() string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.transferID
}

// noteMiss counts one status poll that could not find the transfer and
// returns the consecutive miss count.
func (t *Task) noteMiss() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.missCount++

	return t.missCount
}

// applyStatus folds one status report into the task. Byte counts only move
// forward and the stall clock only rearms when they do, so a repeated or
// stale report changes nothing.
func (t *Task) applyStatus(status *source.TransferStatus) statusOutcome {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.missCount = 0
	t.lastRemoteState = status.RemoteState

	if status.TotalBytes > t.totalBytes {
		t.totalBytes = status.TotalBytes
	}

	progressed := status.TransferredBytes > t.transferredBytes
	if progressed {
		t.transferredBytes = status.TransferredBytes
		t.lastProgress = time.Now()
	}

	if status.State == source.TransferStateCompleted && status.LocalPath != "" {
		t.localPath = status.LocalPath
	}

	return statusOutcome{
		progressed:  progressed,
		state:       status.State,
		transferred: t.transferredBytes,
		total:       t.totalBytes,
	}
}

// stalledSince reports whether the transfer has gone without progress for
// longer than the given timeout. A transfer still waiting in the remote
// queue counts as stalled too, its byte count never moves.
func (t *Task) stalledSince(timeout time.Duration) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.lastProgress.IsZero() {
		return false
	}

	return time.Since(t.lastProgress) > timeout
}

// LastRemoteState returns the raw source state string from the latest poll.
func (t *Task) LastRemoteState() string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.lastRemoteState
}

// Progress returns the latest transferred and total byte counts.
func (t *Task) Progress() (transferred, total int64) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.transferredBytes, t.totalBytes
}

// LocalPath returns where the finished file currently lives, empty until
// the transfer completes.
func (t *Task) LocalPath() string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.localPath
}

// setLocalPath updates the file location after post-processing moves it.
func (t *Task) setLocalPath(path string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.localPath = path
}

// complete moves the task to its successful terminal state.
func (t *Task) complete() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.state = TaskStateCompleted
}

// fail moves the task to its failed terminal state with the given reason.
func (t *Task) fail(reason error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.state = TaskStatePermanentlyFailed
	t.finalErr = reason
}

// Err returns the terminal failure reason, nil unless permanently failed.
func (t *Task) Err() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.finalErr
}

// Counters is an aggregate snapshot of a session.
// Queued + Active + Completed + Failed always equals Total.
type Counters struct {
	// Total is the number of tasks in the session.
	Total int64
	// Queued is the number of tasks not yet admitted into a slot.
	Queued int64
	// Active is the number of tasks currently holding a slot.
	Active int64
	// Completed is the number of tasks that finished successfully.
	Completed int64
	// Failed is the number of tasks that failed permanently.
	Failed int64
}

// Callbacks notifies the caller about task lifecycle events.
// Any field may be nil.
type Callbacks struct {
	// OnProgress fires after a status poll that saw the byte count move.
	OnProgress func(task *Task, transferredBytes, totalBytes int64)
	// OnCompleted fires once per task when its transfer finishes, with the
	// final size and the time elapsed since admission.
	OnCompleted func(task *Task, sizeBytes int64, elapsed time.Duration)
	// OnFailed fires once per task when it fails permanently, with the
	// locators already attempted and the final rejection reason.
	OnFailed func(task *Task, attemptedLocators []string, reason error)
}

// AcquisitionError captures context about a permanently failed task.
type AcquisitionError struct {
	// TrackTitle is the title of the wanted track.
	TrackTitle string
	// TrackArtist is the primary artist of the wanted track.
	TrackArtist string
	// Phase indicates when the failure happened (e.g. "searching", "transferring").
	Phase string
	// ErrorMessage is the failure rendered as text.
	ErrorMessage string
	// AttemptedQueries lists the search strings tried before giving up.
	AttemptedQueries []string
	// AttemptedLocators lists the candidate locators tried before giving up.
	AttemptedLocators []string
	// LastRemoteState is the raw source state string from the last poll.
	LastRemoteState string
}

// SessionStatistics tracks metrics for one acquisition session.
type SessionStatistics struct {
	// IsDryRun indicates if this was a dry-run preview.
	IsDryRun bool
	// StartTime marks when the session began.
	StartTime time.Time
	// EndTime marks when the last task settled.
	EndTime time.Time
	// TracksCompleted counts successfully acquired tracks.
	TracksCompleted int64
	// TracksFailed counts permanently failed tracks.
	TracksFailed int64
	// TotalBytesDownloaded counts bytes received across completed transfers.
	TotalBytesDownloaded int64
	// LyricsEmbedded counts tracks that had lyrics written into them.
	LyricsEmbedded int64
	// CoversEmbedded counts tracks that had cover art written into them.
	CoversEmbedded int64
	// Errors collects every permanent failure with its context.
	Errors []AcquisitionError
}
