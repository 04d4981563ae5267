package download

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okorolenko/trackseek/internal/source"
)

func TestTaskState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state    TaskState
		expected string
	}{
		{TaskStatePending, "pending"},
		{TaskStateSearching, "searching"},
		{TaskStateCandidateSelected, "candidate_selected"},
		{TaskStateTransferring, "transferring"},
		{TaskStateCompleted, "completed"},
		{TaskStateStalled, "stalled"},
		{TaskStateSourceFailed, "source_failed"},
		{TaskStatePermanentlyFailed, "permanently_failed"},
		{TaskState(250), "unknown"},
	}

	for _, testCase := range tests {
		assert.Equal(t, testCase.expected, testCase.state.String())
	}
}

func TestTaskState_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, TaskStateCompleted.IsTerminal())
	assert.True(t, TaskStatePermanentlyFailed.IsTerminal())

	// Every other state can still move.
	assert.False(t, TaskStatePending.IsTerminal())
	assert.False(t, TaskStateSearching.IsTerminal())
	assert.False(t, TaskStateCandidateSelected.IsTerminal())
	assert.False(t, TaskStateTransferring.IsTerminal())
	assert.False(t, TaskStateStalled.IsTerminal())
	assert.False(t, TaskStateSourceFailed.IsTerminal())
}

func TestTask_MarkAttempted(t *testing.T) {
	t.Parallel()

	task := newTask("task-1", wantedTrack("Nemo", "Nightwish"))

	assert.True(t, task.markAttempted("peer\\share\\nemo.flac"))
	assert.False(t, task.markAttempted("peer\\share\\nemo.flac"))
	assert.True(t, task.markAttempted("other\\share\\nemo.mp3"))

	assert.Equal(t, []string{"peer\\share\\nemo.flac", "other\\share\\nemo.mp3"}, task.AttemptedLocators())
}

func TestTask_SelectCandidateResetsBookkeeping(t *testing.T) {
	t.Parallel()

	task := newTask("task-1", wantedTrack("Nemo", "Nightwish"))

	first := slskdCandidate(task.Track, "first-peer")
	task.selectCandidate(&first)
	task.beginTransfer("transfer-1")
	task.applyStatus(&source.TransferStatus{
		State:            source.TransferStateDownloading,
		RemoteState:      "InProgress",
		TransferredBytes: 2048,
	})

	second := slskdCandidate(task.Track, "second-peer")
	second.SizeBytes = 1000
	task.selectCandidate(&second)

	assert.Equal(t, TaskStateCandidateSelected, task.State())
	assert.Equal(t, 2, task.Attempts())
	assert.Empty(t, task.TransferID())
	assert.Same(t, &second, task.Candidate())

	transferred, total := task.Progress()
	assert.Zero(t, transferred)
	assert.Equal(t, int64(1000), total)
}

func TestTask_ApplyStatus(t *testing.T) {
	t.Parallel()

	task := newTask("task-1", wantedTrack("Nemo", "Nightwish"))

	candidate := slskdCandidate(task.Track, "peer")
	task.selectCandidate(&candidate)
	task.beginTransfer("transfer-1")

	outcome := task.applyStatus(&source.TransferStatus{
		State:            source.TransferStateDownloading,
		RemoteState:      "InProgress",
		TransferredBytes: 4096,
		TotalBytes:       8192,
	})

	assert.True(t, outcome.progressed)
	assert.Equal(t, int64(4096), outcome.transferred)
	// The candidate's declared size is larger and wins.
	assert.Equal(t, candidate.SizeBytes, outcome.total)
	assert.Equal(t, "InProgress", task.LastRemoteState())

	// A stale report with fewer bytes does not move anything backwards.
	outcome = task.applyStatus(&source.TransferStatus{
		State:            source.TransferStateDownloading,
		RemoteState:      "InProgress",
		TransferredBytes: 1024,
	})

	assert.False(t, outcome.progressed)
	assert.Equal(t, int64(4096), outcome.transferred)

	// The local path only lands with a completed report.
	task.applyStatus(&source.TransferStatus{
		State:            source.TransferStateDownloading,
		RemoteState:      "InProgress",
		TransferredBytes: 5000,
		LocalPath:        "/downloads/incomplete/nemo.flac",
	})
	assert.Empty(t, task.LocalPath())

	task.applyStatus(&source.TransferStatus{
		State:            source.TransferStateCompleted,
		RemoteState:      "Completed, Succeeded",
		TransferredBytes: candidate.SizeBytes,
		LocalPath:        "/downloads/complete/nemo.flac",
	})
	assert.Equal(t, "/downloads/complete/nemo.flac", task.LocalPath())
}

func TestTask_ApplyStatusResetsMissCount(t *testing.T) {
	t.Parallel()

	task := newTask("task-1", wantedTrack("Nemo", "Nightwish"))

	assert.Equal(t, 1, task.noteMiss())
	assert.Equal(t, 2, task.noteMiss())

	task.applyStatus(&source.TransferStatus{
		State:       source.TransferStateQueued,
		RemoteState: "Queued, Remotely",
	})

	// A successful poll rearms the grace window.
	assert.Equal(t, 1, task.noteMiss())
}

func TestTask_StalledSince(t *testing.T) {
	t.Parallel()

	task := newTask("task-1", wantedTrack("Nemo", "Nightwish"))

	// No transfer yet, nothing to stall.
	assert.False(t, task.stalledSince(time.Millisecond))

	task.beginTransfer("transfer-1")
	assert.False(t, task.stalledSince(time.Minute))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, task.stalledSince(20*time.Millisecond))

	// Fresh bytes rearm the stall clock.
	task.applyStatus(&source.TransferStatus{
		State:            source.TransferStateDownloading,
		RemoteState:      "InProgress",
		TransferredBytes: 1024,
	})
	assert.False(t, task.stalledSince(time.Minute))
}

func TestTask_Elapsed(t *testing.T) {
	t.Parallel()

	task := newTask("task-1", wantedTrack("Nemo", "Nightwish"))
	assert.Zero(t, task.Elapsed())

	task.markStarted()
	time.Sleep(5 * time.Millisecond)
	assert.Positive(t, task.Elapsed())
}

func TestTask_QueriesAreCopied(t *testing.T) {
	t.Parallel()

	task := newTask("task-1", wantedTrack("Nemo", "Nightwish"))
	task.setQueries([]string{"Nightwish Nemo", "Nemo"})

	queries := task.Queries()
	queries[0] = "mutated"

	assert.Equal(t, []string{"Nightwish Nemo", "Nemo"}, task.Queries())
}

func TestTask_FailRecordsReason(t *testing.T) {
	t.Parallel()

	task := newTask("task-1", wantedTrack("Nemo", "Nightwish"))

	require.NoError(t, task.Err())

	task.fail(ErrNoCandidates)

	assert.Equal(t, TaskStatePermanentlyFailed, task.State())
	require.ErrorIs(t, task.Err(), ErrNoCandidates)
}
