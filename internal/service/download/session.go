package download

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okorolenko/trackseek/internal/metadata"
)

// Session is one batch of tracks being acquired. It settles once every
// admitted task reaches a terminal state or the session is cancelled.
type Session struct {
	// ID identifies the session in logs.
	ID string

	// tasks holds every task of the batch, in submission order.
	tasks []*Task
	// cancel stops admission of queued tasks and interrupts running ones.
	cancel context.CancelFunc
	// waitGroup tracks the task goroutines still running.
	waitGroup sync.WaitGroup

	// statsMutex guards counters and stats.
	statsMutex sync.Mutex
	// counters is the live aggregate view of the session.
	counters Counters
	// stats accumulates the session statistics.
	stats *SessionStatistics
}

// newSession builds a session with one pending task per track.
func newSession(tracks []*metadata.WantedTrack, cancel context.CancelFunc, isDryRun bool) *Session {
	tasks := make([]*Task, 0, len(tracks))
	for _, track := range tracks {
		tasks = append(tasks, newTask(uuid.New().String(), track))
	}

	return &Session{
		ID:     uuid.New().String(),
		tasks:  tasks,
		cancel: cancel,
		counters: Counters{
			Total:  int64(len(tasks)),
			Queued: int64(len(tasks)),
		},
		stats: &SessionStatistics{IsDryRun: isDryRun, StartTime: time.Now()},
	}
}

// Tasks returns the session's tasks in submission order.
func (s *Session) Tasks() []*Task {
	return s.tasks
}

// Cancel stops admitting queued tasks and interrupts running ones. Their
// transfers are cancelled at the source; tasks already completed are left
// untouched. Cancel returns immediately, use Wait to observe settlement.
func (s *Session) Cancel() {
	s.cancel()
}

// Wait blocks until every task goroutine has settled.
func (s *Session) Wait() {
	s.waitGroup.Wait()

	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	if s.stats.EndTime.IsZero() {
		s.stats.EndTime = time.Now()
	}
}

// Counters returns a snapshot of the aggregate counters.
func (s *Session) Counters() Counters {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	return s.counters
}

// Statistics returns a snapshot of the session statistics.
func (s *Session) Statistics() *SessionStatistics {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	snapshot := *s.stats
	snapshot.Errors = append([]AcquisitionError(nil), s.stats.Errors...)

	return &snapshot
}

// noteAdmitted moves one task from queued to active.
func (s *Session) noteAdmitted() {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.counters.Queued--
	s.counters.Active++
}

// noteCompleted settles one active task as completed and adds its bytes.
func (s *Session) noteCompleted(bytes int64) {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.counters.Active--
	s.counters.Completed++
	s.stats.TracksCompleted++
	s.stats.TotalBytesDownloaded += bytes
}

// noteFailed settles one active task as permanently failed.
func (s *Session) noteFailed() {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.counters.Active--
	s.counters.Failed++
	s.stats.TracksFailed++
}

// recordFailure appends a permanent failure to the session statistics.
// Context cancellation is not recorded, it is expected during shutdown.
func (s *Session) recordFailure(task *Task, phase string, reason error) {
	if errors.Is(reason, context.Canceled) {
		return
	}

	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.Errors = append(s.stats.Errors, AcquisitionError{
		TrackTitle:        task.Track.Title,
		TrackArtist:       task.Track.Artist,
		Phase:             phase,
		ErrorMessage:      reason.Error(),
		AttemptedQueries:  task.Queries(),
		AttemptedLocators: task.AttemptedLocators(),
		LastRemoteState:   task.LastRemoteState(),
	})
}
