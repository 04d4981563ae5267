package download

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/okorolenko/trackseek/internal/logger"
)

// summarySeparator frames the acquisition summary in the log output.
const summarySeparator = "═══════════════════════════════════════════════════════════════"

// minMeaningfulDuration is the shortest session worth a duration line.
const minMeaningfulDuration = 100 * time.Millisecond

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}

	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	return fmt.Sprintf("%ds", seconds)
}

// formatBytes renders a byte count in humanized form.
func formatBytes(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}

	return humanize.Bytes(uint64(bytes)) //nolint:gosec // Negative values are guarded above.
}

// noteLyricsEmbedded atomically increments the embedded lyrics counter.
func (s *Session) noteLyricsEmbedded() {
	atomic.AddInt64(&s.stats.LyricsEmbedded, 1)
}

// noteCoverEmbedded atomically increments the embedded covers counter.
func (s *Session) noteCoverEmbedded() {
	atomic.AddInt64(&s.stats.CoversEmbedded, 1)
}

// PrintSummary prints a formatted summary of a settled session.
func (c *CoordinatorImpl) PrintSummary(ctx context.Context, session *Session) {
	stats := session.Statistics()
	counters := session.Counters()

	// If nothing was submitted, don't print summary.
	if counters.Total == 0 {
		return
	}

	// Check if the context was canceled (CTRL+C or timeout).
	wasInterrupted := ctx.Err() != nil

	c.printSummaryHeader(ctx, wasInterrupted, stats.IsDryRun)
	c.printTrackStatistics(ctx, stats, counters)
	c.printDataTransferStatistics(ctx, stats)
	c.printExtrasStatistics(ctx, stats)
	c.printSummaryFooter(ctx)
	c.printErrorDetails(ctx, stats)
	c.printFinalMessage(ctx, wasInterrupted, stats, counters)
}

// printSummaryHeader prints the summary header.
func (c *CoordinatorImpl) printSummaryHeader(ctx context.Context, wasInterrupted, isDryRun bool) {
	logger.Info(ctx, "")
	logger.Info(ctx, summarySeparator)

	switch {
	case isDryRun:
		logger.Info(ctx, "                  DRY-RUN PREVIEW")
	case wasInterrupted:
		logger.Info(ctx, "          ACQUISITION SUMMARY (Interrupted)")
	default:
		logger.Info(ctx, "                 ACQUISITION SUMMARY")
	}

	logger.Info(ctx, summarySeparator)
}

// printTrackStatistics prints per-track outcome counts.
func (c *CoordinatorImpl) printTrackStatistics(ctx context.Context, stats *SessionStatistics, counters Counters) {
	logger.Infof(ctx, "Tracks:           %d total", counters.Total)

	if stats.IsDryRun {
		if counters.Completed > 0 {
			logger.Infof(ctx, "  Would Download: %d", counters.Completed)
		}

		if counters.Failed > 0 {
			logger.Infof(ctx, "  Unavailable:    %d", counters.Failed)
		}

		return
	}

	if counters.Completed > 0 {
		logger.Infof(ctx, "  Completed:      %d", counters.Completed)
	}

	if counters.Failed > 0 {
		logger.Infof(ctx, "  Failed:         %d", counters.Failed)
	}

	if counters.Queued > 0 {
		logger.Infof(ctx, "  Not Started:    %d", counters.Queued)
	}

	// Success rate over the tracks that actually ran.
	processed := counters.Total - counters.Queued
	if processed > 0 {
		successRate := float64(counters.Completed) / float64(processed) * 100
		logger.Infof(ctx, "  Success Rate:   %.1f%%", successRate)
	}
}

// printDataTransferStatistics prints data transfer statistics.
func (c *CoordinatorImpl) printDataTransferStatistics(ctx context.Context, stats *SessionStatistics) {
	if stats.TotalBytesDownloaded > 0 {
		logger.Info(ctx, "")

		if stats.IsDryRun {
			logger.Infof(ctx, "Estimated Size:   %s", formatBytes(stats.TotalBytesDownloaded))
		} else {
			logger.Infof(ctx, "Data Downloaded:  %s", formatBytes(stats.TotalBytesDownloaded))
		}
	}

	// Print duration if we have both start and end times (skip for dry-run).
	if !stats.IsDryRun && !stats.StartTime.IsZero() && !stats.EndTime.IsZero() {
		duration := stats.EndTime.Sub(stats.StartTime)

		// Only show if duration is meaningful.
		if duration > minMeaningfulDuration {
			logger.Infof(ctx, "Duration:         %s", formatDuration(duration))

			// Calculate and show average speed if we downloaded anything.
			if stats.TotalBytesDownloaded > 0 {
				bytesPerSecond := float64(stats.TotalBytesDownloaded) / duration.Seconds()
				logger.Infof(ctx, "Average Speed:    %s/s", formatBytes(int64(bytesPerSecond)))
			}
		}
	}
}

// printExtrasStatistics prints embedded lyrics and cover art counts.
func (c *CoordinatorImpl) printExtrasStatistics(ctx context.Context, stats *SessionStatistics) {
	if stats.LyricsEmbedded == 0 && stats.CoversEmbedded == 0 {
		return
	}

	logger.Info(ctx, "")

	if stats.LyricsEmbedded > 0 {
		logger.Infof(ctx, "Lyrics Embedded:  %d", stats.LyricsEmbedded)
	}

	if stats.CoversEmbedded > 0 {
		logger.Infof(ctx, "Covers Embedded:  %d", stats.CoversEmbedded)
	}
}

// printSummaryFooter prints the summary footer separator.
func (c *CoordinatorImpl) printSummaryFooter(ctx context.Context) {
	logger.Info(ctx, summarySeparator)
}

// printErrorDetails prints detailed failure information if any task failed.
func (c *CoordinatorImpl) printErrorDetails(ctx context.Context, stats *SessionStatistics) {
	if len(stats.Errors) == 0 {
		return
	}

	logger.Info(ctx, "")
	logger.Errorf(ctx, "ERRORS ENCOUNTERED: %d", len(stats.Errors))

	for i := range stats.Errors {
		failure := &stats.Errors[i]

		logger.Info(ctx, "")
		logger.Errorf(ctx, "  [%d] %s - %s", i+1, failure.TrackArtist, failure.TrackTitle)
		logger.Errorf(ctx, "      Phase: %s", failure.Phase)
		logger.Errorf(ctx, "      Error: %s", failure.ErrorMessage)

		if len(failure.AttemptedQueries) > 0 {
			logger.Errorf(ctx, "      Queries: %s", strings.Join(failure.AttemptedQueries, " | "))
		}

		for _, locator := range failure.AttemptedLocators {
			logger.Errorf(ctx, "      Tried: %q", locator)
		}

		if failure.LastRemoteState != "" {
			logger.Errorf(ctx, "      Last Remote State: %s", failure.LastRemoteState)
		}
	}

	logger.Info(ctx, "")
	logger.Info(ctx, summarySeparator)
}

// printFinalMessage prints a helpful message based on acquisition results.
func (c *CoordinatorImpl) printFinalMessage(
	ctx context.Context,
	wasInterrupted bool,
	stats *SessionStatistics,
	counters Counters,
) {
	if stats.IsDryRun {
		if counters.Completed > 0 {
			logger.Info(ctx, "")
			logger.Info(ctx, "To proceed with the actual download, remove the --dry-run flag.")
		}

		return
	}

	switch {
	case wasInterrupted:
		logger.Info(ctx, "")
		logger.Warn(ctx, "Acquisition interrupted by user (CTRL+C).")

		if counters.Completed > 0 {
			logger.Infof(ctx, "Successfully acquired %d track(s) before interruption.", counters.Completed)
		}
	case len(stats.Errors) > 0:
		logger.Info(ctx, "")
		logger.Warnf(ctx, "%d track(s) could not be acquired. See detailed error log above.", len(stats.Errors))
	case counters.Completed > 0:
		logger.Info(ctx, "")
		logger.Info(ctx, "All tracks acquired successfully!")
	}
}
