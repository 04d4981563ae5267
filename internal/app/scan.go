package app

import (
	"context"

	"github.com/okorolenko/trackseek/internal/config"
	"github.com/okorolenko/trackseek/internal/library"
	"github.com/okorolenko/trackseek/internal/logger"
)

// ExecuteScanCommand re-indexes the configured music directories into the
// library database and reports what changed.
func ExecuteScanCommand(ctx context.Context, cfg *config.Config) {
	if len(cfg.MusicDirs) == 0 {
		logger.Fatal(ctx, "No music directories configured, set music_dirs in the config file")
	}

	index, err := library.NewIndex(cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to open library index: %v", err)
	}

	defer func() {
		if closeErr := index.Close(); closeErr != nil {
			logger.Warnf(ctx, "Failed to close library index: %v", closeErr)
		}
	}()

	logger.Infof(ctx, "Scanning music directories: %v", cfg.MusicDirs)

	stats, err := index.Scan(ctx)
	if err != nil {
		logger.Fatalf(ctx, "Library scan failed: %v", err)
	}

	logger.Info(ctx, "Library scan complete")
	logger.Infof(ctx, "Discovered: %d, added: %d, updated: %d, unchanged: %d, removed: %d, failed: %d",
		stats.Discovered, stats.Added, stats.Updated, stats.Unchanged, stats.Removed, stats.Failed)

	total, err := index.TrackCount(ctx)
	if err != nil {
		logger.Warnf(ctx, "Failed to count indexed tracks: %v", err)

		return
	}

	logger.Infof(ctx, "Library now holds %d track(s)", total)
}
