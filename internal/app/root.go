package app

import (
	"context"

	"github.com/okorolenko/trackseek/internal/config"
	"github.com/okorolenko/trackseek/internal/ffmpeg"
	"github.com/okorolenko/trackseek/internal/library"
	"github.com/okorolenko/trackseek/internal/logger"
	"github.com/okorolenko/trackseek/internal/lyrics"
	"github.com/okorolenko/trackseek/internal/match"
	"github.com/okorolenko/trackseek/internal/metadata"
	"github.com/okorolenko/trackseek/internal/metadata/deezer"
	"github.com/okorolenko/trackseek/internal/metadata/spotify"
	"github.com/okorolenko/trackseek/internal/service/download"
	"github.com/okorolenko/trackseek/internal/source"
	"github.com/okorolenko/trackseek/internal/source/slskd"
	"github.com/okorolenko/trackseek/internal/source/youtube"
	"github.com/okorolenko/trackseek/internal/tags"
)

// ExecuteRootCommand is the entry point for the application.
// It resolves the given references into wanted tracks, drops tracks the
// library already owns, and drives the rest through the acquisition pipeline.
func ExecuteRootCommand(ctx context.Context, cfg *config.Config, refs []string) {
	references, err := metadata.ParseReferences(ctx, refs)
	if err != nil {
		logger.Fatalf(ctx, "Failed to parse references: %v", err)
	}

	tracks := resolveTracks(ctx, cfg, references)
	if len(tracks) == 0 {
		logger.Info(ctx, "Nothing to acquire")

		return
	}

	wanted := filterOwnedTracks(ctx, cfg, tracks)
	if len(wanted) == 0 {
		logger.Info(ctx, "Library already owns every requested track")

		return
	}

	coordinator := newCoordinator(ctx, cfg)

	session, err := coordinator.Start(ctx, wanted)
	if err != nil {
		logger.Fatalf(ctx, "Failed to start acquisition: %v", err)
	}

	// Ensure the summary is ALWAYS printed, even on panic.
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "Panic recovered: %v", r)
		}

		coordinator.PrintSummary(ctx, session)
	}()

	session.Wait()
}

// resolveTracks expands references into concrete wanted tracks via the
// configured metadata providers.
func resolveTracks(ctx context.Context, cfg *config.Config, references []*metadata.Reference) []*metadata.WantedTrack {
	spotifyProvider, err := spotify.NewProvider(cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize Spotify metadata provider: %v", err)
	}

	resolver := metadata.NewResolver(spotifyProvider, deezer.NewProvider(cfg))

	tracks, err := resolver.ResolveTracks(ctx, references)
	if err != nil {
		logger.Fatalf(ctx, "Failed to resolve tracks: %v", err)
	}

	return tracks
}

// filterOwnedTracks drops tracks the library index already owns.
// Index failures keep the track in the batch: a broken index must not
// silently suppress downloads.
func filterOwnedTracks(ctx context.Context, cfg *config.Config, tracks []*metadata.WantedTrack) []*metadata.WantedTrack {
	index, err := library.NewIndex(cfg)
	if err != nil {
		logger.Warnf(ctx, "Library index unavailable, acquiring all tracks: %v", err)

		return tracks
	}

	defer func() {
		if closeErr := index.Close(); closeErr != nil {
			logger.Warnf(ctx, "Failed to close library index: %v", closeErr)
		}
	}()

	wanted := make([]*metadata.WantedTrack, 0, len(tracks))

	for _, track := range tracks {
		ownership, checkErr := index.CheckOwnership(ctx, match.TrackFields{
			Title:      track.Title,
			Artist:     track.Artist,
			Album:      track.Album,
			DurationMS: track.DurationMS,
		}, track.TotalTracks)
		if checkErr != nil {
			logger.Warnf(ctx, "Ownership check failed for %s - %s: %v", track.Artist, track.Title, checkErr)

			wanted = append(wanted, track)

			continue
		}

		if ownership.Owned {
			logger.Infof(ctx, "Skipping %s - %s: already in library (%s match, confidence %.2f)",
				track.Artist, track.Title, ownership.Tier, ownership.Confidence)

			continue
		}

		wanted = append(wanted, track)
	}

	if skipped := len(tracks) - len(wanted); skipped > 0 {
		logger.Infof(ctx, "Skipped %d track(s) already present in the library", skipped)
	}

	return wanted
}

// newCoordinator assembles the source router and the post-processing chain.
func newCoordinator(ctx context.Context, cfg *config.Config) download.Coordinator {
	slskdClient, err := slskd.NewClient(cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize slskd client: %v", err)
	}

	adapters := []source.Adapter{
		slskd.NewAdapter(cfg, slskdClient),
		youtube.NewAdapter(cfg, youtube.NewClient(cfg)),
	}

	mode, ok := source.ParseRoutingMode(cfg.SourceMode)
	if !ok {
		logger.Fatalf(ctx, "Unknown source mode: %q", cfg.SourceMode)
	}

	primary, ok := source.ParseOrigin(cfg.PrimarySource)
	if !ok {
		logger.Fatalf(ctx, "Unknown primary source: %q", cfg.PrimarySource)
	}

	router := source.NewRouter(mode, primary, adapters...)

	// Fail fast when the backends the routing mode needs are down.
	if err = router.CheckReachable(ctx); err != nil {
		logger.Fatalf(ctx, "Source backend unreachable: %v", err)
	}

	return download.NewCoordinator(
		ctx,
		cfg,
		router,
		ffmpeg.NewConverter(cfg),
		tags.NewProcessor(),
		lyrics.NewFetcher(),
		nil,
	)
}
