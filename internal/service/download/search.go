package download

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/okorolenko/trackseek/internal/logger"
	"github.com/okorolenko/trackseek/internal/match"
	"github.com/okorolenko/trackseek/internal/metadata"
	"github.com/okorolenko/trackseek/internal/source"
)

// rankedCandidate pairs a verified candidate with its source quality so
// ties on confidence can fall back to the healthier peer.
type rankedCandidate struct {
	// candidate is the verified candidate with its confidence attached.
	candidate source.Candidate
	// quality is the source quality score used as the ranking tie-breaker.
	quality float64
}

// searchCandidates sends the track's query variants in order and returns
// the verified candidates of the first variant that produced any, ranked
// best first, along with the queries actually sent.
func (c *CoordinatorImpl) searchCandidates(
	ctx context.Context,
	track *metadata.WantedTrack,
) ([]source.Candidate, []string, error) {
	queries := match.GenerateQueries(track.Title, track.Artist)

	var attempted []string

	for _, query := range queries {
		if ctx.Err() != nil {
			return nil, attempted, ctx.Err()
		}

		attempted = append(attempted, query)

		logger.Debugf(ctx, "Searching sources for '%s'", query)

		candidates, err := c.router.Search(ctx, query, c.cfg.ParsedSlskdSearchTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, source.ErrNotConfigured) {
				return nil, attempted, err
			}

			logger.Warnf(ctx, "Search '%s' failed: %v", query, err)

			continue
		}

		verified := c.verifyCandidates(ctx, track, candidates)
		if len(verified) > 0 {
			logger.Debugf(ctx, "Query '%s' produced %d verified candidate(s) out of %d",
				query, len(verified), len(candidates))

			return verified, attempted, nil
		}

		logger.Debugf(ctx, "Query '%s' produced no verified candidates out of %d", query, len(candidates))
	}

	return nil, attempted, nil
}

// verifyCandidates scores raw search results against the wanted track and
// keeps the ones passing both verification stages, ranked by confidence
// with source quality breaking ties.
func (c *CoordinatorImpl) verifyCandidates(
	ctx context.Context,
	track *metadata.WantedTrack,
	candidates []source.Candidate,
) []source.Candidate {
	wanted := match.TrackFields{
		Title:      track.Title,
		Artist:     track.Artist,
		Album:      track.Album,
		DurationMS: track.DurationMS,
	}

	averageThroughput := averageThroughput(candidates)
	wantedArtistKey := match.Alphanumeric(track.Artist)

	var survivors []rankedCandidate

	for i := range candidates {
		candidate := candidates[i]

		fields := match.TrackFields{
			Title:      candidate.Title,
			Artist:     candidate.Artist,
			Album:      candidate.Album,
			DurationMS: candidate.DurationMS,
		}

		quality := match.SourceQuality(match.QualitySignals{
			Lossless:          candidate.IsLossless(),
			BitrateKbps:       candidate.BitrateKbps,
			FreeSlots:         candidate.FreeSlots,
			QueueDepth:        candidate.QueueDepth,
			Throughput:        candidate.Throughput,
			AverageThroughput: averageThroughput,
		})

		confidence := match.WeightedConfidence(match.ComputeScores(wanted, fields), quality, candidate.OfficialChannel)
		if confidence < c.cfg.AcceptanceFloor {
			continue
		}

		// Peer file paths are free text. A path that does not even contain
		// the wanted artist is a share-wide false positive, whatever its score.
		if candidate.Origin == source.OriginSlskd && wantedArtistKey != "" &&
			!strings.Contains(match.Alphanumeric(candidate.Locator), wantedArtistKey) {
			logger.Debugf(ctx, "Discarding candidate '%s': artist not present in path", candidate.Title)

			continue
		}

		candidate.Confidence = confidence

		survivors = append(survivors, rankedCandidate{candidate: candidate, quality: quality})
	}

	slices.SortStableFunc(survivors, func(a, b rankedCandidate) int {
		if result := cmp.Compare(b.candidate.Confidence, a.candidate.Confidence); result != 0 {
			return result
		}

		return cmp.Compare(b.quality, a.quality)
	})

	ranked := make([]source.Candidate, 0, len(survivors))
	for i := range survivors {
		ranked = append(ranked, survivors[i].candidate)
	}

	return ranked
}

// averageThroughput returns the mean reported transfer speed across the
// result set, counting only peers that reported one.
func averageThroughput(candidates []source.Candidate) int64 {
	var (
		sum   int64
		count int64
	)

	for i := range candidates {
		if candidates[i].Throughput > 0 {
			sum += candidates[i].Throughput
			count++
		}
	}

	if count == 0 {
		return 0
	}

	return sum / count
}
