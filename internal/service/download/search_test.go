package download

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okorolenko/trackseek/internal/source"
)

func TestCoordinatorImpl_VerifyCandidates_FloorFilter(t *testing.T) {
	t.Parallel()

	fixture := newTestCoordinator(t, nil)
	track := wantedTrack("Nemo", "Nightwish")

	good := slskdCandidate(track, "collector")
	garbage := source.Candidate{
		Origin:     source.OriginSlskd,
		Locator:    "collector\nMusic\\Nightwish\\readme.txt\n100",
		Title:      "Linux Installation Guide",
		Artist:     "Anonymous",
		Container:  "mp3",
		DurationMS: 30000,
	}

	verified := fixture.coordinator.verifyCandidates(
		context.Background(), track, []source.Candidate{garbage, good})

	require.Len(t, verified, 1)
	assert.Equal(t, good.Locator, verified[0].Locator)
	assert.GreaterOrEqual(t, verified[0].Confidence, fixture.cfg.AcceptanceFloor)
}

func TestCoordinatorImpl_VerifyCandidates_ArtistMustAppearInPeerPath(t *testing.T) {
	t.Parallel()

	fixture := newTestCoordinator(t, nil)
	track := wantedTrack("Nemo", "Nightwish")

	// Perfect metadata, but the share path names a different collection.
	misfiled := slskdCandidate(track, "collector")
	misfiled.Locator = "collector\nMusic\\Compilations\\Greatest Hits.flac\n31457280"

	// The same check does not apply to stream candidates, their locators
	// are opaque video IDs.
	stream := source.Candidate{
		Origin:     source.OriginYouTube,
		Locator:    "dQw4w9WgXcQ",
		Title:      track.Title,
		Artist:     track.Artist,
		Container:  "m4a",
		DurationMS: track.DurationMS,
	}

	verified := fixture.coordinator.verifyCandidates(
		context.Background(), track, []source.Candidate{misfiled, stream})

	require.Len(t, verified, 1)
	assert.Equal(t, source.OriginYouTube, verified[0].Origin)
}

func TestCoordinatorImpl_VerifyCandidates_RanksByConfidence(t *testing.T) {
	t.Parallel()

	fixture := newTestCoordinator(t, nil)
	track := wantedTrack("Nemo", "Nightwish")

	lossless := slskdCandidate(track, "flac-collector")

	lowBitrate := slskdCandidate(track, "mp3-collector")
	lowBitrate.Container = "mp3"
	lowBitrate.BitrateKbps = 128

	// The weaker candidate goes in first to prove ranking reorders.
	verified := fixture.coordinator.verifyCandidates(
		context.Background(), track, []source.Candidate{lowBitrate, lossless})

	require.Len(t, verified, 2)
	assert.Equal(t, lossless.Locator, verified[0].Locator)
	assert.Equal(t, lowBitrate.Locator, verified[1].Locator)
	assert.Greater(t, verified[0].Confidence, verified[1].Confidence)
}

func TestCoordinatorImpl_VerifyCandidates_ThroughputSeparatesEqualPeers(t *testing.T) {
	t.Parallel()

	fixture := newTestCoordinator(t, nil)
	track := wantedTrack("Nemo", "Nightwish")

	fast := slskdCandidate(track, "fast-peer")
	fast.Container = "mp3"
	fast.BitrateKbps = 192
	fast.FreeSlots = 0
	fast.Throughput = 2000

	slow := slskdCandidate(track, "slow-peer")
	slow.Container = "mp3"
	slow.BitrateKbps = 192
	slow.FreeSlots = 0
	slow.Throughput = 1000

	verified := fixture.coordinator.verifyCandidates(
		context.Background(), track, []source.Candidate{slow, fast})

	require.Len(t, verified, 2)
	assert.Equal(t, fast.Locator, verified[0].Locator)
	assert.Equal(t, slow.Locator, verified[1].Locator)
}

func TestCoordinatorImpl_SearchCandidates_FirstVariantWins(t *testing.T) {
	t.Parallel()

	fixture := newTestCoordinator(t, nil)
	track := wantedTrack("Nemo", "Nightwish")

	fixture.router.searchFunc = func(string) ([]source.Candidate, error) {
		return []source.Candidate{slskdCandidate(track, "collector")}, nil
	}

	candidates, queries, err := fixture.coordinator.searchCandidates(context.Background(), track)
	require.NoError(t, err)

	assert.Len(t, candidates, 1)
	assert.Equal(t, []string{"Nightwish Nemo"}, queries)
}

func TestCoordinatorImpl_SearchCandidates_FallsThroughVariants(t *testing.T) {
	t.Parallel()

	fixture := newTestCoordinator(t, nil)
	track := wantedTrack("Nemo", "Nightwish")

	fixture.router.searchFunc = func(query string) ([]source.Candidate, error) {
		// The specific query finds nothing usable, the looser one does.
		if query == "Nightwish Nemo" {
			return []source.Candidate{{
				Origin:    source.OriginSlskd,
				Locator:   "peer\nMusic\\Misc\\noise.mp3\n100",
				Title:     "Unrelated Noise",
				Artist:    "Somebody Else",
				Container: "mp3",
			}}, nil
		}

		return []source.Candidate{slskdCandidate(track, "collector")}, nil
	}

	candidates, queries, err := fixture.coordinator.searchCandidates(context.Background(), track)
	require.NoError(t, err)

	assert.Len(t, candidates, 1)
	assert.Equal(t, []string{"Nightwish Nemo", "Nemo Nightwish"}, queries)
	assert.Equal(t, queries, fixture.router.snapshotSearches())
}

func TestCoordinatorImpl_SearchCandidates_SearchErrorContinues(t *testing.T) {
	t.Parallel()

	fixture := newTestCoordinator(t, nil)
	track := wantedTrack("Nemo", "Nightwish")

	fixture.router.searchFunc = func(query string) ([]source.Candidate, error) {
		if query == "Nightwish Nemo" {
			return nil, errFakeSource
		}

		return []source.Candidate{slskdCandidate(track, "collector")}, nil
	}

	candidates, queries, err := fixture.coordinator.searchCandidates(context.Background(), track)
	require.NoError(t, err)

	// A transient search failure costs one variant, not the whole track.
	assert.Len(t, candidates, 1)
	assert.Len(t, queries, 2)
}

func TestCoordinatorImpl_SearchCandidates_NotConfiguredStops(t *testing.T) {
	t.Parallel()

	fixture := newTestCoordinator(t, nil)
	track := wantedTrack("Nemo", "Nightwish")

	fixture.router.searchFunc = func(string) ([]source.Candidate, error) {
		return nil, source.ErrNotConfigured
	}

	candidates, queries, err := fixture.coordinator.searchCandidates(context.Background(), track)

	require.ErrorIs(t, err, source.ErrNotConfigured)
	assert.Empty(t, candidates)
	assert.Len(t, queries, 1)
}

func TestCoordinatorImpl_SearchCandidates_CancelledContext(t *testing.T) {
	t.Parallel()

	fixture := newTestCoordinator(t, nil)
	track := wantedTrack("Nemo", "Nightwish")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	candidates, queries, err := fixture.coordinator.searchCandidates(ctx, track)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, candidates)
	assert.Empty(t, queries)
	assert.Empty(t, fixture.router.snapshotSearches())
}

func TestAverageThroughput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		candidates []source.Candidate
		expected   int64
	}{
		{
			name:       "no candidates",
			candidates: nil,
			expected:   0,
		},
		{
			name: "nobody reports",
			candidates: []source.Candidate{
				{Throughput: 0},
				{Throughput: 0},
			},
			expected: 0,
		},
		{
			name: "mean over reporters only",
			candidates: []source.Candidate{
				{Throughput: 1000},
				{Throughput: 0},
				{Throughput: 3000},
			},
			expected: 2000,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, averageThroughput(testCase.candidates))
		})
	}
}
