package match

// MatchTier is a categorical label for how closely a candidate matches a wanted track.
type MatchTier uint8

// Match tiers, from no match to an exact match.
const (
	// TierNone means the candidate does not match the wanted track.
	TierNone MatchTier = iota

	// TierLow means title and artist resemble the wanted track only loosely.
	TierLow

	// TierMedium means title and artist are moderately similar.
	TierMedium

	// TierHigh means title and artist are close matches.
	TierHigh

	// TierExact means title, artist, and album all line up.
	TierExact
)

// String returns the lowercase label of the tier.
func (t MatchTier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	case TierNone:
		return "none"
	default:
		return "unknown"
	}
}

// Tiered confidence values and the field thresholds that select them.
const (
	exactConfidence  = 0.95
	highConfidence   = 0.85
	mediumConfidence = 0.75
	lowConfidence    = 0.65

	exactFieldThreshold  = 0.9
	exactAlbumThreshold  = 0.8
	highFieldThreshold   = 0.8
	mediumFieldThreshold = 0.7
	lowFieldThreshold    = 0.6
)

// Weighted confidence composition used for download-candidate ranking.
const (
	titleWeight    = 0.40
	artistWeight   = 0.30
	durationWeight = 0.20
	qualityWeight  = 0.10

	// officialChannelBonus nudges candidates published through a verified
	// channel upward. It is a ranking heuristic, not a trust signal.
	officialChannelBonus = 0.05
)

// Duration comparison breakpoints. These are fixed, not tunable per call.
const (
	durationNeutralScore = 0.5

	durationCloseDiff  = 0.05
	durationNearDiff   = 0.10
	durationFarDiff    = 0.20
	durationCloseScore = 1.0
	durationNearScore  = 0.8
	durationFarScore   = 0.6
	durationWorstScore = 0.3
)

// Bitrate bands for the source-quality sub-score.
const (
	bitrateHighKbps   = 256
	bitrateMediumKbps = 192
	bitrateLowKbps    = 128

	bitrateHighScore   = 1.0
	bitrateMediumScore = 0.8
	bitrateLowScore    = 0.6
	bitrateWorstScore  = 0.4

	freeSlotBonus       = 0.05
	queuePenalty        = 0.10
	fastThroughputBonus = 0.05
	slowThroughputCut   = 0.05
)

// TrackFields is the comparable subset of a track's metadata.
// DurationMS of zero means the duration is unknown.
type TrackFields struct {
	// Title is the raw track title.
	Title string

	// Artist is the raw primary artist name.
	Artist string

	// Album is the raw album name, possibly empty.
	Album string

	// DurationMS is the track length in milliseconds, zero when unknown.
	DurationMS int64
}

// Scores holds per-field similarity values between a wanted track and a candidate.
type Scores struct {
	// Title is the normalized title similarity in [0, 1].
	Title float64

	// Artist is the normalized primary-artist similarity in [0, 1].
	Artist float64

	// Album is the normalized album similarity in [0, 1].
	Album float64

	// AlbumKnown reports whether both sides declared an album.
	// When false, the Album score carries no evidence either way.
	AlbumKnown bool

	// Duration is the duration similarity in [0, 1],
	// 0.5 when either duration is unknown.
	Duration float64
}

// ComputeScores normalizes both tracks' fields and computes per-field similarities.
// The result is deterministic: the same inputs always produce the same scores.
func ComputeScores(wanted, candidate TrackFields) Scores {
	scores := Scores{
		Title:    Similarity(Normalize(wanted.Title), Normalize(candidate.Title)),
		Artist:   Similarity(NormalizeArtist(wanted.Artist), NormalizeArtist(candidate.Artist)),
		Duration: DurationSimilarity(wanted.DurationMS, candidate.DurationMS),
	}

	wantedAlbum := Normalize(wanted.Album)
	candidateAlbum := Normalize(candidate.Album)

	if wantedAlbum != "" && candidateAlbum != "" {
		scores.Album = Similarity(wantedAlbum, candidateAlbum)
		scores.AlbumKnown = true
	}

	return scores
}

// DurationSimilarity maps a pair of track durations to a similarity score.
// If either duration is unknown (zero or negative) the result is a neutral 0.5.
// Otherwise the relative difference selects a fixed breakpoint:
// within 5% scores 1.0, within 10% scores 0.8, within 20% scores 0.6,
// anything further apart scores 0.3.
func DurationSimilarity(a, b int64) float64 {
	if a <= 0 || b <= 0 {
		return durationNeutralScore
	}

	longer, shorter := a, b
	if b > a {
		longer, shorter = b, a
	}

	relativeDiff := float64(longer-shorter) / float64(longer)

	switch {
	case relativeDiff <= durationCloseDiff:
		return durationCloseScore
	case relativeDiff <= durationNearDiff:
		return durationNearScore
	case relativeDiff <= durationFarDiff:
		return durationFarScore
	default:
		return durationWorstScore
	}
}

// TierConfidence collapses per-field scores into a confidence value and tier
// using a step function evaluated in strict descending order.
// The exact tier additionally requires the album to line up;
// when no album is known on either side that requirement is waived,
// since free-text candidates rarely declare one.
// This is the model behind library-ownership checks.
func TierConfidence(scores Scores) (float64, MatchTier) {
	albumSatisfied := !scores.AlbumKnown || scores.Album >= exactAlbumThreshold

	switch {
	case scores.Title >= exactFieldThreshold && scores.Artist >= exactFieldThreshold && albumSatisfied:
		return exactConfidence, TierExact
	case scores.Title >= highFieldThreshold && scores.Artist >= highFieldThreshold:
		return highConfidence, TierHigh
	case scores.Title >= mediumFieldThreshold && scores.Artist >= mediumFieldThreshold:
		return mediumConfidence, TierMedium
	case scores.Title >= lowFieldThreshold && scores.Artist >= lowFieldThreshold:
		return lowConfidence, TierLow
	default:
		return 0.0, TierNone
	}
}

// WeightedConfidence combines per-field scores into the finer-grained value
// used to rank download candidates:
// title 40%, artist 30%, duration 20%, source quality 10%,
// plus a small bonus for official publisher channels, capped at 1.0.
func WeightedConfidence(scores Scores, sourceQuality float64, officialChannel bool) float64 {
	confidence := scores.Title*titleWeight +
		scores.Artist*artistWeight +
		scores.Duration*durationWeight +
		sourceQuality*qualityWeight

	if officialChannel {
		confidence += officialChannelBonus
	}

	if confidence > 1.0 {
		confidence = 1.0
	}

	return confidence
}

// QualitySignals carries a candidate's technical and availability attributes.
// All fields are optional; zero values degrade the score rather than fail.
type QualitySignals struct {
	// Lossless reports whether the container is a lossless format.
	Lossless bool

	// BitrateKbps is the declared bitrate, zero when unknown.
	BitrateKbps int

	// FreeSlots is the number of open upload slots at the peer.
	FreeSlots int

	// QueueDepth is the peer's reported upload queue length.
	QueueDepth int

	// Throughput is the peer's reported transfer speed in bytes per second.
	Throughput int64

	// AverageThroughput is the mean speed across all peers in the same
	// result set, zero when unknown.
	AverageThroughput int64
}

// SourceQuality derives a [0, 1] sub-score from a candidate's container,
// bitrate, and availability signals. Lossless containers score 1.0 before
// adjustments regardless of bitrate. Slot availability and relative peer
// throughput apply small additive adjustments; the result is clamped.
func SourceQuality(signals QualitySignals) float64 {
	var base float64

	switch {
	case signals.Lossless:
		base = bitrateHighScore
	case signals.BitrateKbps >= bitrateHighKbps:
		base = bitrateHighScore
	case signals.BitrateKbps >= bitrateMediumKbps:
		base = bitrateMediumScore
	case signals.BitrateKbps >= bitrateLowKbps:
		base = bitrateLowScore
	default:
		base = bitrateWorstScore
	}

	if signals.FreeSlots > 0 {
		base += freeSlotBonus
	} else if signals.QueueDepth > 0 {
		base -= queuePenalty
	}

	if signals.AverageThroughput > 0 && signals.Throughput > 0 {
		if signals.Throughput > signals.AverageThroughput {
			base += fastThroughputBonus
		} else if signals.Throughput < signals.AverageThroughput {
			base -= slowThroughputCut
		}
	}

	if base < 0.0 {
		base = 0.0
	}

	if base > 1.0 {
		base = 1.0
	}

	return base
}
