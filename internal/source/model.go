package source

import "time"

// CandidateOrigin identifies the source a candidate came from.
type CandidateOrigin uint8

// Supported candidate origins.
const (
	// OriginUnknown marks a candidate whose source was not set.
	OriginUnknown CandidateOrigin = iota

	// OriginSlskd marks a candidate found on the Soulseek network via slskd.
	OriginSlskd

	// OriginYouTube marks a candidate found on YouTube.
	OriginYouTube
)

// String returns the lowercase name of the origin.
func (o CandidateOrigin) String() string {
	switch o {
	case OriginSlskd:
		return "slskd"
	case OriginYouTube:
		return "youtube"
	case OriginUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// TransferState is the internal bucket an external transfer state maps into.
type TransferState uint8

// Transfer state buckets.
const (
	// TransferStateUnknown means the external state could not be classified.
	TransferStateUnknown TransferState = iota

	// TransferStateQueued means the transfer is waiting at the source.
	TransferStateQueued

	// TransferStateDownloading means bytes are moving.
	TransferStateDownloading

	// TransferStateCompleted means the transfer finished successfully.
	TransferStateCompleted

	// TransferStateFailed means the transfer errored at the source.
	TransferStateFailed

	// TransferStateCancelled means the transfer was cancelled.
	TransferStateCancelled
)

// String returns the lowercase name of the transfer state bucket.
func (s TransferState) String() string {
	switch s {
	case TransferStateQueued:
		return "queued"
	case TransferStateDownloading:
		return "downloading"
	case TransferStateCompleted:
		return "completed"
	case TransferStateFailed:
		return "failed"
	case TransferStateCancelled:
		return "cancelled"
	case TransferStateUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the bucket is a final state for a transfer.
func (s TransferState) IsTerminal() bool {
	return s == TransferStateCompleted || s == TransferStateFailed || s == TransferStateCancelled
}

// Candidate is one concrete, acquirable item returned by a source.
// Candidates are produced fresh per search and never mutated afterwards,
// except for attaching the computed confidence once.
type Candidate struct {
	// Origin tags the source that produced the candidate.
	Origin CandidateOrigin

	// Locator is the source-specific identity needed to start a transfer.
	// The core treats it as an opaque string.
	Locator string

	// Title is the candidate's declared title,
	// possibly parsed heuristically from a free-text label.
	Title string

	// Artist is the candidate's declared artist, best effort.
	Artist string

	// Album is the candidate's declared album, best effort.
	Album string

	// Container is the container or codec tag, such as "mp3" or "flac".
	Container string

	// BitrateKbps is the declared bitrate, zero when unknown.
	BitrateKbps int

	// DurationMS is the declared duration in milliseconds, zero when unknown.
	DurationMS int64

	// SizeBytes is the declared file size, zero when unknown.
	SizeBytes int64

	// FreeSlots is the peer's open upload slot count, used only for ranking.
	FreeSlots int

	// QueueDepth is the peer's upload queue length, used only for ranking.
	QueueDepth int

	// Throughput is the peer's reported speed in bytes per second,
	// used only for ranking.
	Throughput int64

	// OfficialChannel reports whether the publisher label looks like
	// an official or verified channel. Best-effort heuristic.
	OfficialChannel bool

	// Confidence is the computed match confidence, attached once after scoring.
	Confidence float64
}

// IsLossless reports whether the candidate's container is a lossless format.
func (c *Candidate) IsLossless() bool {
	switch c.Container {
	case "flac", "ape", "wav", "alac", "aiff", "wv":
		return true
	default:
		return false
	}
}

// TransferStatus is a point-in-time report about one running transfer.
type TransferStatus struct {
	// State is the internal bucket the external state maps into.
	State TransferState

	// RemoteState is the raw state string reported by the source,
	// kept for diagnostics and failure reports.
	RemoteState string

	// TransferredBytes is the number of bytes moved so far.
	TransferredBytes int64

	// TotalBytes is the expected final size, zero when unknown.
	TotalBytes int64

	// Throughput is the current speed in bytes per second, zero when unknown.
	Throughput int64

	// LocalPath is the absolute path of the downloaded file once known.
	LocalPath string

	// UpdatedAt is when the source produced this report.
	UpdatedAt time.Time
}
