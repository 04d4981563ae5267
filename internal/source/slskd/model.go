package slskd

import (
	"strings"

	"github.com/okorolenko/trackseek/internal/source"
)

// Search represents a search resource on the slskd daemon.
// The daemon returns the same shape when a search is created and when it is polled.
type Search struct {
	// ID is the daemon-assigned search identifier.
	ID string `json:"id"`
	// SearchText is the text the search was started with.
	SearchText string `json:"searchText"`
	// State is the daemon's search state, possibly compound ("Completed, TimedOut").
	State SearchState `json:"state"`
	// ResponseCount is the number of peers that responded so far.
	ResponseCount int `json:"responseCount"`
	// FileCount is the total number of files across all responses so far.
	FileCount int `json:"fileCount"`
}

// SearchResponse represents one peer's response to a search.
type SearchResponse struct {
	// Username is the peer's Soulseek username.
	Username string `json:"username"`
	// FileCount is the number of files in this response.
	FileCount int `json:"fileCount"`
	// HasFreeUploadSlot reports whether the peer can start uploading immediately.
	HasFreeUploadSlot bool `json:"hasFreeUploadSlot"`
	// QueueLength is the peer's current upload queue depth.
	QueueLength int `json:"queueLength"`
	// UploadSpeed is the peer's reported upload speed in bytes per second.
	UploadSpeed int `json:"uploadSpeed"`
	// Files are the files the peer offered.
	Files []File `json:"files"`
}

// File represents a file offered in a search response.
type File struct {
	// Filename is the peer's full remote path, usually with backslash separators.
	Filename string `json:"filename"`
	// Size is the file size in bytes.
	Size int64 `json:"size"`
	// Code is the Soulseek file attribute code.
	Code int `json:"code"`
	// Extension is the file extension as reported by the peer.
	Extension string `json:"extension"`
	// BitRate is the declared bitrate in kbps, zero when unknown.
	BitRate int `json:"bitRate"`
	// BitDepth is the declared bit depth, zero when unknown.
	BitDepth int `json:"bitDepth"`
	// Length is the declared duration in seconds, zero when unknown.
	Length int `json:"length"`
	// IsLocked reports whether the file is behind the peer's lock list.
	IsLocked bool `json:"isLocked"`
}

// DownloadRequest is one file entry in a download enqueue call.
type DownloadRequest struct {
	// Filename is the peer's full remote path, exactly as returned by a search.
	Filename string `json:"filename"`
	// Size is the file size in bytes, exactly as returned by a search.
	Size int64 `json:"size"`
}

// UserDownloads represents one user's downloads grouped by directory.
type UserDownloads struct {
	// Username is the peer the downloads come from.
	Username string `json:"username"`
	// Directories are the download groups.
	Directories []DownloadDirectory `json:"directories"`
}

// DownloadDirectory represents a directory of downloads.
type DownloadDirectory struct {
	// Directory is the remote directory path.
	Directory string `json:"directory"`
	// FileCount is the number of files in the directory.
	FileCount int `json:"fileCount"`
	// Files are the individual downloads.
	Files []DownloadFile `json:"files"`
}

// DownloadFile represents an individual download as reported by the daemon.
type DownloadFile struct {
	// ID is the daemon-assigned download identifier.
	ID string `json:"id"`
	// Username is the peer the file is downloaded from.
	Username string `json:"username"`
	// Filename is the remote path of the file.
	Filename string `json:"filename"`
	// Size is the expected file size in bytes.
	Size int64 `json:"size"`
	// State is the daemon's download state, possibly compound ("Completed, Succeeded").
	State DownloadState `json:"state"`
	// BytesTransferred is the number of bytes received so far.
	BytesTransferred int64 `json:"bytesTransferred"`
}

// Download is a flattened download entry for internal use.
type Download struct {
	// ID is the daemon-assigned download identifier.
	ID string
	// Username is the peer the file is downloaded from.
	Username string
	// Filename is the remote path of the file.
	Filename string
	// State is the daemon's download state.
	State DownloadState
	// Size is the expected file size in bytes.
	Size int64
	// BytesTransferred is the number of bytes received so far.
	BytesTransferred int64
}

// SearchState is the daemon's search state string.
// States can be compound, e.g. "Completed, ResponseLimitReached".
type SearchState string

// Known search states.
const (
	SearchStateNone       SearchState = "None"
	SearchStateRequested  SearchState = "Requested"
	SearchStateInProgress SearchState = "InProgress"
	SearchStateCompleted  SearchState = "Completed"
	SearchStateTimedOut   SearchState = "TimedOut"
	SearchStateCancelled  SearchState = "Cancelled"
	SearchStateErrored    SearchState = "Errored"
)

// IsComplete reports whether the search reached a terminal state.
func (s SearchState) IsComplete() bool {
	state := string(s)

	return strings.Contains(state, "Completed") ||
		strings.Contains(state, "TimedOut") ||
		strings.Contains(state, "Cancelled") ||
		strings.Contains(state, "Errored")
}

// DownloadState is the daemon's download state string.
// States can be compound, e.g. "Completed, Succeeded" or "Queued, Remotely".
type DownloadState string

// Bucket maps the daemon's state string into an internal transfer state.
// The order of checks matters: "Completed, Cancelled" must map to cancelled,
// and any other completed variant ("Completed, TimedOut", "Completed, Errored")
// counts as failed.
func (s DownloadState) Bucket() source.TransferState {
	state := string(s)

	switch {
	case strings.Contains(state, "Succeeded"):
		return source.TransferStateCompleted
	case strings.Contains(state, "Cancelled"):
		return source.TransferStateCancelled
	case strings.Contains(state, "Completed"):
		return source.TransferStateFailed
	case strings.Contains(state, "InProgress"), strings.Contains(state, "Initializing"):
		return source.TransferStateDownloading
	case strings.Contains(state, "Queued"), strings.Contains(state, "Requested"):
		return source.TransferStateQueued
	default:
		return source.TransferStateUnknown
	}
}
