package download

import "errors"

// Static error definitions for better error handling.
var (
	// ErrNotConfigured indicates that no source required by the routing mode is usable.
	ErrNotConfigured = errors.New("no usable source configured")
	// ErrNoCandidates indicates that every query variant was exhausted without a verified candidate.
	ErrNoCandidates = errors.New("no verified candidates")
	// ErrTransferStalled indicates a transfer that made no progress within the stall timeout.
	ErrTransferStalled = errors.New("transfer stalled")
	// ErrSourceFailed indicates a transfer that failed or vanished at its source.
	ErrSourceFailed = errors.New("transfer failed at the source")
	// ErrRetryCeilingExceeded indicates that the per-track attempt ceiling was reached.
	ErrRetryCeilingExceeded = errors.New("retry ceiling exceeded")
)
