package source

import "errors"

// Static errors shared by all source adapters and the router.
var (
	// ErrNotConfigured indicates a source has no usable configuration.
	ErrNotConfigured = errors.New("source is not configured")

	// ErrUnknownOrigin indicates a candidate carries an origin tag
	// no registered adapter claims.
	ErrUnknownOrigin = errors.New("unknown candidate origin")

	// ErrTransferNotFound indicates the source has no record of a transfer.
	ErrTransferNotFound = errors.New("transfer not found at source")

	// ErrUnreachable indicates a source's backend did not respond to a probe.
	ErrUnreachable = errors.New("source is unreachable")
)
