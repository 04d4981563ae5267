package source

import (
	"context"
	"time"
)

// Adapter is the contract every acquisition source implements.
// Search produces candidates; the transfer methods operate on locators
// and transfer identifiers that are opaque outside the adapter.
type Adapter interface {
	// Origin returns the tag this adapter stamps on its candidates.
	Origin() CandidateOrigin

	// IsConfigured reports whether the adapter has usable configuration.
	// It must not perform I/O.
	IsConfigured() bool

	// CheckReachable probes the source's backend.
	// A nil error means the source is usable right now.
	CheckReachable(ctx context.Context) error

	// Search runs one query against the source and returns raw,
	// unscored candidates. The timeout hint bounds how long the adapter
	// waits for the source to gather results.
	Search(ctx context.Context, query string, timeout time.Duration) ([]Candidate, error)

	// StartTransfer begins acquiring the item behind the locator
	// and returns a transfer identifier for status polling.
	StartTransfer(ctx context.Context, locator string) (string, error)

	// TransferStatus reports the current state of a running transfer.
	// It returns ErrTransferNotFound when the source has no record of it.
	TransferStatus(ctx context.Context, transferID string) (*TransferStatus, error)

	// CancelTransfer asks the source to stop a transfer and release
	// whatever resources it holds for it.
	CancelTransfer(ctx context.Context, transferID string) error
}
