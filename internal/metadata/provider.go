package metadata

import (
	"context"
	"errors"
)

// Provider is the contract a metadata catalog implements.
// Identifiers are provider-specific and opaque to callers.
type Provider interface {
	// Name returns the provider's short name for logs and routing.
	Name() string

	// IsConfigured reports whether the provider can serve requests.
	// It must not perform I/O.
	IsConfigured() bool

	// SearchTrack resolves a free-text query to the best matching track.
	SearchTrack(ctx context.Context, query string) (*WantedTrack, error)

	// GetTrack fetches one track by its identifier.
	GetTrack(ctx context.Context, trackID string) (*WantedTrack, error)

	// GetAlbum fetches an album with its full track list.
	GetAlbum(ctx context.Context, albumID string) (*Album, error)

	// GetPlaylist fetches a playlist with its full track list.
	GetPlaylist(ctx context.Context, playlistID string) (*Playlist, error)
}

// Static errors shared by metadata providers.
var (
	// ErrNotFound indicates the provider has no item behind the identifier or query.
	ErrNotFound = errors.New("metadata item not found")
	// ErrUnexpectedResponseFormat indicates a provider response that could not be navigated.
	ErrUnexpectedResponseFormat = errors.New("unexpected metadata response format")
)
