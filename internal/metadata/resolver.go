package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/okorolenko/trackseek/internal/logger"
)

// Resolver expands references into the concrete tracks they describe.
type Resolver interface {
	// ResolveTracks resolves every reference into wanted tracks,
	// deduplicated across references.
	ResolveTracks(ctx context.Context, references []*Reference) ([]*WantedTrack, error)
}

// ResolverImpl implements the Resolver interface.
type ResolverImpl struct {
	primary   Provider
	secondary Provider
}

// Static error definitions for better error handling.
var (
	// ErrNoProviderConfigured indicates that no metadata provider is usable.
	ErrNoProviderConfigured = errors.New("no metadata provider is configured")
	// ErrProviderCannotServe indicates that no configured provider can serve a reference.
	ErrProviderCannotServe = errors.New("no configured metadata provider can serve the reference")
	// ErrNoTracksResolved indicates that no reference produced any track.
	ErrNoTracksResolved = errors.New("no tracks were resolved from the provided references")
	// ErrUnsupportedReferenceKind indicates a reference kind the resolver does not handle.
	ErrUnsupportedReferenceKind = errors.New("unsupported reference kind")
)

// NewResolver creates a new instance of ResolverImpl.
// Either provider may be nil when the corresponding catalog is not wired in.
func NewResolver(primary, secondary Provider) Resolver {
	return &ResolverImpl{
		primary:   primary,
		secondary: secondary,
	}
}

// ResolveTracks resolves every reference into wanted tracks.
// Failures on individual references are logged and skipped so one dead
// link does not sink the whole request.
func (r *ResolverImpl) ResolveTracks(ctx context.Context, references []*Reference) ([]*WantedTrack, error) {
	if !r.hasConfiguredProvider() {
		return nil, ErrNoProviderConfigured
	}

	var (
		// Track seen provider-scoped IDs to drop duplicates across references.
		seen = make(map[string]struct{})
		// Store the final list of resolved tracks.
		tracks []*WantedTrack
	)

	for _, reference := range references {
		resolved, err := r.resolveReference(ctx, reference)
		if err != nil {
			logger.Errorf(ctx, "Failed to resolve reference '%s': %v", reference.Raw, err)

			continue
		}

		for _, track := range resolved {
			key := track.Provider + "/" + track.ID
			if _, ok := seen[key]; ok {
				continue
			}

			seen[key] = struct{}{}

			tracks = append(tracks, track)
		}
	}

	if len(tracks) == 0 {
		return nil, ErrNoTracksResolved
	}

	return tracks, nil
}

func (r *ResolverImpl) resolveReference(ctx context.Context, reference *Reference) ([]*WantedTrack, error) {
	provider, err := r.chooseProvider(reference)
	if err != nil {
		return nil, err
	}

	switch reference.Kind {
	case ReferenceQuery:
		track, err := provider.SearchTrack(ctx, reference.Raw)
		if err != nil {
			return nil, err
		}

		return []*WantedTrack{track}, nil
	case ReferenceTrack:
		track, err := provider.GetTrack(ctx, reference.ItemID)
		if err != nil {
			return nil, err
		}

		return []*WantedTrack{track}, nil
	case ReferenceAlbum:
		album, err := provider.GetAlbum(ctx, reference.ItemID)
		if err != nil {
			return nil, err
		}

		logger.Infof(ctx, "Resolved album '%s' to %d tracks", album.Title, len(album.Tracks))

		return album.Tracks, nil
	case ReferencePlaylist:
		playlist, err := provider.GetPlaylist(ctx, reference.ItemID)
		if err != nil {
			return nil, err
		}

		logger.Infof(ctx, "Resolved playlist '%s' to %d tracks", playlist.Title, len(playlist.Tracks))

		return playlist.Tracks, nil
	case ReferenceUnknown:
		fallthrough
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedReferenceKind, reference.Kind)
	}
}

// chooseProvider picks the provider that holds the referenced catalog item.
// Numeric item identifiers belong to the fallback catalog; alphanumeric ones
// to the primary catalog. Free-text queries prefer the primary catalog.
func (r *ResolverImpl) chooseProvider(reference *Reference) (Provider, error) {
	var (
		primaryReady   = r.primary != nil && r.primary.IsConfigured()
		secondaryReady = r.secondary != nil && r.secondary.IsConfigured()
	)

	if reference.ItemID != "" {
		if reference.IsNumericID() {
			if secondaryReady {
				return r.secondary, nil
			}

			return nil, fmt.Errorf("%w: '%s'", ErrProviderCannotServe, reference.Raw)
		}

		if primaryReady {
			return r.primary, nil
		}

		return nil, fmt.Errorf("%w: '%s'", ErrProviderCannotServe, reference.Raw)
	}

	if primaryReady {
		return r.primary, nil
	}

	if secondaryReady {
		return r.secondary, nil
	}

	return nil, fmt.Errorf("%w: '%s'", ErrProviderCannotServe, reference.Raw)
}

func (r *ResolverImpl) hasConfiguredProvider() bool {
	if r.primary != nil && r.primary.IsConfigured() {
		return true
	}

	return r.secondary != nil && r.secondary.IsConfigured()
}
