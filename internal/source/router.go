package source

//go:generate $MOCKGEN -source=router.go -destination=mocks/router_mock.go

import (
	"context"
	"fmt"
	"time"

	"github.com/okorolenko/trackseek/internal/logger"
)

// RoutingMode selects which sources the router queries for searches.
type RoutingMode uint8

// Routing modes.
const (
	// ModeSlskdOnly queries the Soulseek source exclusively.
	ModeSlskdOnly RoutingMode = iota

	// ModeYouTubeOnly queries the YouTube source exclusively.
	ModeYouTubeOnly

	// ModeHybrid queries a designated primary source first and falls back
	// to the secondary only when the primary yields nothing usable.
	ModeHybrid
)

// String returns the lowercase name of the routing mode.
func (m RoutingMode) String() string {
	switch m {
	case ModeSlskdOnly:
		return "slskd"
	case ModeYouTubeOnly:
		return "youtube"
	case ModeHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// ParseRoutingMode converts a configuration value into a RoutingMode.
// Unknown input yields ModeHybrid and false.
func ParseRoutingMode(input string) (RoutingMode, bool) {
	switch input {
	case "slskd", "soulseek":
		return ModeSlskdOnly, true
	case "youtube":
		return ModeYouTubeOnly, true
	case "hybrid":
		return ModeHybrid, true
	default:
		return ModeHybrid, false
	}
}

// ParseOrigin converts a configuration value into a CandidateOrigin.
// Unknown input yields OriginUnknown and false.
func ParseOrigin(input string) (CandidateOrigin, bool) {
	switch input {
	case "slskd", "soulseek":
		return OriginSlskd, true
	case "youtube":
		return OriginYouTube, true
	default:
		return OriginUnknown, false
	}
}

// Router dispatches search and transfer operations to source adapters.
// Searches follow the configured routing mode; transfer operations always
// follow the candidate's origin tag, regardless of mode.
type Router interface {
	// Search queries the source(s) selected by the routing mode.
	// In hybrid mode the primary is queried first; if it produces zero
	// candidates or fails, the secondary's results are returned instead.
	// Result sets from different sources are never merged.
	Search(ctx context.Context, query string, timeout time.Duration) ([]Candidate, error)

	// StartTransfer routes a transfer start to the adapter owning the origin.
	StartTransfer(ctx context.Context, origin CandidateOrigin, locator string) (string, error)

	// TransferStatus routes a status poll to the adapter owning the origin.
	TransferStatus(ctx context.Context, origin CandidateOrigin, transferID string) (*TransferStatus, error)

	// CancelTransfer routes a cancellation to the adapter owning the origin.
	CancelTransfer(ctx context.Context, origin CandidateOrigin, transferID string) error

	// IsConfigured reports whether the sources required by the routing mode
	// are usable. In hybrid mode it is true when at least one source is.
	IsConfigured() bool

	// CheckReachable probes the sources required by the routing mode.
	// In hybrid mode it succeeds when at least one source responds.
	CheckReachable(ctx context.Context) error
}

// RouterImpl implements Router over a registry of adapters keyed by origin.
type RouterImpl struct {
	// mode is the configured routing policy for searches.
	mode RoutingMode

	// primary is the origin queried first in hybrid mode.
	primary CandidateOrigin

	// adapters maps each origin to the adapter that owns it.
	adapters map[CandidateOrigin]Adapter
}

// NewRouter creates a router over the given adapters.
// In hybrid mode, primary designates the source queried first;
// when primary is OriginUnknown, the Soulseek source is used.
func NewRouter(mode RoutingMode, primary CandidateOrigin, adapters ...Adapter) Router {
	if primary == OriginUnknown {
		primary = OriginSlskd
	}

	registry := make(map[CandidateOrigin]Adapter, len(adapters))
	for _, adapter := range adapters {
		registry[adapter.Origin()] = adapter
	}

	return &RouterImpl{
		mode:     mode,
		primary:  primary,
		adapters: registry,
	}
}

// Search implements Router.
func (r *RouterImpl) Search(ctx context.Context, query string, timeout time.Duration) ([]Candidate, error) {
	switch r.mode {
	case ModeSlskdOnly:
		return r.searchSingle(ctx, OriginSlskd, query, timeout)
	case ModeYouTubeOnly:
		return r.searchSingle(ctx, OriginYouTube, query, timeout)
	case ModeHybrid:
		return r.searchHybrid(ctx, query, timeout)
	default:
		return nil, fmt.Errorf("%w: routing mode %d", ErrNotConfigured, r.mode)
	}
}

// searchSingle queries exactly one source.
func (r *RouterImpl) searchSingle(
	ctx context.Context,
	origin CandidateOrigin,
	query string,
	timeout time.Duration,
) ([]Candidate, error) {
	adapter, err := r.adapterFor(origin)
	if err != nil {
		return nil, err
	}

	if !adapter.IsConfigured() {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, origin)
	}

	return adapter.Search(ctx, query, timeout)
}

// searchHybrid queries the primary source and falls back to the secondary
// when the primary fails or produces nothing. Results are never merged.
func (r *RouterImpl) searchHybrid(ctx context.Context, query string, timeout time.Duration) ([]Candidate, error) {
	primary, primaryErr := r.adapterFor(r.primary)
	secondary := r.secondaryAdapter()

	if primaryErr == nil && primary.IsConfigured() {
		candidates, err := primary.Search(ctx, query, timeout)
		if err == nil && len(candidates) > 0 {
			return candidates, nil
		}

		if err != nil {
			logger.Warnf(ctx, "Primary source %s failed, falling back: %v", r.primary, err)
		} else {
			logger.Debugf(ctx, "Primary source %s returned no candidates for %q, falling back", r.primary, query)
		}
	}

	if secondary == nil || !secondary.IsConfigured() {
		if primaryErr == nil && primary.IsConfigured() {
			// Primary was usable but empty and there is nowhere to fall back to.
			return nil, nil
		}

		return nil, fmt.Errorf("%w: no usable source in hybrid mode", ErrNotConfigured)
	}

	return secondary.Search(ctx, query, timeout)
}

// StartTransfer implements Router.
func (r *RouterImpl) StartTransfer(ctx context.Context, origin CandidateOrigin, locator string) (string, error) {
	adapter, err := r.adapterFor(origin)
	if err != nil {
		return "", err
	}

	return adapter.StartTransfer(ctx, locator)
}

// TransferStatus implements Router.
func (r *RouterImpl) TransferStatus(
	ctx context.Context,
	origin CandidateOrigin,
	transferID string,
) (*TransferStatus, error) {
	adapter, err := r.adapterFor(origin)
	if err != nil {
		return nil, err
	}

	return adapter.TransferStatus(ctx, transferID)
}

// CancelTransfer implements Router.
func (r *RouterImpl) CancelTransfer(ctx context.Context, origin CandidateOrigin, transferID string) error {
	adapter, err := r.adapterFor(origin)
	if err != nil {
		return err
	}

	return adapter.CancelTransfer(ctx, transferID)
}

// IsConfigured implements Router.
func (r *RouterImpl) IsConfigured() bool {
	switch r.mode {
	case ModeSlskdOnly:
		return r.originConfigured(OriginSlskd)
	case ModeYouTubeOnly:
		return r.originConfigured(OriginYouTube)
	case ModeHybrid:
		return r.originConfigured(OriginSlskd) || r.originConfigured(OriginYouTube)
	default:
		return false
	}
}

// CheckReachable implements Router.
func (r *RouterImpl) CheckReachable(ctx context.Context) error {
	switch r.mode {
	case ModeSlskdOnly:
		return r.originReachable(ctx, OriginSlskd)
	case ModeYouTubeOnly:
		return r.originReachable(ctx, OriginYouTube)
	case ModeHybrid:
		primaryErr := r.originReachable(ctx, r.primary)
		if primaryErr == nil {
			return nil
		}

		secondary := r.secondaryAdapter()
		if secondary == nil {
			return primaryErr
		}

		if err := secondary.CheckReachable(ctx); err != nil {
			return fmt.Errorf("%w: primary: %v, secondary: %v", ErrUnreachable, primaryErr, err)
		}

		return nil
	default:
		return fmt.Errorf("%w: routing mode %d", ErrNotConfigured, r.mode)
	}
}

// adapterFor returns the adapter registered for the origin.
func (r *RouterImpl) adapterFor(origin CandidateOrigin) (Adapter, error) {
	adapter, ok := r.adapters[origin]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrigin, origin)
	}

	return adapter, nil
}

// secondaryAdapter returns the registered adapter that is not the primary,
// or nil when there is none.
func (r *RouterImpl) secondaryAdapter() Adapter {
	for origin, adapter := range r.adapters {
		if origin != r.primary {
			return adapter
		}
	}

	return nil
}

// originConfigured reports whether the origin has a configured adapter.
func (r *RouterImpl) originConfigured(origin CandidateOrigin) bool {
	adapter, ok := r.adapters[origin]

	return ok && adapter.IsConfigured()
}

// originReachable probes the origin's adapter.
func (r *RouterImpl) originReachable(ctx context.Context, origin CandidateOrigin) error {
	adapter, err := r.adapterFor(origin)
	if err != nil {
		return err
	}

	if !adapter.IsConfigured() {
		return fmt.Errorf("%w: %s", ErrNotConfigured, origin)
	}

	return adapter.CheckReachable(ctx)
}
