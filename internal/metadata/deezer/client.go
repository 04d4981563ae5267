package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/okorolenko/trackseek/internal/config"
	"github.com/okorolenko/trackseek/internal/metadata"
	http_transport "github.com/okorolenko/trackseek/internal/transport/http"
	"github.com/okorolenko/trackseek/internal/utils"
)

// ProviderImpl implements the metadata.Provider interface for the fallback catalog.
type ProviderImpl struct {
	// cfg contains the application configuration.
	cfg *config.Config
	// baseURL is the base URL for API requests.
	baseURL string
	// httpClient is the HTTP client for making requests.
	httpClient *http.Client
	// lastRequestMutex guards the request pacing state.
	lastRequestMutex sync.Mutex
	// lastRequest is when the previous request was sent.
	lastRequest time.Time
}

const (
	// ProviderName identifies this provider in resolved track metadata.
	ProviderName = "deezer"

	// defaultBaseURL is the public API host.
	defaultBaseURL = "https://api.deezer.com"

	// trackURI is the URI path for track lookups.
	trackURI = "track"
	// albumURI is the URI path for album lookups.
	albumURI = "album"
	// playlistURI is the URI path for playlist lookups.
	playlistURI = "playlist"
	// searchTrackURI is the URI path for track search.
	searchTrackURI = "search/track"

	// rateLimitInterval paces requests to stay under the API quota
	// of 50 requests per 5 seconds.
	rateLimitInterval = 100 * time.Millisecond

	// maxRetries is how many times a failed request is retried.
	maxRetries = 3
	// initialRetryDelay is the backoff before the first retry.
	initialRetryDelay = 2 * time.Second
	// maxRetryDelay caps the exponential backoff.
	maxRetryDelay = 30 * time.Second

	// listPageSize is the page size for track listings.
	listPageSize = 100
	// searchResultsLimit caps how many search hits are requested.
	searchResultsLimit = 10

	// notFoundErrorCode is the API error code for missing items.
	notFoundErrorCode = 800

	// millisecondsPerSecond converts API durations to milliseconds.
	millisecondsPerSecond = 1000
)

// Static error definitions for better error handling.
var (
	// ErrAPIError indicates the API returned an error payload.
	ErrAPIError = errors.New("deezer API error")
	// ErrUnexpectedHTTPStatus indicates an unexpected HTTP status code was received.
	ErrUnexpectedHTTPStatus = errors.New("unexpected HTTP status")
)

// NewProvider creates and returns a new instance of ProviderImpl.
func NewProvider(cfg *config.Config) metadata.Provider {
	// Initialize the HTTP client with custom transport and timeout.
	httpClient := &http.Client{
		Transport: http_transport.NewUserAgentInjector(
			http_transport.NewLogTransport(http.DefaultTransport, 0),
			utils.NewSimpleUserAgentProvider(http_transport.DefaultUserAgent)),
		Timeout: http_transport.DefaultTimeout,
	}

	return &ProviderImpl{
		cfg:        cfg,
		baseURL:    defaultBaseURL,
		httpClient: httpClient,
	}
}

// Name returns the provider's catalog name.
func (p *ProviderImpl) Name() string {
	return ProviderName
}

// IsConfigured reports whether the fallback catalog may be used.
func (p *ProviderImpl) IsConfigured() bool {
	return p.cfg.DeezerEnabled
}

// SearchTrack finds the best-matching track for a free-text query.
func (p *ProviderImpl) SearchTrack(ctx context.Context, query string) (*metadata.WantedTrack, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(searchResultsLimit))

	requestURL := fmt.Sprintf("%s/%s?%s", p.baseURL, searchTrackURI, params.Encode())

	var result trackListPageResponse
	if err := p.getJSON(ctx, requestURL, &result); err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("%w: query '%s'", metadata.ErrNotFound, query)
	}

	// The matching layer re-verifies the result, so the top hit is enough.
	return convertTrack(result.Data[0]), nil
}

// GetTrack retrieves one track by its catalog identifier.
func (p *ProviderImpl) GetTrack(ctx context.Context, trackID string) (*metadata.WantedTrack, error) {
	requestURL := fmt.Sprintf("%s/%s/%s", p.baseURL, trackURI, trackID)

	var track trackResponse
	if err := p.getJSON(ctx, requestURL, &track); err != nil {
		return nil, err
	}

	return convertTrack(&track), nil
}

// GetAlbum retrieves an album with its full track list.
func (p *ProviderImpl) GetAlbum(ctx context.Context, albumID string) (*metadata.Album, error) {
	requestURL := fmt.Sprintf("%s/%s/%s", p.baseURL, albumURI, albumID)

	var albumDTO albumResponse
	if err := p.getJSON(ctx, requestURL, &albumDTO); err != nil {
		return nil, err
	}

	album := convertAlbum(&albumDTO)

	tracks, err := p.fetchAlbumTracks(ctx, albumID, album)
	if err != nil {
		return nil, err
	}

	album.Tracks = tracks

	return album, nil
}

// GetPlaylist retrieves a playlist with its full track list.
func (p *ProviderImpl) GetPlaylist(ctx context.Context, playlistID string) (*metadata.Playlist, error) {
	requestURL := fmt.Sprintf("%s/%s/%s", p.baseURL, playlistURI, playlistID)

	var playlistDTO playlistResponse
	if err := p.getJSON(ctx, requestURL, &playlistDTO); err != nil {
		return nil, err
	}

	playlist := &metadata.Playlist{
		ID:    strconv.FormatInt(playlistDTO.ID, 10),
		Title: playlistDTO.Title,
	}

	if playlistDTO.Creator != nil {
		playlist.OwnerName = playlistDTO.Creator.Name
	}

	tracks, err := p.fetchTrackListing(ctx, fmt.Sprintf("%s/%s/%s/tracks", p.baseURL, playlistURI, playlistID))
	if err != nil {
		return nil, err
	}

	playlist.Tracks = tracks

	return playlist, nil
}

// fetchAlbumTracks pages through an album's track listing and fills
// album-level fields the track entries do not carry.
func (p *ProviderImpl) fetchAlbumTracks(
	ctx context.Context,
	albumID string,
	album *metadata.Album,
) ([]*metadata.WantedTrack, error) {
	rawTracks, err := p.fetchTrackListing(ctx, fmt.Sprintf("%s/%s/%s/tracks", p.baseURL, albumURI, albumID))
	if err != nil {
		return nil, err
	}

	for i, track := range rawTracks {
		track.Album = album.Title
		track.AlbumArtist = album.ArtistName
		track.TotalTracks = album.TotalTracks
		track.Genres = album.Genres

		if track.ReleaseDate == "" {
			track.ReleaseDate = album.ReleaseDate
		}

		if track.CoverURL == "" {
			track.CoverURL = album.CoverURL
		}

		// Album listings omit positions on some older releases.
		if track.TrackNumber == 0 {
			track.TrackNumber = i + 1
		}
	}

	return rawTracks, nil
}

// fetchTrackListing pages through a track listing endpoint.
func (p *ProviderImpl) fetchTrackListing(ctx context.Context, listingURL string) ([]*metadata.WantedTrack, error) {
	var (
		tracks []*metadata.WantedTrack
		index  int
	)

	for {
		requestURL := fmt.Sprintf("%s?index=%d&limit=%d", listingURL, index, listPageSize)

		var page trackListPageResponse
		if err := p.getJSON(ctx, requestURL, &page); err != nil {
			return nil, err
		}

		for _, trackDTO := range page.Data {
			if trackDTO == nil {
				continue
			}

			tracks = append(tracks, convertTrack(trackDTO))
		}

		index += listPageSize
		if page.Next == "" || len(page.Data) == 0 {
			break
		}
	}

	return tracks, nil
}

// getJSON performs a GET request and decodes the response,
// surfacing API errors the endpoint reports inside a 200 response.
func (p *ProviderImpl) getJSON(ctx context.Context, requestURL string, result any) error {
	p.waitForRateLimit()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return err
	}

	response, err := p.doRequestWithRetry(request)
	if err != nil {
		return err
	}

	defer response.Body.Close() //nolint:errcheck // Error on close is not critical here.

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	var envelope errorEnvelope
	if err = json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		if envelope.Error.Code == notFoundErrorCode {
			return fmt.Errorf("%w: %s", metadata.ErrNotFound, envelope.Error.Message)
		}

		return fmt.Errorf("%w: %s (code %d)", ErrAPIError, envelope.Error.Message, envelope.Error.Code)
	}

	return json.Unmarshal(body, result)
}

// waitForRateLimit paces requests to stay under the API quota.
func (p *ProviderImpl) waitForRateLimit() {
	p.lastRequestMutex.Lock()
	defer p.lastRequestMutex.Unlock()

	elapsed := time.Since(p.lastRequest)
	if elapsed < rateLimitInterval {
		time.Sleep(rateLimitInterval - elapsed)
	}

	p.lastRequest = time.Now()
}

// doRequestWithRetry executes a request with exponential backoff,
// retrying server errors and network failures.
func (p *ProviderImpl) doRequestWithRetry(request *http.Request) (*http.Response, error) {
	var lastErr error

	delay := initialRetryDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-request.Context().Done():
				return nil, request.Context().Err()
			case <-time.After(delay):
			}

			delay = min(delay*2, maxRetryDelay)

			p.waitForRateLimit()
		}

		response, err := p.httpClient.Do(request)
		if err != nil {
			lastErr = err

			continue
		}

		// Successes and client errors are final.
		if response.StatusCode < http.StatusInternalServerError {
			return response, nil
		}

		lastErr = fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)

		response.Body.Close() //nolint:errcheck // Error on close is not critical here.
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
}
