// Package lyrics fetches song lyrics from the lrclib.net API
// for embedding into downloaded tracks.
package lyrics

//go:generate $MOCKGEN -source=fetcher.go -destination=mocks/fetcher_mock.go

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okorolenko/trackseek/internal/metadata"
	http_transport "github.com/okorolenko/trackseek/internal/transport/http"
	"github.com/okorolenko/trackseek/internal/utils"
)

const (
	// defaultBaseURL is the lrclib.net API root.
	defaultBaseURL = "https://lrclib.net/api"
	// getURI is the exact-match lookup endpoint.
	getURI = "get"
	// searchURI is the free-text search endpoint.
	searchURI = "search"

	// millisecondsPerSecond converts track durations to the API's seconds.
	millisecondsPerSecond = 1000
)

// Static error definitions for better error handling.
var (
	// ErrNotFound indicates that no lyrics exist for the track.
	ErrNotFound = errors.New("lyrics not found")
	// ErrUnexpectedHTTPStatus indicates a non-success response from the API.
	ErrUnexpectedHTTPStatus = errors.New("unexpected HTTP status")
)

// Lyrics is the lyrics payload for one track.
type Lyrics struct {
	// Plain is the unsynchronised lyrics text.
	Plain string
	// Synced is the LRC-timestamped lyrics text, empty when unavailable.
	Synced string
	// Instrumental reports whether the track is known to have no lyrics.
	Instrumental bool
}

// HasSynced reports whether timestamped lyrics are available.
func (l *Lyrics) HasSynced() bool {
	return strings.TrimSpace(l.Synced) != ""
}

// lyricsResponse is one lyrics record as returned by the API.
type lyricsResponse struct {
	// ID is the record identifier.
	ID int64 `json:"id"`
	// TrackName is the track title the lyrics belong to.
	TrackName string `json:"trackName"`
	// ArtistName is the performing artist.
	ArtistName string `json:"artistName"`
	// Instrumental marks tracks without lyrics.
	Instrumental bool `json:"instrumental"`
	// PlainLyrics is the unsynchronised lyrics text.
	PlainLyrics string `json:"plainLyrics"`
	// SyncedLyrics is the LRC-timestamped lyrics text.
	SyncedLyrics string `json:"syncedLyrics"`
}

// Fetcher retrieves lyrics for wanted tracks.
type Fetcher interface {
	// FetchLyrics returns the lyrics closest to the wanted track,
	// trying an exact lookup first and a free-text search second.
	FetchLyrics(ctx context.Context, track *metadata.WantedTrack) (*Lyrics, error)
}

// FetcherImpl implements the Fetcher interface against lrclib.net.
type FetcherImpl struct {
	// baseURL is the API root requests are built against.
	baseURL string
	// httpClient executes the API requests.
	httpClient *http.Client
}

// NewFetcher creates a new lyrics Fetcher.
func NewFetcher() Fetcher {
	// Initialize the HTTP client with custom transport and timeout.
	httpClient := &http.Client{
		Transport: http_transport.NewUserAgentInjector(
			http_transport.NewLogTransport(http.DefaultTransport, 0),
			utils.NewSimpleUserAgentProvider(http_transport.DefaultUserAgent)),
		Timeout: http_transport.DefaultTimeout,
	}

	return &FetcherImpl{
		baseURL:    defaultBaseURL,
		httpClient: httpClient,
	}
}

// FetchLyrics returns the lyrics closest to the wanted track.
func (f *FetcherImpl) FetchLyrics(ctx context.Context, track *metadata.WantedTrack) (*Lyrics, error) {
	result, err := f.getExact(ctx, track)
	if err == nil {
		return convertLyrics(result), nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// No exact record, fall back to a free-text search.
	result, err = f.searchClosest(ctx, track)
	if err != nil {
		return nil, err
	}

	return convertLyrics(result), nil
}

// getExact queries the exact-match endpoint with every known track field.
func (f *FetcherImpl) getExact(ctx context.Context, track *metadata.WantedTrack) (*lyricsResponse, error) {
	params := url.Values{}
	params.Set("artist_name", track.Artist)
	params.Set("track_name", track.Title)

	if track.Album != "" {
		params.Set("album_name", track.Album)
	}

	if track.DurationMS > 0 {
		params.Set("duration", strconv.FormatInt(track.DurationMS/millisecondsPerSecond, 10))
	}

	var result lyricsResponse
	if err := f.getJSON(ctx, getURI, params, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// searchClosest queries the search endpoint and takes the first hit.
func (f *FetcherImpl) searchClosest(ctx context.Context, track *metadata.WantedTrack) (*lyricsResponse, error) {
	params := url.Values{}
	params.Set("q", strings.TrimSpace(track.Artist+" "+track.Title))

	var results []lyricsResponse
	if err := f.getJSON(ctx, searchURI, params, &results); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: '%s - %s'", ErrNotFound, track.Artist, track.Title)
	}

	return &results[0], nil
}

// getJSON executes one GET request and decodes the JSON response.
func (f *FetcherImpl) getJSON(ctx context.Context, uri string, params url.Values, result any) error {
	requestURL := fmt.Sprintf("%s/%s?%s", f.baseURL, uri, params.Encode())

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	response, err := f.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}

	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrUnexpectedHTTPStatus, response.Status)
	}

	if err = json.NewDecoder(response.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// convertLyrics maps an API record to the lyrics payload.
func convertLyrics(response *lyricsResponse) *Lyrics {
	return &Lyrics{
		Plain:        response.PlainLyrics,
		Synced:       response.SyncedLyrics,
		Instrumental: response.Instrumental,
	}
}
