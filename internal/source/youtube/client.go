package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okorolenko/trackseek/internal/config"
	http_transport "github.com/okorolenko/trackseek/internal/transport/http"
	"github.com/okorolenko/trackseek/internal/utils"
)

// Client defines the interface for the YouTube Innertube API.
type Client interface {
	// SearchVideos runs a video search and returns the parsed results.
	SearchVideos(ctx context.Context, query string) ([]*Video, error)
	// ResolveAudioStream picks the best audio-only stream for a video.
	ResolveAudioStream(ctx context.Context, videoID string) (*AudioStream, error)
	// FetchStream opens the given stream URL for reading.
	FetchStream(ctx context.Context, streamURL string) (*FetchStreamResult, error)
	// CheckAvailability probes the endpoint with a cheap request.
	CheckAvailability(ctx context.Context) error
}

// ClientImpl implements the Client interface against the public Innertube API.
type ClientImpl struct {
	// cfg contains the application configuration.
	cfg *config.Config
	// baseURL is the base URL for API requests.
	baseURL string
	// httpClient is the HTTP client used for making requests.
	httpClient *http.Client
}

const (
	// defaultBaseURL is the YouTube origin all Innertube endpoints live under.
	defaultBaseURL = "https://www.youtube.com"

	// searchURI is the Innertube search endpoint.
	searchURI = "youtubei/v1/search"
	// playerURI is the Innertube player endpoint.
	playerURI = "youtubei/v1/player"
	// probeURI is a no-content endpoint used as a reachability probe.
	probeURI = "generate_204"

	// webClientName and webClientVersion identify the web client,
	// whose search responses are the easiest to parse.
	webClientName    = "WEB"
	webClientVersion = "2.20240726.00.00"

	// androidClientName and friends identify the Android client,
	// whose player responses carry plain stream URLs.
	androidClientName    = "ANDROID"
	androidClientVersion = "19.09.37"
	androidSDKVersion    = 30
	androidUserAgent     = "com.google.android.youtube/" + androidClientVersion + " (Linux; U; Android 11) gzip"

	// videosOnlyFilter restricts search results to plain videos,
	// dropping channels, playlists and live streams.
	videosOnlyFilter = "EgIQAQ=="

	// requestLocale pins responses to a stable language and region.
	requestLocaleHL = "en"
	requestLocaleGL = "US"

	// maxSearchResults caps how many parsed results one search returns.
	maxSearchResults = 20

	// maxErrorBodyLength limits how much of an error response body is
	// read back into error messages.
	maxErrorBodyLength = 512

	// topicChannelSuffix marks auto-generated artist channels.
	topicChannelSuffix = " - Topic"

	// Unit conversions.
	millisecondsPerSecond = 1000
	secondsPerMinute      = 60
	bitsPerKilobit        = 1000
)

// Static errors for the YouTube client.
var (
	// ErrUnexpectedHTTPStatus indicates the API responded with an unexpected HTTP status code.
	ErrUnexpectedHTTPStatus = errors.New("unexpected HTTP status code")
	// ErrVideoNotPlayable indicates the player refused to serve streams for the video.
	ErrVideoNotPlayable = errors.New("video is not playable")
	// ErrNoAudioStream indicates the video has no usable audio-only stream.
	ErrNoAudioStream = errors.New("no audio stream available")
)

// NewClient creates a new YouTube API client with the provided configuration.
func NewClient(cfg *config.Config) Client {
	httpClient := &http.Client{
		Transport: http_transport.NewUserAgentInjector(
			http_transport.NewLogTransport(http.DefaultTransport, 0),
			utils.NewSimpleUserAgentProvider(http_transport.DefaultUserAgent)),
		Timeout: http_transport.DefaultTimeout,
	}

	return &ClientImpl{
		cfg:        cfg,
		baseURL:    defaultBaseURL,
		httpClient: httpClient,
	}
}

// SearchVideos runs a video search and returns the parsed results.
// Entries without an identifier or a duration, such as live streams, are skipped.
func (c *ClientImpl) SearchVideos(ctx context.Context, query string) ([]*Video, error) {
	payload := &searchRequest{
		Context: webContext(),
		Query:   query,
		Params:  videosOnlyFilter,
	}

	var response searchResponse
	if err := c.postJSON(ctx, searchURI, "", payload, &response); err != nil {
		return nil, err
	}

	sections := response.Contents.TwoColumnSearchResultsRenderer.PrimaryContents.SectionListRenderer.Contents

	videos := make([]*Video, 0, maxSearchResults)
	for _, section := range sections {
		for _, item := range section.ItemSectionRenderer.Contents {
			renderer := item.VideoRenderer
			if renderer == nil || renderer.VideoID == "" {
				continue
			}

			durationMS := parseClockDuration(renderer.LengthText.SimpleText)
			if durationMS == 0 {
				continue
			}

			videos = append(videos, &Video{
				ID:              renderer.VideoID,
				Title:           renderer.Title.String(),
				Channel:         renderer.OwnerText.String(),
				DurationMS:      durationMS,
				OfficialChannel: isOfficialChannel(renderer),
			})

			if len(videos) >= maxSearchResults {
				return videos, nil
			}
		}
	}

	return videos, nil
}

// ResolveAudioStream picks the best audio-only stream for a video.
// The player is queried as the Android client, which returns direct URLs.
func (c *ClientImpl) ResolveAudioStream(ctx context.Context, videoID string) (*AudioStream, error) {
	payload := &playerRequest{
		Context: androidContext(),
		VideoID: videoID,
	}

	var response playerResponse
	if err := c.postJSON(ctx, playerURI, androidUserAgent, payload, &response); err != nil {
		return nil, err
	}

	if response.PlayabilityStatus.Status != "OK" {
		return nil, fmt.Errorf("%w: %s: %s",
			ErrVideoNotPlayable,
			response.PlayabilityStatus.Status,
			response.PlayabilityStatus.Reason)
	}

	chosen := pickBestAudioFormat(response.StreamingData.AdaptiveFormats)
	if chosen == nil {
		return nil, fmt.Errorf("%w: video '%s'", ErrNoAudioStream, videoID)
	}

	durationMS, _ := strconv.ParseInt(chosen.ApproxDurationMS, 10, 64)
	if durationMS == 0 {
		// Fall back to the whole-second video length.
		lengthSeconds, _ := strconv.ParseInt(response.VideoDetails.LengthSeconds, 10, 64)
		durationMS = lengthSeconds * millisecondsPerSecond
	}

	sizeBytes, _ := strconv.ParseInt(chosen.ContentLength, 10, 64)

	return &AudioStream{
		URL:         chosen.URL,
		MimeType:    chosen.MimeType,
		Container:   containerFromMimeType(chosen.MimeType),
		BitrateKbps: chosen.effectiveBitrate() / bitsPerKilobit,
		SizeBytes:   sizeBytes,
		DurationMS:  durationMS,
		Itag:        chosen.Itag,
	}, nil
}

// FetchStream opens the given stream URL for reading.
func (c *ClientImpl) FetchStream(ctx context.Context, streamURL string) (*FetchStreamResult, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	// Add a Range header to request partial content.
	request.Header.Add("Range", "bytes=0-")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusPartialContent {
		response.Body.Close() //nolint:gosec // Error on close is not critical here.

		return nil, fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)
	}

	return &FetchStreamResult{
		Body:       response.Body,
		TotalBytes: response.ContentLength,
	}, nil
}

// CheckAvailability probes the endpoint with a cheap request.
func (c *ClientImpl) CheckAvailability(ctx context.Context) error {
	requestURL, err := url.JoinPath(c.baseURL, probeURI)
	if err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return err
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)
	}

	return nil
}

// postJSON sends a JSON payload to an Innertube endpoint and decodes the response.
// A non-empty userAgent overrides the one the transport would inject.
func (c *ClientImpl) postJSON(ctx context.Context, uri, userAgent string, payload, result any) error {
	requestURL, err := url.JoinPath(c.baseURL, uri)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	if userAgent != "" {
		request.Header.Set("User-Agent", userAgent)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyLength))

		return fmt.Errorf("%w: %d: %s", ErrUnexpectedHTTPStatus, response.StatusCode, string(snippet))
	}

	return json.NewDecoder(response.Body).Decode(result)
}

// webContext builds the Innertube context for the web client.
func webContext() innertubeContext {
	return innertubeContext{
		Client: innertubeClient{
			ClientName:    webClientName,
			ClientVersion: webClientVersion,
			HL:            requestLocaleHL,
			GL:            requestLocaleGL,
		},
	}
}

// androidContext builds the Innertube context for the Android client.
func androidContext() innertubeContext {
	return innertubeContext{
		Client: innertubeClient{
			ClientName:        androidClientName,
			ClientVersion:     androidClientVersion,
			HL:                requestLocaleHL,
			GL:                requestLocaleGL,
			AndroidSDKVersion: androidSDKVersion,
		},
	}
}

// pickBestAudioFormat returns the audio-only format with the highest bitrate,
// or nil when the list has none. Formats without a direct URL are skipped.
func pickBestAudioFormat(formats []format) *format {
	var best *format

	for index := range formats {
		candidate := &formats[index]
		if !candidate.isAudioOnly() || candidate.URL == "" {
			continue
		}

		if best == nil || candidate.effectiveBitrate() > best.effectiveBitrate() {
			best = candidate
		}
	}

	return best
}

// isOfficialChannel reports whether a search result's channel looks official:
// it carries a verified badge or is an auto-generated topic channel.
func isOfficialChannel(renderer *videoRenderer) bool {
	if strings.HasSuffix(renderer.OwnerText.String(), topicChannelSuffix) {
		return true
	}

	for _, badge := range renderer.OwnerBadges {
		if strings.Contains(badge.MetadataBadgeRenderer.Style, "VERIFIED") {
			return true
		}
	}

	return false
}

// parseClockDuration converts a clock-style duration such as "3:55" or
// "1:02:03" into milliseconds. Unparseable input yields zero.
func parseClockDuration(text string) int64 {
	if text == "" {
		return 0
	}

	var totalSeconds int64

	for _, part := range strings.Split(text, ":") {
		value, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || value < 0 {
			return 0
		}

		totalSeconds = totalSeconds*secondsPerMinute + value
	}

	return totalSeconds * millisecondsPerSecond
}
