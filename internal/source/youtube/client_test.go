package youtube

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okorolenko/trackseek/internal/config"
)

const (
	testStreamContent = "not really audio, but close enough"

	unplayableVideoID = "unplayable01"
	videoOnlyVideoID  = "videoonly012"
)

// newTestClient builds a ClientImpl pointed at the test server.
func newTestClient(server *httptest.Server) *ClientImpl {
	return &ClientImpl{
		cfg:        &config.Config{},
		baseURL:    server.URL,
		httpClient: server.Client(),
	}
}

// newTestServer starts a test server impersonating the Innertube API.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/youtubei/v1/search":
			handleSearch(t, w, r)
		case "/youtubei/v1/player":
			handlePlayer(t, w, r)
		case "/stream":
			w.Write([]byte(testStreamContent)) //nolint:errcheck // Test server.
		case "/generate_204":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	t.Cleanup(server.Close)

	return server
}

func handleSearch(t *testing.T, w http.ResponseWriter, r *http.Request) {
	t.Helper()

	require.Equal(t, http.MethodPost, r.Method)

	var payload searchRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	assert.Equal(t, webClientName, payload.Context.Client.ClientName)
	assert.Equal(t, videosOnlyFilter, payload.Params)
	require.NotEmpty(t, payload.Query)

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(searchResponseFixture)) //nolint:errcheck // Test server.
}

func handlePlayer(t *testing.T, w http.ResponseWriter, r *http.Request) {
	t.Helper()

	require.Equal(t, http.MethodPost, r.Method)
	assert.Equal(t, androidUserAgent, r.Header.Get("User-Agent"))

	var payload playerRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	assert.Equal(t, androidClientName, payload.Context.Client.ClientName)

	w.Header().Set("Content-Type", "application/json")

	switch payload.VideoID {
	case unplayableVideoID:
		w.Write([]byte(unplayableResponseFixture)) //nolint:errcheck // Test server.
	case videoOnlyVideoID:
		w.Write([]byte(videoOnlyResponseFixture)) //nolint:errcheck // Test server.
	default:
		w.Write([]byte(playerResponseFixture)) //nolint:errcheck // Test server.
	}
}

// searchResponseFixture holds a topic channel video, a verified channel
// video, an ad slot and a live stream without a duration.
const searchResponseFixture = `{
	"contents": {
		"twoColumnSearchResultsRenderer": {
			"primaryContents": {
				"sectionListRenderer": {
					"contents": [
						{
							"itemSectionRenderer": {
								"contents": [
									{"adSlotRenderer": {}},
									{
										"videoRenderer": {
											"videoId": "dQw4w9WgXcQ",
											"title": {"runs": [{"text": "Never Gonna Give You Up"}]},
											"ownerText": {"runs": [{"text": "Rick Astley - Topic"}]},
											"lengthText": {"simpleText": "3:33"}
										}
									},
									{
										"videoRenderer": {
											"videoId": "fJ9rUzIMcZQ",
											"title": {"runs": [{"text": "Queen - Bohemian Rhapsody (Official Video)"}]},
											"ownerText": {"runs": [{"text": "Queen Official"}]},
											"lengthText": {"simpleText": "5:59"},
											"ownerBadges": [
												{"metadataBadgeRenderer": {"style": "BADGE_STYLE_TYPE_VERIFIED_ARTIST"}}
											]
										}
									},
									{
										"videoRenderer": {
											"videoId": "liveliveliv",
											"title": {"runs": [{"text": "Lo-Fi Radio 24/7"}]},
											"ownerText": {"runs": [{"text": "Some Radio"}]}
										}
									}
								]
							}
						}
					]
				}
			}
		}
	}
}`

// playerResponseFixture offers one video-only and two audio-only formats.
const playerResponseFixture = `{
	"playabilityStatus": {"status": "OK"},
	"videoDetails": {
		"videoId": "dQw4w9WgXcQ",
		"title": "Never Gonna Give You Up",
		"author": "Rick Astley",
		"lengthSeconds": "213"
	},
	"streamingData": {
		"expiresInSeconds": "21540",
		"adaptiveFormats": [
			{
				"itag": 137,
				"url": "https://media.example.com/video",
				"mimeType": "video/mp4; codecs=\"avc1.640028\"",
				"bitrate": 4400000,
				"contentLength": "120000000"
			},
			{
				"itag": 140,
				"url": "https://media.example.com/m4a",
				"mimeType": "audio/mp4; codecs=\"mp4a.40.2\"",
				"bitrate": 130000,
				"averageBitrate": 128000,
				"contentLength": "3403520",
				"audioQuality": "AUDIO_QUALITY_MEDIUM",
				"approxDurationMs": "213000"
			},
			{
				"itag": 251,
				"url": "https://media.example.com/opus",
				"mimeType": "audio/webm; codecs=\"opus\"",
				"bitrate": 165000,
				"averageBitrate": 160000,
				"contentLength": "4254720",
				"audioQuality": "AUDIO_QUALITY_MEDIUM",
				"approxDurationMs": "213000"
			}
		]
	}
}`

const unplayableResponseFixture = `{
	"playabilityStatus": {"status": "LOGIN_REQUIRED", "reason": "Sign in to confirm your age"}
}`

const videoOnlyResponseFixture = `{
	"playabilityStatus": {"status": "OK"},
	"streamingData": {
		"adaptiveFormats": [
			{
				"itag": 137,
				"url": "https://media.example.com/video",
				"mimeType": "video/mp4; codecs=\"avc1.640028\"",
				"bitrate": 4400000
			}
		]
	}
}`

// TestNewClient tests the client constructor.
func TestNewClient(t *testing.T) {
	t.Parallel()

	client := NewClient(&config.Config{})
	require.NotNil(t, client)

	impl, ok := client.(*ClientImpl)
	require.True(t, ok)
	assert.Equal(t, defaultBaseURL, impl.baseURL)
	assert.NotNil(t, impl.httpClient)
}

// TestClient_SearchVideos tests search result parsing.
func TestClient_SearchVideos(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := newTestClient(server)

	videos, err := client.SearchVideos(context.Background(), "never gonna give you up")
	require.NoError(t, err)
	require.Len(t, videos, 2)

	topic := videos[0]
	assert.Equal(t, "dQw4w9WgXcQ", topic.ID)
	assert.Equal(t, "Never Gonna Give You Up", topic.Title)
	assert.Equal(t, "Rick Astley - Topic", topic.Channel)
	assert.Equal(t, int64(213000), topic.DurationMS)
	assert.True(t, topic.OfficialChannel)

	verified := videos[1]
	assert.Equal(t, "fJ9rUzIMcZQ", verified.ID)
	assert.Equal(t, "Queen - Bohemian Rhapsody (Official Video)", verified.Title)
	assert.Equal(t, "Queen Official", verified.Channel)
	assert.Equal(t, int64(359000), verified.DurationMS)
	assert.True(t, verified.OfficialChannel)
}

// TestClient_SearchVideos_HTTPError tests the unexpected status path.
func TestClient_SearchVideos_HTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream sad", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := newTestClient(server)

	_, err := client.SearchVideos(context.Background(), "anything")
	require.ErrorIs(t, err, ErrUnexpectedHTTPStatus)
}

// TestClient_ResolveAudioStream tests stream selection.
func TestClient_ResolveAudioStream(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := newTestClient(server)

	stream, err := client.ResolveAudioStream(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)

	// The opus stream wins on average bitrate.
	assert.Equal(t, 251, stream.Itag)
	assert.Equal(t, "https://media.example.com/opus", stream.URL)
	assert.Equal(t, "opus", stream.Container)
	assert.Equal(t, 160, stream.BitrateKbps)
	assert.Equal(t, int64(4254720), stream.SizeBytes)
	assert.Equal(t, int64(213000), stream.DurationMS)
}

// TestClient_ResolveAudioStream_NotPlayable tests the refusal path.
func TestClient_ResolveAudioStream_NotPlayable(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := newTestClient(server)

	_, err := client.ResolveAudioStream(context.Background(), unplayableVideoID)
	require.ErrorIs(t, err, ErrVideoNotPlayable)
	assert.Contains(t, err.Error(), "LOGIN_REQUIRED")
}

// TestClient_ResolveAudioStream_NoAudioStream tests a video without audio formats.
func TestClient_ResolveAudioStream_NoAudioStream(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := newTestClient(server)

	_, err := client.ResolveAudioStream(context.Background(), videoOnlyVideoID)
	require.ErrorIs(t, err, ErrNoAudioStream)
}

// TestClient_FetchStream tests opening a stream URL.
func TestClient_FetchStream(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := newTestClient(server)

	result, err := client.FetchStream(context.Background(), server.URL+"/stream")
	require.NoError(t, err)

	defer result.Body.Close()

	content, err := io.ReadAll(result.Body)
	require.NoError(t, err)
	assert.Equal(t, testStreamContent, string(content))
	assert.Equal(t, int64(len(testStreamContent)), result.TotalBytes)
}

// TestClient_FetchStream_HTTPError tests the unexpected status path.
func TestClient_FetchStream_HTTPError(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := newTestClient(server)

	_, err := client.FetchStream(context.Background(), server.URL+"/missing")
	require.ErrorIs(t, err, ErrUnexpectedHTTPStatus)
}

// TestClient_CheckAvailability tests the reachability probe.
func TestClient_CheckAvailability(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := newTestClient(server)

	require.NoError(t, client.CheckAvailability(context.Background()))
}

// TestClient_CheckAvailability_Unavailable tests the probe against a broken endpoint.
func TestClient_CheckAvailability_Unavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client := newTestClient(server)

	err := client.CheckAvailability(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedHTTPStatus)
}

// TestPickBestAudioFormat tests audio format selection.
func TestPickBestAudioFormat(t *testing.T) {
	t.Parallel()

	t.Run("empty list", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, pickBestAudioFormat(nil))
	})

	t.Run("video only", func(t *testing.T) {
		t.Parallel()

		formats := []format{
			{MimeType: "video/mp4", URL: "https://example.com/v", Bitrate: 4000000},
		}
		assert.Nil(t, pickBestAudioFormat(formats))
	})

	t.Run("highest bitrate wins", func(t *testing.T) {
		t.Parallel()

		formats := []format{
			{Itag: 140, MimeType: "audio/mp4", URL: "https://example.com/a", AverageBitrate: 128000},
			{Itag: 251, MimeType: "audio/webm", URL: "https://example.com/b", AverageBitrate: 160000},
			{Itag: 139, MimeType: "audio/mp4", URL: "https://example.com/c", AverageBitrate: 48000},
		}

		best := pickBestAudioFormat(formats)
		require.NotNil(t, best)
		assert.Equal(t, 251, best.Itag)
	})

	t.Run("formats without a URL are skipped", func(t *testing.T) {
		t.Parallel()

		formats := []format{
			{Itag: 251, MimeType: "audio/webm", AverageBitrate: 160000},
			{Itag: 140, MimeType: "audio/mp4", URL: "https://example.com/a", AverageBitrate: 128000},
		}

		best := pickBestAudioFormat(formats)
		require.NotNil(t, best)
		assert.Equal(t, 140, best.Itag)
	})
}

// TestParseClockDuration tests clock-style duration parsing.
func TestParseClockDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected int64
	}{
		{name: "minutes and seconds", input: "3:55", expected: 235000},
		{name: "hours", input: "1:02:03", expected: 3723000},
		{name: "seconds only", input: "45", expected: 45000},
		{name: "empty", input: "", expected: 0},
		{name: "garbage", input: "LIVE", expected: 0},
		{name: "negative part", input: "-1:30", expected: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, parseClockDuration(tc.input))
		})
	}
}

// TestIsOfficialChannel tests the official channel heuristic.
func TestIsOfficialChannel(t *testing.T) {
	t.Parallel()

	topic := &videoRenderer{
		OwnerText: runsText{Runs: []textRun{{Text: "Daft Punk - Topic"}}},
	}
	assert.True(t, isOfficialChannel(topic))

	verified := &videoRenderer{
		OwnerText:   runsText{Runs: []textRun{{Text: "Daft Punk"}}},
		OwnerBadges: []ownerBadge{{}},
	}
	verified.OwnerBadges[0].MetadataBadgeRenderer.Style = "BADGE_STYLE_TYPE_VERIFIED"
	assert.True(t, isOfficialChannel(verified))

	plain := &videoRenderer{
		OwnerText: runsText{Runs: []textRun{{Text: "random uploads 42"}}},
	}
	assert.False(t, isOfficialChannel(plain))
}
