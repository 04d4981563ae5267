package spotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/machinebox/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okorolenko/trackseek/internal/config"
	"github.com/okorolenko/trackseek/internal/metadata"
)

const (
	// testToken is the access token expected by the test server.
	testToken = "test-access-token"
	// missingTrackID triggers the not-found response in the test server.
	missingTrackID = "0000000000000000000000"
	// emptySearchTerm triggers an empty search response in the test server.
	emptySearchTerm = "nothing matches this"
)

// trackResponseFixture is a track lookup response.
const trackResponseFixture = `{
	"data": {
		"trackUnion": {
			"__typename": "Track",
			"id": "4uLU6hMCjMI75M1A2tKUQC",
			"uri": "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
			"name": "Never Gonna Give You Up",
			"trackNumber": 1,
			"discNumber": 1,
			"duration": {"totalMilliseconds": 213573},
			"artists": {"items": [{"profile": {"name": "Rick Astley"}}]},
			"albumOfTrack": {
				"id": "6XhjNHCyCDyyGJRM5mg40G",
				"name": "Whenever You Need Somebody",
				"date": {"isoString": "1987-11-16T00:00:00Z"},
				"tracks": {"totalCount": 10},
				"coverArt": {"sources": [
					{"url": "https://images.example.com/cover-small", "width": 64, "height": 64},
					{"url": "https://images.example.com/cover-large", "width": 640, "height": 640}
				]},
				"artists": {"items": [{"profile": {"name": "Rick Astley"}}]}
			}
		}
	}
}`

// notFoundResponseFixture is the response for a missing catalog item.
const notFoundResponseFixture = `{
	"data": {
		"trackUnion": {"__typename": "NotFound"}
	}
}`

// albumResponseFixture is an album lookup response with two tracks.
const albumResponseFixture = `{
	"data": {
		"albumUnion": {
			"__typename": "Album",
			"id": "1ATL5GLyefJaxhQzSPVrLX",
			"name": "Hybrid Theory",
			"date": {"isoString": "2000-10-24T00:00:00Z"},
			"artists": {"items": [{"profile": {"name": "Linkin Park"}}]},
			"coverArt": {"sources": [{"url": "https://images.example.com/album-cover", "width": 640, "height": 640}]},
			"tracksV2": {
				"totalCount": 2,
				"items": [
					{"track": {
						"uri": "spotify:track:2nLtzopw4rPReszdYBJU6h",
						"name": "Papercut",
						"trackNumber": 1,
						"discNumber": 1,
						"duration": {"totalMilliseconds": 184960},
						"artists": {"items": [{"profile": {"name": "Linkin Park"}}]}
					}},
					{"track": {
						"uri": "spotify:track:5gfWwgFYopNSSen1jujtMQ",
						"name": "One Step Closer",
						"trackNumber": 2,
						"discNumber": 1,
						"duration": {"totalMilliseconds": 157333},
						"artists": {"items": [{"profile": {"name": "Linkin Park"}}]}
					}}
				]
			}
		}
	}
}`

// playlistResponseFixture is a playlist page with two tracks and one episode.
const playlistResponseFixture = `{
	"data": {
		"playlistV2": {
			"__typename": "Playlist",
			"name": "Workout Mix",
			"ownerV2": {"data": {"__typename": "User", "name": "Test User"}},
			"content": {
				"totalCount": 3,
				"items": [
					{"itemV2": {"data": {
						"__typename": "Track",
						"uri": "spotify:track:2KH16WveTQWT6KOG9Rg6e2",
						"name": "Eye of the Tiger",
						"trackNumber": 1,
						"discNumber": 1,
						"duration": {"totalMilliseconds": 245640},
						"artists": {"items": [{"profile": {"name": "Survivor"}}]},
						"albumOfTrack": {
							"id": "4H0YCTpdsCUYpjHyvcscby",
							"name": "Eye of the Tiger",
							"date": {"isoString": "1982-05-31T00:00:00Z"},
							"coverArt": {"sources": [{"url": "https://images.example.com/tiger", "width": 300, "height": 300}]},
							"artists": {"items": [{"profile": {"name": "Survivor"}}]}
						}
					}}},
					{"itemV2": {"data": {
						"__typename": "Episode",
						"uri": "spotify:episode:512ojhOuo1ktJprKbVcKyQ",
						"name": "Some Podcast Episode"
					}}},
					{"itemV2": {"data": {
						"__typename": "Track",
						"uri": "spotify:track:57bgtoPSgt236HzfBOd8kj",
						"name": "Thunderstruck",
						"trackNumber": 1,
						"discNumber": 1,
						"duration": {"totalMilliseconds": 292880},
						"artists": {"items": [{"profile": {"name": "AC/DC"}}]}
					}}}
				]
			}
		}
	}
}`

// searchResponseFixture is a search response with a single hit.
const searchResponseFixture = `{
	"data": {
		"searchV2": {
			"tracksV2": {
				"totalCount": 1,
				"items": [
					{"item": {"data": {
						"__typename": "Track",
						"uri": "spotify:track:5W3cjX2J3tjhG8zb6u0qHn",
						"name": "Harder, Better, Faster, Stronger",
						"duration": {"totalMilliseconds": 224693},
						"artists": {"items": [{"profile": {"name": "Daft Punk"}}]},
						"albumOfTrack": {
							"id": "2noRn2Aes5aoNVsU6iWThc",
							"name": "Discovery",
							"date": {"isoString": "2001-03-12T00:00:00Z"},
							"coverArt": {"sources": [{"url": "https://images.example.com/discovery", "width": 640, "height": 640}]},
							"artists": {"items": [{"profile": {"name": "Daft Punk"}}]}
						}
					}}}
				]
			}
		}
	}
}`

// emptySearchResponseFixture is a search response with no hits.
const emptySearchResponseFixture = `{
	"data": {
		"searchV2": {
			"tracksV2": {"totalCount": 0, "items": []}
		}
	}
}`

// newTestServer creates a test server that mimics the GraphQL endpoint.
func newTestServer(t *testing.T, requestCount *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/"+pathfinderURI, func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)

		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)

			return
		}

		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}

		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.Contains(body.Query, "trackUnion"):
			if uri, _ := body.Variables["uri"].(string); uri == trackURIPrefix+missingTrackID {
				w.Write([]byte(notFoundResponseFixture)) //nolint:errcheck // Test mock handler, error is not critical.

				return
			}

			w.Write([]byte(trackResponseFixture)) //nolint:errcheck // Test mock handler, error is not critical.
		case strings.Contains(body.Query, "albumUnion"):
			w.Write([]byte(albumResponseFixture)) //nolint:errcheck // Test mock handler, error is not critical.
		case strings.Contains(body.Query, "playlistV2"):
			w.Write([]byte(playlistResponseFixture)) //nolint:errcheck // Test mock handler, error is not critical.
		case strings.Contains(body.Query, "searchV2"):
			if searchTerm, _ := body.Variables["searchTerm"].(string); searchTerm == emptySearchTerm {
				w.Write([]byte(emptySearchResponseFixture)) //nolint:errcheck // Test mock handler, error is not critical.

				return
			}

			w.Write([]byte(searchResponseFixture)) //nolint:errcheck // Test mock handler, error is not critical.
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	return httptest.NewServer(mux)
}

// newTestProvider creates a ProviderImpl wired to the test server.
func newTestProvider(t *testing.T, server *httptest.Server) *ProviderImpl {
	t.Helper()

	tracksCache, err := lru.New[string, *metadata.WantedTrack](tracksCacheSize)
	require.NoError(t, err)

	albumsCache, err := lru.New[string, *metadata.Album](albumsCacheSize)
	require.NoError(t, err)

	playlistsCache, err := lru.New[string, *metadata.Playlist](playlistsCacheSize)
	require.NoError(t, err)

	return &ProviderImpl{
		cfg:            &config.Config{SpotifyToken: testToken},
		baseURL:        server.URL,
		httpClient:     server.Client(),
		graphQLClient:  graphql.NewClient(server.URL+"/"+pathfinderURI, graphql.WithHTTPClient(server.Client())),
		tracksCache:    tracksCache,
		albumsCache:    albumsCache,
		playlistsCache: playlistsCache,
	}
}

// TestNewProvider tests the NewProvider function.
func TestNewProvider(t *testing.T) {
	t.Parallel()

	provider, err := NewProvider(&config.Config{SpotifyToken: testToken})
	require.NoError(t, err)
	assert.NotNil(t, provider)
	assert.Implements(t, (*metadata.Provider)(nil), provider)
}

// TestProviderImpl_Name tests the Name method.
func TestProviderImpl_Name(t *testing.T) {
	t.Parallel()

	provider := &ProviderImpl{cfg: &config.Config{}}
	assert.Equal(t, "spotify", provider.Name())
}

// TestProviderImpl_IsConfigured tests token presence detection.
func TestProviderImpl_IsConfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		token    string
		expected bool
	}{
		{name: "token present", token: testToken, expected: true},
		{name: "empty token", token: "", expected: false},
		{name: "whitespace token", token: "   ", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider := &ProviderImpl{cfg: &config.Config{SpotifyToken: tt.token}}
			assert.Equal(t, tt.expected, provider.IsConfigured())
		})
	}
}

// TestProviderImpl_GetTrack tests track retrieval and field mapping.
func TestProviderImpl_GetTrack(t *testing.T) {
	t.Parallel()

	var requestCount atomic.Int32

	server := newTestServer(t, &requestCount)
	defer server.Close()

	provider := newTestProvider(t, server)

	track, err := provider.GetTrack(context.Background(), "4uLU6hMCjMI75M1A2tKUQC")
	require.NoError(t, err)

	assert.Equal(t, "4uLU6hMCjMI75M1A2tKUQC", track.ID)
	assert.Equal(t, "spotify", track.Provider)
	assert.Equal(t, "Never Gonna Give You Up", track.Title)
	assert.Equal(t, "Rick Astley", track.Artist)
	assert.Equal(t, []string{"Rick Astley"}, track.ArtistNames)
	assert.Equal(t, "Whenever You Need Somebody", track.Album)
	assert.Equal(t, "Rick Astley", track.AlbumArtist)
	assert.Equal(t, int64(213573), track.DurationMS)
	assert.Equal(t, 1, track.TrackNumber)
	assert.Equal(t, 1, track.DiscNumber)
	assert.Equal(t, 10, track.TotalTracks)
	assert.Equal(t, "1987-11-16", track.ReleaseDate)
	assert.Equal(t, "https://images.example.com/cover-large", track.CoverURL)
}

// TestProviderImpl_GetTrack_NotFound tests the missing track path.
func TestProviderImpl_GetTrack_NotFound(t *testing.T) {
	t.Parallel()

	var requestCount atomic.Int32

	server := newTestServer(t, &requestCount)
	defer server.Close()

	provider := newTestProvider(t, server)

	_, err := provider.GetTrack(context.Background(), missingTrackID)
	require.ErrorIs(t, err, metadata.ErrNotFound)
}

// TestProviderImpl_GetTrack_CachesResult tests that repeated lookups
// hit the cache instead of the API.
func TestProviderImpl_GetTrack_CachesResult(t *testing.T) {
	t.Parallel()

	var requestCount atomic.Int32

	server := newTestServer(t, &requestCount)
	defer server.Close()

	provider := newTestProvider(t, server)
	ctx := context.Background()

	first, err := provider.GetTrack(ctx, "4uLU6hMCjMI75M1A2tKUQC")
	require.NoError(t, err)

	second, err := provider.GetTrack(ctx, "4uLU6hMCjMI75M1A2tKUQC")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), requestCount.Load())
}

// TestProviderImpl_GetAlbum tests album retrieval with track enrichment.
func TestProviderImpl_GetAlbum(t *testing.T) {
	t.Parallel()

	var requestCount atomic.Int32

	server := newTestServer(t, &requestCount)
	defer server.Close()

	provider := newTestProvider(t, server)

	album, err := provider.GetAlbum(context.Background(), "1ATL5GLyefJaxhQzSPVrLX")
	require.NoError(t, err)

	assert.Equal(t, "1ATL5GLyefJaxhQzSPVrLX", album.ID)
	assert.Equal(t, "Hybrid Theory", album.Title)
	assert.Equal(t, "Linkin Park", album.ArtistName)
	assert.Equal(t, "2000-10-24", album.ReleaseDate)
	assert.Equal(t, 2, album.TotalTracks)
	require.Len(t, album.Tracks, 2)

	first := album.Tracks[0]
	assert.Equal(t, "2nLtzopw4rPReszdYBJU6h", first.ID)
	assert.Equal(t, "Papercut", first.Title)
	assert.Equal(t, "Linkin Park", first.Artist)
	assert.Equal(t, "Hybrid Theory", first.Album)
	assert.Equal(t, "Linkin Park", first.AlbumArtist)
	assert.Equal(t, "2000-10-24", first.ReleaseDate)
	assert.Equal(t, "https://images.example.com/album-cover", first.CoverURL)
	assert.Equal(t, 2, first.TotalTracks)
	assert.Equal(t, 1, first.TrackNumber)

	second := album.Tracks[1]
	assert.Equal(t, "One Step Closer", second.Title)
	assert.Equal(t, 2, second.TrackNumber)
}

// TestProviderImpl_GetPlaylist tests playlist retrieval and episode skipping.
func TestProviderImpl_GetPlaylist(t *testing.T) {
	t.Parallel()

	var requestCount atomic.Int32

	server := newTestServer(t, &requestCount)
	defer server.Close()

	provider := newTestProvider(t, server)

	playlist, err := provider.GetPlaylist(context.Background(), "37i9dQZF1DXcBWIGoYBM5M")
	require.NoError(t, err)

	assert.Equal(t, "37i9dQZF1DXcBWIGoYBM5M", playlist.ID)
	assert.Equal(t, "Workout Mix", playlist.Title)
	assert.Equal(t, "Test User", playlist.OwnerName)
	require.Len(t, playlist.Tracks, 2)

	assert.Equal(t, "Eye of the Tiger", playlist.Tracks[0].Title)
	assert.Equal(t, "Survivor", playlist.Tracks[0].Artist)
	assert.Equal(t, "Eye of the Tiger", playlist.Tracks[0].Album)
	assert.Equal(t, "Thunderstruck", playlist.Tracks[1].Title)
	assert.Equal(t, "AC/DC", playlist.Tracks[1].Artist)
}

// TestProviderImpl_SearchTrack tests free-text search.
func TestProviderImpl_SearchTrack(t *testing.T) {
	t.Parallel()

	var requestCount atomic.Int32

	server := newTestServer(t, &requestCount)
	defer server.Close()

	provider := newTestProvider(t, server)

	track, err := provider.SearchTrack(context.Background(), "daft punk harder better")
	require.NoError(t, err)

	assert.Equal(t, "5W3cjX2J3tjhG8zb6u0qHn", track.ID)
	assert.Equal(t, "Harder, Better, Faster, Stronger", track.Title)
	assert.Equal(t, "Daft Punk", track.Artist)
	assert.Equal(t, "Discovery", track.Album)
	assert.Equal(t, int64(224693), track.DurationMS)
}

// TestProviderImpl_SearchTrack_NoResults tests the empty search path.
func TestProviderImpl_SearchTrack_NoResults(t *testing.T) {
	t.Parallel()

	var requestCount atomic.Int32

	server := newTestServer(t, &requestCount)
	defer server.Close()

	provider := newTestProvider(t, server)

	_, err := provider.SearchTrack(context.Background(), emptySearchTerm)
	require.ErrorIs(t, err, metadata.ErrNotFound)
}
