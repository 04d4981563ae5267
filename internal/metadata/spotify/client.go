package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/machinebox/graphql"

	"github.com/okorolenko/trackseek/internal/config"
	"github.com/okorolenko/trackseek/internal/metadata"
	http_transport "github.com/okorolenko/trackseek/internal/transport/http"
	"github.com/okorolenko/trackseek/internal/utils"
)

// ProviderImpl implements the metadata.Provider interface for the primary catalog.
type ProviderImpl struct {
	// cfg contains the application configuration.
	cfg *config.Config
	// baseURL is the base URL for API requests.
	baseURL string
	// httpClient is the HTTP client for making requests.
	httpClient *http.Client
	// graphQLClient is the GraphQL client for making queries.
	graphQLClient *graphql.Client
	// tracksCache caches track metadata to reduce duplicate API calls for the same tracks.
	tracksCache *lru.Cache[string, *metadata.WantedTrack]
	// albumsCache caches album metadata to reduce duplicate API calls for the same albums.
	albumsCache *lru.Cache[string, *metadata.Album]
	// playlistsCache caches playlist metadata to reduce duplicate API calls for the same playlists.
	playlistsCache *lru.Cache[string, *metadata.Playlist]
}

const (
	// ProviderName identifies this provider in resolved track metadata.
	ProviderName = "spotify"

	// defaultBaseURL is the partner API host serving the GraphQL endpoint.
	defaultBaseURL = "https://api-partner.spotify.com"
	// pathfinderURI is the URI path for the GraphQL query endpoint.
	pathfinderURI = "pathfinder/v1/query"

	// trackURIPrefix prefixes track identifiers in catalog URIs.
	trackURIPrefix = "spotify:track:"
	// albumURIPrefix prefixes album identifiers in catalog URIs.
	albumURIPrefix = "spotify:album:"
	// playlistURIPrefix prefixes playlist identifiers in catalog URIs.
	playlistURIPrefix = "spotify:playlist:"

	// trackTypename is the GraphQL typename of a playable track entry.
	trackTypename = "Track"
	// notFoundTypename is the GraphQL typename returned for missing catalog items.
	notFoundTypename = "NotFound"

	// albumTracksLimit is the track count requested for an album.
	// Albums beyond this size are practically nonexistent.
	albumTracksLimit = 300
	// playlistItemsPageSize is the page size used when listing playlist items.
	playlistItemsPageSize = 100
	// searchResultsLimit caps how many search hits are requested.
	searchResultsLimit = 10
)

const (
	// tracksCacheSize defines the maximum number of track entries to cache.
	// Sized to hold recently accessed tracks.
	tracksCacheSize = 10000
	// albumsCacheSize defines the maximum number of album entries to cache.
	// Sized to hold recent albums accessed during typical usage.
	albumsCacheSize = 5000
	// playlistsCacheSize defines the maximum number of playlist entries to cache.
	// Playlists don't change frequently, so we cache them.
	playlistsCacheSize = 2000
)

// NewProvider creates and returns a new instance of ProviderImpl.
// It initializes the HTTP and GraphQL clients with the provided configuration.
func NewProvider(cfg *config.Config) (metadata.Provider, error) {
	// Parse the base URL for the partner API.
	baseURL, err := url.Parse(defaultBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid host URL: %w", err)
	}

	// Initialize the HTTP client with custom transport and timeout.
	httpClient := &http.Client{
		Transport: http_transport.NewUserAgentInjector(
			http_transport.NewLogTransport(http.DefaultTransport, 0),
			utils.NewSimpleUserAgentProvider(http_transport.DefaultUserAgent)),
		Timeout: http_transport.DefaultTimeout,
	}

	// Initialize the GraphQL client.
	graphQLURL := baseURL.JoinPath(pathfinderURI)
	graphqlClient := graphql.NewClient(graphQLURL.String(), graphql.WithHTTPClient(httpClient))

	// Initialize LRU caches for metadata to reduce redundant API calls.
	tracksCache, err := lru.New[string, *metadata.WantedTrack](tracksCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracks cache: %w", err)
	}

	albumsCache, err := lru.New[string, *metadata.Album](albumsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create albums cache: %w", err)
	}

	playlistsCache, err := lru.New[string, *metadata.Playlist](playlistsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlists cache: %w", err)
	}

	// Create and return the ProviderImpl instance.
	provider := &ProviderImpl{
		cfg:            cfg,
		baseURL:        baseURL.String(),
		httpClient:     httpClient,
		graphQLClient:  graphqlClient,
		tracksCache:    tracksCache,
		albumsCache:    albumsCache,
		playlistsCache: playlistsCache,
	}

	return provider, nil
}

// Name returns the provider's catalog name.
func (p *ProviderImpl) Name() string {
	return ProviderName
}

// IsConfigured reports whether an access token is present.
func (p *ProviderImpl) IsConfigured() bool {
	return strings.TrimSpace(p.cfg.SpotifyToken) != ""
}

// SearchTrack finds the best-matching track for a free-text query.
func (p *ProviderImpl) SearchTrack(ctx context.Context, query string) (*metadata.WantedTrack, error) {
	graphqlRequest := graphql.NewRequest(`
		query searchTracks($searchTerm: String!, $offset: Int!, $limit: Int!) {
			searchV2(query: $searchTerm, offset: $offset, limit: $limit) {
				tracksV2 {
					totalCount
					items {
						item {
							data {
								__typename
								uri
								name
								duration {
									totalMilliseconds
								}
								artists {
									items {
										profile {
											name
										}
									}
								}
								albumOfTrack {
									id
									name
									date {
										isoString
									}
									coverArt {
										sources {
											url
											width
											height
										}
									}
									artists {
										items {
											profile {
												name
											}
										}
									}
								}
							}
						}
					}
				}
			}
		}
	`)

	graphqlRequest.Header.Add("Authorization", "Bearer "+p.cfg.SpotifyToken)
	graphqlRequest.Var("searchTerm", query)
	graphqlRequest.Var("offset", 0)
	graphqlRequest.Var("limit", searchResultsLimit)

	var graphQLResponse map[string]any
	if err := p.graphQLClient.Run(ctx, graphqlRequest, &graphQLResponse); err != nil {
		return nil, err
	}

	// Navigate the response map.
	searchData, ok := graphQLResponse["searchV2"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: searchV2", metadata.ErrUnexpectedResponseFormat)
	}

	tracks := parseSearchTracks(searchData)
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: query '%s'", metadata.ErrNotFound, query)
	}

	// The matching layer re-verifies the result, so the top hit is enough.
	return tracks[0], nil
}

// GetTrack retrieves one track by its catalog identifier.
func (p *ProviderImpl) GetTrack(ctx context.Context, trackID string) (*metadata.WantedTrack, error) {
	// Check the cache first.
	if track, ok := p.tracksCache.Get(trackID); ok {
		return track, nil
	}

	graphqlRequest := graphql.NewRequest(`
		query getTrack($uri: ID!) {
			trackUnion(uri: $uri) {
				__typename
				... on Track {
					id
					uri
					name
					trackNumber
					discNumber
					duration {
						totalMilliseconds
					}
					artists {
						items {
							profile {
								name
							}
						}
					}
					albumOfTrack {
						id
						name
						date {
							isoString
						}
						tracks {
							totalCount
						}
						coverArt {
							sources {
								url
								width
								height
							}
						}
						artists {
							items {
								profile {
									name
								}
							}
						}
					}
				}
			}
		}
	`)

	graphqlRequest.Header.Add("Authorization", "Bearer "+p.cfg.SpotifyToken)
	graphqlRequest.Var("uri", trackURIPrefix+trackID)

	var graphQLResponse map[string]any
	if err := p.graphQLClient.Run(ctx, graphqlRequest, &graphQLResponse); err != nil {
		return nil, err
	}

	// Navigate the response map.
	trackData, ok := graphQLResponse["trackUnion"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: track '%s'", metadata.ErrNotFound, trackID)
	}

	if typeName, typeOk := trackData["__typename"].(string); typeOk && typeName == notFoundTypename {
		return nil, fmt.Errorf("%w: track '%s'", metadata.ErrNotFound, trackID)
	}

	track := parseTrack(trackData)
	if track.ID == "" {
		track.ID = trackID
	}

	p.tracksCache.Add(trackID, track)

	return track, nil
}

// GetAlbum retrieves an album with its full track list.
func (p *ProviderImpl) GetAlbum(ctx context.Context, albumID string) (*metadata.Album, error) {
	// Check the cache first.
	if album, ok := p.albumsCache.Get(albumID); ok {
		return album, nil
	}

	graphqlRequest := graphql.NewRequest(`
		query getAlbum($uri: ID!, $offset: Int!, $limit: Int!) {
			albumUnion(uri: $uri) {
				__typename
				... on Album {
					id
					name
					date {
						isoString
					}
					artists {
						items {
							profile {
								name
							}
						}
					}
					coverArt {
						sources {
							url
							width
							height
						}
					}
					tracksV2(offset: $offset, limit: $limit) {
						totalCount
						items {
							track {
								uri
								name
								trackNumber
								discNumber
								duration {
									totalMilliseconds
								}
								artists {
									items {
										profile {
											name
										}
									}
								}
							}
						}
					}
				}
			}
		}
	`)

	graphqlRequest.Header.Add("Authorization", "Bearer "+p.cfg.SpotifyToken)
	graphqlRequest.Var("uri", albumURIPrefix+albumID)
	graphqlRequest.Var("offset", 0)
	graphqlRequest.Var("limit", albumTracksLimit)

	var graphQLResponse map[string]any
	if err := p.graphQLClient.Run(ctx, graphqlRequest, &graphQLResponse); err != nil {
		return nil, err
	}

	// Navigate the response map.
	albumData, ok := graphQLResponse["albumUnion"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: album '%s'", metadata.ErrNotFound, albumID)
	}

	if typeName, typeOk := albumData["__typename"].(string); typeOk && typeName == notFoundTypename {
		return nil, fmt.Errorf("%w: album '%s'", metadata.ErrNotFound, albumID)
	}

	album := parseAlbum(albumData, albumID)

	tracksData, ok := albumData["tracksV2"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: album tracks", metadata.ErrUnexpectedResponseFormat)
	}

	tracks, totalCount := parseAlbumTracks(tracksData, album)
	album.Tracks = tracks
	album.TotalTracks = totalCount

	p.albumsCache.Add(albumID, album)

	return album, nil
}

// GetPlaylist retrieves a playlist with its full track list, paging through
// the playlist contents as needed.
func (p *ProviderImpl) GetPlaylist(ctx context.Context, playlistID string) (*metadata.Playlist, error) {
	// Check the cache first.
	if playlist, ok := p.playlistsCache.Get(playlistID); ok {
		return playlist, nil
	}

	playlist := &metadata.Playlist{ID: playlistID}

	var offset int

	for {
		playlistData, err := p.fetchPlaylistPage(ctx, playlistID, offset)
		if err != nil {
			return nil, err
		}

		// The header fields repeat on every page, read them once.
		if playlist.Title == "" {
			if name, ok := playlistData["name"].(string); ok {
				playlist.Title = name
			}

			playlist.OwnerName = parsePlaylistOwner(playlistData)
		}

		contentData, ok := playlistData["content"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: playlist content", metadata.ErrUnexpectedResponseFormat)
		}

		pageTracks, totalCount := parsePlaylistItems(contentData)
		playlist.Tracks = append(playlist.Tracks, pageTracks...)

		offset += playlistItemsPageSize
		if totalCount == 0 || offset >= totalCount {
			break
		}
	}

	p.playlistsCache.Add(playlistID, playlist)

	return playlist, nil
}

// fetchPlaylistPage retrieves one page of a playlist's contents.
func (p *ProviderImpl) fetchPlaylistPage(
	ctx context.Context,
	playlistID string,
	offset int,
) (map[string]any, error) {
	graphqlRequest := graphql.NewRequest(`
		query getPlaylist($uri: ID!, $offset: Int!, $limit: Int!) {
			playlistV2(uri: $uri) {
				__typename
				... on Playlist {
					name
					ownerV2 {
						data {
							... on User {
								name
							}
						}
					}
					content(offset: $offset, limit: $limit) {
						totalCount
						items {
							itemV2 {
								data {
									__typename
									... on Track {
										uri
										name
										trackNumber
										discNumber
										duration {
											totalMilliseconds
										}
										artists {
											items {
												profile {
													name
												}
											}
										}
										albumOfTrack {
											id
											name
											date {
												isoString
											}
											coverArt {
												sources {
													url
													width
													height
												}
											}
											artists {
												items {
													profile {
														name
													}
												}
											}
										}
									}
								}
							}
						}
					}
				}
			}
		}
	`)

	graphqlRequest.Header.Add("Authorization", "Bearer "+p.cfg.SpotifyToken)
	graphqlRequest.Var("uri", playlistURIPrefix+playlistID)
	graphqlRequest.Var("offset", offset)
	graphqlRequest.Var("limit", playlistItemsPageSize)

	var graphQLResponse map[string]any
	if err := p.graphQLClient.Run(ctx, graphqlRequest, &graphQLResponse); err != nil {
		return nil, err
	}

	// Navigate the response map.
	playlistData, ok := graphQLResponse["playlistV2"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: playlist '%s'", metadata.ErrNotFound, playlistID)
	}

	if typeName, typeOk := playlistData["__typename"].(string); typeOk && typeName == notFoundTypename {
		return nil, fmt.Errorf("%w: playlist '%s'", metadata.ErrNotFound, playlistID)
	}

	return playlistData, nil
}
