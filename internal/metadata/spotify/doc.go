// Package spotify implements the primary catalog provider on top of
// the web player's GraphQL API. It resolves tracks, albums and playlists
// into wanted-track metadata, authenticating each query with the
// configured web-player access token and caching results in LRU caches
// to avoid redundant API calls.
package spotify
