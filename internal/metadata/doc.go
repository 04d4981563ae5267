// Package metadata resolves user input into concrete wanted tracks.
// It classifies raw arguments into track, album, playlist and query
// references, routes each reference to the catalog provider that can
// serve it, and expands albums and playlists into their tracks.
// Concrete providers live in subpackages, one per catalog.
package metadata
