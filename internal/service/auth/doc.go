// Package auth provides browser-based authentication for the Spotify
// web player.
//
// The package drives a visible browser via go-rod so the user can
// complete the login themselves, including partner sign-in and
// verification challenges, then mints a web player access token from
// the authenticated session.
package auth
