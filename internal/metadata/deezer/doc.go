// Package deezer implements the fallback catalog provider on top of
// the public REST API, which needs no authentication. Requests are
// paced to respect the API quota and retried with exponential backoff
// on server errors.
package deezer
