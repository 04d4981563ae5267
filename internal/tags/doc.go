// Package tags writes catalog metadata, cover art and lyrics
// into downloaded MP3 and FLAC files.
package tags
