// Package ffmpeg wraps the ffmpeg command line tool
// for converting captured audio streams into MP3.
package ffmpeg
