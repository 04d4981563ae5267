package ffmpeg

//go:generate $MOCKGEN -source=converter.go -destination=mocks/converter_mock.go

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/okorolenko/trackseek/internal/config"
	"github.com/okorolenko/trackseek/internal/constants"
	"github.com/okorolenko/trackseek/internal/logger"
)

const (
	// defaultBinaryName is looked up on PATH when no explicit path is configured.
	defaultBinaryName = "ffmpeg"

	// mp3Codec is the encoder used for MP3 output.
	mp3Codec = "libmp3lame"

	// mp3Quality is the LAME VBR quality level, around 190 kbps.
	// Stream captures are lossy already, transcoding higher gains nothing.
	mp3Quality = "2"

	// maxLoggedCommandLength truncates command lines in error messages.
	maxLoggedCommandLength = 200
)

// Static error definitions for better error handling.
var (
	// ErrBinaryNotFound indicates that the ffmpeg binary could not be located.
	ErrBinaryNotFound = errors.New("ffmpeg binary not found")
	// ErrFileNotFound indicates that the input file does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrFileEmpty indicates that the input file has no content.
	ErrFileEmpty = errors.New("file is empty")
	// ErrInvalidPath indicates that the input path is not a regular file.
	ErrInvalidPath = errors.New("invalid path")
)

// commandError wraps ffmpeg command failures with the captured output.
type commandError struct {
	// cmd is the truncated command line that failed.
	cmd string
	// output is the combined stdout and stderr of the run.
	output string
	// wrapped is the underlying execution error.
	wrapped error
}

func (e *commandError) Error() string {
	return fmt.Sprintf("ffmpeg error: %s, command: %s, output: %s", e.wrapped, e.cmd, e.output)
}

func (e *commandError) Unwrap() error {
	return e.wrapped
}

// newCommandError creates a commandError with a truncated command line.
func newCommandError(cmd *exec.Cmd, output []byte, err error) error {
	cmdString := cmd.String()
	if len(cmdString) > maxLoggedCommandLength {
		cmdString = cmdString[:maxLoggedCommandLength] + "..."
	}

	return &commandError{
		cmd:     cmdString,
		output:  string(output),
		wrapped: err,
	}
}

// Converter transcodes captured audio streams with ffmpeg.
type Converter interface {
	// Available reports whether the ffmpeg binary can be located.
	Available() bool
	// ConvertToMP3 transcodes the input into an MP3 file at the output path.
	ConvertToMP3(ctx context.Context, inputPath, outputPath string) error
}

// ConverterImpl implements the Converter interface.
type ConverterImpl struct {
	// cfg is the application configuration.
	cfg *config.Config
}

// NewConverter creates a new Converter instance.
func NewConverter(cfg *config.Config) Converter {
	return &ConverterImpl{
		cfg: cfg,
	}
}

// Available reports whether the ffmpeg binary can be located.
func (c *ConverterImpl) Available() bool {
	_, err := c.binaryPath()

	return err == nil
}

// ConvertToMP3 transcodes the input into an MP3 file at the output path.
func (c *ConverterImpl) ConvertToMP3(ctx context.Context, inputPath, outputPath string) error {
	if err := validateFile(inputPath); err != nil {
		return err
	}

	binary, err := c.binaryPath()
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(outputPath), constants.DefaultFolderPermissions); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logger.Debugf(ctx, "Converting '%s' to MP3 at '%s'", inputPath, outputPath)

	// Drop any video stream, stream captures sometimes carry cover images.
	cmd := exec.CommandContext(ctx, binary,
		"-y",
		"-i", inputPath,
		"-vn",
		"-codec:a", mp3Codec,
		"-q:a", mp3Quality,
		outputPath)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return newCommandError(cmd, output, err)
	}

	return nil
}

// binaryPath resolves the ffmpeg binary,
// preferring the configured path over a PATH lookup.
func (c *ConverterImpl) binaryPath() (string, error) {
	if c.cfg.FFmpegPath != "" {
		return c.cfg.FFmpegPath, nil
	}

	path, err := exec.LookPath(defaultBinaryName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBinaryNotFound, err)
	}

	return path, nil
}

// validateFile checks that the path points at a non-empty regular file.
func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: '%s'", ErrFileNotFound, path)
		}

		return fmt.Errorf("failed to access file '%s': %w", path, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%w: '%s' is a directory", ErrInvalidPath, path)
	}

	if info.Size() == 0 {
		return fmt.Errorf("%w: '%s'", ErrFileEmpty, path)
	}

	return nil
}
