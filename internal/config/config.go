package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/okorolenko/trackseek/internal/constants"
	"github.com/okorolenko/trackseek/internal/logger"
)

// Config holds all configuration settings.
type Config struct {
	// LogLevel specifies the logging verbosity level.
	LogLevel string `mapstructure:"log_level"`
	// OutputPath is the directory path where acquired files are placed.
	OutputPath string `mapstructure:"output_path"`
	// TrackFilenameTemplate is the template for naming acquired track files.
	TrackFilenameTemplate string `mapstructure:"track_filename_template"`
	// SourceMode selects the search routing policy: "slskd", "youtube", or "hybrid".
	SourceMode string `mapstructure:"source_mode"`
	// PrimarySource is the source queried first in hybrid mode: "slskd" or "youtube".
	PrimarySource string `mapstructure:"primary_source"`
	// SlskdURL is the base URL of the slskd daemon, e.g. "http://localhost:5030".
	// An empty value leaves the Soulseek source unconfigured.
	SlskdURL string `mapstructure:"slskd_url"`
	// SlskdAPIKey is the API key configured in the slskd daemon.
	SlskdAPIKey string `mapstructure:"slskd_api_key"`
	// SlskdDownloadsPath is the local path where slskd stores finished downloads.
	SlskdDownloadsPath string `mapstructure:"slskd_downloads_path"`
	// SlskdSearchTimeout is how long a Soulseek search gathers responses (e.g., "12s").
	SlskdSearchTimeout string `mapstructure:"slskd_search_timeout"`
	// YouTubeEnabled indicates whether the YouTube source may be used.
	YouTubeEnabled bool `mapstructure:"youtube_enabled"`
	// MaxConcurrentDownloads is the number of download slots running simultaneously.
	MaxConcurrentDownloads int64 `mapstructure:"max_concurrent_downloads"`
	// StatusPollInterval is the pause between transfer status polls (e.g., "2s").
	StatusPollInterval string `mapstructure:"status_poll_interval"`
	// StallTimeout is how long a transfer may make no progress before it is
	// cancelled and replaced with a fallback candidate (e.g., "90s").
	StallTimeout string `mapstructure:"stall_timeout"`
	// MaxDownloadAttempts is the total number of candidates tried per track.
	MaxDownloadAttempts int64 `mapstructure:"max_download_attempts"`
	// AcceptanceFloor is the minimum weighted confidence a download candidate
	// must reach to be considered at all.
	AcceptanceFloor float64 `mapstructure:"acceptance_floor"`
	// OwnershipFloor is the minimum tiered confidence for a library record
	// to count as already owning a wanted track.
	OwnershipFloor float64 `mapstructure:"ownership_floor"`
	// SpotifyToken is the web-player access token for the primary metadata provider.
	// An empty value limits metadata lookups to the unauthenticated fallback.
	SpotifyToken string `mapstructure:"spotify_token"`
	// DeezerEnabled indicates whether the fallback metadata provider may be used.
	DeezerEnabled bool `mapstructure:"deezer_enabled"`
	// LibraryDatabasePath is the path of the local library index database.
	LibraryDatabasePath string `mapstructure:"library_database_path"`
	// MusicDirs are the directories scanned into the library index.
	MusicDirs []string `mapstructure:"music_dirs"`
	// EmbedLyrics indicates whether to look up and embed lyrics after download.
	EmbedLyrics bool `mapstructure:"embed_lyrics"`
	// FFmpegPath is the path to the ffmpeg binary. Empty means PATH lookup.
	FFmpegPath string `mapstructure:"ffmpeg_path"`
	// DryRun indicates whether to resolve and rank without starting transfers.
	DryRun bool
	// ParsedLogLevel is the parsed zap log level.
	ParsedLogLevel zapcore.Level
	// ParsedSlskdSearchTimeout is the parsed Soulseek search timeout.
	ParsedSlskdSearchTimeout time.Duration
	// ParsedStatusPollInterval is the parsed status poll interval.
	ParsedStatusPollInterval time.Duration
	// ParsedStallTimeout is the parsed stall timeout.
	ParsedStallTimeout time.Duration
}

const (
	// DefaultMaxLogLength is the default maximum log length (1 MB).
	DefaultMaxLogLength = 1024 * 1024

	// DefaultConfigFilename is the default name of the configuration file.
	DefaultConfigFilename = ".trackseek.yaml"

	// DefaultTrackFilenameTemplate is the default template for naming acquired track files.
	DefaultTrackFilenameTemplate = "{{.trackArtist}} - {{.trackTitle}}"

	// DefaultSourceMode is the routing policy used when source_mode is omitted.
	DefaultSourceMode = "hybrid"
	// DefaultSlskdSearchTimeout is used when slskd_search_timeout is omitted.
	DefaultSlskdSearchTimeout = "12s"
	// DefaultStatusPollInterval is used when status_poll_interval is omitted.
	DefaultStatusPollInterval = "2s"
	// DefaultStallTimeout is used when stall_timeout is omitted.
	DefaultStallTimeout = "90s"
	// DefaultMaxConcurrentDownloads is used when max_concurrent_downloads is omitted.
	DefaultMaxConcurrentDownloads = 3
	// DefaultMaxDownloadAttempts is used when max_download_attempts is omitted.
	DefaultMaxDownloadAttempts = 3
	// DefaultAcceptanceFloor is used when acceptance_floor is omitted.
	DefaultAcceptanceFloor = 0.58
	// DefaultOwnershipFloor is used when ownership_floor is omitted.
	DefaultOwnershipFloor = 0.70

	// spotifyTokenKey is the configuration key updated when a new token is saved.
	spotifyTokenKey = "spotify_token"

	// minConcurrentDownloads is the minimum valid download slot count.
	minConcurrentDownloads = 1
	// maxConcurrentDownloads is the maximum valid download slot count.
	maxConcurrentDownloads = 10

	// minDownloadAttempts is the minimum valid per-track attempt ceiling.
	minDownloadAttempts = 1
	// maxDownloadAttempts is the maximum valid per-track attempt ceiling.
	maxDownloadAttempts = 10
)

// Static error definitions for better error handling.
var (
	// ErrUnknownLogLevel indicates that the log level is not recognized.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrUnknownSourceMode indicates that the source mode is not recognized.
	ErrUnknownSourceMode = errors.New("source_mode must be one of: slskd, youtube, hybrid")
	// ErrUnknownPrimarySource indicates that the primary source is not recognized.
	ErrUnknownPrimarySource = errors.New("primary_source must be one of: slskd, youtube")
	// ErrInvalidSlskdURL indicates that the slskd base URL cannot be parsed.
	ErrInvalidSlskdURL = errors.New("slskd_url is not a valid URL")
	// ErrInvalidSearchTimeout indicates that the search timeout is invalid.
	ErrInvalidSearchTimeout = errors.New("slskd_search_timeout must be positive")
	// ErrInvalidConcurrentDownloads indicates that the concurrent downloads count is out of range.
	ErrInvalidConcurrentDownloads = errors.New("max_concurrent_downloads is out of range")
	// ErrInvalidPollInterval indicates that the status poll interval is invalid.
	ErrInvalidPollInterval = errors.New("status_poll_interval must be positive")
	// ErrInvalidStallTimeout indicates that the stall timeout is invalid.
	ErrInvalidStallTimeout = errors.New("stall_timeout must be positive")
	// ErrInvalidDownloadAttempts indicates that the attempt ceiling is out of range.
	ErrInvalidDownloadAttempts = errors.New("max_download_attempts is out of range")
	// ErrInvalidAcceptanceFloor indicates that the acceptance floor is out of range.
	ErrInvalidAcceptanceFloor = errors.New("acceptance_floor must be between 0 and 1")
	// ErrInvalidOwnershipFloor indicates that the ownership floor is out of range.
	ErrInvalidOwnershipFloor = errors.New("ownership_floor must be between 0 and 1")
	// ErrStallBelowPoll indicates that the stall timeout is shorter than the poll interval.
	ErrStallBelowPoll = errors.New("stall_timeout must be longer than status_poll_interval")
)

// LoadConfig loads configuration settings from a YAML file.
func LoadConfig(configFilename string) (*Config, error) {
	if configFilename == "" {
		configFilename = DefaultConfigFilename
	}

	viper.SetConfigFile(configFilename)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config from file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ValidateConfig checks the configuration for validity and sets derived fields.
//
//nolint:funlen,gocognit,cyclop // Validation functions naturally have high complexity and length due to sequential checks.
func ValidateConfig(cfg *Config) error {
	parsedLogLevel, isLogLevelCorrect := logger.ParseLogLevel(cfg.LogLevel)
	if !isLogLevelCorrect {
		return fmt.Errorf("%w: '%s'", ErrUnknownLogLevel, cfg.LogLevel)
	}

	cfg.ParsedLogLevel = parsedLogLevel

	applyDefaults(cfg)

	switch cfg.SourceMode {
	case "slskd", "youtube", "hybrid":
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownSourceMode, cfg.SourceMode)
	}

	switch cfg.PrimarySource {
	case "slskd", "youtube":
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownPrimarySource, cfg.PrimarySource)
	}

	if slskdURL := strings.TrimSpace(cfg.SlskdURL); slskdURL != "" {
		parsed, err := url.Parse(slskdURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%w: '%s'", ErrInvalidSlskdURL, cfg.SlskdURL)
		}

		cfg.SlskdURL = strings.TrimRight(slskdURL, "/")
	}

	var err error

	cfg.ParsedSlskdSearchTimeout, err = time.ParseDuration(cfg.SlskdSearchTimeout)
	if err != nil {
		return fmt.Errorf("failed to parse slskd search timeout: %w", err)
	}

	if cfg.ParsedSlskdSearchTimeout <= 0 {
		return ErrInvalidSearchTimeout
	}

	if cfg.MaxConcurrentDownloads < minConcurrentDownloads || cfg.MaxConcurrentDownloads > maxConcurrentDownloads {
		return fmt.Errorf("%w: must be between %d and %d",
			ErrInvalidConcurrentDownloads, minConcurrentDownloads, maxConcurrentDownloads)
	}

	cfg.ParsedStatusPollInterval, err = time.ParseDuration(cfg.StatusPollInterval)
	if err != nil {
		return fmt.Errorf("failed to parse status poll interval: %w", err)
	}

	if cfg.ParsedStatusPollInterval <= 0 {
		return ErrInvalidPollInterval
	}

	cfg.ParsedStallTimeout, err = time.ParseDuration(cfg.StallTimeout)
	if err != nil {
		return fmt.Errorf("failed to parse stall timeout: %w", err)
	}

	if cfg.ParsedStallTimeout <= 0 {
		return ErrInvalidStallTimeout
	}

	if cfg.ParsedStallTimeout <= cfg.ParsedStatusPollInterval {
		return ErrStallBelowPoll
	}

	if cfg.MaxDownloadAttempts < minDownloadAttempts || cfg.MaxDownloadAttempts > maxDownloadAttempts {
		return fmt.Errorf("%w: must be between %d and %d",
			ErrInvalidDownloadAttempts, minDownloadAttempts, maxDownloadAttempts)
	}

	if cfg.AcceptanceFloor <= 0 || cfg.AcceptanceFloor > 1 {
		return ErrInvalidAcceptanceFloor
	}

	if cfg.OwnershipFloor <= 0 || cfg.OwnershipFloor > 1 {
		return ErrInvalidOwnershipFloor
	}

	return nil
}

// applyDefaults fills omitted configuration values with their defaults.
// Explicitly set values, valid or not, are left for validation to judge.
func applyDefaults(cfg *Config) {
	if cfg.SourceMode == "" {
		cfg.SourceMode = DefaultSourceMode
	}

	if cfg.PrimarySource == "" {
		cfg.PrimarySource = "slskd"
	}

	if cfg.SlskdSearchTimeout == "" {
		cfg.SlskdSearchTimeout = DefaultSlskdSearchTimeout
	}

	if cfg.StatusPollInterval == "" {
		cfg.StatusPollInterval = DefaultStatusPollInterval
	}

	if cfg.StallTimeout == "" {
		cfg.StallTimeout = DefaultStallTimeout
	}

	if cfg.MaxConcurrentDownloads == 0 {
		cfg.MaxConcurrentDownloads = DefaultMaxConcurrentDownloads
	}

	if cfg.MaxDownloadAttempts == 0 {
		cfg.MaxDownloadAttempts = DefaultMaxDownloadAttempts
	}

	if cfg.AcceptanceFloor == 0 {
		cfg.AcceptanceFloor = DefaultAcceptanceFloor
	}

	if cfg.OwnershipFloor == 0 {
		cfg.OwnershipFloor = DefaultOwnershipFloor
	}

	if cfg.TrackFilenameTemplate == "" {
		cfg.TrackFilenameTemplate = DefaultTrackFilenameTemplate
	}
}

// SaveConfig saves the configuration to the file while preserving the original format and order.
// Only the metadata provider token is rewritten; every other key keeps its current value.
func SaveConfig(cfg *Config) error {
	configFile := getConfigFilePath()

	// Read the original file content.
	originalContent, err := os.ReadFile(configFile)
	if err != nil {
		return handleMissingConfigFile(configFile, cfg.SpotifyToken, err)
	}

	// Parse YAML while preserving order using yaml.Node.
	var node yaml.Node
	if err = yaml.Unmarshal(originalContent, &node); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Update the token value in the node tree.
	updateTokenInNode(&node, cfg.SpotifyToken)

	// Marshal back to YAML (preserves order).
	newContent, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	// Write the file back with preserved order.
	if err = os.WriteFile(configFile, newContent, constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigFilePath returns the config file path from viper or the default.
func getConfigFilePath() string {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		return DefaultConfigFilename
	}

	return configFile
}

// handleMissingConfigFile creates a new config file if it doesn't exist.
func handleMissingConfigFile(configFile, token string, err error) error {
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// File doesn't exist, create it with viper.
	viper.Set(spotifyTokenKey, token)

	if err = viper.SafeWriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	return nil
}

// updateTokenInNode updates the metadata provider token in the YAML node tree.
func updateTokenInNode(node *yaml.Node, token string) {
	// The root node is a document node, content[0] is the actual map.
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return
	}

	mapNode := node.Content[0]

	// Iterate through key-value pairs (stored as alternating nodes).
	for i := 0; i < len(mapNode.Content); i += 2 {
		keyNode := mapNode.Content[i]
		valueNode := mapNode.Content[i+1]

		if keyNode.Value == spotifyTokenKey {
			// Update the value while preserving style.
			valueNode.Value = token

			// Ensure it's quoted if it contains special characters.
			if valueNode.Style == 0 {
				valueNode.Style = yaml.DoubleQuotedStyle
			}

			break
		}
	}
}
