package cmd_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// testBinaryName is the name of the test binary for E2E tests.
	testBinaryName = "trackseek-test"

	// dumpConfigEnvVar mirrors the root command's config dump hook.
	dumpConfigEnvVar = "TRACKSEEK_DUMP_CONFIG"

	// testReference is a syntactically valid reference for batch commands.
	testReference = "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"
)

const baseConfig = `
log_level: "info"
output_path: "/config/output"
source_mode: "slskd"
primary_source: "slskd"
slskd_url: "http://localhost:5030"
slskd_api_key: "test-key"
slskd_downloads_path: "/srv/slskd/downloads"
slskd_search_timeout: "10s"
youtube_enabled: false
max_concurrent_downloads: 2
status_poll_interval: "2s"
stall_timeout: "90s"
max_download_attempts: 3
acceptance_floor: 0.6
ownership_floor: 0.8
spotify_token: "test_token_123"
deezer_enabled: true
library_database_path: "/config/library.db"
embed_lyrics: false
track_filename_template: "{{.trackArtist}} - {{.trackTitle}}"
`

// TestMain builds the binary before running E2E tests.
func TestMain(m *testing.M) {
	// Build the binary for testing.
	//nolint:noctx // TestMain doesn't have access to context, and build is needed before tests run.
	buildCmd := exec.Command("go", "build", "-o", testBinaryName, "../.")
	if err := buildCmd.Run(); err != nil {
		os.Exit(1)
	}

	// Run tests.
	code := m.Run()

	// Cleanup.
	_ = os.Remove(testBinaryName)

	os.Exit(code)
}

// TestE2E_FlagOverrides tests that command-line flags override config file values end to end.
//
//nolint:funlen // It's a comprehensive E2E test.
func TestE2E_FlagOverrides(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		flags        []string
		expectedDump ConfigDump
	}{
		{
			name:  "no flags - use config",
			flags: []string{},
			expectedDump: ConfigDump{
				OutputPath:             "/config/output",
				SourceMode:             "slskd",
				EmbedLyrics:            false,
				DryRun:                 false,
				MaxConcurrentDownloads: 2,
			},
		},
		{
			name:  "output only",
			flags: []string{"--output", "/flag/output"},
			expectedDump: ConfigDump{
				OutputPath:             "/flag/output",
				SourceMode:             "slskd",
				EmbedLyrics:            false,
				DryRun:                 false,
				MaxConcurrentDownloads: 2,
			},
		},
		{
			name:  "source only",
			flags: []string{"--source", "hybrid"},
			expectedDump: ConfigDump{
				OutputPath:             "/config/output",
				SourceMode:             "hybrid",
				EmbedLyrics:            false,
				DryRun:                 false,
				MaxConcurrentDownloads: 2,
			},
		},
		{
			name:  "lyrics only",
			flags: []string{"--lyrics"},
			expectedDump: ConfigDump{
				OutputPath:             "/config/output",
				SourceMode:             "slskd",
				EmbedLyrics:            true,
				DryRun:                 false,
				MaxConcurrentDownloads: 2,
			},
		},
		{
			name:  "dry-run only",
			flags: []string{"--dry-run"},
			expectedDump: ConfigDump{
				OutputPath:             "/config/output",
				SourceMode:             "slskd",
				EmbedLyrics:            false,
				DryRun:                 true,
				MaxConcurrentDownloads: 2,
			},
		},
		{
			name:  "slots only",
			flags: []string{"--slots", "5"},
			expectedDump: ConfigDump{
				OutputPath:             "/config/output",
				SourceMode:             "slskd",
				EmbedLyrics:            false,
				DryRun:                 false,
				MaxConcurrentDownloads: 5,
			},
		},
		{
			name:  "all flags",
			flags: []string{"--output", "/all/flags", "--source", "youtube", "--lyrics", "--dry-run", "--slots", "4"},
			expectedDump: ConfigDump{
				OutputPath:             "/all/flags",
				SourceMode:             "youtube",
				EmbedLyrics:            true,
				DryRun:                 true,
				MaxConcurrentDownloads: 4,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Create temp directory and config file.
			tempDir := t.TempDir()
			configPath := filepath.Join(tempDir, "test-config.yaml")
			err := os.WriteFile(configPath, []byte(baseConfig), 0o644) //nolint:gosec // It's a test file.
			require.NoError(t, err)

			// Run and get config dump.
			dump := runWithConfigDump(t, configPath, tt.flags)
			require.NotNil(t, dump, "Failed to get config dump")

			assert.Equal(t, tt.expectedDump, *dump)
		})
	}
}

// TestE2E_FlagOverrides_InvalidValues tests that invalid flag values are rejected.
func TestE2E_FlagOverrides_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		flags            []string
		expectedErrorMsg string
	}{
		{
			name:             "invalid source mode",
			flags:            []string{"--source", "napster"},
			expectedErrorMsg: "source_mode must be one of",
		},
		{
			name:             "invalid slots - too low",
			flags:            []string{"--slots", "0"},
			expectedErrorMsg: "max_concurrent_downloads is out of range",
		},
		{
			name:             "invalid slots - too high",
			flags:            []string{"--slots", "11"},
			expectedErrorMsg: "max_concurrent_downloads is out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Create temp directory and config file.
			tempDir := t.TempDir()
			configPath := filepath.Join(tempDir, "test-config.yaml")
			err := os.WriteFile(configPath, []byte(baseConfig), 0o644) //nolint:gosec // It's a test file.
			require.NoError(t, err)

			// Prepare arguments.
			args := []string{
				"--config", configPath,
				testReference,
			}
			args = append(args, tt.flags...)

			// Run the binary.
			//nolint:gosec,noctx // Test binary name is a constant, not user input. No context available in test.
			cmd := exec.Command("./"+testBinaryName, args...)
			output, err := cmd.CombinedOutput()

			// Should fail with error.
			require.Error(t, err)

			outputStr := string(output)

			// Verify error message.
			assert.Contains(t, strings.ToLower(outputStr), strings.ToLower(tt.expectedErrorMsg),
				"Expected error message about '%s' but got: %s", tt.expectedErrorMsg, outputStr)
		})
	}
}

// TestE2E_Version tests that the version flag prints the build version.
func TestE2E_Version(t *testing.T) {
	t.Parallel()

	//nolint:gosec,noctx // Test binary name is a constant, not user input. No context available in test.
	cmd := exec.Command("./"+testBinaryName, "--version")
	output, err := cmd.CombinedOutput()
	require.NoError(t, err)

	assert.Contains(t, string(output), "trackseek version")
}

// ConfigDump represents the config dump structure.
type ConfigDump struct {
	// OutputPath is the directory where acquired files are placed.
	OutputPath string `json:"output_path"`
	// SourceMode is the search routing policy.
	SourceMode string `json:"source_mode"`
	// EmbedLyrics indicates whether lyrics are embedded after download.
	EmbedLyrics bool `json:"embed_lyrics"`
	// DryRun indicates whether transfers are skipped.
	DryRun bool `json:"dry_run"`
	// MaxConcurrentDownloads is the number of download slots.
	MaxConcurrentDownloads int64 `json:"max_concurrent_downloads"`
}

// runWithConfigDump runs the app with config dump enabled and parses the stdout JSON.
func runWithConfigDump(t *testing.T, configPath string, flags []string) *ConfigDump {
	t.Helper()

	args := []string{
		"--config", configPath,
		testReference,
	}
	args = append(args, flags...)

	//nolint:gosec,noctx // Test binary name is a constant, not user input. No context available in test.
	cmd := exec.Command("./"+testBinaryName, args...)

	cmd.Env = append(os.Environ(), dumpConfigEnvVar+"=1")

	// Logs go to stderr, the dump is the only thing on stdout.
	output, err := cmd.Output()
	if err != nil {
		t.Logf("Command failed: %v, output: %s", err, string(output))
		return nil
	}

	// Parse JSON config dump from output.
	var dump ConfigDump
	if err := json.Unmarshal(output, &dump); err != nil {
		t.Logf("Failed to parse config dump: %v, output: %s", err, string(output))
		return nil
	}

	return &dump
}
