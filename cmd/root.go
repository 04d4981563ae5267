package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okorolenko/trackseek/internal/app"
	"github.com/okorolenko/trackseek/internal/config"
	"github.com/okorolenko/trackseek/internal/logger"
	"github.com/okorolenko/trackseek/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// dumpConfigEnvVar makes the root command print the effective configuration
// as JSON and exit instead of running a batch. Used by end-to-end tests.
const dumpConfigEnvVar = "TRACKSEEK_DUMP_CONFIG"

var (
	//nolint:gochecknoglobals // It is required for configuration initialization before the application starts.
	configFilenameFromFlag string

	//nolint:gochecknoglobals,lll // It is initialized once during the application's startup and shared across the command execution logic.
	appConfig *config.Config

	//nolint:gochecknoglobals,lll // Cobra command requires a global definition for proper command-line parsing and execution.
	rootCmd = &cobra.Command{
		Use:   "trackseek [flags] {references}",
		Short: "Resolve track references and acquire the audio from the configured sources.",
		Long: `TrackSeek turns abstract track references into concrete audio files.

References may be:
- Spotify or Deezer track, album, or playlist URLs
- Free-text queries like "Nightwish - Nemo"
- Text files with one reference per line

Every resolved track is searched across the configured sources (a slskd
daemon, optionally YouTube), the results are verified against the track's
metadata and ranked by confidence, and the best candidate is downloaded
with ordered fallback to the next one when a transfer fails or stalls.`,
		Version:          version.Short(),
		Args:             cobra.MinimumNArgs(1),
		PersistentPreRun: initConfig,
		Run: func(cmd *cobra.Command, refs []string) {
			if err := bindFlagsToConfig(cmd.Flags(), appConfig); err != nil {
				logger.Fatalf(cmd.Context(), "Failed to parse flags: %v", err)
			}

			if os.Getenv(dumpConfigEnvVar) == "1" {
				dumpConfig(cmd.Context(), appConfig)

				return
			}

			app.ExecuteRootCommand(cmd.Context(), appConfig, refs)
		},
	}
)

// Execute executes the root command.
func Execute() {
	signals := []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)

	defer func() {
		_ = logger.Logger().Sync()
	}()

	defer stop()

	go func() {
		defer stop()

		err := rootCmd.ExecuteContext(ctx)
		cobra.CheckErr(err)
	}()

	<-ctx.Done()
}

//nolint:gochecknoinits // Cobra requires the init function to set up flags before the command is executed.
func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configFilenameFromFlag,
		"config",
		"c",
		"",
		fmt.Sprintf("path to the configuration file (default is '%s')",
			config.DefaultConfigFilename))

	rootCmdFlags := rootCmd.Flags()

	rootCmdFlags.StringP(
		"output",
		"o",
		"",
		"directory to place acquired files (the path will be created if it doesn't exist).")

	rootCmdFlags.StringP(
		"source",
		"s",
		"",
		"source routing mode: slskd, youtube, or hybrid.")

	rootCmdFlags.BoolP(
		"lyrics",
		"l",
		false,
		"look up and embed lyrics after download.")

	rootCmdFlags.BoolP(
		"dry-run",
		"n",
		false,
		"resolve, search, and rank candidates without starting any transfer.")

	rootCmdFlags.Int64P(
		"slots",
		"j",
		0,
		"number of download slots running simultaneously (1-10).")
}

func initConfig(cmd *cobra.Command, _ []string) {
	var err error

	appConfig, err = config.LoadConfig(configFilenameFromFlag)
	if err != nil {
		logger.Fatalf(cmd.Context(), "Failed to load configuration: %v", err)
	}

	// Unknown levels are rejected later by config validation.
	if level, ok := logger.ParseLogLevel(appConfig.LogLevel); ok {
		logger.SetLevel(level)
	}

	logger.Debugf(cmd.Context(), "Build info: %s", version.Full())
}

func bindFlagsToConfig(flags *pflag.FlagSet, cfg *config.Config) error {
	if flag := flags.Lookup("output"); flag != nil && flag.Changed {
		cfg.OutputPath, _ = flags.GetString("output")
	}

	if flag := flags.Lookup("source"); flag != nil && flag.Changed {
		cfg.SourceMode, _ = flags.GetString("source")
	}

	if flag := flags.Lookup("lyrics"); flag != nil && flag.Changed {
		cfg.EmbedLyrics, _ = flags.GetBool("lyrics")
	}

	if flag := flags.Lookup("dry-run"); flag != nil && flag.Changed {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}

	if flag := flags.Lookup("slots"); flag != nil && flag.Changed {
		cfg.MaxConcurrentDownloads, _ = flags.GetInt64("slots")
	}

	return config.ValidateConfig(cfg)
}

// dumpConfig prints the flag-bound configuration as a single JSON line on stdout.
func dumpConfig(ctx context.Context, cfg *config.Config) {
	dump := map[string]any{
		"output_path":              cfg.OutputPath,
		"source_mode":              cfg.SourceMode,
		"embed_lyrics":             cfg.EmbedLyrics,
		"dry_run":                  cfg.DryRun,
		"max_concurrent_downloads": cfg.MaxConcurrentDownloads,
	}

	encoded, err := json.Marshal(dump)
	if err != nil {
		logger.Fatalf(ctx, "Failed to marshal config dump: %v", err)
	}

	fmt.Println(string(encoded))
}
