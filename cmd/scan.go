package cmd

import (
	"github.com/spf13/cobra"

	"github.com/okorolenko/trackseek/internal/app"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Re-index the local music library",
	Long: `Walks the configured music directories, reads the audio tags, and
updates the library index database.

The index is what lets TrackSeek skip tracks you already own. Scans are
incremental: unchanged files are skipped and entries for vanished files
are pruned.`,
	PersistentPreRun: initConfig,
	Run: func(cmd *cobra.Command, args []string) {
		app.ExecuteScanCommand(cmd.Context(), appConfig)
	},
}

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	rootCmd.AddCommand(scanCmd)
}
