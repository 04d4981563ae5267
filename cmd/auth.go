package cmd

import (
	"github.com/spf13/cobra"

	"github.com/okorolenko/trackseek/internal/app"
)

var (
	authCmd = &cobra.Command{
		Use:   "auth",
		Short: "Authentication management commands",
		Long: `Manage authentication for the Spotify metadata provider.

Use 'auth login' to log in via browser and automatically extract a web player access token.`,
	}

	authLoginCmd = &cobra.Command{
		Use:   "login",
		Short: "Login to Spotify and extract a web player access token",
		Long: `Opens a browser window for you to log in to Spotify.

The login process:
1. Browser opens at accounts.spotify.com
2. Sign in with your email and password, or continue with Google,
   Facebook or Apple
3. Solve the verification challenge if one appears
4. Wait for the web player to load

After successful login, a web player access token is minted from the
session and saved to the configuration file.

You can then resolve Spotify URLs into downloads:
trackseek https://open.spotify.com/album/1fYWUnt6445ZvsF5BNqHRo

Web player tokens expire after about an hour; re-run this command when
metadata lookups start failing with authentication errors.`,
		PersistentPreRun: initConfig,
		Run: func(cmd *cobra.Command, args []string) {
			app.ExecuteAuthLoginCommand(cmd.Context(), appConfig)
		},
	}
)

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	// Add login subcommand to auth command.
	authCmd.AddCommand(authLoginCmd)

	// Add auth command to root command.
	rootCmd.AddCommand(authCmd)
}
