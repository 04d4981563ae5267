package app

import (
	"context"

	"github.com/okorolenko/trackseek/internal/config"
	"github.com/okorolenko/trackseek/internal/logger"
	"github.com/okorolenko/trackseek/internal/service/auth"
)

// ExecuteAuthLoginCommand executes the auth login command.
// It opens a browser, waits for the user to log in, extracts the token,
// and saves it to the configuration file.
func ExecuteAuthLoginCommand(ctx context.Context, cfg *config.Config) {
	logger.Info(ctx, "Starting authentication process")

	// Create browser authentication service.
	authService, err := auth.NewService(cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize authentication service: %v", err)
		return
	}

	// Perform login and extract token.
	token, err := authService.LoginAndExtractToken(ctx)
	if err != nil {
		logger.Fatalf(ctx, "Authentication failed: %v", err)
		return
	}

	// Update configuration with new token.
	cfg.SpotifyToken = token

	// Save configuration to file.
	if err = config.SaveConfig(cfg); err != nil {
		logger.Fatalf(ctx, "Failed to save configuration: %v", err)
		return
	}

	// Print success message.
	logger.Info(ctx, "Configuration updated successfully!")
	logger.Info(ctx, "Authentication complete! You can now resolve Spotify metadata.")
	logger.Info(ctx, "")
	logger.Info(ctx, "Try acquiring an album:")
	logger.Info(ctx, "trackseek https://open.spotify.com/album/1fYWUnt6445ZvsF5BNqHRo")
	logger.Info(ctx, "")
	logger.Info(ctx, "Or a playlist:")
	logger.Info(ctx, "trackseek https://open.spotify.com/playlist/37i9dQZF1DX5Ejj0EkURtP")
	logger.Info(ctx, "")
	logger.Info(ctx, "NOTE: web player tokens expire after about an hour,")
	logger.Info(ctx, "re-run this command when metadata lookups start failing.")
}
