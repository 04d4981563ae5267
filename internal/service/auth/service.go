package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"github.com/okorolenko/trackseek/internal/config"
	"github.com/okorolenko/trackseek/internal/logger"
)

const (
	// browserSlowMotionDelay is the delay between browser actions for visibility during debugging.
	browserSlowMotionDelay = 200 * time.Millisecond

	// spotifyWebPlayerURL is the Spotify web player landing page.
	spotifyWebPlayerURL = "https://open.spotify.com/"

	// spotifyLoginURL is the dedicated login page, with a continue parameter
	// that sends the browser back to the web player after sign-in.
	spotifyLoginURL = "https://accounts.spotify.com/en/login?continue=https%3A%2F%2Fopen.spotify.com%2F"

	// spotifyDomain matches every Spotify property (open., accounts., www.).
	spotifyDomain = "spotify.com"

	// webPlayerDomain is the web player host, where the token endpoint lives.
	webPlayerDomain = "open.spotify.com"

	// googleAccountsDomain is Google's sign-in service, offered by Spotify as a partner login.
	googleAccountsDomain = "accounts.google.com"

	// facebookDomain is Facebook's sign-in service, offered by Spotify as a partner login.
	facebookDomain = "facebook.com"

	// appleIDDomain is Apple's sign-in service, offered by Spotify as a partner login.
	appleIDDomain = "appleid.apple.com"

	// sessionCookieName is the long-lived session cookie set on .spotify.com
	// once authentication succeeds.
	sessionCookieName = "sp_dc"

	// tokenEndpointURL mints a web player access token for the current session.
	// It only answers same-origin requests carrying the session cookie.
	tokenEndpointURL = "https://open.spotify.com/get_access_token?reason=transport&productType=web_player"

	// avatarButtonSelector is the CSS selector for the account avatar button (appears when logged in).
	// Uses the data-testid attribute, which survives web player redesigns.
	avatarButtonSelector = `[data-testid="user-widget-link"]`

	// loginButtonSelector is the CSS selector for the login button (appears when not logged in).
	// Uses the data-testid attribute, which survives web player redesigns.
	loginButtonSelector = `[data-testid="login-button"]`

	// maxLoginWaitTime is the maximum time to wait for user to complete login.
	maxLoginWaitTime = 10 * time.Minute

	// sessionEstablishDelay is the delay after login to allow session to fully establish.
	sessionEstablishDelay = 2 * time.Second

	// webPlayerLoadDelay is the delay to let the web player load before token extraction.
	webPlayerLoadDelay = 3 * time.Second

	// humanBehaviorMinDelay is the minimum delay for simulated human actions.
	humanBehaviorMinDelay = 500 * time.Millisecond
	// humanBehaviorMaxDelay is the maximum delay for simulated human actions.
	humanBehaviorMaxDelay = 2 * time.Second

	// mouseMovementsPerCheck is the number of random mouse movements to simulate per polling cycle.
	mouseMovementsPerCheck = 2

	// mouseMovementMinDelay is the minimum delay between mouse movements.
	mouseMovementMinDelay = 100 * time.Millisecond
	// mouseMovementMaxDelay is the maximum delay between mouse movements.
	mouseMovementMaxDelay = 400 * time.Millisecond

	// scrollProbability is the probability of scrolling (1 in N).
	scrollProbability = 3
	// scrollMinAmount is the minimum scroll amount in pixels.
	scrollMinAmount = -100
	// scrollMaxAmount is the maximum scroll amount in pixels.
	scrollMaxAmount = 200

	// interactionProbability is the probability of random interaction (1 in N).
	interactionProbability = 5
	// interactionActionCount is the number of possible random interaction actions.
	interactionActionCount = 4

	// smallScrollRange is the range for small random scrolls.
	smallScrollRange = 100
	// smallScrollOffset is the offset to center small scroll range.
	smallScrollOffset = 50

	// pauseMinDelay is the minimum pause duration for human-like pauses.
	pauseMinDelay = 500 * time.Millisecond
	// pauseMaxDelay is the maximum pause duration for human-like pauses.
	pauseMaxDelay = 1500 * time.Millisecond

	// browserCleanupDelay is the delay to wait for Chrome to release file locks before cleanup.
	browserCleanupDelay = 500 * time.Millisecond
)

var (
	// ErrLoginTimeout is returned when login takes too long.
	ErrLoginTimeout = errors.New("login timeout exceeded")

	// ErrBrowserClosed is returned when the browser is closed by the user.
	ErrBrowserClosed = errors.New("browser was closed by user")

	// ErrNavigatedAway is returned when the user navigates away from the login flow.
	ErrNavigatedAway = errors.New("user navigated away from login flow")

	// ErrTokenNotFound is returned when the token endpoint yields no access token after login.
	ErrTokenNotFound = errors.New("access token not found - login may have failed")

	// ErrAnonymousSession is returned when the token endpoint reports an anonymous session.
	ErrAnonymousSession = errors.New("web player session is anonymous - login did not stick")
)

// Service provides browser-based authentication.
type Service interface {
	// LoginAndExtractToken opens a browser, waits for user to log in, then extracts the access token.
	LoginAndExtractToken(ctx context.Context) (string, error)
}

// ServiceImpl provides browser-based authentication for the Spotify web player.
type ServiceImpl struct {
	cfg     *config.Config
	browser *rod.Browser
	page    *rod.Page
	// tempDir stores the temporary profile directory for cleanup.
	tempDir string
}

// NewService creates a new browser authentication service.
func NewService(cfg *config.Config) (*ServiceImpl, error) {
	return &ServiceImpl{
		cfg: cfg,
	}, nil
}

// LoginAndExtractToken opens a browser, waits for user to log in, then extracts the access token.
func (s *ServiceImpl) LoginAndExtractToken(ctx context.Context) (string, error) {
	logger.Info(ctx, "Starting browser-based authentication")

	// Initialize browser.
	if err := s.initBrowser(ctx); err != nil {
		return "", fmt.Errorf("failed to initialize browser: %w", err)
	}

	defer s.cleanup(ctx)

	// Navigate to the login page and wait for user to complete authentication.
	if err := s.waitForUserLogin(ctx); err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}

	// Mint a web player access token from the authenticated session.
	token, err := s.extractTokenFromWebPlayer(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to extract token: %w", err)
	}

	logger.Info(ctx, "Authentication token extracted successfully")

	return token, nil
}
