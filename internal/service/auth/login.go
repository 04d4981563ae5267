package auth

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/okorolenko/trackseek/internal/logger"
)

// waitForUserLogin navigates to the dedicated login page and waits for successful authentication.
//
//nolint:funlen // Login instructions require many log statements.
func (s *ServiceImpl) waitForUserLogin(ctx context.Context) error {
	logger.Info(ctx, "Opening Spotify login page...")

	logger.Debugf(ctx, "Navigating to %s", spotifyLoginURL)

	// Add random delay before navigation to appear more human.
	randomHumanDelay()

	s.page.MustNavigate(spotifyLoginURL)

	// Wait for page to fully load with random delay.
	randomHumanDelay()

	// Perform some human-like mouse movements after page load.
	s.simulateHumanBehavior(ctx)

	currentURL := s.page.MustInfo().URL
	logger.Debugf(ctx, "Navigation complete. Current URL: %s", currentURL)

	logger.Info(ctx, "")
	logger.Info(ctx, "╔══════════════════════════════════════════════════════════════════╗")
	logger.Info(ctx, "║                      LOGIN INSTRUCTIONS                          ║")
	logger.Info(ctx, "╚══════════════════════════════════════════════════════════════════╝")
	logger.Info(ctx, "")
	logger.Info(ctx, "Please complete the login in the browser:")
	logger.Info(ctx, "")
	logger.Info(ctx, "1. Sign in with your Spotify email and password,")
	logger.Info(ctx, "   or continue with Google, Facebook or Apple")
	logger.Info(ctx, "")
	logger.Info(ctx, "2. Solve the verification challenge if one appears")
	logger.Info(ctx, "")
	logger.Info(ctx, "3. Wait for the web player to load after signing in")
	logger.Info(ctx, "")
	logger.Info(ctx, "4. DO NOT CLOSE THE BROWSER - let it complete automatically")
	logger.Info(ctx, "")
	logger.Info(ctx, "CRITICAL RULES:")
	logger.Info(ctx, "- ONLY interact with login forms")
	logger.Info(ctx, "- Do NOT close browser manually")
	logger.Info(ctx, "- Do NOT navigate away from Spotify or your sign-in provider")
	logger.Info(ctx, "- Tool will auto-detect when login completes")
	logger.Info(ctx, "")
	logger.Info(ctx, "Waiting for login to complete...")
	logger.Info(ctx, "")

	// Wait for login by monitoring the process.
	if err := s.waitForLoginComplete(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Login completed successfully!")

	// Give the session a moment to fully establish.
	time.Sleep(sessionEstablishDelay)

	return nil
}

// waitForLoginComplete monitors the login process and detects success by the
// session cookie landing on .spotify.com, with the logged-in web player UI as
// a fallback signal.
//
//nolint:cyclop // Login monitoring requires several independent checks per cycle.
func (s *ServiceImpl) waitForLoginComplete(ctx context.Context) error {
	var (
		startTime = time.Now()
		lastURL   string
		// Track if we've entered a partner sign-in flow.
		inPartnerSignIn bool
	)

	for {
		// Check context cancellation.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Check timeout.
		if time.Since(startTime) > maxLoginWaitTime {
			return fmt.Errorf("%w: waited for %v", ErrLoginTimeout, maxLoginWaitTime)
		}

		// Check if browser was closed.
		if !s.isBrowserAlive(ctx) {
			return ErrBrowserClosed
		}

		// Get current URL safely.
		currentURL, err := s.getCurrentURL(ctx)
		if err != nil {
			return fmt.Errorf("failed to get current URL: %w", err)
		}

		// Log URL changes for debugging.
		if currentURL != lastURL {
			s.logURLChange(ctx, currentURL)
			lastURL = currentURL
		}

		// Track partner sign-in flow entry.
		if onPartnerDomain(currentURL) && !inPartnerSignIn {
			logger.Info(ctx, "Partner sign-in flow started")
			logger.Info(ctx, "Waiting for the provider to hand control back to Spotify...")

			inPartnerSignIn = true
		}

		// The session cookie is set on .spotify.com as soon as authentication
		// succeeds, no matter which provider handled the sign-in.
		if strings.Contains(currentURL, spotifyDomain) {
			if s.getSessionCookie(ctx) != "" {
				logger.Info(ctx, "Session cookie detected - login successful!")

				return nil
			}

			// Fall back to the logged-in UI marker on the web player itself.
			if strings.Contains(currentURL, webPlayerDomain) {
				if loggedIn, checkErr := s.checkIfLoggedIn(ctx); checkErr == nil && loggedIn {
					return nil
				}
			}
		}

		// Validate user hasn't navigated away.
		if err = s.validateLoginURL(currentURL); err != nil {
			return err
		}

		// Simulate human behavior to avoid bot detection.
		s.simulateHumanBehavior(ctx)

		// Occasionally add extra random interactions.
		//nolint:gosec // Weak random is fine for simulating human behavior.
		if rand.IntN(interactionProbability) == 0 {
			s.simulateRandomPageInteraction(ctx)
		}

		// Wait before checking again with some randomness.
		randomHumanDelay()
	}
}

// logURLChange logs URL changes and page details in debug mode.
func (s *ServiceImpl) logURLChange(ctx context.Context, currentURL string) {
	logger.Debugf(ctx, "URL changed: %s", currentURL)

	if !logger.IsDebugLevel() {
		return
	}

	// Show page title.
	pageInfo, err := s.page.Info()
	if err == nil {
		logger.Debugf(ctx, "Page title: %s", pageInfo.Title)
	}

	// Get full page HTML.
	html, err := s.page.HTML()
	if err == nil {
		logger.Debugf(ctx, "Page HTML (full):\n%s", html)
	}
}

// checkIfLoggedIn checks if the user is logged in by looking for the avatar button.
func (s *ServiceImpl) checkIfLoggedIn(ctx context.Context) (bool, error) {
	logger.Debug(ctx, "On the web player - checking for successful login...")

	// Try to find the avatar button (appears only when logged in).
	avatarExists, _, err := s.page.Has(avatarButtonSelector)
	if err == nil && avatarExists {
		logger.Debug(ctx, "Avatar button found - login successful!")

		return true, nil
	}

	// Also check if the login button still exists (not logged in).
	loginButtonExists, _, err := s.page.Has(loginButtonSelector)
	if err == nil && loginButtonExists {
		logger.Debug(ctx, "Still see the login button - not logged in yet, waiting...")
	}

	return false, err
}

// onPartnerDomain reports whether the URL belongs to one of the external
// identity providers Spotify offers for sign-in.
func onPartnerDomain(currentURL string) bool {
	return strings.Contains(currentURL, googleAccountsDomain) ||
		strings.Contains(currentURL, facebookDomain) ||
		strings.Contains(currentURL, appleIDDomain)
}

// validateLoginURL validates that the user hasn't navigated away from allowed domains.
func (s *ServiceImpl) validateLoginURL(currentURL string) error {
	if strings.Contains(currentURL, spotifyDomain) || onPartnerDomain(currentURL) {
		return nil
	}

	return fmt.Errorf("%w to: %s", ErrNavigatedAway, currentURL)
}
