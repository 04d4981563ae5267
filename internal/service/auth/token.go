package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okorolenko/trackseek/internal/logger"
)

// getSessionCookie retrieves the session cookie value if it exists, without logging.
func (s *ServiceImpl) getSessionCookie(ctx context.Context) string {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf(ctx, "getSessionCookie panic recovered: %v", r)
		}
	}()

	cookies, err := s.page.Cookies([]string{spotifyWebPlayerURL})
	if err != nil {
		return ""
	}

	for _, cookie := range cookies {
		if cookie.Name == sessionCookieName && cookie.Value != "" {
			return cookie.Value
		}
	}

	return ""
}

// extractTokenFromWebPlayer mints a web player access token for the
// authenticated session. The raw session cookie is useless to API callers,
// so the bearer token has to come from the web player's own token endpoint.
func (s *ServiceImpl) extractTokenFromWebPlayer(ctx context.Context) (string, error) {
	logger.Info(ctx, "Extracting web player access token...")

	// Get current page URL.
	currentURL := s.page.MustInfo().URL
	logger.Debugf(ctx, "Current page URL: %s", currentURL)

	// The token endpoint only answers same-origin requests, so park the page
	// on the web player before calling it.
	if !strings.Contains(currentURL, webPlayerDomain) {
		logger.Debugf(ctx, "Navigating to %s for token extraction", spotifyWebPlayerURL)

		s.page.MustNavigate(spotifyWebPlayerURL)

		// Wait for the web player to load.
		time.Sleep(webPlayerLoadDelay)
	}

	// Call the token endpoint from page context so the session cookie rides along.
	eval, err := s.page.Eval(`(url) => fetch(url).then((resp) => resp.json())`, tokenEndpointURL)
	if err != nil {
		return "", fmt.Errorf("token endpoint request failed: %w", err)
	}

	payload := eval.Value.Map()

	// An anonymous session means the login never reached the web player.
	if payload["isAnonymous"].Bool() {
		logger.Error(ctx, "Token endpoint returned an anonymous session token")

		return "", ErrAnonymousSession
	}

	token := payload["accessToken"].Str()
	if token == "" {
		logger.Error(ctx, "Token endpoint response carried no access token")

		return "", ErrTokenNotFound
	}

	logger.Debugf(ctx, "Access token minted, length: %d characters", len(token))

	// Web player tokens are short-lived; tell the user when this one lapses.
	if expiryMS := payload["accessTokenExpirationTimestampMs"].Num(); expiryMS > 0 {
		expiresAt := time.UnixMilli(int64(expiryMS))
		logger.Infof(ctx, "Token is valid until %s", expiresAt.Format(time.RFC1123))
	}

	logger.Info(ctx, "Token extracted successfully from the web player!")

	return token, nil
}
