package slskd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/okorolenko/trackseek/internal/config"
	http_transport "github.com/okorolenko/trackseek/internal/transport/http"
	"github.com/okorolenko/trackseek/internal/utils"
)

// Client defines the interface for talking to a slskd daemon.
type Client interface {
	// StartSearch starts a new search on the Soulseek network.
	StartSearch(ctx context.Context, searchText string) (*Search, error)
	// GetSearch returns the current state of a search.
	GetSearch(ctx context.Context, searchID string) (*Search, error)
	// GetSearchResponses returns all peer responses gathered for a search.
	GetSearchResponses(ctx context.Context, searchID string) ([]SearchResponse, error)
	// DeleteSearch removes a search from the daemon.
	DeleteSearch(ctx context.Context, searchID string) error
	// EnqueueDownloads queues files for download from a specific peer.
	EnqueueDownloads(ctx context.Context, username string, files []DownloadRequest) error
	// GetAllDownloads returns every download known to the daemon as a flat list.
	GetAllDownloads(ctx context.Context) ([]Download, error)
	// CancelDownload cancels a download by its daemon identifier.
	CancelDownload(ctx context.Context, username, downloadID string) error
}

// ClientImpl implements the Client interface against the slskd REST API.
type ClientImpl struct {
	// cfg contains the application configuration.
	cfg *config.Config
	// baseURL is the daemon's base URL.
	baseURL string
	// httpClient is the HTTP client for making requests.
	httpClient *http.Client
}

const (
	// searchesURI is the URI path for the searches endpoint.
	searchesURI = "api/v0/searches"
	// searchResponsesURIPart is the URI path component for a search's responses.
	searchResponsesURIPart = "responses"
	// transfersDownloadsURI is the URI path for the downloads endpoint.
	transfersDownloadsURI = "api/v0/transfers/downloads"
	// apiKeyHeader is the header carrying the daemon API key.
	apiKeyHeader = "X-API-Key"
	// maxErrorBodyLength limits how much of an error response body is kept.
	maxErrorBodyLength = 512
)

// Static error definitions for better error handling.
var (
	// ErrUnexpectedHTTPStatus indicates an unexpected HTTP status code was received.
	ErrUnexpectedHTTPStatus = errors.New("unexpected HTTP status")
)

// NewClient creates and returns a new instance of ClientImpl.
func NewClient(cfg *config.Config) (Client, error) {
	baseURL, err := url.Parse(cfg.SlskdURL)
	if err != nil {
		return nil, fmt.Errorf("invalid slskd URL: %w", err)
	}

	// Initialize the HTTP client with custom transport and timeout.
	httpClient := &http.Client{
		Transport: http_transport.NewUserAgentInjector(
			http_transport.NewLogTransport(http.DefaultTransport, 0),
			utils.NewSimpleUserAgentProvider(http_transport.DefaultUserAgent)),
		Timeout: http_transport.DefaultTimeout,
	}

	client := &ClientImpl{
		cfg:        cfg,
		baseURL:    baseURL.String(),
		httpClient: httpClient,
	}

	return client, nil
}

// searchStartRequest is the body for starting a new search.
type searchStartRequest struct {
	// SearchText is the free-text query sent to the network.
	SearchText string `json:"searchText"`
}

// StartSearch starts a new search on the Soulseek network.
func (c *ClientImpl) StartSearch(ctx context.Context, searchText string) (*Search, error) {
	requestBody, err := json.Marshal(searchStartRequest{SearchText: searchText})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	requestURL, err := url.JoinPath(c.baseURL, searchesURI)
	if err != nil {
		return nil, fmt.Errorf("failed to build search URL: %w", err)
	}

	request, err := c.newRequest(ctx, http.MethodPost, requestURL, bytes.NewReader(requestBody))
	if err != nil {
		return nil, err
	}

	response, err := c.do(request, http.StatusOK, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close() //nolint:errcheck // Error on close is not critical here.

	var search Search
	if err = json.NewDecoder(response.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return &search, nil
}

// GetSearch returns the current state of a search.
func (c *ClientImpl) GetSearch(ctx context.Context, searchID string) (*Search, error) {
	requestURL, err := url.JoinPath(c.baseURL, searchesURI, url.PathEscape(searchID))
	if err != nil {
		return nil, fmt.Errorf("failed to build search URL: %w", err)
	}

	request, err := c.newRequest(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	response, err := c.do(request, http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close() //nolint:errcheck // Error on close is not critical here.

	var search Search
	if err = json.NewDecoder(response.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return &search, nil
}

// GetSearchResponses returns all peer responses gathered for a search.
func (c *ClientImpl) GetSearchResponses(ctx context.Context, searchID string) ([]SearchResponse, error) {
	requestURL, err := url.JoinPath(c.baseURL, searchesURI, url.PathEscape(searchID), searchResponsesURIPart)
	if err != nil {
		return nil, fmt.Errorf("failed to build search responses URL: %w", err)
	}

	request, err := c.newRequest(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	response, err := c.do(request, http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close() //nolint:errcheck // Error on close is not critical here.

	var searchResponses []SearchResponse
	if err = json.NewDecoder(response.Body).Decode(&searchResponses); err != nil {
		return nil, fmt.Errorf("failed to decode search responses: %w", err)
	}

	return searchResponses, nil
}

// DeleteSearch removes a search from the daemon.
func (c *ClientImpl) DeleteSearch(ctx context.Context, searchID string) error {
	requestURL, err := url.JoinPath(c.baseURL, searchesURI, url.PathEscape(searchID))
	if err != nil {
		return fmt.Errorf("failed to build search URL: %w", err)
	}

	request, err := c.newRequest(ctx, http.MethodDelete, requestURL, nil)
	if err != nil {
		return err
	}

	response, err := c.do(request, http.StatusOK, http.StatusNoContent)
	if err != nil {
		return err
	}

	response.Body.Close() //nolint:errcheck,gosec // Error on close is not critical here.

	return nil
}

// EnqueueDownloads queues files for download from a specific peer.
func (c *ClientImpl) EnqueueDownloads(ctx context.Context, username string, files []DownloadRequest) error {
	requestBody, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("failed to marshal download request: %w", err)
	}

	requestURL, err := url.JoinPath(c.baseURL, transfersDownloadsURI, url.PathEscape(username))
	if err != nil {
		return fmt.Errorf("failed to build downloads URL: %w", err)
	}

	request, err := c.newRequest(ctx, http.MethodPost, requestURL, bytes.NewReader(requestBody))
	if err != nil {
		return err
	}

	response, err := c.do(request, http.StatusOK, http.StatusCreated)
	if err != nil {
		return err
	}

	response.Body.Close() //nolint:errcheck,gosec // Error on close is not critical here.

	return nil
}

// GetAllDownloads returns every download known to the daemon as a flat list.
func (c *ClientImpl) GetAllDownloads(ctx context.Context) ([]Download, error) {
	requestURL, err := url.JoinPath(c.baseURL, transfersDownloadsURI)
	if err != nil {
		return nil, fmt.Errorf("failed to build downloads URL: %w", err)
	}

	request, err := c.newRequest(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	response, err := c.do(request, http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close() //nolint:errcheck // Error on close is not critical here.

	var userDownloads []UserDownloads
	if err = json.NewDecoder(response.Body).Decode(&userDownloads); err != nil {
		return nil, fmt.Errorf("failed to decode downloads response: %w", err)
	}

	// Flatten the nested user/directory/file structure into a list of downloads.
	var downloads []Download

	for _, user := range userDownloads {
		for _, directory := range user.Directories {
			for _, file := range directory.Files {
				downloads = append(downloads, Download{
					ID:               file.ID,
					Username:         file.Username,
					Filename:         file.Filename,
					State:            file.State,
					Size:             file.Size,
					BytesTransferred: file.BytesTransferred,
				})
			}
		}
	}

	return downloads, nil
}

// CancelDownload cancels a download by its daemon identifier.
// A missing download record counts as success: the daemon forgets
// finished transfers on its own schedule.
func (c *ClientImpl) CancelDownload(ctx context.Context, username, downloadID string) error {
	requestURL, err := url.JoinPath(
		c.baseURL, transfersDownloadsURI, url.PathEscape(username), url.PathEscape(downloadID))
	if err != nil {
		return fmt.Errorf("failed to build downloads URL: %w", err)
	}

	request, err := c.newRequest(ctx, http.MethodDelete, requestURL, nil)
	if err != nil {
		return err
	}

	response, err := c.do(request, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
	if err != nil {
		return err
	}

	response.Body.Close() //nolint:errcheck,gosec // Error on close is not critical here.

	return nil
}

// newRequest builds a request for the daemon with auth and content headers set.
func (c *ClientImpl) newRequest(ctx context.Context, method, requestURL string, body io.Reader) (*http.Request, error) {
	if body == nil {
		body = http.NoBody
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, err
	}

	request.Header.Set("Accept", "application/json")
	request.Header.Set(apiKeyHeader, c.cfg.SlskdAPIKey)

	if body != http.NoBody {
		request.Header.Set("Content-Type", "application/json")
	}

	return request, nil
}

// do executes the request and verifies the response status is one of wantStatuses.
// The caller owns the response body on success.
func (c *ClientImpl) do(request *http.Request, wantStatuses ...int) (*http.Response, error) {
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}

	if slices.Contains(wantStatuses, response.StatusCode) {
		return response, nil
	}

	body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyLength))
	response.Body.Close() //nolint:errcheck,gosec // Error on close is not critical here.

	return nil, fmt.Errorf("%w: %d: %s", ErrUnexpectedHTTPStatus, response.StatusCode, strings.TrimSpace(string(body)))
}
