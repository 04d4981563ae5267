package slskd

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/okorolenko/trackseek/internal/config"
	"github.com/okorolenko/trackseek/internal/logger"
	"github.com/okorolenko/trackseek/internal/source"
)

// AdapterImpl acquires tracks from the Soulseek network through a slskd daemon.
type AdapterImpl struct {
	// cfg contains the application configuration.
	cfg *config.Config
	// client talks to the slskd REST API.
	client Client
}

const (
	// searchPollInterval is the pause between search state polls.
	searchPollInterval = 500 * time.Millisecond

	// millisecondsPerSecond converts peer-reported durations to milliseconds.
	millisecondsPerSecond = 1000

	// locatorSeparator joins the locator parts. Soulseek paths are
	// Windows-style and never contain newlines.
	locatorSeparator = "\n"

	// locatorPartsCount is the number of parts in an encoded locator.
	locatorPartsCount = 3
)

// Static error definitions for better error handling.
var (
	// ErrMalformedLocator indicates a locator that did not come from this adapter.
	ErrMalformedLocator = errors.New("malformed soulseek locator")

	// trackNumberPattern strips leading track numbers such as "07 - ", "01. " or "3) ".
	//nolint:gochecknoglobals // This is an immutable, pre-compiled regex pattern and used as a constant.
	trackNumberPattern = regexp.MustCompile(`^\d{1,3}\s*[-._)]\s*`)

	// audioContainers lists the containers worth offering as candidates.
	//nolint:gochecknoglobals // This is an immutable map used as a constant for filtering.
	audioContainers = map[string]struct{}{
		"mp3":  {},
		"flac": {},
		"ogg":  {},
		"opus": {},
		"m4a":  {},
		"aac":  {},
		"wav":  {},
		"ape":  {},
		"alac": {},
		"wma":  {},
		"aiff": {},
		"wv":   {},
	}
)

// NewAdapter creates and returns a new instance of AdapterImpl.
func NewAdapter(cfg *config.Config, client Client) source.Adapter {
	return &AdapterImpl{
		cfg:    cfg,
		client: client,
	}
}

// Origin returns the tag this adapter stamps on its candidates.
func (a *AdapterImpl) Origin() source.CandidateOrigin {
	return source.OriginSlskd
}

// IsConfigured reports whether the daemon URL is set.
func (a *AdapterImpl) IsConfigured() bool {
	return strings.TrimSpace(a.cfg.SlskdURL) != ""
}

// CheckReachable probes the daemon by listing downloads.
func (a *AdapterImpl) CheckReachable(ctx context.Context) error {
	if _, err := a.client.GetAllDownloads(ctx); err != nil {
		return fmt.Errorf("%w: %v", source.ErrUnreachable, err)
	}

	return nil
}

// Search runs one query on the Soulseek network and collects candidates
// from the peer responses gathered within the timeout.
func (a *AdapterImpl) Search(ctx context.Context, query string, timeout time.Duration) ([]source.Candidate, error) {
	search, err := a.client.StartSearch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to start search: %w", err)
	}

	// Searches accumulate on the daemon, so drop them once collected.
	defer func() {
		if deleteErr := a.client.DeleteSearch(context.WithoutCancel(ctx), search.ID); deleteErr != nil {
			logger.Warnf(ctx, "Failed to delete search %s: %v", search.ID, deleteErr)
		}
	}()

	if err = a.waitForSearch(ctx, search.ID, timeout); err != nil {
		return nil, err
	}

	responses, err := a.client.GetSearchResponses(ctx, search.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search responses: %w", err)
	}

	return a.collectCandidates(ctx, responses), nil
}

// StartTransfer enqueues the file behind the locator on the daemon.
// The daemon keys downloads by peer and remote path, so the locator
// doubles as the transfer identifier.
func (a *AdapterImpl) StartTransfer(ctx context.Context, locator string) (string, error) {
	username, filename, size, err := parseLocator(locator)
	if err != nil {
		return "", err
	}

	files := []DownloadRequest{{Filename: filename, Size: size}}
	if err = a.client.EnqueueDownloads(ctx, username, files); err != nil {
		return "", fmt.Errorf("failed to enqueue download: %w", err)
	}

	logger.Debugf(ctx, "Enqueued download of %q from %s", filename, username)

	return locator, nil
}

// TransferStatus reports the daemon's view of a running transfer.
func (a *AdapterImpl) TransferStatus(ctx context.Context, transferID string) (*source.TransferStatus, error) {
	username, filename, _, err := parseLocator(transferID)
	if err != nil {
		return nil, err
	}

	download, err := a.findDownload(ctx, username, filename)
	if err != nil {
		return nil, err
	}

	status := &source.TransferStatus{
		State:            download.State.Bucket(),
		RemoteState:      string(download.State),
		TransferredBytes: download.BytesTransferred,
		TotalBytes:       download.Size,
		UpdatedAt:        time.Now(),
	}

	if status.State == source.TransferStateCompleted {
		status.LocalPath = a.localPathFor(filename)
	}

	return status, nil
}

// CancelTransfer cancels the transfer on the daemon.
func (a *AdapterImpl) CancelTransfer(ctx context.Context, transferID string) error {
	username, filename, _, err := parseLocator(transferID)
	if err != nil {
		return err
	}

	download, err := a.findDownload(ctx, username, filename)
	if err != nil {
		return err
	}

	if err = a.client.CancelDownload(ctx, username, download.ID); err != nil {
		return fmt.Errorf("failed to cancel download: %w", err)
	}

	return nil
}

// waitForSearch polls the search until it completes or the timeout passes.
// Running out of time is not an error: whatever responses arrived are used.
func (a *AdapterImpl) waitForSearch(ctx context.Context, searchID string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = a.cfg.ParsedSlskdSearchTimeout
	}

	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(searchPollInterval)
	defer ticker.Stop()

	for {
		search, err := a.client.GetSearch(ctx, searchID)
		if err != nil {
			return fmt.Errorf("failed to poll search: %w", err)
		}

		if search.State.IsComplete() || time.Now().After(deadline) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// collectCandidates flattens peer responses into unscored candidates,
// skipping locked files and non-audio containers.
func (a *AdapterImpl) collectCandidates(ctx context.Context, responses []SearchResponse) []source.Candidate {
	var candidates []source.Candidate

	for _, response := range responses {
		freeSlots := 0
		if response.HasFreeUploadSlot {
			freeSlots = 1
		}

		for _, file := range response.Files {
			if file.IsLocked {
				continue
			}

			container := containerOf(&file)
			if _, ok := audioContainers[container]; !ok {
				continue
			}

			title, artist, album := parseRemotePath(file.Filename)

			candidates = append(candidates, source.Candidate{
				Origin:      source.OriginSlskd,
				Locator:     encodeLocator(response.Username, file.Filename, file.Size),
				Title:       title,
				Artist:      artist,
				Album:       album,
				Container:   container,
				BitrateKbps: file.BitRate,
				DurationMS:  int64(file.Length) * millisecondsPerSecond,
				SizeBytes:   file.Size,
				FreeSlots:   freeSlots,
				QueueDepth:  response.QueueLength,
				Throughput:  int64(response.UploadSpeed),
			})
		}
	}

	logger.Debugf(ctx, "Collected %d candidates from %d peer responses", len(candidates), len(responses))

	return candidates
}

// findDownload locates the daemon's download record for a peer and remote path.
// A retried file can leave several records behind: an active one wins over
// finished ones, and among finished ones the most recent wins.
func (a *AdapterImpl) findDownload(ctx context.Context, username, filename string) (*Download, error) {
	downloads, err := a.client.GetAllDownloads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}

	var lastMatch *Download

	for i := range downloads {
		download := &downloads[i]
		if download.Username != username || download.Filename != filename {
			continue
		}

		if !download.State.Bucket().IsTerminal() {
			return download, nil
		}

		lastMatch = download
	}

	if lastMatch != nil {
		return lastMatch, nil
	}

	return nil, source.ErrTransferNotFound
}

// localPathFor maps a remote path to where the daemon drops the finished file:
// <downloads>/<last remote folder>/<base name>.
func (a *AdapterImpl) localPathFor(remotePath string) string {
	normalized := strings.ReplaceAll(remotePath, "\\", "/")
	folder := path.Base(strings.TrimPrefix(path.Dir(normalized), "@@"))

	if folder == "." || folder == "/" {
		return filepath.Join(a.cfg.SlskdDownloadsPath, path.Base(normalized))
	}

	return filepath.Join(a.cfg.SlskdDownloadsPath, folder, path.Base(normalized))
}

// containerOf returns the lowercase container tag of a shared file,
// preferring the peer-declared extension over the filename suffix.
func containerOf(file *File) string {
	extension := file.Extension
	if extension == "" {
		extension = path.Ext(strings.ReplaceAll(file.Filename, "\\", "/"))
	}

	return strings.TrimPrefix(strings.ToLower(extension), ".")
}

// parseRemotePath extracts a best-effort title, artist and album from a
// peer's remote path, e.g.
// "@@abc\Music\Queen\A Night at the Opera\07 - Queen - Bohemian Rhapsody.flac".
func parseRemotePath(remotePath string) (title, artist, album string) {
	normalized := strings.ReplaceAll(remotePath, "\\", "/")

	base := path.Base(normalized)
	if extension := path.Ext(base); extension != "" {
		base = strings.TrimSuffix(base, extension)
	}

	if folder := path.Base(strings.TrimPrefix(path.Dir(normalized), "@@")); folder != "." && folder != "/" {
		album = folder
	}

	base = trackNumberPattern.ReplaceAllString(base, "")

	if artistPart, titlePart, found := strings.Cut(base, " - "); found {
		artist = strings.TrimSpace(artistPart)
		title = strings.TrimSpace(titlePart)
	} else {
		title = strings.TrimSpace(base)
	}

	return title, artist, album
}

// encodeLocator packs a peer username, remote path and size into one opaque string.
func encodeLocator(username, filename string, size int64) string {
	return username + locatorSeparator + filename + locatorSeparator + strconv.FormatInt(size, 10)
}

// parseLocator unpacks a locator produced by encodeLocator.
func parseLocator(locator string) (username, filename string, size int64, err error) {
	parts := strings.SplitN(locator, locatorSeparator, locatorPartsCount)
	if len(parts) != locatorPartsCount {
		return "", "", 0, fmt.Errorf("%w: %q", ErrMalformedLocator, locator)
	}

	size, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("%w: %q", ErrMalformedLocator, locator)
	}

	return parts[0], parts[1], size, nil
}
