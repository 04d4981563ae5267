package metadata

import (
	"context"
	"regexp"
	"strings"

	"github.com/okorolenko/trackseek/internal/logger"
	"github.com/okorolenko/trackseek/internal/utils"
)

// wantsFileExtension marks an input argument as a file of references.
const wantsFileExtension = ".txt"

// kindsByPatterns maps reference URL patterns to reference kinds.
// Primary catalog identifiers are base62; secondary ones are numeric,
// with an optional locale segment in the path.
//
//nolint:gochecknoglobals,lll // This is a justified global variable: immutable data, performance optimization, and reusability.
var kindsByPatterns = []struct {
	// Pattern is the regex pattern to match references.
	Pattern *regexp.Regexp
	// Kind is the reference kind for matched references.
	Kind ReferenceKind
}{
	{regexp.MustCompile(`open\.spotify\.com/track/(?<ID>[0-9A-Za-z]+)`), ReferenceTrack},
	{regexp.MustCompile(`open\.spotify\.com/album/(?<ID>[0-9A-Za-z]+)`), ReferenceAlbum},
	{regexp.MustCompile(`open\.spotify\.com/playlist/(?<ID>[0-9A-Za-z]+)`), ReferencePlaylist},
	{regexp.MustCompile(`deezer\.com/(?:[a-z]{2}/)?track/(?<ID>\d+)`), ReferenceTrack},
	{regexp.MustCompile(`deezer\.com/(?:[a-z]{2}/)?album/(?<ID>\d+)`), ReferenceAlbum},
	{regexp.MustCompile(`deezer\.com/(?:[a-z]{2}/)?playlist/(?<ID>\d+)`), ReferencePlaylist},
}

// ParseReferences turns raw input arguments into classified references.
// Arguments ending in .txt are read as files of one reference per line.
// Unrecognized URLs are logged and dropped; anything that is not a URL
// becomes a free-text query reference.
func ParseReferences(ctx context.Context, rawRefs []string) ([]*Reference, error) {
	// Flatten file arguments into their lines first.
	flattened, err := flattenReferenceInputs(rawRefs)
	if err != nil {
		return nil, err
	}

	references := make([]*Reference, 0, len(flattened))

	for _, raw := range flattened {
		reference := parseReference(raw)
		if reference.Kind == ReferenceUnknown {
			logger.Warnf(ctx, "Unrecognized reference: %s", raw)

			continue
		}

		references = append(references, reference)
	}

	return references, nil
}

func parseReference(raw string) *Reference {
	// Match the reference against each pattern to determine its kind.
	for _, p := range kindsByPatterns {
		if itemID := utils.ExtractNamedGroup(p.Pattern, "ID", raw); itemID != "" {
			return &Reference{Kind: p.Kind, Raw: raw, ItemID: itemID}
		}
	}

	// A URL that matched no pattern is not something we can resolve.
	if strings.Contains(raw, "://") {
		return &Reference{Kind: ReferenceUnknown, Raw: raw}
	}

	// Everything else is a free-text query.
	return &Reference{Kind: ReferenceQuery, Raw: strings.TrimSpace(raw)}
}

func flattenReferenceInputs(rawRefs []string) ([]string, error) {
	var (
		// Track seen references to drop duplicates.
		seen = make(map[string]struct{})
		// Track processed files so a file listed twice is read once.
		seenFiles = make(map[string]struct{})
		// Store the final list of references.
		flattened []string
	)

	for _, raw := range rawRefs {
		// Plain references go straight to the list.
		if !strings.HasSuffix(raw, wantsFileExtension) {
			if _, ok := seen[raw]; ok {
				continue
			}

			seen[raw] = struct{}{}

			flattened = append(flattened, raw)

			continue
		}

		// Skip already processed files.
		if _, ok := seenFiles[raw]; ok {
			continue
		}

		// Read unique lines from the file.
		lines, err := utils.ReadUniqueLinesFromFile(raw)
		if err != nil {
			return nil, err
		}

		for _, line := range lines {
			if _, ok := seen[line]; ok {
				continue
			}

			seen[line] = struct{}{}

			flattened = append(flattened, line)
		}

		seenFiles[raw] = struct{}{}
	}

	return flattened, nil
}
