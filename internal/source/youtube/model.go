package youtube

import (
	"io"
	"mime"
	"strings"
)

// Video is one video found by a search, reduced to the fields
// the matching pipeline cares about.
type Video struct {
	// ID is the video identifier used to resolve streams and build watch URLs.
	ID string
	// Title is the video title as published.
	Title string
	// Channel is the publishing channel's display name.
	Channel string
	// DurationMS is the video length in milliseconds, zero when unknown.
	DurationMS int64
	// OfficialChannel reports whether the channel looks official:
	// a verified badge or an auto-generated topic channel.
	OfficialChannel bool
}

// AudioStream describes the audio-only stream chosen for a video.
type AudioStream struct {
	// URL is the direct, time-limited media URL.
	URL string
	// MimeType is the full MIME type declared for the stream.
	MimeType string
	// Container is the short container tag derived from the MIME type.
	Container string
	// BitrateKbps is the average bitrate in kilobits per second.
	BitrateKbps int
	// SizeBytes is the declared stream size, zero when unknown.
	SizeBytes int64
	// DurationMS is the stream duration in milliseconds, zero when unknown.
	DurationMS int64
	// Itag is the format code of the chosen stream.
	Itag int
}

// FetchStreamResult contains the stream body and its expected size.
type FetchStreamResult struct {
	// Body is the stream content to be read and closed by the caller.
	Body io.ReadCloser
	// TotalBytes is the total size of the stream, or -1 if unknown.
	TotalBytes int64
}

// innertubeContext is the client descriptor every Innertube request carries.
type innertubeContext struct {
	Client innertubeClient `json:"client"`
}

// innertubeClient identifies the calling client to the Innertube API.
type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	HL                string `json:"hl"`
	GL                string `json:"gl"`
	AndroidSDKVersion int    `json:"androidSdkVersion,omitempty"`
}

// searchRequest is the payload for the Innertube search endpoint.
type searchRequest struct {
	Context innertubeContext `json:"context"`
	Query   string           `json:"query"`
	Params  string           `json:"params,omitempty"`
}

// playerRequest is the payload for the Innertube player endpoint.
type playerRequest struct {
	Context innertubeContext `json:"context"`
	VideoID string           `json:"videoId"`
}

// searchResponse mirrors the slice of the search response the client reads.
// The full response is much larger; unknown fields are ignored.
type searchResponse struct {
	Contents struct {
		TwoColumnSearchResultsRenderer struct {
			PrimaryContents struct {
				SectionListRenderer struct {
					Contents []struct {
						ItemSectionRenderer struct {
							Contents []struct {
								VideoRenderer *videoRenderer `json:"videoRenderer"`
							} `json:"contents"`
						} `json:"itemSectionRenderer"`
					} `json:"contents"`
				} `json:"sectionListRenderer"`
			} `json:"primaryContents"`
		} `json:"twoColumnSearchResultsRenderer"`
	} `json:"contents"`
}

// videoRenderer is one search result entry.
type videoRenderer struct {
	VideoID     string       `json:"videoId"`
	Title       runsText     `json:"title"`
	OwnerText   runsText     `json:"ownerText"`
	LengthText  simpleText   `json:"lengthText"`
	OwnerBadges []ownerBadge `json:"ownerBadges"`
}

// ownerBadge is a badge attached to a search result's channel.
type ownerBadge struct {
	MetadataBadgeRenderer struct {
		Style string `json:"style"`
	} `json:"metadataBadgeRenderer"`
}

// runsText is text split into runs, as the API frequently returns it.
type runsText struct {
	Runs []textRun `json:"runs"`
}

// textRun is one piece of a runs-style text.
type textRun struct {
	Text string `json:"text"`
}

// String concatenates all runs into one string.
func (t runsText) String() string {
	if len(t.Runs) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, run := range t.Runs {
		builder.WriteString(run.Text)
	}

	return builder.String()
}

// simpleText is text returned as a single string.
type simpleText struct {
	SimpleText string `json:"simpleText"`
}

// playerResponse mirrors the slice of the player response the client reads.
type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	StreamingData struct {
		ExpiresInSeconds string   `json:"expiresInSeconds"`
		AdaptiveFormats  []format `json:"adaptiveFormats"`
	} `json:"streamingData"`
	VideoDetails struct {
		VideoID       string `json:"videoId"`
		Title         string `json:"title"`
		Author        string `json:"author"`
		LengthSeconds string `json:"lengthSeconds"`
	} `json:"videoDetails"`
}

// format is one entry of the player response's adaptive format list.
type format struct {
	Itag             int    `json:"itag"`
	URL              string `json:"url"`
	MimeType         string `json:"mimeType"`
	Bitrate          int    `json:"bitrate"`
	AverageBitrate   int    `json:"averageBitrate"`
	ContentLength    string `json:"contentLength"`
	AudioQuality     string `json:"audioQuality"`
	ApproxDurationMS string `json:"approxDurationMs"`
}

// isAudioOnly reports whether the format carries audio without video.
func (f *format) isAudioOnly() bool {
	return strings.HasPrefix(f.MimeType, "audio/")
}

// effectiveBitrate returns the average bitrate,
// falling back to the peak bitrate when no average is declared.
func (f *format) effectiveBitrate() int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}

	return f.Bitrate
}

// containerFromMimeType derives a short container tag from a stream MIME type.
// Opus inside WebM is tagged by its codec because that is what the file holds.
func containerFromMimeType(mimeType string) string {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ""
	}

	switch mediaType {
	case "audio/mp4":
		return "m4a"
	case "audio/mpeg":
		return "mp3"
	case "audio/webm":
		if strings.Contains(params["codecs"], "opus") {
			return "opus"
		}

		return "webm"
	default:
		return strings.TrimPrefix(mediaType, "audio/")
	}
}
