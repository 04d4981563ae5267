package tags

//go:generate $MOCKGEN -source=processor.go -destination=mocks/processor_mock.go

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/oshokin/id3v2/v2"

	"github.com/okorolenko/trackseek/internal/constants"
	"github.com/okorolenko/trackseek/internal/logger"
	"github.com/okorolenko/trackseek/internal/lyrics"
	"github.com/okorolenko/trackseek/internal/metadata"
	"github.com/okorolenko/trackseek/internal/utils"
)

// Processor defines the interface for writing metadata tags to audio files.
type Processor interface {
	WriteTags(ctx context.Context, req *WriteTagsRequest) error
}

// WriteTagsRequest contains parameters for writing metadata to audio files.
type WriteTagsRequest struct {
	// TrackPath is the file path of the audio track.
	TrackPath string
	// Track is the catalog metadata to write.
	Track *metadata.WantedTrack
	// CoverPath is the file path of the cover art image, empty when absent.
	CoverPath string
	// Lyrics is the lyrics payload to embed, nil when absent.
	Lyrics *lyrics.Lyrics
}

// ProcessorImpl provides the default implementation of Processor.
type ProcessorImpl struct{}

// imageMetadata contains image data and its MIME type.
type imageMetadata struct {
	// data contains the raw image bytes.
	data []byte
	// mimeType specifies the image format (e.g., "image/jpeg").
	mimeType string
}

// extractFLACCommentResult contains the result of extracting FLAC comment metadata.
type extractFLACCommentResult struct {
	// Comment is the FLAC Vorbis comment metadata block.
	Comment *flacvorbis.MetaDataBlockVorbisComment
	// Index is the index of the comment block in the FLAC file metadata (-1 if not found).
	Index int
}

// Static error definitions for better error handling.
var (
	// ErrEmptyTrackPath indicates that the track file path is empty.
	ErrEmptyTrackPath = errors.New("track path cannot be empty")
	// ErrMissingTrackMetadata indicates that no catalog metadata was provided.
	ErrMissingTrackMetadata = errors.New("track metadata cannot be empty")
	// ErrUnsupportedFormat indicates a file format tags cannot be written to.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// NewProcessor creates a new Processor instance.
func NewProcessor() Processor {
	return new(ProcessorImpl)
}

// WriteTags writes metadata to audio files based on the provided request.
// The format is chosen by file extension, MP3 and FLAC are supported.
func (p *ProcessorImpl) WriteTags(ctx context.Context, req *WriteTagsRequest) error {
	if req.TrackPath == "" {
		return ErrEmptyTrackPath
	}

	if req.Track == nil {
		return ErrMissingTrackMetadata
	}

	var image *imageMetadata

	// If a cover path is provided, read the cover art.
	if req.CoverPath != "" {
		imageData, err := os.ReadFile(filepath.Clean(req.CoverPath))
		if err != nil {
			return err
		}

		// Determine the MIME type of the cover art based on its file extension.
		imageMIMEType := mime.TypeByExtension(filepath.Ext(req.CoverPath))
		if imageMIMEType == "" {
			// Covers without a recognizable extension are almost always JPEG.
			imageMIMEType = utils.ImageJPEGMimeType
		}

		image = &imageMetadata{
			data:     imageData,
			mimeType: imageMIMEType,
		}
	}

	// Write tags based on the file extension.
	switch strings.ToLower(filepath.Ext(req.TrackPath)) {
	case constants.ExtensionFLAC:
		return p.writeFLACTags(ctx, req, image)
	case constants.ExtensionMP3:
		return p.writeMP3Tags(ctx, req, image)
	default:
		return fmt.Errorf("%w: '%s'", ErrUnsupportedFormat, filepath.Ext(req.TrackPath))
	}
}

func (p *ProcessorImpl) writeFLACTags(ctx context.Context, req *WriteTagsRequest, image *imageMetadata) error {
	// Parse the FLAC file.
	f, err := flac.ParseFile(filepath.Clean(req.TrackPath))
	if err != nil {
		return err
	}

	// Extract existing FLAC comments (metadata) from the file.
	commentResult, err := p.extractFLACComment(req.TrackPath)
	if err != nil {
		return err
	}

	tag := commentResult.Comment

	// If no existing comments are found, create a new metadata block.
	if tag == nil {
		tag = flacvorbis.New()
	}

	// Add tags to the FLAC metadata block.
	err = p.addFLACTags(tag, req)
	if err != nil {
		return err
	}

	// Marshal the updated metadata and update the FLAC file's metadata blocks.
	tagMeta := tag.Marshal()
	if commentResult.Index >= 0 {
		f.Meta[commentResult.Index] = &tagMeta
	} else {
		f.Meta = append(f.Meta, &tagMeta)
	}

	// Embed the cover art into the FLAC file if provided.
	p.embedFLACCover(ctx, f, image)

	// Save the updated FLAC file.
	return f.Save(req.TrackPath)
}

func (p *ProcessorImpl) extractFLACComment(filename string) (*extractFLACCommentResult, error) {
	f, err := flac.ParseFile(filepath.Clean(filename))
	if err != nil {
		return nil, err
	}

	// Iterate through the metadata blocks to find the Vorbis comment block.
	for idx, meta := range f.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}

		// Parse the Vorbis comment block.
		var comment *flacvorbis.MetaDataBlockVorbisComment

		comment, err = flacvorbis.ParseFromMetaDataBlock(*meta)
		if err == nil {
			return &extractFLACCommentResult{
				Comment: comment,
				Index:   idx,
			}, nil
		}
	}

	// Return nil comment if no Vorbis comment block is found.
	return &extractFLACCommentResult{
		Comment: nil,
		Index:   -1,
	}, nil
}

func (p *ProcessorImpl) addFLACTags(tag *flacvorbis.MetaDataBlockVorbisComment, req *WriteTagsRequest) error {
	track := req.Track

	// Map of FLAC tag keys to their corresponding track fields.
	flacTags := map[string]string{
		"TITLE":       track.Title,
		"ARTIST":      track.JoinedArtists(),
		"ALBUM":       track.Album,
		"ALBUMARTIST": albumArtistOrFallback(track),
		"DATE":        track.ReleaseDate,
		"YEAR":        track.ReleaseYear(),
		"GENRE":       strings.Join(track.Genres, ", "),
		"TRACKNUMBER": positiveNumber(track.TrackNumber),
		"TOTALTRACKS": positiveNumber(track.TotalTracks),
		"DISCNUMBER":  positiveNumber(track.DiscNumber),
	}

	if lyricsText := bestLyricsText(req.Lyrics); lyricsText != "" {
		flacTags["LYRICS"] = lyricsText
	}

	// Add each tag to the Vorbis comment block.
	for k, v := range flacTags {
		if v == "" {
			continue
		}

		err := tag.Add(k, v)
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *ProcessorImpl) embedFLACCover(ctx context.Context, f *flac.File, image *imageMetadata) {
	if image == nil {
		return
	}

	// Create a new FLAC picture block from the image data.
	picture, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "", image.data, image.mimeType)
	if err != nil {
		logger.Errorf(ctx, "Failed to embed image to FLAC: %v", err)

		return
	}

	// Add the picture block to the FLAC file's metadata.
	pictureMeta := picture.Marshal()
	f.Meta = append(f.Meta, &pictureMeta)
}

func (p *ProcessorImpl) writeMP3Tags(ctx context.Context, req *WriteTagsRequest, image *imageMetadata) error {
	// Open the MP3 file for writing metadata.
	//nolint:exhaustruct // ParseFrames intentionally omitted when Parse=false (parsing disabled).
	tag, err := id3v2.Open(req.TrackPath, id3v2.Options{Parse: false})
	if err != nil {
		return err
	}

	defer tag.Close()

	// Add metadata tags to the MP3 file.
	p.addMP3Tags(ctx, tag, req)

	// Embed the cover art into the MP3 file if provided.
	if image != nil {
		//nolint:exhaustruct // Description field intentionally empty for cover images.
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    image.mimeType,
			PictureType: id3v2.PTFrontCover,
			Picture:     image.data,
		})
	}

	// Save the updated MP3 file.
	return tag.Save()
}

func (p *ProcessorImpl) addMP3Tags(ctx context.Context, tag *id3v2.Tag, req *WriteTagsRequest) {
	track := req.Track

	// Set default encoding for the tags.
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	// Add basic metadata tags.
	tag.SetAlbum(track.Album)
	tag.SetArtist(track.JoinedArtists())
	tag.SetGenre(strings.Join(track.Genres, ", "))
	tag.SetTitle(track.Title)
	tag.SetYear(track.ReleaseYear())

	// Add track number and total tracks (e.g., "1/10").
	if trackNumber := formatPosition(track.TrackNumber, track.TotalTracks); trackNumber != "" {
		tag.AddTextFrame(
			tag.CommonID("Track number/Position in set"),
			tag.DefaultEncoding(),
			trackNumber)
	}

	// Add the disc number.
	if discNumber := positiveNumber(track.DiscNumber); discNumber != "" {
		tag.AddTextFrame(tag.CommonID("Part of a set"), tag.DefaultEncoding(), discNumber)
	}

	// Add the album artist.
	tag.AddTextFrame(
		tag.CommonID("Band/Orchestra/Accompaniment"),
		tag.DefaultEncoding(),
		albumArtistOrFallback(track))

	// Add lyrics if available.
	if req.Lyrics == nil || req.Lyrics.Instrumental {
		return
	}

	// Timestamped lyrics go into a synchronised frame.
	if req.Lyrics.HasSynced() {
		result, err := id3v2.ParseLRCFile(strings.NewReader(req.Lyrics.Synced))
		if err == nil {
			tag.AddSynchronisedLyricsFrame(id3v2.SynchronisedLyricsFrame{
				Encoding: id3v2.EncodingUTF8,
				// Field is required, so we just use lingua franca.
				Language: id3v2.EnglishISO6392Code,
				// Use absolute timestamps.
				TimestampFormat: id3v2.SYLTAbsoluteMillisecondsTimestampFormat,
				// Mark as lyrics.
				ContentType: id3v2.SYLTLyricsContentType,
				// Descriptor for lyrics.
				ContentDescriptor: "Lyrics",
				// The actual synchronized lyrics.
				SynchronizedTexts: result.SynchronizedTexts,
			})

			return
		}

		logger.Errorf(ctx, "Failed to parse LRC lyrics: %v", err)
	}

	plain := strings.TrimSpace(req.Lyrics.Plain)
	if plain == "" {
		return
	}

	// Add the unsynchronised lyrics frame to the tag.
	tag.AddUnsynchronisedLyricsFrame(
		//nolint:exhaustruct // ContentDescriptor not available in source data.
		id3v2.UnsynchronisedLyricsFrame{
			Encoding: id3v2.EncodingUTF8,
			Lyrics:   plain,
			// Field is required, so we just use lingua franca.
			Language: id3v2.EnglishISO6392Code,
		})
}

// albumArtistOrFallback prefers the album artist, falling back to the track artist.
func albumArtistOrFallback(track *metadata.WantedTrack) string {
	if track.AlbumArtist != "" {
		return track.AlbumArtist
	}

	return track.Artist
}

// positiveNumber renders a positive number, or empty for unknown values.
func positiveNumber(value int) string {
	if value <= 0 {
		return ""
	}

	return strconv.Itoa(value)
}

// formatPosition renders "number/total", or just the number when the total is unknown.
func formatPosition(number, total int) string {
	if number <= 0 {
		return ""
	}

	if total <= 0 {
		return strconv.Itoa(number)
	}

	return strconv.Itoa(number) + "/" + strconv.Itoa(total)
}

// bestLyricsText picks the richest lyrics representation for Vorbis comments,
// preferring timestamped text.
func bestLyricsText(payload *lyrics.Lyrics) string {
	if payload == nil || payload.Instrumental {
		return ""
	}

	if payload.HasSynced() {
		return payload.Synced
	}

	return strings.TrimSpace(payload.Plain)
}
