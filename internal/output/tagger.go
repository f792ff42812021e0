package output

import (
	"fmt"

	"github.com/bogem/id3v2"
)

// Tags holds the ID3 fields written on retag.
type Tags struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	Track  string

	// OriginalArtist goes to TOPE; players that group by it keep shows together.
	OriginalArtist string
	// Podcast sets the iTunes PCST flag so players file the episode as a podcast.
	Podcast        bool
}

// PodcastFlagFrameID is the iTunes podcast flag frame.
const PodcastFlagFrameID = "PCST"

// Tagger rewrites metadata on a media file in place.
type Tagger interface {
	Retag(path string, tags Tags) error
}

// ID3Tagger writes ID3v2.4 tags with UTF-8 text frames.
type ID3Tagger struct{}

// Retag replaces the frames named by tags on path, keeping any other frames
// already present.
func (ID3Tagger) Retag(path string, tags Tags) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3 tag: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetVersion(4)
	tag.SetTitle(tags.Title)
	tag.SetArtist(tags.Artist)
	tag.SetAlbum(tags.Album)
	tag.SetGenre(tags.Genre)

	trackID := tag.CommonID("Track number/Position in set")
	tag.DeleteFrames(trackID)
	tag.AddFrame(trackID, id3v2.TextFrame{
		Encoding: id3v2.EncodingUTF8,
		Text:     tags.Track,
	})

	if tags.OriginalArtist != "" {
		originalID := tag.CommonID("Original artist/performer")
		tag.DeleteFrames(originalID)
		tag.AddTextFrame(originalID, id3v2.EncodingUTF8, tags.OriginalArtist)
	}
	tag.DeleteFrames(PodcastFlagFrameID)
	if tags.Podcast {
		tag.AddFrame(PodcastFlagFrameID, id3v2.UnknownFrame{Body: []byte{0, 0, 0, 1}})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save id3 tag: %w", err)
	}
	return nil
}
