package tags

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"strconv"

	_ "image/gif"
	_ "image/png"

	id3v2 "github.com/bogem/id3v2/v2"
	_ "golang.org/x/image/webp"
)

// DefaultArtist is used when no artist override is configured.
const DefaultArtist = "Suno AI"

// Meta holds the ID3 fields written to a downloaded track. Empty fields
// are left untouched.
type Meta struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	Year   string
	Track  int
}

// Write sets text frames on the MP3 at path. A file without an existing
// ID3 header gets a fresh v2.4 tag.
func Write(path string, meta Meta) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("tags: couldn't open %s: %w", path, err)
	}
	defer tag.Close()

	artist := meta.Artist
	if artist == "" {
		artist = DefaultArtist
	}
	tag.SetArtist(artist)
	if meta.Title != "" {
		tag.SetTitle(meta.Title)
	}
	if meta.Album != "" {
		tag.SetAlbum(meta.Album)
		tag.AddTextFrame("TPE2", tag.DefaultEncoding(), artist)
	}
	if meta.Genre != "" {
		tag.SetGenre(meta.Genre)
	}
	if meta.Year != "" {
		tag.SetYear(meta.Year)
	}
	if meta.Track > 0 {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), tag.DefaultEncoding(), strconv.Itoa(meta.Track))
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("tags: couldn't save %s: %w", path, err)
	}
	return nil
}

// EmbedCover replaces any attached pictures on the MP3 at path with the
// given image bytes as the front cover.
func EmbedCover(path string, cover []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("tags: couldn't open %s: %w", path, err)
	}
	defer tag.Close()

	tag.DeleteFrames(tag.CommonID("Attached picture"))
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    DetectMime(cover),
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     cover,
	})

	if err := tag.Save(); err != nil {
		return fmt.Errorf("tags: couldn't save %s: %w", path, err)
	}
	return nil
}

// DetectMime sniffs the image format from magic bytes, defaulting to JPEG.
func DetectMime(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return "image/png"
	case bytes.HasPrefix(data, []byte("GIF")):
		return "image/gif"
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// NormalizeCover re-encodes an image as JPEG. Covers arrive as PNG, GIF
// or WEBP and many players only render JPEG front covers. JPEG input is
// returned unchanged.
func NormalizeCover(data []byte) ([]byte, error) {
	if DetectMime(data) == "image/jpeg" {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("tags: couldn't decode cover: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("tags: couldn't encode cover: %w", err)
	}
	return buf.Bytes(), nil
}
