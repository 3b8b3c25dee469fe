package tags

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	id3v2 "github.com/bogem/id3v2/v2"
)

func newMP3(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.mp3")
	// ID3 frames don't depend on the audio payload
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xff, 0xfb, 0x90, 0x00}, 256), 0644); err != nil {
		t.Fatalf("couldn't write file: %v", err)
	}
	return path
}

func TestWrite(t *testing.T) {
	path := newMP3(t)
	err := Write(path, Meta{
		Title:  "Neon Nights",
		Artist: "Synth Machine",
		Album:  "Night Drive",
		Genre:  "synthwave",
		Year:   "2026",
		Track:  3,
	})
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("couldn't reopen tag: %v", err)
	}
	defer tag.Close()
	if got := tag.Title(); got != "Neon Nights" {
		t.Errorf("title = %q; want Neon Nights", got)
	}
	if got := tag.Artist(); got != "Synth Machine" {
		t.Errorf("artist = %q; want Synth Machine", got)
	}
	if got := tag.Album(); got != "Night Drive" {
		t.Errorf("album = %q; want Night Drive", got)
	}
	if got := tag.Genre(); got != "synthwave" {
		t.Errorf("genre = %q; want synthwave", got)
	}
	if got := tag.GetTextFrame(tag.CommonID("Track number/Position in set")).Text; got != "3" {
		t.Errorf("track = %q; want 3", got)
	}
}

func TestWriteDefaultArtist(t *testing.T) {
	path := newMP3(t)
	if err := Write(path, Meta{Title: "Untitled"}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("couldn't reopen tag: %v", err)
	}
	defer tag.Close()
	if got := tag.Artist(); got != DefaultArtist {
		t.Errorf("artist = %q; want %q", got, DefaultArtist)
	}
}

func TestEmbedCover(t *testing.T) {
	path := newMP3(t)
	if err := Write(path, Meta{Title: "Untitled"}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	cover := encodePNG(t)
	if err := EmbedCover(path, cover); err != nil {
		t.Fatalf("EmbedCover() error: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("couldn't reopen tag: %v", err)
	}
	defer tag.Close()
	frames := tag.GetFrames(tag.CommonID("Attached picture"))
	if len(frames) != 1 {
		t.Fatalf("len(pictures) = %d; want 1", len(frames))
	}
	pic, ok := frames[0].(id3v2.PictureFrame)
	if !ok {
		t.Fatalf("frame type = %T; want PictureFrame", frames[0])
	}
	if pic.MimeType != "image/png" {
		t.Errorf("mime = %q; want image/png", pic.MimeType)
	}
	if !bytes.Equal(pic.Picture, cover) {
		t.Errorf("picture bytes don't match cover")
	}
}

func TestDetectMime(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte("\x89PNG\r\n\x1a\n"), "image/png"},
		{"gif", []byte("GIF89a"), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpeg"},
		{"unknown defaults to jpeg", []byte("whatever"), "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMime(tt.data); got != tt.want {
				t.Errorf("DetectMime() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeCover(t *testing.T) {
	data := encodePNG(t)
	got, err := NormalizeCover(data)
	if err != nil {
		t.Fatalf("NormalizeCover() error: %v", err)
	}
	if DetectMime(got) != "image/jpeg" {
		t.Errorf("normalized mime = %q; want image/jpeg", DetectMime(got))
	}

	// JPEG input is passed through untouched
	same, err := NormalizeCover(got)
	if err != nil {
		t.Fatalf("NormalizeCover() error: %v", err)
	}
	if !bytes.Equal(same, got) {
		t.Errorf("jpeg input was re-encoded")
	}
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("couldn't encode png: %v", err)
	}
	return buf.Bytes()
}
