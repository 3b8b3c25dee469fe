package sound

import (
	"fmt"
	"math"
	"os"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// Duration decodes the MP3 header chain at path and returns the real
// audio length. Used to cross-check the duration reported by the
// generation service against what was actually downloaded.
func Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("sound: couldn't open file: %w", err)
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, fmt.Errorf("sound: couldn't decode mp3: %w", err)
	}
	// Length is decoded PCM bytes, 16-bit stereo
	samples := decoder.Length() / 4
	seconds := float64(samples) / float64(decoder.SampleRate())
	return time.Duration(seconds * float64(time.Second)), nil
}

// Check compares the decoded duration against the reported one and
// returns an error when they diverge by more than tolerance. A reported
// value of zero is accepted as unknown.
func Check(path string, reported float64, tolerance time.Duration) error {
	if reported <= 0 {
		return nil
	}
	d, err := Duration(path)
	if err != nil {
		return err
	}
	want := time.Duration(reported * float64(time.Second))
	diff := d - want
	if time.Duration(math.Abs(float64(diff))) > tolerance {
		return fmt.Errorf("sound: duration mismatch: decoded %s, reported %s", d, want)
	}
	return nil
}
