// Package audio renders soundtracks for stories.
package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/rcliao/episode-forge/internal/media"
	"github.com/rcliao/episode-forge/internal/model"
)

// ErrInvalidDuration is returned for stories without a positive duration.
var ErrInvalidDuration = errors.New("audio: duration_minutes must be positive")

// Tone renders a constant sine wave for the length of the story. It needs
// nothing but the filesystem and always produces the same bytes for the
// same duration.
type Tone struct {
	SampleRate int
	Hz         float64
}

func (t Tone) Generate(ctx context.Context, story *model.Story, dir string) (media.Artifact, error) {
	if story.DurationMinutes <= 0 {
		return media.Artifact{}, fmt.Errorf("%w: got %d", ErrInvalidDuration, story.DurationMinutes)
	}
	rate := t.SampleRate
	if rate <= 0 {
		rate = 44100
	}
	hz := t.Hz
	if hz <= 0 {
		hz = 440
	}

	n := story.DurationMinutes * 60 * rate
	step := 2 * math.Pi * hz / float64(rate)
	sample := func(i int) int16 {
		return int16(32767 * math.Sin(step*float64(i)))
	}

	path := media.ArtifactPath(dir, story.Title, "wav")
	if err := writeWAVFile(ctx, path, rate, n, sample); err != nil {
		return media.Artifact{}, err
	}
	return media.Artifact{Path: path, ContentType: media.ContentTypeWAV}, nil
}

// writeWAVFile writes a WAV file at path, removing it if anything fails.
func writeWAVFile(ctx context.Context, path string, rate, n int, sample SampleFunc) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close audio file: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	return WriteWAV(ctx, f, rate, n, sample)
}
