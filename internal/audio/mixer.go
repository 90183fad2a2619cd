package audio

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"

	"github.com/rcliao/episode-forge/internal/logger"
	"github.com/rcliao/episode-forge/internal/media"
	"github.com/rcliao/episode-forge/internal/model"
)

// Pentatonic scale rooted at A3, in Hz.
var scale = []float64{220.00, 246.94, 277.18, 329.63, 369.99, 440.00, 493.88, 554.37}

const (
	fadeSeconds = 1.5
	musicGain   = 0.35
	ambientGain = 0.12
)

// cue is one synthesized layer active over [start, end) seconds.
type cue struct {
	start, end float64
	freqs      []float64
	gain       float64
}

func (c cue) at(t float64) float64 {
	if t < c.start || t >= c.end {
		return 0
	}
	env := 1.0
	if d := t - c.start; d < fadeSeconds {
		env = d / fadeSeconds
	}
	if d := c.end - t; d < fadeSeconds {
		env = math.Min(env, d/fadeSeconds)
	}
	var v float64
	for _, f := range c.freqs {
		v += math.Sin(2 * math.Pi * f * t)
	}
	return c.gain * env * v / float64(len(c.freqs))
}

// Mixer renders one chord cue per musical moment and one drone per scene,
// overlays them and encodes the mix to MP3 with ffmpeg.
type Mixer struct {
	sampleRate int
	ffmpeg     *media.FFmpeg
	log        *logger.Logger
}

func NewMixer(sampleRate int, ffmpeg *media.FFmpeg, log *logger.Logger) *Mixer {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &Mixer{sampleRate: sampleRate, ffmpeg: ffmpeg, log: log.With("component", "audio.Mixer")}
}

func (m *Mixer) Generate(ctx context.Context, story *model.Story, dir string) (media.Artifact, error) {
	if story.DurationMinutes <= 0 {
		return media.Artifact{}, fmt.Errorf("%w: got %d", ErrInvalidDuration, story.DurationMinutes)
	}
	if err := m.ffmpeg.Available(); err != nil {
		return media.Artifact{}, err
	}

	total := float64(story.DurationMinutes * 60)
	cues := arrange(story, total)
	m.log.Debug("mixing soundtrack", "story_id", story.ID, "cues", len(cues), "seconds", total)

	work, err := os.MkdirTemp("", "episode-forge-audio-*")
	if err != nil {
		return media.Artifact{}, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(work)

	rate := float64(m.sampleRate)
	mix := func(i int) int16 {
		t := float64(i) / rate
		var v float64
		for _, c := range cues {
			v += c.at(t)
		}
		return int16(32767 * math.Max(-1, math.Min(1, v)))
	}

	raw := filepath.Join(work, "mix.wav")
	if err := writeWAVFile(ctx, raw, m.sampleRate, int(total)*m.sampleRate, mix); err != nil {
		return media.Artifact{}, err
	}

	out := media.ArtifactPath(dir, story.Title, "mp3")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return media.Artifact{}, fmt.Errorf("create audio dir: %w", err)
	}
	if err := m.ffmpeg.Run(ctx, "-i", raw, "-codec:a", "libmp3lame", "-b:a", "192k", out); err != nil {
		os.Remove(out)
		return media.Artifact{}, fmt.Errorf("encode mp3: %w", err)
	}
	return media.Artifact{Path: out, ContentType: media.ContentTypeMP3}, nil
}

// arrange lays musical moments and scene drones out over total seconds.
// Moments split the runtime evenly; scenes use their duration_seconds when
// every scene has one that fits, and an even split otherwise.
func arrange(story *model.Story, total float64) []cue {
	var cues []cue

	if n := len(story.MusicalMoments); n > 0 {
		span := total / float64(n)
		for i, moment := range story.MusicalMoments {
			root := pick(moment)
			cues = append(cues, cue{
				start: float64(i) * span,
				end:   float64(i+1) * span,
				freqs: []float64{scale[root], scale[(root+2)%len(scale)], scale[(root+4)%len(scale)]},
				gain:  musicGain,
			})
		}
	}

	if n := len(story.Scenes); n > 0 {
		spans := sceneSpans(story.Scenes, total)
		start := 0.0
		for i, sc := range story.Scenes {
			root := scale[pick(sc.Setting+sc.Description)] / 2
			cues = append(cues, cue{
				start: start,
				end:   start + spans[i],
				freqs: []float64{root, root * 1.5},
				gain:  ambientGain,
			})
			start += spans[i]
		}
	}
	return cues
}

func sceneSpans(scenes []model.Scene, total float64) []float64 {
	spans := make([]float64, len(scenes))
	sum := 0.0
	explicit := true
	for i, sc := range scenes {
		if sc.DurationSeconds <= 0 {
			explicit = false
			break
		}
		spans[i] = float64(sc.DurationSeconds)
		sum += spans[i]
	}
	if explicit && sum <= total {
		return spans
	}
	even := total / float64(len(scenes))
	for i := range spans {
		spans[i] = even
	}
	return spans
}

// pick maps text to a stable scale degree.
func pick(text string) int {
	h := fnv.New32a()
	h.Write([]byte(text))
	return int(h.Sum32() % uint32(len(scale)))
}
