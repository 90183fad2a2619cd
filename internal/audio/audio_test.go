package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rcliao/episode-forge/internal/logger"
	"github.com/rcliao/episode-forge/internal/media"
	"github.com/rcliao/episode-forge/internal/model"
)

func testStory(minutes int) *model.Story {
	return &model.Story{
		ID:              1,
		Title:           "The Magic Portal",
		DurationMinutes: minutes,
		MusicalMoments:  []string{"Discovery theme", "Victory song"},
		Scenes: []model.Scene{
			{Description: "Library", Setting: "Floating books"},
			{Description: "Cave", Setting: "Crystals"},
		},
	}
}

func TestToneOneMinute(t *testing.T) {
	dir := t.TempDir()
	art, err := Tone{SampleRate: 44100, Hz: 440}.Generate(context.Background(), testStory(1), dir)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if art.ContentType != media.ContentTypeWAV || !strings.HasSuffix(art.Path, ".wav") {
		t.Errorf("unexpected artifact %+v", art)
	}
	if filepath.Dir(art.Path) != dir {
		t.Errorf("expected artifact in %s, got %s", dir, art.Path)
	}

	f, err := os.Open(art.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	h, err := ReadHeader(f)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if h.Channels != 1 || h.BitsPerSample != 16 || h.SampleRate != 44100 {
		t.Errorf("unexpected format %+v", h)
	}
	if h.Samples != 60*44100 {
		t.Errorf("expected %d samples, got %d", 60*44100, h.Samples)
	}

	info, _ := f.Stat()
	if info.Size() != 44+int64(60*44100*2) {
		t.Errorf("unexpected file size %d", info.Size())
	}
}

func TestToneIsSine(t *testing.T) {
	var buf bytes.Buffer
	rate := 8000
	tone := Tone{SampleRate: rate, Hz: 1000}
	st := testStory(1)

	dir := t.TempDir()
	art, err := tone.Generate(context.Background(), st, dir)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	data, _ := os.ReadFile(art.Path)
	buf.Write(data[44:])

	// 1 kHz at 8 kHz is 8 samples per period: 0, +peak at 2, 0 at 4, -peak at 6.
	samples := make([]int16, 8)
	binary.Read(&buf, binary.LittleEndian, samples)
	if samples[0] != 0 || samples[2] < 32000 || samples[6] > -32000 {
		t.Errorf("unexpected waveform %v", samples)
	}

	again, _ := tone.Generate(context.Background(), st, dir)
	data2, _ := os.ReadFile(again.Path)
	if !bytes.Equal(data, data2) {
		t.Error("expected identical output for identical input")
	}
}

func TestToneRejectsNonPositiveDuration(t *testing.T) {
	for _, minutes := range []int{0, -3} {
		dir := t.TempDir()
		_, err := Tone{SampleRate: 8000}.Generate(context.Background(), testStory(minutes), dir)
		if !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("minutes=%d: expected ErrInvalidDuration, got %v", minutes, err)
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("minutes=%d: expected no files, got %d", minutes, len(entries))
		}
	}
}

func TestToneCancelledRemovesFile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	if _, err := (Tone{SampleRate: 8000}).Generate(ctx, testStory(1), dir); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected partial file to be removed, found %d entries", len(entries))
	}
}

func TestWriteWAVRejectsBadInput(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "bad.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := WriteWAV(context.Background(), f, 0, 10, func(int) int16 { return 0 }); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if err := WriteWAV(context.Background(), f, 8000, -1, func(int) int16 { return 0 }); err == nil {
		t.Error("expected error for negative count")
	}
}

func TestWriteWAVPartialSecond(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	// 2.5 seconds exercises a trailing write shorter than one second.
	if err := WriteWAV(context.Background(), f, 100, 250, func(i int) int16 { return int16(i) }); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	f, _ = os.Open(path)
	defer f.Close()
	h, err := ReadHeader(f)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if h.Samples != 250 || h.SampleRate != 100 {
		t.Errorf("unexpected header %+v", h)
	}
	data, _ := os.ReadFile(path)
	if len(data) != 44+250*2 {
		t.Errorf("unexpected file size %d", len(data))
	}
	if got := int16(binary.LittleEndian.Uint16(data[44+2*249:])); got != 249 {
		t.Errorf("expected last sample 249, got %d", got)
	}
}

func TestArrange(t *testing.T) {
	st := testStory(2)
	cues := arrange(st, 120)
	if len(cues) != 4 {
		t.Fatalf("expected 4 cues, got %d", len(cues))
	}
	if cues[0].start != 0 || cues[0].end != 60 || cues[1].end != 120 {
		t.Errorf("unexpected music spans %+v %+v", cues[0], cues[1])
	}

	st.Scenes[0].DurationSeconds = 30
	st.Scenes[1].DurationSeconds = 50
	cues = arrange(st, 120)
	if cues[2].end != 30 || cues[3].start != 30 || cues[3].end != 80 {
		t.Errorf("expected explicit scene durations, got %+v %+v", cues[2], cues[3])
	}

	st.Scenes[1].DurationSeconds = 500
	cues = arrange(st, 120)
	if cues[2].end != 60 {
		t.Errorf("expected even split when durations overflow, got %+v", cues[2])
	}

	if got := arrange(&model.Story{}, 60); len(got) != 0 {
		t.Errorf("expected no cues for empty story, got %d", len(got))
	}
}

func TestCueEnvelope(t *testing.T) {
	c := cue{start: 10, end: 20, freqs: []float64{1}, gain: 1}
	if c.at(9.9) != 0 || c.at(20) != 0 {
		t.Error("expected silence outside the cue")
	}
	if v := c.at(10); v != 0 {
		t.Errorf("expected fade-in to start at zero, got %f", v)
	}
}

func TestMixerWithoutFFmpeg(t *testing.T) {
	m := NewMixer(8000, media.NewFFmpeg("definitely-not-ffmpeg-binary"), logger.Nop())
	_, err := m.Generate(context.Background(), testStory(1), t.TempDir())
	if !errors.Is(err, media.ErrFFmpegMissing) {
		t.Errorf("expected ErrFFmpegMissing, got %v", err)
	}
}

func TestMixerEncodesMP3(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	dir := t.TempDir()
	m := NewMixer(8000, media.NewFFmpeg("ffmpeg"), logger.Nop())
	art, err := m.Generate(context.Background(), testStory(1), dir)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if art.ContentType != media.ContentTypeMP3 {
		t.Errorf("unexpected content type %s", art.ContentType)
	}
	if info, err := os.Stat(art.Path); err != nil || info.Size() == 0 {
		t.Errorf("expected non-empty mp3, got %v", err)
	}
}
