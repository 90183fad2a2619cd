package audio

import (
	"context"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	channels      = 1
	bitsPerSample = 16
	bytesPerFrame = channels * bitsPerSample / 8

	// pcmFormat is the WAVE format tag for linear PCM.
	pcmFormat = 1

	// maxDataBytes keeps the RIFF size fields inside uint32.
	maxDataBytes = 1<<32 - 1 - 36
)

// SampleFunc returns sample i of a mono 16-bit stream.
type SampleFunc func(i int) int16

// WriteWAV streams n samples produced by sample into w as a mono 16-bit
// PCM WAV file, one second of audio per encoder write. ctx is checked
// between writes.
func WriteWAV(ctx context.Context, w io.WriteSeeker, sampleRate, n int, sample SampleFunc) error {
	if sampleRate <= 0 {
		return fmt.Errorf("wav: invalid sample rate %d", sampleRate)
	}
	if n < 0 || int64(n)*bytesPerFrame > maxDataBytes {
		return fmt.Errorf("wav: invalid sample count %d", n)
	}

	enc := wav.NewEncoder(w, sampleRate, bitsPerSample, channels, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, 0, sampleRate),
		SourceBitDepth: bitsPerSample,
	}
	for i := 0; i < n || i == 0; {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf.Data = buf.Data[:0]
		for ; i < n && len(buf.Data) < sampleRate; i++ {
			buf.Data = append(buf.Data, int(sample(i)))
		}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("wav: write samples: %w", err)
		}
		if n == 0 {
			break
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: finish file: %w", err)
	}
	return nil
}

// Header is the format information read back from a WAV file.
type Header struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
	Samples       int
}

// ReadHeader reads the format and sample count of a PCM WAV file.
func ReadHeader(r io.ReadSeeker) (Header, error) {
	d := wav.NewDecoder(r)
	if err := d.FwdToPCM(); err != nil {
		return Header{}, fmt.Errorf("wav: find pcm data: %w", err)
	}
	if err := d.Err(); err != nil {
		return Header{}, fmt.Errorf("wav: read header: %w", err)
	}
	h := Header{
		Channels:      int(d.NumChans),
		SampleRate:    int(d.SampleRate),
		BitsPerSample: int(d.BitDepth),
	}
	frame := h.Channels * h.BitsPerSample / 8
	if frame == 0 {
		return Header{}, errors.New("wav: not a pcm wav file")
	}
	h.Samples = int(d.PCMLen()) / frame
	return h, nil
}
