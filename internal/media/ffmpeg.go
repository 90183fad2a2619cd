package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrFFmpegMissing is returned when the ffmpeg binary cannot be found.
var ErrFFmpegMissing = errors.New("ffmpeg not found")

// FFmpeg runs the ffmpeg binary.
type FFmpeg struct {
	bin string
}

func NewFFmpeg(bin string) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{bin: bin}
}

// Available reports whether the binary resolves on PATH.
func (f *FFmpeg) Available() error {
	if _, err := exec.LookPath(f.bin); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegMissing, f.bin)
	}
	return nil
}

// Run executes ffmpeg with -y prepended. The error carries the tail of
// ffmpeg's stderr.
func (f *FFmpeg) Run(ctx context.Context, args ...string) error {
	if err := f.Available(); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, f.bin, append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg: %w", ctxErr)
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.String(), 500))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
