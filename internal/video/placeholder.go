package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/rcliao/episode-forge/internal/logger"
	"github.com/rcliao/episode-forge/internal/media"
	"github.com/rcliao/episode-forge/internal/model"
)

// PlaceholderConfig sets the fallback video's format and pacing.
type PlaceholderConfig struct {
	Width          int
	Height         int
	FPS            int
	SceneSeconds   int
	CreditsSeconds int
	FontPath       string
}

// Placeholder renders one text card per scene plus a credits card and
// stores them as Motion-JPEG in an MP4 container. It needs no external tools.
type Placeholder struct {
	cfg      PlaceholderConfig
	renderer *Renderer
	log      *logger.Logger
}

func NewPlaceholder(cfg PlaceholderConfig, log *logger.Logger) (*Placeholder, error) {
	r, err := NewRenderer(cfg.Width, cfg.Height, cfg.FontPath)
	if err != nil {
		return nil, err
	}
	if cfg.FPS <= 0 || cfg.SceneSeconds <= 0 || cfg.CreditsSeconds < 0 {
		return nil, fmt.Errorf("invalid placeholder pacing: fps=%d scene=%ds credits=%ds", cfg.FPS, cfg.SceneSeconds, cfg.CreditsSeconds)
	}
	return &Placeholder{cfg: cfg, renderer: r, log: log.With("component", "video.Placeholder")}, nil
}

// FrameCount is the number of frames Generate writes for story.
func (p *Placeholder) FrameCount(story *model.Story) int {
	return len(story.Scenes)*p.cfg.SceneSeconds*p.cfg.FPS + p.cfg.CreditsSeconds*p.cfg.FPS
}

func (p *Placeholder) Generate(ctx context.Context, story *model.Story, dir string) (media.Artifact, error) {
	work, err := os.MkdirTemp("", "episode-forge-frames-*")
	if err != nil {
		return media.Artifact{}, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(work)

	var frames []string
	for i, sc := range story.Scenes {
		path := filepath.Join(work, fmt.Sprintf("scene_%03d.jpg", i))
		if err := writeJPEG(path, p.renderer.Scene(story, sc)); err != nil {
			return media.Artifact{}, err
		}
		frames = append(frames, path)
	}
	credits := filepath.Join(work, "credits.jpg")
	if err := writeJPEG(credits, p.renderer.Credits(story)); err != nil {
		return media.Artifact{}, err
	}

	var runs []Run
	for _, path := range frames {
		data, err := os.ReadFile(path)
		if err != nil {
			return media.Artifact{}, fmt.Errorf("read frame: %w", err)
		}
		runs = append(runs, Run{JPEG: data, Count: p.cfg.SceneSeconds * p.cfg.FPS})
	}
	data, err := os.ReadFile(credits)
	if err != nil {
		return media.Artifact{}, fmt.Errorf("read credits frame: %w", err)
	}
	runs = append(runs, Run{JPEG: data, Count: p.cfg.CreditsSeconds * p.cfg.FPS})

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return media.Artifact{}, fmt.Errorf("create video dir: %w", err)
	}
	out := media.ArtifactPath(dir, story.Title, "mp4")
	if err := writeMP4File(ctx, out, p.cfg.Width, p.cfg.Height, p.cfg.FPS, runs); err != nil {
		return media.Artifact{}, err
	}
	p.log.Debug("placeholder video written", "story_id", story.ID, "frames", p.FrameCount(story), "path", out)
	return media.Artifact{Path: out, ContentType: media.ContentTypeMP4}, nil
}

func writeJPEG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func writeMP4File(ctx context.Context, path string, width, height, fps int, runs []Run) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create video file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close video file: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	return WriteMJPEG(ctx, f, width, height, fps, runs)
}
