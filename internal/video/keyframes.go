package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/episode-forge/internal/logger"
	"github.com/rcliao/episode-forge/internal/media"
	"github.com/rcliao/episode-forge/internal/model"
)

// ErrNoImageBackend is returned when no image endpoint is configured.
var ErrNoImageBackend = errors.New("video: image backend not configured")

const (
	maxImageBytes  = 20 << 20
	fetchParallels = 4
)

// ImageClient fetches one generated image per prompt with
// GET {base}/{escaped prompt}?width=W&height=H.
type ImageClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewImageClient(baseURL, apiKey string, timeout time.Duration) *ImageClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ImageClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the decoded image for prompt.
func (c *ImageClient) Fetch(ctx context.Context, prompt string, width, height int) (image.Image, error) {
	if c.baseURL == "" {
		return nil, ErrNoImageBackend
	}
	q := url.Values{}
	q.Set("width", strconv.Itoa(width))
	q.Set("height", strconv.Itoa(height))
	q.Set("nologo", "true")
	u := c.baseURL + "/" + url.PathEscape(prompt) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("image backend: http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Fetcher is what Keyframes needs from an image backend.
type Fetcher interface {
	Fetch(ctx context.Context, prompt string, width, height int) (image.Image, error)
}

// KeyframesConfig sets the primary video's output format.
type KeyframesConfig struct {
	Width  int
	Height int
	FPS    int
}

// Keyframes fetches one generated still per scene, holds each for an even
// share of the story's runtime and encodes the result to MP4 with ffmpeg.
type Keyframes struct {
	cfg    KeyframesConfig
	images Fetcher
	ffmpeg *media.FFmpeg
	log    *logger.Logger
}

func NewKeyframes(cfg KeyframesConfig, images Fetcher, ffmpeg *media.FFmpeg, log *logger.Logger) *Keyframes {
	return &Keyframes{cfg: cfg, images: images, ffmpeg: ffmpeg, log: log.With("component", "video.Keyframes")}
}

func (k *Keyframes) Generate(ctx context.Context, story *model.Story, dir string) (media.Artifact, error) {
	if len(story.Scenes) == 0 {
		return media.Artifact{}, errors.New("video: story has no scenes")
	}
	if story.DurationMinutes <= 0 {
		return media.Artifact{}, fmt.Errorf("video: invalid duration %d minutes", story.DurationMinutes)
	}
	if err := k.ffmpeg.Available(); err != nil {
		return media.Artifact{}, err
	}

	work, err := os.MkdirTemp("", "episode-forge-keyframes-*")
	if err != nil {
		return media.Artifact{}, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(work)

	paths := make([]string, len(story.Scenes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallels)
	for i := range story.Scenes {
		i := i
		sc := story.Scenes[i]
		g.Go(func() error {
			start := time.Now()
			img, err := k.images.Fetch(gctx, ScenePrompt(sc), k.cfg.Width, k.cfg.Height)
			if err != nil {
				return fmt.Errorf("scene %d: %w", i+1, err)
			}
			path := filepath.Join(work, fmt.Sprintf("scene_%03d.jpg", i))
			if err := writeJPEG(path, fit(img, k.cfg.Width, k.cfg.Height)); err != nil {
				return fmt.Errorf("scene %d: %w", i+1, err)
			}
			paths[i] = path
			k.log.Debug("keyframe ready", "story_id", story.ID, "scene", i+1, "elapsed", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return media.Artifact{}, err
	}

	hold := float64(story.DurationMinutes*60) / float64(len(story.Scenes))
	list := filepath.Join(work, "frames.txt")
	if err := os.WriteFile(list, []byte(concatList(paths, hold)), 0o644); err != nil {
		return media.Artifact{}, fmt.Errorf("write frame list: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return media.Artifact{}, fmt.Errorf("create video dir: %w", err)
	}
	out := media.ArtifactPath(dir, story.Title, "mp4")
	err = k.ffmpeg.Run(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-vf", fmt.Sprintf("fps=%d,format=yuv420p", k.cfg.FPS),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-r", strconv.Itoa(k.cfg.FPS),
		"-an",
		out,
	)
	if err != nil {
		os.Remove(out)
		return media.Artifact{}, fmt.Errorf("assemble mp4: %w", err)
	}
	return media.Artifact{Path: out, ContentType: media.ContentTypeMP4}, nil
}

// concatList renders an ffmpeg concat demuxer script holding each image
// for hold seconds. The last entry is repeated so its duration applies.
func concatList(paths []string, hold float64) string {
	var sb strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&sb, "file '%s'\nduration %.3f\n", escapeConcat(p), hold)
	}
	if len(paths) > 0 {
		fmt.Fprintf(&sb, "file '%s'\n", escapeConcat(paths[len(paths)-1]))
	}
	return sb.String()
}

func escapeConcat(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

// fit scales img to exactly width x height.
func fit(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
