package cli

import (
	"github.com/rcliao/episode-forge/internal/audio"
	"github.com/rcliao/episode-forge/internal/config"
	"github.com/rcliao/episode-forge/internal/dedup"
	"github.com/rcliao/episode-forge/internal/llm"
	"github.com/rcliao/episode-forge/internal/logger"
	"github.com/rcliao/episode-forge/internal/media"
	"github.com/rcliao/episode-forge/internal/narrative"
	"github.com/rcliao/episode-forge/internal/pipeline"
	"github.com/rcliao/episode-forge/internal/store"
	"github.com/rcliao/episode-forge/internal/video"
)

// app holds what every command needs once flags are parsed.
type app struct {
	cfg   config.Config
	log   *logger.Logger
	store store.Store
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, err
	}
	s, err := openStore(cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return &app{cfg: cfg, log: log, store: s}, nil
}

// mustApp is newApp for commands, exiting on failure.
func mustApp() *app {
	a, err := newApp()
	if err != nil {
		exitErr("start", err)
	}
	return a
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", "error", err)
	}
	a.log.Sync()
}

// coordinator wires every stage from config. The LLM primary is left out
// when no API key is set, so narrative goes straight to the template.
func (a *app) coordinator() (*pipeline.Coordinator, error) {
	cfg := a.cfg
	policy, err := dedup.ParsePolicy(cfg.Pipeline.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	ffmpeg := media.NewFFmpeg(cfg.Media.FFmpeg)

	narr := pipeline.NarrativeStage{Fallback: narrative.Template{}, Timeout: cfg.LLM.Timeout}
	if client := llm.New(cfg.LLM); client.Configured() {
		narr.Primary = narrative.NewLLM(client, cfg.LLM.HistoryBudget, a.log)
	} else {
		a.log.Info("no LLM api key configured, narratives use the template")
	}

	placeholder, err := video.NewPlaceholder(video.PlaceholderConfig{
		Width:          cfg.Video.Width,
		Height:         cfg.Video.Height,
		FPS:            cfg.Video.FPS,
		SceneSeconds:   cfg.Video.SceneSeconds,
		CreditsSeconds: cfg.Video.CreditsSeconds,
		FontPath:       cfg.Video.FontPath,
	}, a.log)
	if err != nil {
		return nil, err
	}
	images := video.NewImageClient(cfg.Video.ImageURL, cfg.Video.APIKey, cfg.Video.Timeout)
	keyframes := video.NewKeyframes(video.KeyframesConfig{
		Width:  cfg.Video.Width,
		Height: cfg.Video.Height,
		FPS:    cfg.Video.FPS,
	}, images, ffmpeg, a.log)

	return pipeline.NewCoordinator(a.store, pipeline.Options{
		Narrative: narr,
		Audio: pipeline.ArtifactStage{
			Primary:  audio.NewMixer(cfg.Audio.SampleRate, ffmpeg, a.log),
			Fallback: audio.Tone{SampleRate: cfg.Audio.SampleRate, Hz: cfg.Audio.ToneHz},
			Timeout:  cfg.Audio.Timeout,
		},
		Video: pipeline.ArtifactStage{
			Primary:  keyframes,
			Fallback: placeholder,
			Timeout:  cfg.Video.Timeout,
		},
		Policy:       policy,
		HistoryLimit: cfg.LLM.HistoryLimit,
		ArtifactsDir: cfg.Artifacts.Dir,
	}, a.log), nil
}

func (a *app) mustCoordinator() *pipeline.Coordinator {
	c, err := a.coordinator()
	if err != nil {
		a.Close()
		exitErr("configure pipeline", err)
	}
	return c
}
