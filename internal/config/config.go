// Package config loads episode-forge settings from a YAML file, an optional
// .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Store     StoreConfig     `yaml:"store"`
	LLM       LLMConfig       `yaml:"llm"`
	Audio     AudioConfig     `yaml:"audio"`
	Video     VideoConfig     `yaml:"video"`
	Media     MediaConfig     `yaml:"media"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

type StoreConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `yaml:"backend" env:"EPISODE_FORGE_STORE_BACKEND"`
	Path    string `yaml:"path" env:"EPISODE_FORGE_STORE_PATH"`
}

type LLMConfig struct {
	BaseURL     string        `yaml:"base_url" env:"EPISODE_FORGE_LLM_BASE_URL"`
	Model       string        `yaml:"model" env:"EPISODE_FORGE_LLM_MODEL"`
	APIKey      string        `yaml:"api_key" env:"OPENAI_API_KEY"`
	Temperature float64       `yaml:"temperature" env:"EPISODE_FORGE_LLM_TEMPERATURE"`
	MaxTokens   int           `yaml:"max_tokens" env:"EPISODE_FORGE_LLM_MAX_TOKENS"`
	Timeout     time.Duration `yaml:"timeout" env:"EPISODE_FORGE_LLM_TIMEOUT"`

	// HistoryLimit is how many recent stories are offered to the prompt;
	// HistoryBudget caps their encoded size in bytes.
	HistoryLimit  int `yaml:"history_limit" env:"EPISODE_FORGE_LLM_HISTORY_LIMIT"`
	HistoryBudget int `yaml:"history_budget" env:"EPISODE_FORGE_LLM_HISTORY_BUDGET"`
}

type AudioConfig struct {
	SampleRate int           `yaml:"sample_rate" env:"EPISODE_FORGE_AUDIO_SAMPLE_RATE"`
	ToneHz     float64       `yaml:"tone_hz" env:"EPISODE_FORGE_AUDIO_TONE_HZ"`
	Timeout    time.Duration `yaml:"timeout" env:"EPISODE_FORGE_AUDIO_TIMEOUT"`
}

type VideoConfig struct {
	Width          int           `yaml:"width" env:"EPISODE_FORGE_VIDEO_WIDTH"`
	Height         int           `yaml:"height" env:"EPISODE_FORGE_VIDEO_HEIGHT"`
	FPS            int           `yaml:"fps" env:"EPISODE_FORGE_VIDEO_FPS"`
	SceneSeconds   int           `yaml:"scene_seconds" env:"EPISODE_FORGE_VIDEO_SCENE_SECONDS"`
	CreditsSeconds int           `yaml:"credits_seconds" env:"EPISODE_FORGE_VIDEO_CREDITS_SECONDS"`
	FontPath       string        `yaml:"font_path" env:"EPISODE_FORGE_VIDEO_FONT_PATH"`
	ImageURL       string        `yaml:"image_url" env:"EPISODE_FORGE_VIDEO_IMAGE_URL"`
	APIKey         string        `yaml:"api_key" env:"IMAGE_API_KEY"`
	Timeout        time.Duration `yaml:"timeout" env:"EPISODE_FORGE_VIDEO_TIMEOUT"`
}

type MediaConfig struct {
	FFmpeg string `yaml:"ffmpeg" env:"EPISODE_FORGE_FFMPEG"`
}

type ArtifactsConfig struct {
	Dir  string `yaml:"dir" env:"EPISODE_FORGE_ARTIFACTS_DIR"`
	Keep bool   `yaml:"keep" env:"EPISODE_FORGE_ARTIFACTS_KEEP"`
}

type PipelineConfig struct {
	DuplicatePolicy string `yaml:"duplicate_policy" env:"EPISODE_FORGE_DUPLICATE_POLICY"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"EPISODE_FORGE_ADDR"`
}

type LogConfig struct {
	Mode string `yaml:"mode" env:"EPISODE_FORGE_LOG_MODE"`
}

// Default returns a configuration that works without any file or
// environment: JSON file store under ./storage, fallbacks for every stage
// until credentials are supplied.
func Default() Config {
	return Config{
		Store: StoreConfig{Backend: "file", Path: "storage/stories.json"},
		LLM: LLMConfig{
			BaseURL:       "https://api.openai.com/v1",
			Model:         "gpt-4o-mini",
			Temperature:   0.7,
			MaxTokens:     4000,
			Timeout:       60 * time.Second,
			HistoryLimit:  5,
			HistoryBudget: 12000,
		},
		Audio: AudioConfig{SampleRate: 44100, ToneHz: 440, Timeout: 2 * time.Minute},
		Video: VideoConfig{
			Width:          1280,
			Height:         720,
			FPS:            24,
			SceneSeconds:   5,
			CreditsSeconds: 3,
			ImageURL:       "https://image.pollinations.ai/prompt",
			Timeout:        5 * time.Minute,
		},
		Media:     MediaConfig{FFmpeg: "ffmpeg"},
		Artifacts: ArtifactsConfig{Dir: "storage/artifacts"},
		Pipeline:  PipelineConfig{DuplicatePolicy: "ignore"},
		Server:    ServerConfig{Addr: ":8000"},
		Log:       LogConfig{Mode: "dev"},
	}
}

// Load starts from Default, overlays the YAML file at path (a missing file
// is not an error), loads .env from the working directory and finally
// applies environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings no stage can run with.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("config: store.backend must be file or sqlite, got %q", c.Store.Backend)
	}
	if c.Store.Path == "" {
		return errors.New("config: store.path is required")
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("config: audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Video.Width <= 0 || c.Video.Height <= 0 || c.Video.FPS <= 0 {
		return fmt.Errorf("config: video width, height and fps must be positive")
	}
	if c.Video.SceneSeconds <= 0 || c.Video.CreditsSeconds < 0 {
		return fmt.Errorf("config: video.scene_seconds must be positive and credits_seconds not negative")
	}
	return nil
}
