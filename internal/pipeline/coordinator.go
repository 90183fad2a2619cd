// Package pipeline coordinates the narrative, audio and video stages
// around the story store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/episode-forge/internal/dedup"
	"github.com/rcliao/episode-forge/internal/logger"
	"github.com/rcliao/episode-forge/internal/media"
	"github.com/rcliao/episode-forge/internal/model"
	"github.com/rcliao/episode-forge/internal/narrative"
	"github.com/rcliao/episode-forge/internal/store"
)

// NarrativeGenerator writes a story for a request.
type NarrativeGenerator interface {
	Generate(ctx context.Context, req narrative.Request) (*model.Story, error)
}

// ArtifactGenerator renders a media file for a story into dir.
type ArtifactGenerator interface {
	Generate(ctx context.Context, story *model.Story, dir string) (media.Artifact, error)
}

// NarrativeStage pairs a primary and fallback narrative generator. A nil
// Primary goes straight to Fallback.
type NarrativeStage struct {
	Primary  NarrativeGenerator
	Fallback NarrativeGenerator
	Timeout  time.Duration
}

// ArtifactStage pairs a primary and fallback media generator.
type ArtifactStage struct {
	Primary  ArtifactGenerator
	Fallback ArtifactGenerator
	Timeout  time.Duration
}

// Options configures a Coordinator.
type Options struct {
	Narrative NarrativeStage
	Audio     ArtifactStage
	Video     ArtifactStage

	Policy       dedup.Policy
	HistoryLimit int
	ArtifactsDir string
}

// Coordinator runs the three request flows against one store.
type Coordinator struct {
	store store.Store
	opts  Options
	log   *logger.Logger
}

func NewCoordinator(s store.Store, opts Options, log *logger.Logger) *Coordinator {
	if opts.Policy == "" {
		opts.Policy = dedup.PolicyIgnore
	}
	return &Coordinator{store: s, opts: opts, log: log.With("component", "Coordinator")}
}

// NarrativeResult is what CreateNarrative returns.
type NarrativeResult struct {
	ID            int          `json:"id"`
	EpisodeNumber int          `json:"episode_number"`
	Story         *model.Story `json:"story"`
	Duplicate     bool         `json:"duplicate"`
	Source        Source       `json:"source"`
}

// Artifact is a rendered media file and the path that produced it. It is
// regenerated on every request.
type Artifact struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Source      Source `json:"source"`
}

// CreateNarrative writes a story for episode, checks it for duplicates and
// appends it to the store.
func (c *Coordinator) CreateNarrative(ctx context.Context, episode int, theme string) (*NarrativeResult, error) {
	if episode < 1 {
		return nil, fmt.Errorf("%w: episode_number must be >= 1, got %d", ErrInvalidInput, episode)
	}

	previous, err := c.store.Recent(ctx, c.opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: read history: %w", ErrPersistence, err)
	}

	req := narrative.Request{Episode: episode, Theme: theme, Previous: previous}
	ns := c.opts.Narrative
	story, source, err := RunStage(ctx, c.log, "narrative", ns.Timeout,
		narrativeProducer(ns.Primary, req), narrativeProducer(ns.Fallback, req))
	if err != nil {
		return nil, err
	}

	var duplicate bool
	id, err := c.store.Append(ctx, store.AppendParams{
		Story: story,
		Precheck: func(existing []model.Story) error {
			duplicate = dedup.IsDuplicate(story, existing)
			if duplicate && c.opts.Policy == dedup.PolicyReject {
				return ErrDuplicateDetected
			}
			return nil
		},
	})
	if errors.Is(err, ErrDuplicateDetected) {
		c.log.Warn("duplicate story rejected", "title", story.Title, "episode", episode)
		return nil, fmt.Errorf("%w: %q", ErrDuplicateDetected, story.Title)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if duplicate {
		c.log.Warn("duplicate story stored", "id", id, "title", story.Title, "policy", c.opts.Policy)
	}
	c.log.Info("story created", "id", id, "episode", episode, "source", source)

	return &NarrativeResult{
		ID:            id,
		EpisodeNumber: episode,
		Story:         story,
		Duplicate:     duplicate && c.opts.Policy == dedup.PolicyWarn,
		Source:        source,
	}, nil
}

// CreateAudio renders the soundtrack for a stored story.
func (c *Coordinator) CreateAudio(ctx context.Context, id int) (*Artifact, error) {
	return c.render(ctx, "audio", id, c.opts.Audio)
}

// CreateVideo renders the video for a stored story.
func (c *Coordinator) CreateVideo(ctx context.Context, id int) (*Artifact, error) {
	return c.render(ctx, "video", id, c.opts.Video)
}

// Story returns a stored story.
func (c *Coordinator) Story(ctx context.Context, id int) (*model.Story, error) {
	st, err := c.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return st, nil
}

// Recent returns up to limit of the newest stories, oldest first.
func (c *Coordinator) Recent(ctx context.Context, limit int) ([]model.Story, error) {
	stories, err := c.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return stories, nil
}

func (c *Coordinator) render(ctx context.Context, stage string, id int, as ArtifactStage) (*Artifact, error) {
	story, err := c.Story(ctx, id)
	if err != nil {
		return nil, err
	}

	dir := c.opts.ArtifactsDir
	art, source, err := RunStage(ctx, c.log, stage, as.Timeout,
		artifactProducer(as.Primary, story, dir), artifactProducer(as.Fallback, story, dir))
	if err != nil {
		return nil, err
	}
	c.log.Info("artifact rendered", "stage", stage, "id", id, "source", source, "path", art.Path)
	return &Artifact{Path: art.Path, ContentType: art.ContentType, Source: source}, nil
}

func narrativeProducer(g NarrativeGenerator, req narrative.Request) Producer[*model.Story] {
	if g == nil {
		return nil
	}
	return func(ctx context.Context) (*model.Story, error) {
		return g.Generate(ctx, req)
	}
}

func artifactProducer(g ArtifactGenerator, story *model.Story, dir string) Producer[media.Artifact] {
	if g == nil {
		return nil
	}
	return func(ctx context.Context) (media.Artifact, error) {
		return g.Generate(ctx, story.Clone(), dir)
	}
}
