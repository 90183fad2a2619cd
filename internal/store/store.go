// Package store provides the story storage interface with a JSON file
// implementation and a SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/episode-forge/internal/model"
)

// ErrNotFound is returned by Get when no story has the requested id.
var ErrNotFound = errors.New("story not found")

// AppendParams holds parameters for appending a story.
type AppendParams struct {
	Story *model.Story

	// Precheck, when set, runs with the write lock held against every
	// stored story. A non-nil error aborts the append and is returned as is.
	Precheck func(existing []model.Story) error
}

// SearchParams holds parameters for searching stories.
type SearchParams struct {
	Query string
	Limit int
}

// Store defines the story storage interface.
type Store interface {
	// Append assigns the next id, persists the story and returns the id.
	// The id is only visible to readers once it is durable.
	Append(ctx context.Context, p AppendParams) (int, error)

	// Get retrieves a story by id. Returns an error wrapping ErrNotFound
	// when absent.
	Get(ctx context.Context, id int) (*model.Story, error)

	// Recent returns up to limit most recently appended stories, oldest first.
	Recent(ctx context.Context, limit int) ([]model.Story, error)

	// All returns every story in append order.
	All(ctx context.Context) ([]model.Story, error)

	// Search finds stories whose title or plot summary contains the query.
	Search(ctx context.Context, p SearchParams) ([]model.Story, error)

	// Snapshot returns the full store in its canonical persisted shape.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Restore merges a snapshot into the store, keeping ids. Stories whose
	// id already exists are skipped. Returns the number imported.
	Restore(ctx context.Context, snap *Snapshot) (int, error)

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Close closes the store.
	Close() error
}

// Stats holds storage statistics.
type Stats struct {
	Backend       string `json:"backend"`
	Path          string `json:"path"`
	SizeBytes     int64  `json:"size_bytes"`
	TotalStories  int    `json:"total_stories"`
	CurrentID     int    `json:"current_id"`
	TotalScenes   int    `json:"total_scenes"`
	LatestEpisode int    `json:"latest_episode"`
}

func emptyIfNil(stories []model.Story) []model.Story {
	if stories == nil {
		return []model.Story{}
	}
	return stories
}

func window(stories []model.Story, limit int) []model.Story {
	if limit <= 0 || len(stories) == 0 {
		return []model.Story{}
	}
	if len(stories) > limit {
		stories = stories[len(stories)-limit:]
	}
	return stories
}
