package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rcliao/episode-forge/internal/logger"
	"github.com/rcliao/episode-forge/internal/model"
)

// FileStore implements Store on a single JSON file holding the whole
// snapshot. Every append rewrites the file atomically.
type FileStore struct {
	path string
	log  *logger.Logger

	mu        sync.RWMutex
	stories   map[int]model.Story
	order     []int
	currentID int
}

// NewFileStore opens the store file at path, creating its directory. A file
// that cannot be read or parsed is moved aside and the store starts empty.
func NewFileStore(path string, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	s := &FileStore{
		path:    path,
		log:     log.With("component", "FileStore", "path", path),
		stories: map[int]model.Story{},
	}
	s.load()
	return s, nil
}

func (s *FileStore) load() {
	snap, err := ReadSnapshotFile(s.path)
	if err != nil {
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
		if rerr := os.Rename(s.path, backup); rerr != nil {
			s.log.Error("failed to load stories, starting empty", "error", err, "backup_error", rerr)
		} else {
			s.log.Error("failed to load stories, starting empty", "error", err, "backup", backup)
		}
		return
	}
	for _, key := range snap.Skipped {
		s.log.Warn("skipping unreadable story entry", "key", key)
	}
	if len(snap.Loose) > 0 {
		s.log.Warn("stories loaded with fields of an unexpected shape", "fields", snap.Loose)
	}
	s.apply(snap)
	s.log.Debug("stories loaded", "count", len(s.stories), "current_id", s.currentID)
}

// apply replaces the in-memory state with snap. Caller holds mu or owns s.
func (s *FileStore) apply(snap *Snapshot) {
	s.stories = make(map[int]model.Story, len(snap.Stories))
	s.order = s.order[:0]
	for _, st := range snap.Ordered() {
		s.stories[st.ID] = st
		s.order = append(s.order, st.ID)
	}
	s.currentID = snap.CurrentID
}

func (s *FileStore) snapshotLocked() *Snapshot {
	snap := &Snapshot{Stories: make(map[int]model.Story, len(s.stories)), CurrentID: s.currentID}
	for id, st := range s.stories {
		snap.Stories[id] = st
	}
	return snap
}

func (s *FileStore) persistLocked() error {
	data, err := json.MarshalIndent(s.snapshotLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode stories: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

func (s *FileStore) orderedLocked() []model.Story {
	out := make([]model.Story, 0, len(s.order))
	for _, id := range s.order {
		st := s.stories[id]
		out = append(out, *st.Clone())
	}
	return out
}

func (s *FileStore) Append(ctx context.Context, p AppendParams) (int, error) {
	if p.Story == nil {
		return 0, fmt.Errorf("append: story required")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Precheck != nil {
		if err := p.Precheck(s.orderedLocked()); err != nil {
			return 0, err
		}
	}

	id := s.currentID + 1
	st := *p.Story.Clone()
	st.ID = id

	s.stories[id] = st
	s.order = append(s.order, id)
	s.currentID = id

	if err := s.persistLocked(); err != nil {
		delete(s.stories, id)
		s.order = s.order[:len(s.order)-1]
		s.currentID = id - 1
		return 0, fmt.Errorf("persist story: %w", err)
	}

	p.Story.ID = id
	return id, nil
}

func (s *FileStore) Get(ctx context.Context, id int) (*model.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return st.Clone(), nil
}

func (s *FileStore) Recent(ctx context.Context, limit int) ([]model.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return window(s.orderedLocked(), limit), nil
}

func (s *FileStore) All(ctx context.Context) ([]model.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.orderedLocked(), nil
}

// Search matches the query case-insensitively against title and plot
// summary, newest first.
func (s *FileStore) Search(ctx context.Context, p SearchParams) ([]model.Story, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(strings.TrimSpace(p.Query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []model.Story
	for i := len(s.order) - 1; i >= 0 && len(results) < limit; i-- {
		st := s.stories[s.order[i]]
		if strings.Contains(strings.ToLower(st.Title), q) || strings.Contains(strings.ToLower(st.PlotSummary), q) {
			results = append(results, *st.Clone())
		}
	}
	return emptyIfNil(results), nil
}

func (s *FileStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked(), nil
}

func (s *FileStore) Restore(ctx context.Context, snap *Snapshot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshotLocked()
	merged := s.snapshotLocked()
	imported := 0
	for id, st := range snap.Stories {
		if _, exists := merged.Stories[id]; exists {
			continue
		}
		st.ID = id
		merged.Stories[id] = st
		imported++
		if id > merged.CurrentID {
			merged.CurrentID = id
		}
	}
	if snap.CurrentID > merged.CurrentID {
		merged.CurrentID = snap.CurrentID
	}

	s.apply(merged)
	if err := s.persistLocked(); err != nil {
		s.apply(prev)
		return 0, fmt.Errorf("persist restore: %w", err)
	}
	return imported, nil
}

func (s *FileStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Stats{
		Backend:      "file",
		Path:         s.path,
		TotalStories: len(s.stories),
		CurrentID:    s.currentID,
	}
	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}
	for _, story := range s.stories {
		st.TotalScenes += len(story.Scenes)
		if story.EpisodeNumber > st.LatestEpisode {
			st.LatestEpisode = story.EpisodeNumber
		}
	}
	return st, nil
}

func (s *FileStore) Close() error {
	return nil
}
