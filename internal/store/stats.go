package store

import (
	"context"
	"os"
)

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Backend: "sqlite", Path: s.path}

	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(scene_count), 0), COALESCE(MAX(episode_number), 0)
		FROM stories`).Scan(&st.TotalStories, &st.TotalScenes, &st.LatestEpisode)
	if err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT value FROM counters WHERE name = 'current_id'`).Scan(&st.CurrentID); err != nil {
		return st, err
	}

	return st, nil
}
