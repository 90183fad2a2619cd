package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteCounterSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "stories.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Append(ctx, AppendParams{Story: story("A", "plot a")})
	s.Append(ctx, AppendParams{Story: story("B", "plot b")})
	s.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s2.Close()

	id, err := s2.Append(ctx, AppendParams{Story: story("C", "plot c")})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id != 3 {
		t.Errorf("expected id 3 after reopen, got %d", id)
	}
}

func TestSQLiteRestoreKeepsCounterAhead(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	snap := NewSnapshot(nil, 0)
	snap.Stories[4] = *story("Four", "plot four")
	snap.CurrentID = 9

	n, err := s.Restore(ctx, snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 imported, got %d", n)
	}

	id, _ := s.Append(ctx, AppendParams{Story: story("Next", "plot next")})
	if id != 10 {
		t.Errorf("expected id 10 after restoring counter 9, got %d", id)
	}
}

func TestSQLiteStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	st := story("A", "plot a")
	st.EpisodeNumber = 4
	s.Append(ctx, AppendParams{Story: st})
	s.Append(ctx, AppendParams{Story: story("B", "plot b")})

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalStories != 2 || stats.CurrentID != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.TotalScenes != 2 {
		t.Errorf("expected 2 scenes, got %d", stats.TotalScenes)
	}
	if stats.LatestEpisode != 4 {
		t.Errorf("expected latest episode 4, got %d", stats.LatestEpisode)
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}
