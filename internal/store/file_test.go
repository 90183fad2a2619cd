package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rcliao/episode-forge/internal/logger"
)

func newFileStore(t *testing.T, path string) *FileStore {
	t.Helper()
	s, err := NewFileStore(path, logger.Nop())
	if err != nil {
		t.Fatalf("create file store: %v", err)
	}
	return s
}

func TestFileStorePersistedLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage", "stories.json")
	s := newFileStore(t, path)

	s.Append(ctx, AppendParams{Story: story("A", "a")})
	s.Append(ctx, AppendParams{Story: story("B", "b")})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read store file: %v", err)
	}
	var raw struct {
		Stories   map[string]map[string]any `json:"stories"`
		CurrentID int                       `json:"current_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode store file: %v", err)
	}
	if raw.CurrentID != 2 {
		t.Errorf("expected current_id 2, got %d", raw.CurrentID)
	}
	if raw.Stories["2"]["title"] != "B" || raw.Stories["2"]["id"] != float64(2) {
		t.Errorf("unexpected story 2: %v", raw.Stories["2"])
	}
}

func TestFileStoreReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stories.json")

	s := newFileStore(t, path)
	s.Append(ctx, AppendParams{Story: story("A", "a")})
	s.Append(ctx, AppendParams{Story: story("B", "b")})

	s2 := newFileStore(t, path)
	got, err := s2.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].Title != "A" || got[1].Title != "B" {
		t.Errorf("unexpected stories after reload: %+v", got)
	}
	id, _ := s2.Append(ctx, AppendParams{Story: story("C", "c")})
	if id != 3 {
		t.Errorf("expected id 3 after reload, got %d", id)
	}
}

func TestFileStoreLegacyList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stories.json")
	legacy := `[
		{"title": "One", "plot_summary": "p1", "id": 99},
		{"title": "Two", "plot_summary": "p2"},
		{"title": "Three", "plot_summary": "p3"}
	]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newFileStore(t, path)
	all, _ := s.All(ctx)
	if len(all) != 3 {
		t.Fatalf("expected 3 stories, got %d", len(all))
	}
	for i, st := range all {
		if st.ID != i+1 {
			t.Errorf("position %d: expected id %d, got %d", i, i+1, st.ID)
		}
	}

	stats, _ := s.Stats(ctx)
	if stats.CurrentID != 3 {
		t.Errorf("expected counter 3, got %d", stats.CurrentID)
	}

	id, _ := s.Append(ctx, AppendParams{Story: story("Four", "p4")})
	if id != 4 {
		t.Errorf("expected id 4, got %d", id)
	}
}

func TestFileStoreLegacyListWithLooseFields(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stories.json")
	legacy := `[
		{"title": "One", "plot_summary": "p1", "duration_minutes": "12 minutes",
		 "scene_breakdown": [{"description": "d", "characters_present": "Leo, Mia", "comedy_moments": [1]}]},
		{"title": "Two", "plot_summary": "p2", "duration_minutes": "a dozen"},
		{"title": "Three", "plot_summary": "p3", "scene_breakdown": [{"setting": {"room": "lab"}}]}
	]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newFileStore(t, path)
	all, _ := s.All(ctx)
	if len(all) != 3 {
		t.Fatalf("expected every story to load, got %d", len(all))
	}
	if all[0].DurationMinutes != 12 || len(all[0].Scenes[0].CharactersPresent) != 2 {
		t.Errorf("expected lenient fields decoded, got %+v", all[0])
	}
	if all[1].Title != "Two" || all[1].DurationMinutes != 0 {
		t.Errorf("expected story 2 kept with zero duration, got %+v", all[1])
	}

	id, err := s.Append(ctx, AppendParams{Story: story("Four", "p4")})
	if err != nil || id != 4 {
		t.Fatalf("expected id 4, got %d, %v", id, err)
	}

	// Loose values are written back as they were read.
	data, _ := os.ReadFile(path)
	var raw struct {
		Stories map[string]map[string]any `json:"stories"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode store file: %v", err)
	}
	if raw.Stories["2"]["duration_minutes"] != "a dozen" {
		t.Errorf("expected raw duration kept, got %v", raw.Stories["2"]["duration_minutes"])
	}
	scene := raw.Stories["3"]["scene_breakdown"].([]any)[0].(map[string]any)
	if _, ok := scene["setting"].(map[string]any); !ok {
		t.Errorf("expected raw setting kept, got %v", scene["setting"])
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".corrupt-") {
			t.Errorf("expected no backup for a readable file, found %s", e.Name())
		}
	}
}

func TestFileStoreCorruptFileStartsEmpty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "stories.json")
	if err := os.WriteFile(path, []byte(`{"stories": [not json`), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newFileStore(t, path)
	all, _ := s.All(ctx)
	if len(all) != 0 {
		t.Errorf("expected empty store, got %d", len(all))
	}
	id, err := s.Append(ctx, AppendParams{Story: story("A", "a")})
	if err != nil || id != 1 {
		t.Errorf("expected first id 1, got %d, %v", id, err)
	}

	entries, _ := os.ReadDir(dir)
	var backup bool
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "stories.json.corrupt-") {
			backup = true
		}
	}
	if !backup {
		t.Error("expected unreadable file to be moved aside")
	}
}

func TestFileStorePersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stories.json")
	s := newFileStore(t, path)

	s.Append(ctx, AppendParams{Story: story("A", "a")})

	// A non-empty directory at the target path makes the rename fail.
	os.Remove(path)
	if err := os.MkdirAll(filepath.Join(path, "blocker"), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Append(ctx, AppendParams{Story: story("B", "b")}); err == nil {
		t.Fatal("expected persist error")
	}
	if _, err := s.Get(ctx, 2); err == nil {
		t.Error("expected failed story to be invisible")
	}

	os.RemoveAll(path)
	id, err := s.Append(ctx, AppendParams{Story: story("C", "c")})
	if err != nil {
		t.Fatalf("append after recovery: %v", err)
	}
	if id != 2 {
		t.Errorf("expected failed id to stay unobserved and be assigned next, got %d", id)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
