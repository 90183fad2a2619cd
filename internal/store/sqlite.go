package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/episode-forge/internal/model"
)

// SQLiteStore implements Store using SQLite. The id counter lives in its
// own table so ids are never reused, matching the file store.
type SQLiteStore struct {
	db   *sql.DB
	path string

	// Serializes appends and restores; SQLite would otherwise fail one of
	// two concurrent writers with SQLITE_BUSY.
	writeMu sync.Mutex
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stories (
		id             INTEGER PRIMARY KEY,
		title          TEXT NOT NULL,
		episode_number INTEGER NOT NULL DEFAULT 0,
		plot_summary   TEXT NOT NULL,
		scene_count    INTEGER NOT NULL DEFAULT 0,
		payload        TEXT NOT NULL,
		created_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stories_episode ON stories(episode_number);

	CREATE TABLE IF NOT EXISTS counters (
		name  TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO counters (name, value) VALUES ('current_id', 0);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Append(ctx context.Context, p AppendParams) (int, error) {
	if p.Story == nil {
		return 0, fmt.Errorf("append: story required")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if p.Precheck != nil {
		existing, err := queryStories(ctx, tx, `SELECT id, payload FROM stories ORDER BY id`)
		if err != nil {
			return 0, fmt.Errorf("load existing: %w", err)
		}
		if err := p.Precheck(existing); err != nil {
			return 0, err
		}
	}

	var current int
	if err := tx.QueryRowContext(ctx, `SELECT value FROM counters WHERE name = 'current_id'`).Scan(&current); err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	id := current + 1

	st := p.Story.Clone()
	st.ID = id
	if err := insertStory(ctx, tx, st); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE counters SET value = ? WHERE name = 'current_id'`, id); err != nil {
		return 0, fmt.Errorf("bump counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	p.Story.ID = id
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int) (*model.Story, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, payload FROM stories WHERE id = ?`, id)
	st, err := scanStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]model.Story, error) {
	if limit <= 0 {
		return []model.Story{}, nil
	}
	stories, err := queryStories(ctx, s.db, `
		SELECT id, payload FROM (
			SELECT id, payload FROM stories ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(stories), nil
}

func (s *SQLiteStore) All(ctx context.Context) ([]model.Story, error) {
	stories, err := queryStories(ctx, s.db, `SELECT id, payload FROM stories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(stories), nil
}

func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]model.Story, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	// instr matches the query literally, so % and _ are not wildcards.
	q := strings.ToLower(strings.TrimSpace(p.Query))

	stories, err := queryStories(ctx, s.db, `
		SELECT id, payload FROM stories
		WHERE instr(lower(title), ?) > 0 OR instr(lower(plot_summary), ?) > 0
		ORDER BY id DESC
		LIMIT ?`, q, q, limit)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(stories), nil
}

func (s *SQLiteStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var current int
	if err := tx.QueryRowContext(ctx, `SELECT value FROM counters WHERE name = 'current_id'`).Scan(&current); err != nil {
		return nil, fmt.Errorf("read counter: %w", err)
	}
	stories, err := queryStories(ctx, tx, `SELECT id, payload FROM stories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(stories, current), nil
}

// Restore imports a snapshot. Existing ids are kept and skipped.
func (s *SQLiteStore) Restore(ctx context.Context, snap *Snapshot) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	imported := 0
	maxID := snap.CurrentID
	for _, st := range snap.Ordered() {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM stories WHERE id = ?`, st.ID).Scan(&exists)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return imported, err
		}
		if err := insertStory(ctx, tx, &st); err != nil {
			return imported, err
		}
		imported++
		if st.ID > maxID {
			maxID = st.ID
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE counters SET value = MAX(value, ?) WHERE name = 'current_id'`, maxID); err != nil {
		return imported, fmt.Errorf("bump counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return imported, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func insertStory(ctx context.Context, tx execer, st *model.Story) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode story: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO stories (id, title, episode_number, plot_summary, scene_count, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.Title, st.EpisodeNumber, st.PlotSummary, len(st.Scenes), string(payload),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

func queryStories(ctx context.Context, q queryer, query string, args ...interface{}) ([]model.Story, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stories []model.Story
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, st)
	}
	return stories, rows.Err()
}

func scanStory(row scanner) (model.Story, error) {
	var st model.Story
	var id int
	var payload string

	if err := row.Scan(&id, &payload); err != nil {
		return st, err
	}
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return st, fmt.Errorf("decode story %d: %w", id, err)
	}
	st.ID = id
	return st, nil
}
