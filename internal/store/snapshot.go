package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rcliao/episode-forge/internal/model"
)

// Snapshot is the full store in its persisted shape:
//
//	{"stories": {"1": {...}, "2": {...}}, "current_id": 2}
type Snapshot struct {
	Stories   map[int]model.Story
	CurrentID int

	// Skipped lists entries dropped while decoding: keys that are not ids,
	// and records that are not JSON objects. Their ids are not reused.
	Skipped []string

	// Loose lists "<id>.<field>" members that did not fit their typed field.
	// The story is kept and the raw value travels in its Extra.
	Loose []string
}

// NewSnapshot builds a snapshot from stories that already carry ids.
func NewSnapshot(stories []model.Story, currentID int) *Snapshot {
	snap := &Snapshot{Stories: make(map[int]model.Story, len(stories)), CurrentID: currentID}
	for _, s := range stories {
		snap.Stories[s.ID] = s
		if s.ID > snap.CurrentID {
			snap.CurrentID = s.ID
		}
	}
	return snap
}

// Ordered returns the stories sorted by id, which is append order.
func (s *Snapshot) Ordered() []model.Story {
	ids := make([]int, 0, len(s.Stories))
	for id := range s.Stories {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]model.Story, 0, len(ids))
	for _, id := range ids {
		st := s.Stories[id]
		st.ID = id
		out = append(out, st)
	}
	return out
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	stories := make(map[string]model.Story, len(s.Stories))
	for id, st := range s.Stories {
		st.ID = id
		stories[strconv.Itoa(id)] = st
	}
	return json.Marshal(struct {
		Stories   map[string]model.Story `json:"stories"`
		CurrentID int                    `json:"current_id"`
	}{stories, s.CurrentID})
}

// DecodeSnapshot reads either persisted shape:
//   - a bare list of stories, ids assigned by 1-based position and the
//     counter set to the list length;
//   - a {stories, current_id} mapping, used as is. The counter is raised to
//     the largest stored id if it lags behind.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Snapshot{Stories: map[int]model.Story{}}, nil
	}

	switch data[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode story list: %w", err)
		}
		snap := &Snapshot{Stories: make(map[int]model.Story, len(list)), CurrentID: len(list)}
		for i, msg := range list {
			snap.add(strconv.Itoa(i+1), i+1, msg)
		}
		return snap, nil

	case '{':
		var raw struct {
			Stories   map[string]json.RawMessage `json:"stories"`
			CurrentID int                        `json:"current_id"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode story map: %w", err)
		}
		snap := &Snapshot{Stories: make(map[int]model.Story, len(raw.Stories)), CurrentID: raw.CurrentID}
		for key, msg := range raw.Stories {
			id, err := strconv.Atoi(key)
			if err != nil || id <= 0 {
				snap.Skipped = append(snap.Skipped, key)
				continue
			}
			if id > snap.CurrentID {
				snap.CurrentID = id
			}
			snap.add(key, id, msg)
		}
		sort.Strings(snap.Skipped)
		sort.Strings(snap.Loose)
		return snap, nil
	}

	return nil, fmt.Errorf("unrecognized store shape (starts with %q)", data[0])
}

// add decodes one record under id. A record that is not an object is
// skipped; members of the wrong shape are recorded in Loose.
func (s *Snapshot) add(key string, id int, msg json.RawMessage) {
	var st model.Story
	if err := json.Unmarshal(msg, &st); err != nil {
		s.Skipped = append(s.Skipped, key)
		return
	}
	for _, field := range st.LooseFields() {
		s.Loose = append(s.Loose, key+"."+field)
	}
	st.ID = id
	s.Stories[id] = st
}

// ReadSnapshotFile decodes the snapshot stored at path. A missing file is an
// empty snapshot.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Snapshot{Stories: map[int]model.Story{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	return DecodeSnapshot(data)
}

// writeFileAtomic writes data to a temp file next to path, syncs it and
// renames it over path, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace store file: %w", err)
	}

	// Persist the rename itself. Not every platform allows syncing a dir.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}
