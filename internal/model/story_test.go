package model

import (
	"encoding/json"
	"testing"
)

const sampleStory = `{
  "title": "The Magic Portal Mystery - Episode 3",
  "episode_number": "3",
  "duration_minutes": "12",
  "main_character": {"name": "Leo the Brave", "traits": ["curious"]},
  "plot_summary": "Leo finds a portal.",
  "scene_breakdown": [
    {
      "description": "Opening scene",
      "setting": "Library",
      "characters_present": ["Leo", "Mia"],
      "action": "They find a map",
      "animation_details": {"camera_work": {"movements": ["crane"], "angles": ["low"]}},
      "comedy_moments": [{"moment": "Ziggy trips", "animation": "spin"}, "Wizzle reads upside down"],
      "duration_seconds": 180,
      "mood": "curious"
    }
  ],
  "moral_message": "Teamwork wins",
  "musical_moments": ["Discovery theme"],
  "next_episode_hook": "Flora appears"
}`

func TestStoryDecodeFlexibleInts(t *testing.T) {
	var s Story
	if err := json.Unmarshal([]byte(sampleStory), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.EpisodeNumber != 3 {
		t.Errorf("expected episode 3, got %d", s.EpisodeNumber)
	}
	if s.DurationMinutes != 12 {
		t.Errorf("expected duration 12, got %d", s.DurationMinutes)
	}
	if len(s.Scenes) != 1 || s.Scenes[0].DurationSeconds != 180 {
		t.Fatalf("unexpected scenes: %+v", s.Scenes)
	}
	if got := s.Scenes[0].Details().CameraWork.Movements; len(got) != 1 || got[0] != "crane" {
		t.Errorf("expected camera movement crane, got %v", got)
	}
}

func TestStoryPassThrough(t *testing.T) {
	var s Story
	if err := json.Unmarshal([]byte(sampleStory), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	s.ID = 7

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal out: %v", err)
	}
	if out["id"] != float64(7) {
		t.Errorf("expected id 7, got %v", out["id"])
	}
	if out["duration_minutes"] != float64(12) {
		t.Errorf("expected numeric duration, got %v", out["duration_minutes"])
	}
	if out["next_episode_hook"] != "Flora appears" {
		t.Errorf("expected hook to pass through, got %v", out["next_episode_hook"])
	}
	mc, ok := out["main_character"].(map[string]any)
	if !ok || mc["name"] != "Leo the Brave" {
		t.Errorf("expected main_character to pass through, got %v", out["main_character"])
	}

	scene := out["scene_breakdown"].([]any)[0].(map[string]any)
	if scene["mood"] != "curious" {
		t.Errorf("expected unknown scene field to pass through, got %v", scene["mood"])
	}
	moments := scene["comedy_moments"].([]any)
	if _, ok := moments[0].(map[string]any); !ok {
		t.Errorf("expected first comedy moment to stay an object, got %T", moments[0])
	}
	if moments[1] != "Wizzle reads upside down" {
		t.Errorf("expected second comedy moment to stay a string, got %v", moments[1])
	}
}

func TestStoryMarshalEmptySlices(t *testing.T) {
	b, err := json.Marshal(Story{Title: "x"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	json.Unmarshal(b, &out)
	if _, ok := out["id"]; ok {
		t.Error("expected zero id to be omitted")
	}
	if scenes, ok := out["scene_breakdown"].([]any); !ok || len(scenes) != 0 {
		t.Errorf("expected empty scene list, got %v", out["scene_breakdown"])
	}
}

func TestStoryDecodeLooseFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, s Story)
		loose []string
	}{
		{
			name:  "duration with unit",
			input: `{"title": "a", "duration_minutes": "12 minutes"}`,
			check: func(t *testing.T, s Story) {
				if s.DurationMinutes != 12 {
					t.Errorf("expected 12, got %d", s.DurationMinutes)
				}
			},
		},
		{
			name:  "characters as text",
			input: `{"scene_breakdown": [{"characters_present": "Leo, Mia"}]}`,
			check: func(t *testing.T, s Story) {
				got := s.Scenes[0].CharactersPresent
				if len(got) != 2 || got[0] != "Leo" || got[1] != "Mia" {
					t.Errorf("expected [Leo Mia], got %v", got)
				}
			},
		},
		{
			name:  "numeric comedy moment",
			input: `{"scene_breakdown": [{"comedy_moments": [1, "Ziggy trips"]}]}`,
			check: func(t *testing.T, s Story) {
				got := s.Scenes[0].ComedyMoments
				if len(got) != 2 || got[0].Moment != "1" || got[1].Moment != "Ziggy trips" {
					t.Errorf("unexpected comedy moments %+v", got)
				}
			},
		},
		{
			name:  "unreadable duration",
			input: `{"title": "a", "duration_minutes": "a dozen"}`,
			check: func(t *testing.T, s Story) {
				if s.DurationMinutes != 0 || s.Title != "a" {
					t.Errorf("expected title kept and duration zero, got %+v", s)
				}
			},
			loose: []string{"duration_minutes"},
		},
		{
			name:  "scene field of the wrong shape",
			input: `{"scene_breakdown": [{"setting": {"room": "lab"}, "action": "runs"}]}`,
			check: func(t *testing.T, s Story) {
				if s.Scenes[0].Action != "runs" {
					t.Errorf("expected action kept, got %q", s.Scenes[0].Action)
				}
			},
			loose: []string{"scene_breakdown[0].setting"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Story
			if err := json.Unmarshal([]byte(tt.input), &s); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			tt.check(t, s)
			got := s.LooseFields()
			if len(got) != len(tt.loose) {
				t.Fatalf("expected loose %v, got %v", tt.loose, got)
			}
			for i := range got {
				if got[i] != tt.loose[i] {
					t.Errorf("expected loose %v, got %v", tt.loose, got)
				}
			}
		})
	}
}

func TestStoryLooseValueRoundTrips(t *testing.T) {
	var s Story
	if err := json.Unmarshal([]byte(`{"title": "a", "duration_minutes": "a dozen"}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	json.Unmarshal(b, &out)
	if out["duration_minutes"] != "a dozen" {
		t.Errorf("expected raw duration written back, got %v", out["duration_minutes"])
	}

	s.DurationMinutes = 12
	b, _ = json.Marshal(s)
	json.Unmarshal(b, &out)
	if out["duration_minutes"] != float64(12) {
		t.Errorf("expected a set duration to win over the raw value, got %v", out["duration_minutes"])
	}
}

func TestStoryRejectsNonObject(t *testing.T) {
	var s Story
	if err := json.Unmarshal([]byte(`"just text"`), &s); err == nil {
		t.Error("expected error for a record that is not an object")
	}
}

func TestCloneIsolated(t *testing.T) {
	s := &Story{ID: 1, Scenes: []Scene{{Description: "a"}}, Extra: map[string]json.RawMessage{"k": json.RawMessage(`1`)}}
	c := s.Clone()
	c.ID = 2
	c.Scenes[0].Description = "b"
	c.Extra["k"] = json.RawMessage(`2`)
	if s.ID != 1 || s.Scenes[0].Description != "a" || string(s.Extra["k"]) != "1" {
		t.Error("clone mutated original")
	}
}
