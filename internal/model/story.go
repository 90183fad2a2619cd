// Package model defines the narrative record types.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Story is one generated episode. Fields the pipeline does not interpret
// (characters, visual style, connectors, hooks) are kept in Extra and
// survive a decode/encode round trip unchanged.
type Story struct {
	ID              int
	Title           string
	EpisodeNumber   int
	DurationMinutes int
	PlotSummary     string
	Scenes          []Scene
	MusicalMoments  []string
	MoralMessage    string

	Extra map[string]json.RawMessage

	loose []string
}

type storyWire struct {
	ID              flexInt  `json:"id,omitempty"`
	Title           string   `json:"title"`
	EpisodeNumber   flexInt  `json:"episode_number"`
	DurationMinutes flexInt  `json:"duration_minutes"`
	PlotSummary     string   `json:"plot_summary"`
	Scenes          []Scene  `json:"scene_breakdown"`
	MusicalMoments  []string `json:"musical_moments"`
	MoralMessage    string   `json:"moral_message"`
}

// MarshalJSON merges the known fields with the pass-through payload.
func (s Story) MarshalJSON() ([]byte, error) {
	w := storyWire{
		ID:              flexInt(s.ID),
		Title:           s.Title,
		EpisodeNumber:   flexInt(s.EpisodeNumber),
		DurationMinutes: flexInt(s.DurationMinutes),
		PlotSummary:     s.PlotSummary,
		Scenes:          s.Scenes,
		MusicalMoments:  s.MusicalMoments,
		MoralMessage:    s.MoralMessage,
	}
	if w.Scenes == nil {
		w.Scenes = []Scene{}
	}
	if w.MusicalMoments == nil {
		w.MusicalMoments = []string{}
	}
	return mergeExtra(w, s.Extra)
}

// UnmarshalJSON is lenient. Numbers may arrive as strings and lists as
// comma-separated text, which language models produce regularly. A member
// that still does not fit its field is kept in Extra and reported by
// LooseFields; only a value that is not a JSON object is an error.
func (s *Story) UnmarshalJSON(data []byte) error {
	f, err := newFields(data)
	if err != nil {
		return err
	}
	var (
		id, episode, duration flexInt
		title, plot, moral    flexString
		musical               flexStrings
		scenes                []Scene
	)
	decodeField(f, "id", &id)
	decodeField(f, "title", &title)
	decodeField(f, "episode_number", &episode)
	decodeField(f, "duration_minutes", &duration)
	decodeField(f, "plot_summary", &plot)
	decodeField(f, "scene_breakdown", &scenes)
	decodeField(f, "musical_moments", &musical)
	decodeField(f, "moral_message", &moral)

	*s = Story{
		ID:              int(id),
		Title:           string(title),
		EpisodeNumber:   int(episode),
		DurationMinutes: int(duration),
		PlotSummary:     string(plot),
		Scenes:          scenes,
		MusicalMoments:  []string(musical),
		MoralMessage:    string(moral),
		Extra:           f.extra(),
		loose:           f.loose,
	}
	return nil
}

// LooseFields lists the members that did not fit their typed field when
// the story was decoded, scene members as "scene_breakdown[i].key".
func (s *Story) LooseFields() []string {
	out := append([]string(nil), s.loose...)
	for i, sc := range s.Scenes {
		for _, key := range sc.loose {
			out = append(out, fmt.Sprintf("scene_breakdown[%d].%s", i, key))
		}
	}
	return out
}

// Clone returns a deep enough copy that mutating the clone's ID or slices
// does not affect the original.
func (s *Story) Clone() *Story {
	c := *s
	c.Scenes = append([]Scene(nil), s.Scenes...)
	c.MusicalMoments = append([]string(nil), s.MusicalMoments...)
	if s.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// Scene is one entry of a story's scene breakdown.
type Scene struct {
	Description       string
	Setting           string
	CharactersPresent []string
	Action            string
	ComedyMoments     []ComedyMoment
	CameraMovements   string
	LightingSetup     string
	SpecialEffects    []string
	DurationSeconds   int

	// AnimationDetails is kept raw; Details decodes it on demand.
	AnimationDetails json.RawMessage

	Extra map[string]json.RawMessage

	loose []string
}

type sceneWire struct {
	Description       string          `json:"description"`
	Setting           string          `json:"setting"`
	CharactersPresent []string        `json:"characters_present"`
	Action            string          `json:"action"`
	AnimationDetails  json.RawMessage `json:"animation_details,omitempty"`
	ComedyMoments     []ComedyMoment  `json:"comedy_moments,omitempty"`
	CameraMovements   string          `json:"camera_movements,omitempty"`
	LightingSetup     string          `json:"lighting_setup,omitempty"`
	SpecialEffects    []string        `json:"special_effects,omitempty"`
	DurationSeconds   flexInt         `json:"duration_seconds,omitempty"`
}

func (sc Scene) MarshalJSON() ([]byte, error) {
	w := sceneWire{
		Description:       sc.Description,
		Setting:           sc.Setting,
		CharactersPresent: sc.CharactersPresent,
		Action:            sc.Action,
		AnimationDetails:  sc.AnimationDetails,
		ComedyMoments:     sc.ComedyMoments,
		CameraMovements:   sc.CameraMovements,
		LightingSetup:     sc.LightingSetup,
		SpecialEffects:    sc.SpecialEffects,
		DurationSeconds:   flexInt(sc.DurationSeconds),
	}
	if w.CharactersPresent == nil {
		w.CharactersPresent = []string{}
	}
	return mergeExtra(w, sc.Extra)
}

func (sc *Scene) UnmarshalJSON(data []byte) error {
	f, err := newFields(data)
	if err != nil {
		return err
	}
	var (
		desc, setting, action, camera, lighting flexString
		characters, effects                     flexStrings
		comedy                                  []ComedyMoment
		seconds                                 flexInt
		details                                 json.RawMessage
	)
	decodeField(f, "description", &desc)
	decodeField(f, "setting", &setting)
	decodeField(f, "characters_present", &characters)
	decodeField(f, "action", &action)
	decodeField(f, "animation_details", &details)
	decodeField(f, "comedy_moments", &comedy)
	decodeField(f, "camera_movements", &camera)
	decodeField(f, "lighting_setup", &lighting)
	decodeField(f, "special_effects", &effects)
	decodeField(f, "duration_seconds", &seconds)

	*sc = Scene{
		Description:       string(desc),
		Setting:           string(setting),
		CharactersPresent: []string(characters),
		Action:            string(action),
		AnimationDetails:  details,
		ComedyMoments:     comedy,
		CameraMovements:   string(camera),
		LightingSetup:     string(lighting),
		SpecialEffects:    []string(effects),
		DurationSeconds:   int(seconds),
		Extra:             f.extra(),
		loose:             f.loose,
	}
	return nil
}

// AnimationDetails is the optional per-scene direction block.
type AnimationDetails struct {
	CharacterMovements map[string]string `json:"character_movements"`
	CameraWork         struct {
		Movements []string `json:"movements"`
		Angles    []string `json:"angles"`
	} `json:"camera_work"`
	SpecialEffects struct {
		Magical []string `json:"magical"`
		Tech    []string `json:"tech"`
	} `json:"special_effects"`
}

// Details decodes AnimationDetails. A missing or malformed block yields
// the zero value.
func (sc Scene) Details() AnimationDetails {
	var d AnimationDetails
	if len(sc.AnimationDetails) > 0 {
		_ = json.Unmarshal(sc.AnimationDetails, &d)
	}
	return d
}

// ComedyMoment is either a bare string or a {moment, animation} object;
// the original shape is preserved when re-encoded.
type ComedyMoment struct {
	Moment    string
	Animation string

	object bool
}

func (c ComedyMoment) MarshalJSON() ([]byte, error) {
	if !c.object && c.Animation == "" {
		return json.Marshal(c.Moment)
	}
	return json.Marshal(struct {
		Moment    string `json:"moment"`
		Animation string `json:"animation,omitempty"`
	}{c.Moment, c.Animation})
}

func (c *ComedyMoment) UnmarshalJSON(data []byte) error {
	if trimmed := strings.TrimSpace(string(data)); !strings.HasPrefix(trimmed, "{") {
		var text flexString
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*c = ComedyMoment{Moment: string(text)}
		return nil
	}
	var obj struct {
		Moment    string `json:"moment"`
		Animation string `json:"animation"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*c = ComedyMoment{Moment: obj.Moment, Animation: obj.Animation, object: true}
	return nil
}
