package narrative

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/episode-forge/internal/model"
)

// DefaultTheme is used when a request carries no theme.
const DefaultTheme = "Continue the story from previous episodes"

const systemPrompt = `You are a professional 3D animated series writer and director.
Generate detailed, engaging stories with cinematic scenes and precise animation instructions.
Focus on visually striking moments that can be animated in 3D.
Respond with a single JSON object and nothing else.`

const castSheet = `Main characters:
1. Leo the Brave: protagonist and leader. Curious, adventurous, fearless. "Adventure awaits!"
2. Mia the Genius: tech expert and inventor of gadgets. "There's a scientific solution!"
3. Ziggy the Talking Squirrel: comic relief with a perfect memory for clues. "Nuts! I remember something!"
4. Professor Wizzle: wise, eccentric, forgetful mentor with magical knowledge. "By the books of wisdom!"
5. RoboMax: loyal, literal-minded protector with super strength and shields. "Protection mode activated!"

Villains:
1. King Gloom: power-hungry but clumsy, wants the magic portal's power. "The power will be mine... oops!"
2. Bloop & Blip: goofy minion ghosts who phase through walls, usually into the wrong room. "Double trouble... or not!"

Helper:
Flora the Fairy: kind and mysterious, provides magical hints. "A sprinkle of magic helps!"`

const requirements = `Every episode must:
- feature at least 4 main characters
- include one magical challenge or mystery
- have a moral lesson
- contain humor and heart
- end with a small cliffhanger or setup for the next episode
- use portals, Mia's gadgets, Ziggy or Bloop & Blip comedy, Professor Wizzle's advice,
  RoboMax action and one of King Gloom's failed schemes`

const outputShape = `{
  "title": "Story title",
  "duration_minutes": 12,
  "main_character": {"name": "", "type": "", "traits": [], "background": "", "catchphrase": ""},
  "supporting_characters": [{"name": "", "type": "", "role": "", "special_ability": ""}],
  "story_connectors": {"magical_elements": [], "special_gadgets": []},
  "plot_summary": "detailed plot summary",
  "visual_style": {"character_design": "", "animation_style": "", "color_palette": [], "lighting_mood": ""},
  "scene_breakdown": [
    {
      "description": "", "setting": "", "characters_present": [], "action": "",
      "comedy_moments": [], "camera_movements": "", "lighting_setup": "", "special_effects": []
    }
  ],
  "moral_message": "",
  "musical_moments": [],
  "next_episode_hook": ""
}`

// History is the set of previous stories that fit the prompt budget.
type History struct {
	Stories []model.Story
	Used    int
	Dropped int
}

// packHistory keeps the newest stories whose indented JSON fits within
// budget bytes and returns them oldest first. previous must be in append
// order. A budget <= 0 keeps everything.
func packHistory(previous []model.Story, budget int) (History, error) {
	h := History{}
	var kept []model.Story
	for i := len(previous) - 1; i >= 0; i-- {
		b, err := json.MarshalIndent(previous[i], "  ", "  ")
		if err != nil {
			return h, fmt.Errorf("encode previous story %d: %w", previous[i].ID, err)
		}
		if budget > 0 && h.Used+len(b) > budget {
			h.Dropped = i + 1
			break
		}
		kept = append(kept, previous[i])
		h.Used += len(b)
	}
	h.Stories = make([]model.Story, 0, len(kept))
	for i := len(kept) - 1; i >= 0; i-- {
		h.Stories = append(h.Stories, kept[i])
	}
	return h, nil
}

// BuildPrompt renders the user prompt for one episode.
func BuildPrompt(episode int, theme string, history []model.Story) (string, error) {
	if strings.TrimSpace(theme) == "" {
		theme = DefaultTheme
	}
	if history == nil {
		history = []model.Story{}
	}
	prev, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode history: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a detailed 3D animated cartoon story for Episode %d.\n\n", episode)
	fmt.Fprintf(&sb, "Theme: %s\n\n", theme)
	sb.WriteString("Previous episodes context:\n")
	sb.Write(prev)
	sb.WriteString("\n\n")
	sb.WriteString(castSheet)
	sb.WriteString("\n\n")
	sb.WriteString(requirements)
	sb.WriteString("\n\nReturn the story as JSON in exactly this shape:\n")
	sb.WriteString(outputShape)
	sb.WriteString("\n")
	return sb.String(), nil
}
