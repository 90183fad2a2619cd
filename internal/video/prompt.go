package video

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/episode-forge/internal/model"
)

// ScenePrompt describes a scene for an image model. Camera, effects and
// character direction are included when the scene carries them.
func ScenePrompt(sc model.Scene) string {
	var sb strings.Builder
	sb.WriteString("Cinematic 3D animated scene in Pixar style, expressive characters, dynamic lighting, rich colors. ")
	fmt.Fprintf(&sb, "Scene: %s. Setting: %s. ", sc.Description, sc.Setting)
	if len(sc.CharactersPresent) > 0 {
		fmt.Fprintf(&sb, "Characters: %s. ", strings.Join(sc.CharactersPresent, ", "))
	}
	if sc.Action != "" {
		fmt.Fprintf(&sb, "Action: %s. ", sc.Action)
	}

	d := sc.Details()
	camera := sc.CameraMovements
	if len(d.CameraWork.Movements) > 0 {
		camera = d.CameraWork.Movements[0]
	}
	if camera != "" {
		fmt.Fprintf(&sb, "Camera: %s. ", camera)
	}
	if len(d.CameraWork.Angles) > 0 {
		fmt.Fprintf(&sb, "Angle: %s. ", d.CameraWork.Angles[0])
	}
	if sc.LightingSetup != "" {
		fmt.Fprintf(&sb, "Lighting: %s. ", sc.LightingSetup)
	}

	effects := append(append(append([]string(nil), d.SpecialEffects.Magical...), d.SpecialEffects.Tech...), sc.SpecialEffects...)
	if len(effects) > 0 {
		fmt.Fprintf(&sb, "Effects: %s. ", strings.Join(effects, ", "))
	}

	if len(d.CharacterMovements) > 0 {
		names := make([]string, 0, len(d.CharacterMovements))
		for name := range d.CharacterMovements {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("Character actions: ")
		for i, name := range names {
			if i > 0 {
				sb.WriteString("; ")
			}
			fmt.Fprintf(&sb, "%s %s", name, d.CharacterMovements[name])
		}
		sb.WriteString(".")
	}
	return strings.TrimSpace(sb.String())
}
