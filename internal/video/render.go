// Package video renders stories into video files.
package video

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/rcliao/episode-forge/internal/model"
)

var (
	sceneBackground   = color.RGBA{R: 50, G: 100, B: 150, A: 255}
	creditsBackground = color.RGBA{R: 30, G: 30, B: 30, A: 255}
)

const (
	textLeft    = 100
	textTop     = 100
	lineSpacing = 50
	fontSize    = 32
)

// Renderer draws placeholder frames for scenes and credits.
type Renderer struct {
	width, height int
	face          font.Face
}

// NewRenderer uses the TrueType font at fontPath, or a built-in bitmap
// face when fontPath is empty.
func NewRenderer(width, height int, fontPath string) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	face := font.Face(basicfont.Face7x13)
	if strings.TrimSpace(fontPath) != "" {
		f, err := loadFontFace(fontPath, fontSize)
		if err != nil {
			return nil, err
		}
		face = f
	}
	return &Renderer{width: width, height: height, face: face}, nil
}

func loadFontFace(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font file: %w", err)
	}
	parsed, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse TTF: %w", err)
	}
	return truetype.NewFace(parsed, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}

// SceneLines returns the text shown on a scene's placeholder frame.
func SceneLines(story *model.Story, sc model.Scene) []string {
	title := story.Title
	if title == "" {
		title = "Story"
	}
	return []string{
		fmt.Sprintf("Episode %d: %s", story.EpisodeNumber, title),
		"Scene: " + sc.Description,
		"Setting: " + sc.Setting,
		"Characters: " + strings.Join(sc.CharactersPresent, ", "),
	}
}

// Scene draws the placeholder frame for one scene.
func (r *Renderer) Scene(story *model.Story, sc model.Scene) image.Image {
	dc := r.canvas(sceneBackground)
	y := float64(textTop)
	for _, line := range SceneLines(story, sc) {
		r.drawLine(dc, line, y)
		y += lineSpacing
	}
	return dc.Image()
}

// Credits draws the closing frame with the story's moral.
func (r *Renderer) Credits(story *model.Story) image.Image {
	dc := r.canvas(creditsBackground)
	r.drawLine(dc, "Moral: "+story.MoralMessage, float64(r.height/2))
	return dc.Image()
}

func (r *Renderer) canvas(bg color.Color) *gg.Context {
	dc := gg.NewContext(r.width, r.height)
	dc.SetColor(bg)
	dc.Clear()
	dc.SetFontFace(r.face)
	dc.SetColor(color.White)
	return dc
}

// drawLine draws text at the left margin, wrapping within the frame.
func (r *Renderer) drawLine(dc *gg.Context, text string, y float64) {
	maxWidth := float64(r.width - 2*textLeft)
	if maxWidth <= 0 {
		maxWidth = float64(r.width)
	}
	for i, part := range dc.WordWrap(text, maxWidth) {
		dc.DrawString(part, textLeft, y+float64(i)*dc.FontHeight()*1.2)
	}
}
