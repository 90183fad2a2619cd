// Package narrative produces story records, either from a language model
// or from a fixed template when the model is unavailable.
package narrative

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/episode-forge/internal/llm"
	"github.com/rcliao/episode-forge/internal/logger"
	"github.com/rcliao/episode-forge/internal/model"
)

// defaultDuration is used when a model response omits duration_minutes.
const defaultDuration = 12

// Request describes the episode to write.
type Request struct {
	Episode int
	Theme   string

	// Previous holds recent stories in append order.
	Previous []model.Story
}

// Completer is the subset of llm.Client the generator needs.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// LLM writes stories with a chat completion model.
type LLM struct {
	client Completer
	budget int
	log    *logger.Logger
}

// NewLLM returns a generator that packs previous stories into budget bytes
// of prompt.
func NewLLM(client Completer, budget int, log *logger.Logger) *LLM {
	return &LLM{client: client, budget: budget, log: log.With("component", "narrative.LLM")}
}

func (g *LLM) Generate(ctx context.Context, req Request) (*model.Story, error) {
	hist, err := packHistory(req.Previous, g.budget)
	if err != nil {
		return nil, err
	}
	if hist.Dropped > 0 {
		g.log.Debug("history trimmed to budget", "kept", len(hist.Stories), "dropped", hist.Dropped, "budget", g.budget)
	}

	prompt, err := BuildPrompt(req.Episode, req.Theme, hist.Stories)
	if err != nil {
		return nil, err
	}

	content, err := g.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}
	return parseStory(content, req.Episode)
}

// parseStory decodes a model response into a story for the given episode.
func parseStory(content string, episode int) (*model.Story, error) {
	content = llm.CleanJSON(content)

	var st model.Story
	if err := json.Unmarshal([]byte(content), &st); err != nil {
		return nil, fmt.Errorf("parse story JSON: %w (raw: %s)", err, truncate(content, 200))
	}
	if strings.TrimSpace(st.Title) == "" {
		return nil, errors.New("story response has no title")
	}
	if strings.TrimSpace(st.PlotSummary) == "" {
		return nil, errors.New("story response has no plot_summary")
	}

	st.ID = 0
	st.EpisodeNumber = episode
	if st.DurationMinutes <= 0 {
		st.DurationMinutes = defaultDuration
	}
	return &st, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

//go:embed template.json
var templateJSON []byte

// Template returns the same fully populated story for every request,
// varying only the episode number and theme.
type Template struct{}

func (Template) Generate(ctx context.Context, req Request) (*model.Story, error) {
	var st model.Story
	if err := json.Unmarshal(templateJSON, &st); err != nil {
		return nil, fmt.Errorf("decode story template: %w", err)
	}

	st.EpisodeNumber = req.Episode
	st.Title = fmt.Sprintf("%s - Episode %d", st.Title, req.Episode)
	plot := fmt.Sprintf("In Episode %d, %s", req.Episode, st.PlotSummary)
	if theme := strings.TrimSpace(req.Theme); theme != "" {
		st.Title += ": " + theme
		plot += " Theme: " + theme + "."
	}
	st.PlotSummary = plot
	return &st, nil
}
