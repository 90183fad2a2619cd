package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rcliao/episode-forge/internal/logger"
	"github.com/rcliao/episode-forge/internal/model"
	"github.com/rcliao/episode-forge/internal/pipeline"
)

// Pipeline is the subset of *pipeline.Coordinator the handlers call.
type Pipeline interface {
	CreateNarrative(ctx context.Context, episode int, theme string) (*pipeline.NarrativeResult, error)
	CreateAudio(ctx context.Context, id int) (*pipeline.Artifact, error)
	CreateVideo(ctx context.Context, id int) (*pipeline.Artifact, error)
	Story(ctx context.Context, id int) (*model.Story, error)
	Recent(ctx context.Context, limit int) ([]model.Story, error)
}

type StoryHandler struct {
	pipeline      Pipeline
	keepArtifacts bool
	log           *logger.Logger
}

func NewStoryHandler(p Pipeline, keepArtifacts bool, log *logger.Logger) *StoryHandler {
	return &StoryHandler{pipeline: p, keepArtifacts: keepArtifacts, log: log.With("handler", "StoryHandler")}
}

type createStoryRequest struct {
	EpisodeNumber *int   `json:"episode_number"`
	Theme         string `json:"theme"`
}

// POST /stories
func (h *StoryHandler) CreateStory(c *gin.Context) {
	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.EpisodeNumber == nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("episode_number is required"))
		return
	}

	res, err := h.pipeline.CreateNarrative(c.Request.Context(), *req.EpisodeNumber, req.Theme)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /stories/:id
func (h *StoryHandler) GetStory(c *gin.Context) {
	id, ok := storyID(c)
	if !ok {
		return
	}
	st, err := h.pipeline.Story(c.Request.Context(), id)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GET /stories?limit=N
func (h *StoryHandler) ListStories(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	stories, err := h.pipeline.Recent(c.Request.Context(), limit)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

// POST /stories/:id/audio
func (h *StoryHandler) CreateAudio(c *gin.Context) {
	h.serveArtifact(c, h.pipeline.CreateAudio)
}

// POST /stories/:id/video
func (h *StoryHandler) CreateVideo(c *gin.Context) {
	h.serveArtifact(c, h.pipeline.CreateVideo)
}

func (h *StoryHandler) serveArtifact(c *gin.Context, render func(context.Context, int) (*pipeline.Artifact, error)) {
	id, ok := storyID(c)
	if !ok {
		return
	}
	art, err := render(c.Request.Context(), id)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	if !h.keepArtifacts {
		defer func() {
			if err := os.Remove(art.Path); err != nil && !os.IsNotExist(err) {
				h.log.Warn("failed to remove served artifact", "path", art.Path, "error", err)
			}
		}()
	}

	c.Header("Content-Type", art.ContentType)
	c.Header("X-Artifact-Source", string(art.Source))
	c.FileAttachment(art.Path, filepath.Base(art.Path))
}

func storyID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid story id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

// GET /healthz
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
