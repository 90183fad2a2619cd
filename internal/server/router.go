package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rcliao/episode-forge/internal/logger"
)

type RouterConfig struct {
	StoryHandler *StoryHandler
	Log          *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Log != nil {
		r.Use(requestLogger(cfg.Log))
	}

	r.GET("/healthz", Health)

	if h := cfg.StoryHandler; h != nil {
		r.GET("/stories", h.ListStories)
		r.POST("/stories", h.CreateStory)
		r.GET("/stories/:id", h.GetStory)
		r.POST("/stories/:id/audio", h.CreateAudio)
		r.POST("/stories/:id/video", h.CreateVideo)

		// Route names used by earlier clients.
		r.POST("/generate-story", h.CreateStory)
		r.POST("/generate-sound/:id", h.CreateAudio)
		r.POST("/generate-video/:id", h.CreateVideo)
	}
	return r
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		}
		if c.Writer.Status() >= 500 {
			log.Error("request failed", kv...)
			return
		}
		log.Info("request", kv...)
	}
}
