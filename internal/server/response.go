package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rcliao/episode-forge/internal/pipeline"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// respondPipelineError maps pipeline errors to HTTP statuses.
func respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidInput):
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, pipeline.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, pipeline.ErrDuplicateDetected):
		RespondError(c, http.StatusConflict, "duplicate", err)
	case errors.Is(err, pipeline.ErrFallbackFailure):
		RespondError(c, http.StatusInternalServerError, "fallback_failure", err)
	case errors.Is(err, pipeline.ErrPersistence):
		RespondError(c, http.StatusInternalServerError, "persistence_failure", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
