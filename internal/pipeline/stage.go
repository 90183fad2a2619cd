package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/episode-forge/internal/logger"
)

// Source says which path produced a stage result.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// Producer is one path of a stage.
type Producer[T any] func(ctx context.Context) (T, error)

// RunStage tries primary under timeout and, if it fails for any reason,
// runs fallback once. A primary failure is logged and swallowed. A fallback
// failure is returned as a *StageError carrying both causes. There are no
// retries.
func RunStage[T any](ctx context.Context, log *logger.Logger, stage string, timeout time.Duration, primary, fallback Producer[T]) (T, Source, error) {
	start := time.Now()

	if primary != nil {
		pctx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			pctx, cancel = context.WithTimeout(ctx, timeout)
		}
		out, err := primary(pctx)
		cancel()
		if err == nil {
			log.Debug("stage succeeded", "stage", stage, "source", SourcePrimary, "elapsed", time.Since(start))
			return out, SourcePrimary, nil
		}
		log.Warn("primary failed, using fallback", "stage", stage, "error", err, "elapsed", time.Since(start))
		return runFallback(ctx, log, stage, fmt.Errorf("%w: %w", ErrPrimaryFailure, err), fallback)
	}
	return runFallback(ctx, log, stage, fmt.Errorf("%w: not configured", ErrPrimaryFailure), fallback)
}

func runFallback[T any](ctx context.Context, log *logger.Logger, stage string, primaryErr error, fallback Producer[T]) (T, Source, error) {
	var zero T
	if fallback == nil {
		return zero, "", &StageError{Stage: stage, Primary: primaryErr, Fallback: errors.New("no fallback")}
	}
	out, err := fallback(ctx)
	if err != nil {
		log.Error("fallback failed", "stage", stage, "error", err, "primary_error", primaryErr)
		return zero, "", &StageError{Stage: stage, Primary: primaryErr, Fallback: err}
	}
	return out, SourceFallback, nil
}
