package pipeline

import (
	"errors"
	"fmt"

	"github.com/rcliao/episode-forge/internal/store"
)

var (
	// ErrNotFound means the requested story id does not exist. It is the
	// store's sentinel so either can be matched.
	ErrNotFound = store.ErrNotFound
	// ErrDuplicateDetected means a new story repeats a stored title or plot
	// and the duplicate policy is reject.
	ErrDuplicateDetected = errors.New("duplicate story detected")
	// ErrPrimaryFailure marks a primary backend failure. It is logged and
	// never returned on its own.
	ErrPrimaryFailure = errors.New("primary backend failed")
	// ErrFallbackFailure means both paths of a stage failed.
	ErrFallbackFailure = errors.New("fallback failed")
	// ErrPersistence means the store could not durably record a story.
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidInput means the request was malformed.
	ErrInvalidInput = errors.New("invalid input")
)

// StageError reports a stage whose primary and fallback both failed.
// errors.Is matches ErrFallbackFailure and either cause.
type StageError struct {
	Stage    string
	Primary  error
	Fallback error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v (primary: %v)", e.Stage, e.Fallback, e.Primary)
}

func (e *StageError) Unwrap() []error {
	return []error{ErrFallbackFailure, e.Primary, e.Fallback}
}
