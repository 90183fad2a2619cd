// Package dedup detects stories that repeat an existing title or plot.
package dedup

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/rcliao/episode-forge/internal/model"
)

var fold = cases.Fold()

// Normalize trims surrounding whitespace and applies Unicode case folding.
func Normalize(s string) string {
	return fold.String(strings.TrimSpace(s))
}

// IsDuplicate reports whether candidate shares a normalized title or a
// normalized plot summary with any story in existing. Empty fields never
// match.
func IsDuplicate(candidate *model.Story, existing []model.Story) bool {
	title := Normalize(candidate.Title)
	plot := Normalize(candidate.PlotSummary)
	for i := range existing {
		if title != "" && Normalize(existing[i].Title) == title {
			return true
		}
		if plot != "" && Normalize(existing[i].PlotSummary) == plot {
			return true
		}
	}
	return false
}

// Index answers the same question as IsDuplicate in constant time per
// lookup. It is not safe for concurrent use.
type Index struct {
	titles map[string]struct{}
	plots  map[string]struct{}
}

// NewIndex builds an index over stories.
func NewIndex(stories []model.Story) *Index {
	idx := &Index{
		titles: make(map[string]struct{}, len(stories)),
		plots:  make(map[string]struct{}, len(stories)),
	}
	for i := range stories {
		idx.Add(&stories[i])
	}
	return idx
}

// Add records the story's normalized title and plot summary.
func (idx *Index) Add(s *model.Story) {
	if t := Normalize(s.Title); t != "" {
		idx.titles[t] = struct{}{}
	}
	if p := Normalize(s.PlotSummary); p != "" {
		idx.plots[p] = struct{}{}
	}
}

// Contains reports whether s duplicates any indexed story.
func (idx *Index) Contains(s *model.Story) bool {
	if _, ok := idx.titles[Normalize(s.Title)]; ok {
		return true
	}
	_, ok := idx.plots[Normalize(s.PlotSummary)]
	return ok
}

// Policy decides what happens to a story flagged as a duplicate.
type Policy string

const (
	// PolicyIgnore stores the story and only logs the flag.
	PolicyIgnore Policy = "ignore"
	// PolicyWarn stores the story and reports the flag to the caller.
	PolicyWarn Policy = "warn"
	// PolicyReject refuses to store the story.
	PolicyReject Policy = "reject"
)

// ParsePolicy parses a policy name. The empty string means PolicyIgnore.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyIgnore, nil
	case PolicyIgnore, PolicyWarn, PolicyReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q (want ignore, warn or reject)", s)
	}
}

// CountDuplicates returns how many stories, taken in order, repeat an
// earlier story's title or plot summary.
func CountDuplicates(stories []model.Story) int {
	idx := NewIndex(nil)
	n := 0
	for i := range stories {
		if idx.Contains(&stories[i]) {
			n++
		}
		idx.Add(&stories[i])
	}
	return n
}
