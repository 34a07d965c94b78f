package services

import (
	"errors"
	"fmt"

	"github.com/yungbote/materialgen-backend/internal/data/repos"
	"github.com/yungbote/materialgen-backend/internal/learning/content"
)

var (
	ErrNotFound        = repos.ErrGenerationNotFound
	ErrJobNotFound     = repos.ErrJobNotFound
	ErrChapterNotFound = errors.New("chapter not found in outline")
	ErrBusy            = errors.New("generation already in progress")
	ErrInvalidOutline  = content.ErrInvalidOutline
	ErrMissingOutline  = errors.New("no outline supplied or stored")
	ErrMissingContent  = errors.New("no content supplied or stored")
	ErrInvalidInput    = errors.New("invalid input")
	ErrJobsDisabled    = errors.New("background jobs are not configured")

	errInternal = errors.New("internal error")
)

// PartialError reports a content run that stopped after Completed of Total
// chapters. Completed chapters are already persisted.
type PartialError struct {
	Completed int
	Total     int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("content generation stopped after %d/%d chapters: %v", e.Completed, e.Total, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }
