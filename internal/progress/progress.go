// Package progress tracks how far a content run has got, keyed by generation id.
package progress

import (
	"context"
	"time"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Entry is one progress snapshot. Current counts finished chapters.
type Entry struct {
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	Status    Status    `json:"status"`
	Stage     string    `json:"stage,omitempty"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

func (e Entry) Terminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusError
}

// NotStarted is what Get returns for ids with no entry.
func NotStarted() Entry {
	return Entry{Status: StatusNotStarted}
}

type Tracker interface {
	Set(ctx context.Context, id uint, e Entry) error
	// Get never fails for unknown ids; it returns NotStarted().
	Get(ctx context.Context, id uint) (Entry, error)
	Delete(ctx context.Context, id uint) error
}
