package progress

import (
	"context"
	"sync"
)

// Recorder wraps a Tracker and keeps every Set in order. Tests use it to
// assert on the exact progress sequence of a run.
type Recorder struct {
	Tracker
	mu   sync.Mutex
	sets map[uint][]Entry
}

func NewRecorder(inner Tracker) *Recorder {
	if inner == nil {
		inner = NewMemoryTracker(0, 0)
	}
	return &Recorder{Tracker: inner, sets: map[uint][]Entry{}}
}

func (r *Recorder) Set(ctx context.Context, id uint, e Entry) error {
	r.mu.Lock()
	r.sets[id] = append(r.sets[id], e)
	r.mu.Unlock()
	return r.Tracker.Set(ctx, id, e)
}

// History returns the entries set for id, oldest first.
func (r *Recorder) History(id uint) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.sets[id]...)
}
