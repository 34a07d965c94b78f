package progress

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/materialgen-backend/internal/observability"
)

const (
	DefaultTTL      = 24 * time.Hour
	DefaultCapacity = 10000
)

// MemoryTracker keeps entries in process. Entries idle longer than ttl are
// dropped by Sweep; when full, the least recently updated entry is evicted.
type MemoryTracker struct {
	mu       sync.RWMutex
	entries  map[uint]Entry
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

func NewMemoryTracker(ttl time.Duration, capacity int) *MemoryTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryTracker{
		entries:  make(map[uint]Entry),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

func (m *MemoryTracker) Set(_ context.Context, id uint, e Entry) error {
	e.UpdatedAt = m.now().UTC()
	m.mu.Lock()
	if _, exists := m.entries[id]; !exists && len(m.entries) >= m.capacity {
		m.evictOldestLocked()
	}
	m.entries[id] = e
	n := len(m.entries)
	m.mu.Unlock()
	observability.Current().SetProgressEntries(n)
	return nil
}

func (m *MemoryTracker) Get(_ context.Context, id uint) (Entry, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok || m.expired(e) {
		return NotStarted(), nil
	}
	return e, nil
}

func (m *MemoryTracker) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	delete(m.entries, id)
	n := len(m.entries)
	m.mu.Unlock()
	observability.Current().SetProgressEntries(n)
	return nil
}

func (m *MemoryTracker) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryTracker) expired(e Entry) bool {
	return m.now().Sub(e.UpdatedAt) > m.ttl
}

func (m *MemoryTracker) evictOldestLocked() {
	var (
		oldestID uint
		oldestAt time.Time
		found    bool
	)
	for id, e := range m.entries {
		if !found || e.UpdatedAt.Before(oldestAt) {
			oldestID, oldestAt, found = id, e.UpdatedAt, true
		}
	}
	if found {
		delete(m.entries, oldestID)
	}
}

// Sweep removes expired entries and returns how many were dropped.
func (m *MemoryTracker) Sweep() int {
	m.mu.Lock()
	dropped := 0
	for id, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, id)
			dropped++
		}
	}
	n := len(m.entries)
	m.mu.Unlock()
	observability.Current().SetProgressEntries(n)
	return dropped
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *MemoryTracker) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
