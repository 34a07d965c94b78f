package services

import "sync"

// keyLock is a set of per-id try-locks. A held id is refused, not queued.
type keyLock struct {
	mu   sync.Mutex
	held map[uint]struct{}
}

func newKeyLock() *keyLock {
	return &keyLock{held: make(map[uint]struct{})}
}

// TryLock returns an unlock func and true, or nil and false when id is held.
func (k *keyLock) TryLock(id uint) (func(), bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, busy := k.held[id]; busy {
		return nil, false
	}
	k.held[id] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			k.mu.Lock()
			delete(k.held, id)
			k.mu.Unlock()
		})
	}, true
}

func (k *keyLock) Held(id uint) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.held[id]
	return ok
}
