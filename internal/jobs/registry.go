package jobs

import (
	"fmt"
	"sync"
)

// Handler runs one job type. Returning nil marks the job succeeded unless the
// handler already called Succeed or Fail itself.
type Handler interface {
	Type() string
	Run(jc *Context) error
}

type HandlerFunc struct {
	JobType string
	Fn      func(jc *Context) error
}

func (h HandlerFunc) Type() string { return h.JobType }
func (h HandlerFunc) Run(jc *Context) error { return h.Fn(jc) }

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job_type=%s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}
