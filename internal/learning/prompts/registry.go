package prompts

import (
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownPrompt = errors.New("unknown prompt")

type Template struct {
	Name        PromptName
	Version     int
	Temperature float64
	MaxTokens   int
	System      func(Input) (string, error)
	User        func(Input) (string, error)
	Validate    Validator
}

var (
	mu       sync.RWMutex
	registry = map[PromptName]Template{}
	once     sync.Once
)

// Register registers a compiled Template, replacing any with the same name.
func Register(t Template) {
	mu.Lock()
	registry[t.Name] = t
	mu.Unlock()
}

func lookup(name PromptName) (Template, bool) {
	once.Do(registerAll)
	mu.RLock()
	defer mu.RUnlock()
	t, ok := registry[name]
	return t, ok
}

// Build renders the named prompt for in.
func Build(name PromptName, in Input) (Prompt, error) {
	t, ok := lookup(name)
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %s", ErrUnknownPrompt, string(name))
	}
	if t.System == nil || t.User == nil {
		return Prompt{}, fmt.Errorf("prompt %s missing system/user renderers", string(name))
	}
	if t.Validate != nil {
		if err := t.Validate(in); err != nil {
			return Prompt{}, fmt.Errorf("%s: %w", string(name), err)
		}
	}
	system, err := t.System(in)
	if err != nil {
		return Prompt{}, fmt.Errorf("%s system render: %w", string(name), err)
	}
	user, err := t.User(in)
	if err != nil {
		return Prompt{}, fmt.Errorf("%s user render: %w", string(name), err)
	}
	return Prompt{
		Name:        string(t.Name),
		Version:     t.Version,
		System:      system,
		User:        user,
		Temperature: t.Temperature,
		MaxTokens:   t.MaxTokens,
	}, nil
}
