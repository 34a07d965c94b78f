// Package mock provides a deterministic completion client for tests and for
// running the service without provider credentials.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/materialgen-backend/internal/platform/llm"
)

type Call struct {
	Prompt string
	Opts   llm.Options
}

// HandlerFunc produces the completion for one call.
type HandlerFunc func(ctx context.Context, prompt string, opts llm.Options) (string, error)

type Client struct {
	mu      sync.Mutex
	handler HandlerFunc
	calls   []Call
}

func New(h HandlerFunc) *Client {
	if h == nil {
		h = Echo
	}
	return &Client{handler: h}
}

func (c *Client) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Prompt: prompt, Opts: opts})
	h := c.handler
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", &llm.UpstreamError{Provider: llm.ProviderMock, Model: opts.Model, Err: err}
	}
	out, err := h(ctx, prompt, opts)
	if err != nil {
		return "", &llm.UpstreamError{Provider: llm.ProviderMock, Model: opts.Model, Err: err}
	}
	return out, nil
}

// Calls returns a copy of the calls seen so far.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallsNamed counts calls whose Options.Name equals name.
func (c *Client) CallsNamed(name string) int {
	n := 0
	for _, call := range c.Calls() {
		if call.Opts.Name == name {
			n++
		}
	}
	return n
}

// Echo answers with a short deterministic string naming the prompt.
func Echo(_ context.Context, prompt string, opts llm.Options) (string, error) {
	return fmt.Sprintf("[%s] %d chars", opts.Name, len([]rune(prompt))), nil
}
