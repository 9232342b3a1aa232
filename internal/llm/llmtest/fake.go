// Package llmtest provides an in-memory llm.Completer and a mock chat
// completions server for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/FranksOps/scout/internal/llm"
)

// Fake answers each request with Respond and records what it was sent.
// It is safe for concurrent use.
type Fake struct {
	Respond func(req llm.Request) (string, error)

	mu       sync.Mutex
	requests []llm.Request
}

var _ llm.Completer = (*Fake)(nil)

// Complete records req and returns Respond's answer.
func (f *Fake) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Respond == nil {
		return "", nil
	}
	return f.Respond(req)
}

// Requests returns a copy of every request received so far.
func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

// Calls counts requests for stage, or all requests when stage is empty.
func (f *Fake) Calls(stage string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stage == "" {
		return len(f.requests)
	}
	n := 0
	for _, r := range f.requests {
		if r.Stage == stage {
			n++
		}
	}
	return n
}
