// Package genaitest provides scripted stand-ins for the completion and
// moderation capabilities.
package genaitest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/genai"
)

// Completer replays Replies in order. When Func is set it is used instead.
type Completer struct {
	mu       sync.Mutex
	Replies  []string
	Func     func(req genai.Request) (string, error)
	Err      error
	requests []genai.Request
}

func NewCompleter(replies ...string) *Completer {
	return &Completer{Replies: replies}
}

func (c *Completer) Complete(ctx context.Context, req genai.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrServiceUnavailable, err)
	}
	if c.Err != nil {
		return "", c.Err
	}
	if c.Func != nil {
		return c.Func(req)
	}
	if len(c.Replies) == 0 {
		return "", fmt.Errorf("%w: completion script exhausted", apperrors.ErrServiceUnavailable)
	}
	reply := c.Replies[0]
	c.Replies = c.Replies[1:]
	return reply, nil
}

// Requests returns a copy of every request received so far.
func (c *Completer) Requests() []genai.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]genai.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// Moderator flags any text containing one of Flagged (case-insensitive).
type Moderator struct {
	mu      sync.Mutex
	Flagged []string
	Err     error
	checked []string
}

func NewModerator(flagged ...string) *Moderator {
	return &Moderator{Flagged: flagged}
}

func (m *Moderator) Moderate(ctx context.Context, text string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checked = append(m.checked, text)
	if m.Err != nil {
		return false, m.Err
	}
	lower := strings.ToLower(text)
	for _, f := range m.Flagged {
		if strings.Contains(lower, strings.ToLower(f)) {
			return true, nil
		}
	}
	return false, nil
}

// Checked returns every text submitted for moderation.
func (m *Moderator) Checked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.checked))
	copy(out, m.checked)
	return out
}
