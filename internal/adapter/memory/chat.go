package memory

import (
	"context"
	"sync"

	"moviejournal/internal/domain"
)

// DefaultChatLimit caps the history when NewChatHistory is given a non-positive limit.
const DefaultChatLimit = 500

var _ domain.ChatHistory = (*ChatHistory)(nil)

// ChatHistory keeps the most recent chat lines in process memory.
type ChatHistory struct {
	mu    sync.Mutex
	lines []string
	limit int
}

// NewChatHistory creates an empty history holding at most limit lines.
func NewChatHistory(limit int) *ChatHistory {
	if limit <= 0 {
		limit = DefaultChatLimit
	}
	return &ChatHistory{limit: limit}
}

// Append adds a line, evicting the oldest once the limit is reached.
func (h *ChatHistory) Append(ctx context.Context, line string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lines = append(h.lines, line)
	if over := len(h.lines) - h.limit; over > 0 {
		h.lines = append(h.lines[:0:0], h.lines[over:]...)
	}
	return nil
}

// List returns a copy of the held lines, oldest first.
func (h *ChatHistory) List(ctx context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.lines))
	copy(out, h.lines)
	return out, nil
}

// Clear drops every line.
func (h *ChatHistory) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = nil
	return nil
}
